package push

import (
	"context"
	"errors"
	"testing"

	"github.com/gordonpn/pushworker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	subscriptions []domain.Subscription
	err           error
	topics        []string
}

func (lister *fakeLister) ListForTopic(_ context.Context, topic string) ([]domain.Subscription, error) {
	lister.topics = append(lister.topics, topic)
	return lister.subscriptions, lister.err
}

func TestSurface_QueuesNotificationForEverySubscription(t *testing.T) {
	sender := &fakeSender{}
	dispatcher := New(testConfig(), nil, nil).WithSender(sender.send)
	dispatcher.Start()

	lister := &fakeLister{subscriptions: []domain.Subscription{
		subscription("https://push.example.com/a"),
		subscription("https://push.example.com/b"),
	}}
	surface := NewSurface(lister, dispatcher, "")

	err := surface.Show(context.Background(), domain.Notification{Title: "New Message", Body: "You have a new message", Icon: "./icon-192.png"})
	require.NoError(t, err)
	dispatcher.Stop()

	assert.Equal(t, []string{domain.DefaultTopic}, lister.topics)
	sent := sender.messages()
	require.Len(t, sent, 2)
	for _, message := range sent {
		assert.JSONEq(t, `{"title":"New Message","body":"You have a new message","icon":"./icon-192.png"}`, message.payload)
	}
}

func TestSurface_Failures(t *testing.T) {
	listErr := errors.New("connection refused")

	tests := []struct {
		name    string
		config  func(*Config)
		lister  *fakeLister
		wantErr error
	}{
		{
			name:    "missing vapid",
			config:  func(config *Config) { config.VAPIDSubject = "" },
			lister:  &fakeLister{subscriptions: []domain.Subscription{subscription("https://push.example.com/a")}},
			wantErr: ErrMissingVAPID,
		},
		{
			name:    "no subscriptions",
			lister:  &fakeLister{},
			wantErr: ErrNoSubscriptions,
		},
		{
			name:    "list failure",
			lister:  &fakeLister{err: listErr},
			wantErr: listErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := testConfig()
			if tt.config != nil {
				tt.config(&config)
			}
			dispatcher := New(config, nil, nil)
			surface := NewSurface(tt.lister, dispatcher, "alerts")

			err := surface.Show(context.Background(), domain.Notification{Title: "t"})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSurface_StoppedDispatcher(t *testing.T) {
	dispatcher := New(testConfig(), nil, nil)
	dispatcher.Start()
	dispatcher.Stop()

	surface := NewSurface(&fakeLister{subscriptions: []domain.Subscription{subscription("https://push.example.com/a")}}, dispatcher, "")

	err := surface.Show(context.Background(), domain.Notification{Title: "t"})
	assert.ErrorIs(t, err, ErrDispatcherStopped)
}
