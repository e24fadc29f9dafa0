package push

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gordonpn/pushworker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sentMessage struct {
	endpoint string
	payload  string
	topic    string
}

type fakeSender struct {
	mu       sync.Mutex
	statuses []int
	errs     []error
	sent     []sentMessage
}

func (sender *fakeSender) send(payload []byte, subscription *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	sender.mu.Lock()
	defer sender.mu.Unlock()

	attempt := len(sender.sent)
	sender.sent = append(sender.sent, sentMessage{endpoint: subscription.Endpoint, payload: string(payload), topic: options.Topic})

	if attempt < len(sender.errs) && sender.errs[attempt] != nil {
		return nil, sender.errs[attempt]
	}
	status := http.StatusCreated
	if attempt < len(sender.statuses) {
		status = sender.statuses[attempt]
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(""))}, nil
}

func (sender *fakeSender) messages() []sentMessage {
	sender.mu.Lock()
	defer sender.mu.Unlock()
	return append([]sentMessage(nil), sender.sent...)
}

func testConfig() Config {
	return Config{
		WorkerCount:        1,
		QueueSize:          8,
		MaxRetries:         2,
		RetryBaseBackoffMS: 1,
		VAPIDPublicKey:     "public",
		VAPIDPrivateKey:    "private",
		VAPIDSubject:       "mailto:ops@example.com",
	}
}

func subscription(endpoint string) domain.Subscription {
	return domain.Subscription{Endpoint: endpoint, P256DH: "key", Auth: "auth", Topics: []string{domain.DefaultTopic}}
}

func runDispatcher(t *testing.T, config Config, sender *fakeSender, deleteByEndpoint DeleteByEndpointFunc, items ...domain.Subscription) {
	t.Helper()

	dispatcher := New(config, deleteByEndpoint, nil).WithSender(sender.send)
	dispatcher.Start()
	for _, item := range items {
		require.NoError(t, dispatcher.Enqueue(context.Background(), item, []byte(`{"title":"t"}`)))
	}
	dispatcher.Stop()
}

func TestDispatcher_SendsOnce(t *testing.T) {
	sender := &fakeSender{}
	runDispatcher(t, testConfig(), sender, nil, subscription("https://push.example.com/abc"))

	sent := sender.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "https://push.example.com/abc", sent[0].endpoint)
	assert.Equal(t, `{"title":"t"}`, sent[0].payload)
	assert.Equal(t, "push-worker", sent[0].topic)
}

func TestDispatcher_UsesConfiguredTopic(t *testing.T) {
	config := testConfig()
	config.Topic = "lectures"
	sender := &fakeSender{}
	runDispatcher(t, config, sender, nil, subscription("https://push.example.com/abc"))

	sent := sender.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "lectures", sent[0].topic)
}

func TestDispatcher_RetriesServerErrors(t *testing.T) {
	sender := &fakeSender{statuses: []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusBadGateway}}
	runDispatcher(t, testConfig(), sender, nil, subscription("https://push.example.com/abc"))

	assert.Len(t, sender.messages(), 3)
}

func TestDispatcher_RetriesTransportErrors(t *testing.T) {
	sender := &fakeSender{errs: []error{errors.New("connection reset")}}
	runDispatcher(t, testConfig(), sender, nil, subscription("https://push.example.com/abc"))

	assert.Len(t, sender.messages(), 2)
}

func TestDispatcher_DoesNotRetryClientErrors(t *testing.T) {
	sender := &fakeSender{statuses: []int{http.StatusBadRequest}}
	runDispatcher(t, testConfig(), sender, nil, subscription("https://push.example.com/abc"))

	assert.Len(t, sender.messages(), 1)
}

func TestDispatcher_DeletesGoneSubscriptions(t *testing.T) {
	sender := &fakeSender{statuses: []int{http.StatusGone}}
	var deleted []string
	deleteByEndpoint := func(_ context.Context, endpoint string) error {
		deleted = append(deleted, endpoint)
		return nil
	}

	runDispatcher(t, testConfig(), sender, deleteByEndpoint, subscription("https://push.example.com/gone"))

	assert.Len(t, sender.messages(), 1)
	assert.Equal(t, []string{"https://push.example.com/gone"}, deleted)
}

func TestDispatcher_SkipsWithoutVAPID(t *testing.T) {
	config := testConfig()
	config.VAPIDPrivateKey = ""
	sender := &fakeSender{}

	runDispatcher(t, config, sender, nil, subscription("https://push.example.com/abc"))

	assert.Empty(t, sender.messages())
}

func TestDispatcher_EnqueueAfterStop(t *testing.T) {
	dispatcher := New(testConfig(), nil, nil).WithSender((&fakeSender{}).send)
	dispatcher.Start()
	dispatcher.Stop()
	dispatcher.Stop()

	err := dispatcher.Enqueue(context.Background(), subscription("https://push.example.com/abc"), nil)
	assert.ErrorIs(t, err, ErrDispatcherStopped)
}

func TestDispatcher_EnqueueHonoursContext(t *testing.T) {
	config := testConfig()
	config.QueueSize = 1
	dispatcher := New(config, nil, nil)

	require.NoError(t, dispatcher.Enqueue(context.Background(), subscription("https://push.example.com/a"), nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := dispatcher.Enqueue(ctx, subscription("https://push.example.com/b"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedactEndpoint(t *testing.T) {
	assert.Equal(t, "https://fcm.googleapis.com", redactEndpoint("https://fcm.googleapis.com/fcm/send/secret"))
	assert.Equal(t, "unknown", redactEndpoint(""))
	assert.Equal(t, "unknown", redactEndpoint("not-a-url"))
}
