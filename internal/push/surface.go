package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gordonpn/pushworker/internal/domain"
)

var ErrNoSubscriptions = errors.New("no push subscriptions")

type SubscriptionLister interface {
	ListForTopic(ctx context.Context, topic string) ([]domain.Subscription, error)
}

type notificationMessage struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
}

// Surface displays notifications by sending them as Web Push messages to every browser
// subscribed to the topic.
type Surface struct {
	subscriptions SubscriptionLister
	dispatcher    *Dispatcher
	topic         string
}

func NewSurface(subscriptions SubscriptionLister, dispatcher *Dispatcher, topic string) *Surface {
	return &Surface{
		subscriptions: subscriptions,
		dispatcher:    dispatcher,
		topic:         domain.NormalizeTopic(topic),
	}
}

// Show returns once every message is queued. Delivery failures are handled by the dispatcher.
func (surface *Surface) Show(ctx context.Context, notification domain.Notification) error {
	if !surface.dispatcher.Configured() {
		return ErrMissingVAPID
	}

	subscriptions, err := surface.subscriptions.ListForTopic(ctx, surface.topic)
	if err != nil {
		return fmt.Errorf("list subscriptions topic=%s: %w", surface.topic, err)
	}
	if len(subscriptions) == 0 {
		return fmt.Errorf("%w: topic=%s", ErrNoSubscriptions, surface.topic)
	}

	payload, err := json.Marshal(notificationMessage{
		Title: notification.Title,
		Body:  notification.Body,
		Icon:  notification.Icon,
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	if _, err := surface.dispatcher.EnqueueMany(ctx, subscriptions, payload); err != nil {
		return fmt.Errorf("queue notification: %w", err)
	}
	return nil
}
