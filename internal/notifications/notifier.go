package notifications

import "context"

// Notification is the destination-agnostic copy of a displayed notification.
type Notification struct {
	ID    string
	Title string
	Body  string
	Icon  string
}

// Notifier publishes notifications to a single destination.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}
