package worker

import (
	"context"

	"github.com/gordonpn/pushworker/internal/domain"
)

// PermissionQuery reads the current notification permission. It is called right before
// every display attempt.
type PermissionQuery interface {
	Permission(ctx context.Context) (domain.PermissionState, error)
}

// BadgeSurface is the host badge. Writes are last-writer-wins.
type BadgeSurface interface {
	Supported(ctx context.Context) bool
	SetBadge(ctx context.Context, count int) error
	ClearBadge(ctx context.Context) error
}

// NotificationSurface displays a notification on the host.
type NotificationSurface interface {
	Show(ctx context.Context, notification domain.Notification) error
}

// ClientRegistry enumerates connected foreground instances and posts to them.
type ClientRegistry interface {
	ListInstances(ctx context.Context) ([]domain.InstanceHandle, error)
	PostTo(ctx context.Context, instance domain.InstanceHandle, message domain.BroadcastMessage) error
}

// Claimer is implemented by registries that can take control of already connected
// instances without waiting for them to reconnect.
type Claimer interface {
	Claim() int
}
