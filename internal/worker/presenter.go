package worker

import (
	"context"
	"fmt"

	"github.com/gordonpn/pushworker/internal/domain"
	"github.com/gordonpn/pushworker/internal/metrics"
)

// Presenter shows notifications. Permission is re-read before every attempt because the
// user may change it at any time.
type Presenter struct {
	permissions PermissionQuery
	surface     NotificationSurface
	icon        string
	logger      *Broadcaster
	metrics     *metrics.Metrics
}

func NewPresenter(permissions PermissionQuery, surface NotificationSurface, icon string, logger *Broadcaster, m *metrics.Metrics) *Presenter {
	return &Presenter{permissions: permissions, surface: surface, icon: icon, logger: logger, metrics: m}
}

func (presenter *Presenter) Show(ctx context.Context, title, body string) error {
	state, err := presenter.permission(ctx)
	if err != nil {
		presenter.logger.Log(ctx, fmt.Sprintf("Error reading notification permission: %v", err))
		presenter.metrics.RecordNotification("error")
		return &PlatformError{Op: "read permission", Err: err}
	}
	if state != domain.PermissionGranted {
		presenter.logger.Log(ctx, "No permission to show notifications")
		presenter.metrics.RecordNotification("permission_denied")
		return ErrPermissionDenied
	}
	if presenter.surface == nil {
		presenter.logger.Log(ctx, "Notification API is not available")
		presenter.metrics.RecordNotification("unsupported")
		return ErrUnsupported
	}

	notification := domain.Notification{Title: title, Body: body, Icon: presenter.icon}
	if err := presenter.surface.Show(ctx, notification); err != nil {
		presenter.logger.Log(ctx, fmt.Sprintf("Error showing notification: %v", err))
		presenter.metrics.RecordNotification("error")
		return &PlatformError{Op: "show notification", Err: err}
	}

	presenter.logger.Log(ctx, "Notification is shown successfully")
	presenter.metrics.RecordNotification("shown")
	return nil
}

func (presenter *Presenter) permission(ctx context.Context) (domain.PermissionState, error) {
	if presenter.permissions == nil {
		return domain.PermissionDefault, nil
	}
	return presenter.permissions.Permission(ctx)
}
