package worker

import (
	"context"
	"fmt"

	"github.com/gordonpn/pushworker/internal/metrics"
)

// BadgeController sets or clears the host badge and degrades gracefully when the host
// has no badge capability.
type BadgeController struct {
	surface BadgeSurface
	logger  *Broadcaster
	metrics *metrics.Metrics
}

func NewBadgeController(surface BadgeSurface, logger *Broadcaster, m *metrics.Metrics) *BadgeController {
	return &BadgeController{surface: surface, logger: logger, metrics: m}
}

func (controller *BadgeController) Set(ctx context.Context, count int) error {
	if count < 0 {
		err := &PlatformError{Op: "set badge", Err: fmt.Errorf("negative badge count %d", count)}
		controller.logger.Log(ctx, fmt.Sprintf("Error setting badge: %v", err.Err))
		controller.metrics.RecordBadge("set", "error")
		return err
	}
	if !controller.supported(ctx) {
		return controller.unsupported(ctx, "set")
	}

	if err := controller.surface.SetBadge(ctx, count); err != nil {
		controller.logger.Log(ctx, fmt.Sprintf("Error setting badge: %v", err))
		controller.metrics.RecordBadge("set", "error")
		return &PlatformError{Op: "set badge", Err: err}
	}

	controller.logger.Log(ctx, "Badge displayed")
	controller.metrics.RecordBadge("set", "ok")
	return nil
}

func (controller *BadgeController) Clear(ctx context.Context) error {
	if !controller.supported(ctx) {
		return controller.unsupported(ctx, "clear")
	}

	if err := controller.surface.ClearBadge(ctx); err != nil {
		controller.logger.Log(ctx, fmt.Sprintf("Error clearing badge: %v", err))
		controller.metrics.RecordBadge("clear", "error")
		return &PlatformError{Op: "clear badge", Err: err}
	}

	controller.logger.Log(ctx, "Badge cleared")
	controller.metrics.RecordBadge("clear", "ok")
	return nil
}

func (controller *BadgeController) supported(ctx context.Context) bool {
	return controller.surface != nil && controller.surface.Supported(ctx)
}

func (controller *BadgeController) unsupported(ctx context.Context, operation string) error {
	controller.logger.Log(ctx, "Badge API is not available")
	controller.metrics.RecordBadge(operation, "unsupported")
	return ErrUnsupported
}
