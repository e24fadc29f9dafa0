package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gordonpn/pushworker/internal/domain"
)

// OnPush handles one delivered push event: the badge is set to the demo count and the
// notification is shown concurrently. Failures are reported once and never rolled back.
// A missing badge capability is tolerated; a refused notification is not.
func (worker *Worker) OnPush(payload domain.PushPayload) []Effect {
	title := payload.Title()
	if title == "" {
		title = DefaultPushTitle
	}
	body := payload.Body()
	if body == "" {
		body = DefaultPushBody
	}

	return []Effect{func(ctx context.Context) error {
		started := time.Now()
		err := jointWith(ctx, isPushFailure,
			func(ctx context.Context) error { return worker.badge.Set(ctx, worker.config.PushBadgeCount) },
			func(ctx context.Context) error { return worker.presenter.Show(ctx, title, body) },
		)
		worker.metrics.RecordPush(time.Since(started), err != nil)
		if err != nil {
			worker.logger.Log(ctx, fmt.Sprintf("Background push processing failed. %v", err))
		}
		return nil
	}}
}

func isPushFailure(err error) bool {
	return err != nil && !errors.Is(err, ErrUnsupported)
}
