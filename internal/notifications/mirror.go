package notifications

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/gordonpn/pushworker/internal/domain"
)

var ErrNoSurface = errors.New("no notification surface configured")

// Surface is anything that can display a notification.
type Surface interface {
	Show(ctx context.Context, notification domain.Notification) error
}

// Mirror displays on a primary surface and copies every displayed notification to the
// configured notifiers. Without a primary, the notifiers are the display and the
// notification counts as shown once any of them accepts it.
type Mirror struct {
	primary   Surface
	notifiers []Notifier
}

func NewMirror(primary Surface, notifiers ...Notifier) *Mirror {
	return &Mirror{primary: primary, notifiers: notifiers}
}

func (mirror *Mirror) Show(ctx context.Context, notification domain.Notification) error {
	if mirror.Empty() {
		return ErrNoSurface
	}
	if mirror.primary != nil {
		if err := mirror.primary.Show(ctx, notification); err != nil {
			return err
		}
	}

	note := Notification{
		ID:    uuid.NewString(),
		Title: notification.Title,
		Body:  notification.Body,
		Icon:  notification.Icon,
	}

	var errs []error
	for _, notifier := range mirror.notifiers {
		if err := notifier.Notify(ctx, note); err != nil {
			log.Printf("notification mirror failed notifier=%s id=%s err=%v", notifier.Name(), note.ID, err)
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}

	if mirror.primary == nil && len(errs) == len(mirror.notifiers) {
		return errors.Join(errs...)
	}
	return nil
}

// Empty reports whether the mirror has nothing to display on.
func (mirror *Mirror) Empty() bool {
	return mirror.primary == nil && len(mirror.notifiers) == 0
}
