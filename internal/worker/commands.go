package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gordonpn/pushworker/internal/domain"
)

// OnMessage logs receipt of a raw client frame and returns the effects of the command it
// carries. Frames that do not decode, and unknown kinds, only produce the receipt log.
func (worker *Worker) OnMessage(ctx context.Context, raw []byte) []Effect {
	worker.logger.Log(ctx, "Got message "+describeFrame(raw))

	command, err := domain.ParseCommand(raw)
	if err != nil {
		worker.metrics.RecordCommand("invalid")
		return nil
	}
	return worker.OnCommand(command)
}

func (worker *Worker) OnCommand(command domain.ClientCommand) []Effect {
	if command.Type.Known() {
		worker.metrics.RecordCommand(string(command.Type))
	} else {
		worker.metrics.RecordCommand("unknown")
	}

	switch command.Type {
	case domain.CommandShowLocalNotification:
		return []Effect{worker.showLocalNotification}
	case domain.CommandShowNotification:
		title, body := command.TitleOrEmpty(), command.BodyOrEmpty()
		return []Effect{func(ctx context.Context) error {
			return worker.presenter.Show(ctx, title, body)
		}}
	case domain.CommandAppOpen:
		return []Effect{worker.badge.Clear}
	case domain.CommandRequestPush:
		// Reserved for a server-initiated push; receipt is the only acknowledgment.
		return nil
	}
	return nil
}

func (worker *Worker) showLocalNotification(ctx context.Context) error {
	err := joint(ctx,
		func(ctx context.Context) error {
			return worker.presenter.Show(ctx, LocalNotificationTitle, LocalNotificationBody)
		},
		func(ctx context.Context) error { return worker.badge.Set(ctx, worker.config.LocalBadgeCount) },
	)
	if err != nil {
		worker.logger.Log(ctx, fmt.Sprintf("Local notification processing failed. %v", err))
	}
	return nil
}

func describeFrame(raw []byte) string {
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return strconv.Quote(string(raw))
	}
	return compact.String()
}
