package worker

import (
	"context"
	"fmt"
	"log"

	"github.com/gordonpn/pushworker/internal/domain"
	"github.com/gordonpn/pushworker/internal/metrics"
)

// Broadcaster fans typed messages out to every connected foreground instance. It doubles
// as the worker's logger since the worker has no console of its own.
type Broadcaster struct {
	registry ClientRegistry
	metrics  *metrics.Metrics
}

func NewBroadcaster(registry ClientRegistry, m *metrics.Metrics) *Broadcaster {
	return &Broadcaster{registry: registry, metrics: m}
}

// Broadcast posts to every instance, controlled or not, and returns how many accepted the
// message. A failing instance never stops delivery to the others and never reaches the caller.
func (broadcaster *Broadcaster) Broadcast(ctx context.Context, messageType, message string) int {
	if broadcaster == nil || broadcaster.registry == nil {
		return 0
	}

	instances, err := broadcaster.registry.ListInstances(ctx)
	if err != nil {
		log.Printf("broadcast skipped type=%s err=%v", messageType, err)
		return 0
	}

	payload := domain.BroadcastMessage{Type: messageType, Message: message}
	delivered, failed := 0, 0
	for _, instance := range instances {
		if err := broadcaster.post(ctx, instance, payload); err != nil {
			failed++
			log.Printf("broadcast delivery failed instance=%s type=%s err=%v", instance.ID, messageType, err)
			continue
		}
		delivered++
	}

	broadcaster.metrics.RecordBroadcast(delivered, failed)
	return delivered
}

// Log records message locally and broadcasts it as a LOG message.
func (broadcaster *Broadcaster) Log(ctx context.Context, message string) {
	log.Printf("[worker] %s", message)
	broadcaster.Broadcast(ctx, domain.TypeLog, message)
}

func (broadcaster *Broadcaster) post(ctx context.Context, instance domain.InstanceHandle, message domain.BroadcastMessage) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("post panicked: %v", recovered)
		}
	}()
	return broadcaster.registry.PostTo(ctx, instance, message)
}
