package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/gordonpn/pushworker/internal/domain"
	"github.com/gordonpn/pushworker/internal/metrics"
	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "push:inbound"

// PushHandler receives every decoded inbound push. It reports whether the event was accepted.
type PushHandler func(payload domain.PushPayload) bool

// RedisSource delivers push events published on a Redis channel.
type RedisSource struct {
	client  *redis.Client
	channel string
	metrics *metrics.Metrics
}

func NewRedisSource(client *redis.Client, channel string, m *metrics.Metrics) *RedisSource {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisSource{client: client, channel: channel, metrics: m}
}

// Run subscribes and forwards messages until ctx is done.
func (source *RedisSource) Run(ctx context.Context, handle PushHandler) error {
	subscription := source.client.Subscribe(ctx, source.channel)
	defer func() { _ = subscription.Close() }()

	if _, err := subscription.Receive(ctx); err != nil {
		source.metrics.RecordRedisOperationError()
		return fmt.Errorf("subscribe channel=%s: %w", source.channel, err)
	}
	log.Printf("push transport subscribed channel=%s", source.channel)

	messages := subscription.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case message, ok := <-messages:
			if !ok {
				return nil
			}
			source.deliver(message.Payload, handle)
		}
	}
}

func (source *RedisSource) deliver(raw string, handle PushHandler) {
	payload, err := domain.DecodePushPayload([]byte(raw))
	if err != nil {
		log.Printf("push transport dropped message channel=%s err=%v", source.channel, err)
		return
	}
	if !handle(payload) {
		log.Printf("push transport rejected message channel=%s reason=shutting_down", source.channel)
	}
}

// Publish emits one push event on channel and returns the number of receivers.
func Publish(ctx context.Context, client *redis.Client, channel string, payload domain.PushPayload) (int64, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode push payload: %w", err)
	}
	receivers, err := client.Publish(ctx, channel, body).Result()
	if err != nil {
		return 0, fmt.Errorf("publish channel=%s: %w", channel, err)
	}
	return receivers, nil
}
