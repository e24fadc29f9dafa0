package badge

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gordonpn/pushworker/internal/domain"
	"github.com/gordonpn/pushworker/internal/metrics"
	"github.com/redis/go-redis/v9"
)

const DefaultKey = "push:badge"

// RedisSurface keeps the unread count in a single Redis key so every process sharing the
// instance sees the same badge. A missing key means the badge is cleared.
type RedisSurface struct {
	client  *redis.Client
	key     string
	metrics *metrics.Metrics
}

func NewRedisSurface(client *redis.Client, key string, m *metrics.Metrics) *RedisSurface {
	if key == "" {
		key = DefaultKey
	}
	return &RedisSurface{client: client, key: key, metrics: m}
}

func (surface *RedisSurface) Supported(context.Context) bool {
	return surface != nil && surface.client != nil
}

func (surface *RedisSurface) SetBadge(ctx context.Context, count int) error {
	if err := surface.client.Set(ctx, surface.key, count, 0).Err(); err != nil {
		surface.metrics.RecordRedisOperationError()
		return fmt.Errorf("set badge key=%s: %w", surface.key, err)
	}
	return nil
}

func (surface *RedisSurface) ClearBadge(ctx context.Context) error {
	if err := surface.client.Del(ctx, surface.key).Err(); err != nil {
		surface.metrics.RecordRedisOperationError()
		return fmt.Errorf("clear badge key=%s: %w", surface.key, err)
	}
	return nil
}

// State reads the badge for the status endpoint.
func (surface *RedisSurface) State(ctx context.Context) (domain.BadgeState, error) {
	if !surface.Supported(ctx) {
		return domain.BadgeState{Supported: false, Cleared: true}, nil
	}

	value, err := surface.client.Get(ctx, surface.key).Result()
	if errors.Is(err, redis.Nil) {
		return domain.BadgeState{Supported: true, Cleared: true}, nil
	}
	if err != nil {
		surface.metrics.RecordRedisOperationError()
		return domain.BadgeState{}, fmt.Errorf("read badge key=%s: %w", surface.key, err)
	}

	count, err := strconv.Atoi(value)
	if err != nil {
		return domain.BadgeState{}, fmt.Errorf("parse badge key=%s value=%q: %w", surface.key, value, err)
	}
	return domain.BadgeState{Supported: true, Count: count}, nil
}
