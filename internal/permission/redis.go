package permission

import (
	"context"
	"errors"
	"fmt"

	"github.com/gordonpn/pushworker/internal/domain"
	"github.com/gordonpn/pushworker/internal/metrics"
	"github.com/redis/go-redis/v9"
)

const DefaultKey = "push:permission"

type Redis struct {
	client  *redis.Client
	key     string
	metrics *metrics.Metrics
}

func NewRedis(client *redis.Client, key string, m *metrics.Metrics) *Redis {
	if key == "" {
		key = DefaultKey
	}
	return &Redis{client: client, key: key, metrics: m}
}

// Permission treats a missing key as the default state.
func (store *Redis) Permission(ctx context.Context) (domain.PermissionState, error) {
	value, err := store.client.Get(ctx, store.key).Result()
	if errors.Is(err, redis.Nil) {
		return domain.PermissionDefault, nil
	}
	if err != nil {
		store.metrics.RecordRedisOperationError()
		return "", fmt.Errorf("read permission key=%s: %w", store.key, err)
	}

	state, err := domain.ParsePermission(value)
	if err != nil {
		return "", fmt.Errorf("read permission key=%s: %w", store.key, err)
	}
	return state, nil
}

func (store *Redis) SetPermission(ctx context.Context, state domain.PermissionState) error {
	if err := store.client.Set(ctx, store.key, string(state), 0).Err(); err != nil {
		store.metrics.RecordRedisOperationError()
		return fmt.Errorf("write permission key=%s: %w", store.key, err)
	}
	return nil
}
