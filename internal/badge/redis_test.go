package badge

import (
	"context"
	"testing"
	"time"

	"github.com/gordonpn/pushworker/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisSurface_WithoutClientIsUnsupported(t *testing.T) {
	surface := NewRedisSurface(nil, "", nil)

	assert.False(t, surface.Supported(context.Background()))

	state, err := surface.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.BadgeState{Supported: false, Cleared: true}, state)
}

func TestRedisSurface_DefaultKey(t *testing.T) {
	surface := NewRedisSurface(nil, "", nil)
	assert.Equal(t, DefaultKey, surface.key)
}

func TestRedisSurface_WrapsRedisErrors(t *testing.T) {
	surface := NewRedisSurface(unreachableClient(t), "test:badge", nil)
	ctx := context.Background()

	assert.True(t, surface.Supported(ctx))

	err := surface.SetBadge(ctx, 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set badge key=test:badge")

	err = surface.ClearBadge(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear badge key=test:badge")

	_, err = surface.State(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read badge key=test:badge")
}
