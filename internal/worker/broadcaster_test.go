package worker

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gordonpn/pushworker/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestBroadcaster_FanOut(t *testing.T) {
	t.Parallel()

	for _, count := range []int{0, 1, 5} {
		t.Run(fmt.Sprintf("instances_%d", count), func(t *testing.T) {
			t.Parallel()

			registry := newFakeRegistry(count)
			broadcaster := NewBroadcaster(registry, nil)

			delivered := broadcaster.Broadcast(t.Context(), domain.TypeLog, "hello")

			assert.Equal(t, count, delivered)
			assert.Equal(t, count, registry.totalDelivered())
			for _, instance := range registry.instances {
				assert.Equal(t, []domain.BroadcastMessage{{Type: domain.TypeLog, Message: "hello"}}, registry.messages(instance.ID))
			}
		})
	}
}

func TestBroadcaster_IncludesUncontrolledInstances(t *testing.T) {
	t.Parallel()

	registry := newFakeRegistry(2)
	registry.instances[0].Controlled = true

	delivered := NewBroadcaster(registry, nil).Broadcast(t.Context(), "PING", "")

	assert.Equal(t, 2, delivered)
}

func TestBroadcaster_FailureIsIsolated(t *testing.T) {
	t.Parallel()

	registry := newFakeRegistry(4)
	registry.failing["tab-1"] = true
	registry.panicking["tab-2"] = true
	broadcaster := NewBroadcaster(registry, nil)

	var delivered int
	assert.NotPanics(t, func() {
		delivered = broadcaster.Broadcast(t.Context(), domain.TypeLog, "partial")
	})

	assert.Equal(t, 2, delivered)
	assert.Len(t, registry.messages("tab-0"), 1)
	assert.Len(t, registry.messages("tab-3"), 1)
	assert.Empty(t, registry.messages("tab-1"))
}

func TestBroadcaster_SingleFailureKeepsOthersAtNMinusOne(t *testing.T) {
	t.Parallel()

	const instances = 6
	registry := newFakeRegistry(instances)
	registry.failing["tab-3"] = true

	NewBroadcaster(registry, nil).Log(t.Context(), "fan out")

	assert.Equal(t, instances-1, registry.totalDelivered())
}

func TestBroadcaster_ListErrorIsSwallowed(t *testing.T) {
	t.Parallel()

	registry := newFakeRegistry(2)
	registry.listErr = errors.New("clients unavailable")

	assert.Equal(t, 0, NewBroadcaster(registry, nil).Broadcast(t.Context(), domain.TypeLog, "lost"))
}

func TestBroadcaster_NilIsSafe(t *testing.T) {
	t.Parallel()

	var broadcaster *Broadcaster
	assert.NotPanics(t, func() {
		broadcaster.Log(t.Context(), "nobody listens")
	})
	assert.Equal(t, 0, NewBroadcaster(nil, nil).Broadcast(t.Context(), domain.TypeLog, "x"))
}
