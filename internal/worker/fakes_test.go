package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/gordonpn/pushworker/internal/domain"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	mu        sync.Mutex
	instances []domain.InstanceHandle
	failing   map[string]bool
	panicking map[string]bool
	listErr   error
	delivered map[string][]domain.BroadcastMessage
	claims    int
}

func newFakeRegistry(count int) *fakeRegistry {
	registry := &fakeRegistry{
		failing:   make(map[string]bool),
		panicking: make(map[string]bool),
		delivered: make(map[string][]domain.BroadcastMessage),
	}
	for index := range count {
		registry.instances = append(registry.instances, domain.InstanceHandle{ID: fmt.Sprintf("tab-%d", index)})
	}
	return registry
}

func (registry *fakeRegistry) ListInstances(context.Context) ([]domain.InstanceHandle, error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if registry.listErr != nil {
		return nil, registry.listErr
	}
	return append([]domain.InstanceHandle(nil), registry.instances...), nil
}

func (registry *fakeRegistry) PostTo(_ context.Context, instance domain.InstanceHandle, message domain.BroadcastMessage) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if registry.panicking[instance.ID] {
		panic("connection torn down")
	}
	if registry.failing[instance.ID] {
		return errors.New("instance unreachable")
	}
	registry.delivered[instance.ID] = append(registry.delivered[instance.ID], message)
	return nil
}

func (registry *fakeRegistry) Claim() int {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.claims++
	for index := range registry.instances {
		registry.instances[index].Controlled = true
	}
	return len(registry.instances)
}

func (registry *fakeRegistry) messages(id string) []domain.BroadcastMessage {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	return append([]domain.BroadcastMessage(nil), registry.delivered[id]...)
}

// logs returns the LOG messages seen by the first instance.
func (registry *fakeRegistry) logs() []string {
	var result []string
	for _, message := range registry.messages("tab-0") {
		if message.Type == domain.TypeLog {
			result = append(result, message.Message)
		}
	}
	return result
}

func (registry *fakeRegistry) totalDelivered() int {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	total := 0
	for _, messages := range registry.delivered {
		total += len(messages)
	}
	return total
}

type fakeBadge struct {
	mu        sync.Mutex
	supported bool
	setErr    error
	clearErr  error
	sets      []int
	clears    int
	calls     int
}

func (badge *fakeBadge) Supported(context.Context) bool {
	return badge.supported
}

func (badge *fakeBadge) SetBadge(_ context.Context, count int) error {
	badge.mu.Lock()
	defer badge.mu.Unlock()
	badge.calls++
	if badge.setErr != nil {
		return badge.setErr
	}
	badge.sets = append(badge.sets, count)
	return nil
}

func (badge *fakeBadge) ClearBadge(context.Context) error {
	badge.mu.Lock()
	defer badge.mu.Unlock()
	badge.calls++
	if badge.clearErr != nil {
		return badge.clearErr
	}
	badge.clears++
	return nil
}

func (badge *fakeBadge) snapshot() (sets []int, clears, calls int) {
	badge.mu.Lock()
	defer badge.mu.Unlock()
	return append([]int(nil), badge.sets...), badge.clears, badge.calls
}

type fakePermissions struct {
	mu     sync.Mutex
	states []domain.PermissionState
	err    error
	reads  int
}

func grantedPermissions() *fakePermissions {
	return &fakePermissions{states: []domain.PermissionState{domain.PermissionGranted}}
}

func permissionsOf(state domain.PermissionState) *fakePermissions {
	return &fakePermissions{states: []domain.PermissionState{state}}
}

// Permission returns the configured states in order, repeating the last one.
func (permissions *fakePermissions) Permission(context.Context) (domain.PermissionState, error) {
	permissions.mu.Lock()
	defer permissions.mu.Unlock()
	permissions.reads++
	if permissions.err != nil {
		return "", permissions.err
	}
	index := min(permissions.reads-1, len(permissions.states)-1)
	return permissions.states[index], nil
}

type fakeSurface struct {
	mu    sync.Mutex
	err   error
	shown []domain.Notification
	calls int
}

func (surface *fakeSurface) Show(_ context.Context, notification domain.Notification) error {
	surface.mu.Lock()
	defer surface.mu.Unlock()
	surface.calls++
	if surface.err != nil {
		return surface.err
	}
	surface.shown = append(surface.shown, notification)
	return nil
}

func (surface *fakeSurface) snapshot() ([]domain.Notification, int) {
	surface.mu.Lock()
	defer surface.mu.Unlock()
	return append([]domain.Notification(nil), surface.shown...), surface.calls
}

type testHarness struct {
	worker      *Worker
	registry    *fakeRegistry
	badge       *fakeBadge
	permissions *fakePermissions
	surface     *fakeSurface
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	harness := &testHarness{
		registry:    newFakeRegistry(1),
		badge:       &fakeBadge{supported: true},
		permissions: grantedPermissions(),
		surface:     &fakeSurface{},
	}
	harness.worker = New(DefaultConfig(), Ports{
		Registry:      harness.registry,
		Badge:         harness.badge,
		Notifications: harness.surface,
		Permissions:   harness.permissions,
	}, nil)
	return harness
}

func runEffects(t *testing.T, effects []Effect) error {
	t.Helper()
	return NewRuntime(nil).Run(t.Context(), "test", effects...)
}

func requireLogs(t *testing.T, registry *fakeRegistry, expected ...string) {
	t.Helper()
	require.Equal(t, expected, registry.logs())
}
