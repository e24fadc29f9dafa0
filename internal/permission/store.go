package permission

import (
	"context"
	"sync"

	"github.com/gordonpn/pushworker/internal/domain"
)

// Store holds the notification permission reported by the foreground. The worker only
// reads it; the foreground owns the request flow.
type Store interface {
	Permission(ctx context.Context) (domain.PermissionState, error)
	SetPermission(ctx context.Context, state domain.PermissionState) error
}

type Memory struct {
	mu    sync.RWMutex
	state domain.PermissionState
}

func NewMemory(initial domain.PermissionState) *Memory {
	if initial == "" {
		initial = domain.PermissionDefault
	}
	return &Memory{state: initial}
}

func (memory *Memory) Permission(context.Context) (domain.PermissionState, error) {
	memory.mu.RLock()
	defer memory.mu.RUnlock()
	return memory.state, nil
}

func (memory *Memory) SetPermission(_ context.Context, state domain.PermissionState) error {
	memory.mu.Lock()
	memory.state = state
	memory.mu.Unlock()
	return nil
}
