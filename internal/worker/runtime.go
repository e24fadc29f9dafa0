package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/gordonpn/pushworker/internal/metrics"
)

var ErrShuttingDown = errors.New("worker is shutting down")

// Runtime executes the effects returned by event handlers and keeps the process alive
// until every one of them has settled. Effects are never cancelled and have no timeout.
type Runtime struct {
	metrics *metrics.Metrics

	mu       sync.Mutex
	closed   bool
	inFlight sync.WaitGroup
}

func NewRuntime(m *metrics.Metrics) *Runtime {
	return &Runtime{metrics: m}
}

// Dispatch runs the effects of one event in the background. It returns false when the
// runtime no longer accepts events.
func (runtime *Runtime) Dispatch(event string, effects ...Effect) bool {
	runtime.mu.Lock()
	if runtime.closed {
		runtime.mu.Unlock()
		runtime.metrics.RecordDroppedEvent()
		log.Printf("event dropped event=%s err=%v", event, ErrShuttingDown)
		return false
	}
	runtime.inFlight.Add(1)
	runtime.mu.Unlock()

	go func() {
		defer runtime.inFlight.Done()
		if err := runtime.Run(context.Background(), event, effects...); err != nil {
			log.Printf("event settled with failures event=%s err=%v", event, err)
		}
	}()
	return true
}

// Run executes effects concurrently and waits for all of them. Panics are recovered and
// reported as failures; expected outcomes are not.
func (runtime *Runtime) Run(ctx context.Context, event string, effects ...Effect) error {
	ctx = context.WithoutCancel(ctx)

	results := make([]error, len(effects))
	var waitGroup sync.WaitGroup
	for index, effect := range effects {
		waitGroup.Add(1)
		runtime.metrics.RecordEffectStarted()
		go func() {
			defer waitGroup.Done()
			results[index] = runtime.settle(ctx, event, effect)
		}()
	}
	waitGroup.Wait()

	var failures []error
	for _, err := range results {
		if IsFailure(err) {
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}

// Shutdown stops accepting events and waits for in-flight effects or ctx, whichever
// comes first.
func (runtime *Runtime) Shutdown(ctx context.Context) error {
	runtime.mu.Lock()
	runtime.closed = true
	runtime.mu.Unlock()

	done := make(chan struct{})
	go func() {
		runtime.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight effects: %w", ctx.Err())
	}
}

func (runtime *Runtime) settle(ctx context.Context, event string, effect Effect) (err error) {
	panicked := false
	defer func() {
		if recovered := recover(); recovered != nil {
			panicked = true
			err = fmt.Errorf("effect for %s panicked: %v", event, recovered)
			log.Printf("effect panic recovered event=%s panic=%v", event, recovered)
		}
		runtime.metrics.RecordEffectSettled(panicked)
	}()
	return effect(ctx)
}
