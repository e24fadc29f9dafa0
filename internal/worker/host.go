package worker

import (
	"context"
	"log"

	"github.com/gordonpn/pushworker/internal/domain"
)

// Host binds the stateless Worker to a Runtime, the way the platform binds a worker
// script to its event loop.
type Host struct {
	worker  *Worker
	runtime *Runtime
}

func NewHost(worker *Worker, runtime *Runtime) *Host {
	return &Host{worker: worker, runtime: runtime}
}

// Start installs the worker, claiming every connected instance, then activates it.
func (host *Host) Start() {
	claimed := host.worker.OnInstall()
	log.Printf("worker installed claimed_instances=%d", claimed)
	host.runtime.Dispatch("activate", host.worker.OnActivate()...)
}

func (host *Host) Push(payload domain.PushPayload) bool {
	return host.runtime.Dispatch("push", host.worker.OnPush(payload)...)
}

// Message handles a raw frame posted by a foreground instance. The receipt log is part of
// the kept-alive work.
func (host *Host) Message(raw []byte) bool {
	frame := append([]byte(nil), raw...)
	return host.runtime.Dispatch("message", func(ctx context.Context) error {
		return host.runtime.Run(ctx, "message", host.worker.OnMessage(ctx, frame)...)
	})
}

func (host *Host) Shutdown(ctx context.Context) error {
	return host.runtime.Shutdown(ctx)
}
