package worker

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Effect is one unit of asynchronous work an event handler asks the host to keep the
// worker alive for.
type Effect func(ctx context.Context) error

// joint runs effects concurrently, waits for all of them and returns the first real failure.
// Expected outcomes (ErrUnsupported, ErrPermissionDenied) are not failures and a failing
// effect never cancels or undoes its siblings.
func joint(ctx context.Context, effects ...Effect) error {
	return jointWith(ctx, IsFailure, effects...)
}

// jointWith is joint with the caller deciding which errors count as failures.
func jointWith(ctx context.Context, failed func(error) bool, effects ...Effect) error {
	var group errgroup.Group
	for _, effect := range effects {
		group.Go(func() error {
			if err := recoverEffect(ctx, effect); failed(err) {
				return err
			}
			return nil
		})
	}
	return group.Wait()
}

func recoverEffect(ctx context.Context, effect Effect) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("effect panicked: %v", recovered)
		}
	}()
	return effect(ctx)
}
