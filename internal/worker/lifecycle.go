package worker

import "context"

// OnInstall takes control of every already connected instance without a waiting period.
func (worker *Worker) OnInstall() int {
	claimer, ok := worker.registry.(Claimer)
	if !ok {
		return 0
	}
	return claimer.Claim()
}

func (worker *Worker) OnActivate() []Effect {
	return []Effect{func(ctx context.Context) error {
		worker.logger.Log(ctx, "Push worker is running")
		return nil
	}}
}
