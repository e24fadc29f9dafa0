package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a sliding-window counter keyed by caller, usually the client IP.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	attempts map[string][]time.Time
}

func New(limit int, window time.Duration) *Limiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}

	return &Limiter{
		limit:    limit,
		window:   window,
		now:      time.Now,
		attempts: make(map[string][]time.Time),
	}
}

func (limiter *Limiter) Allow(key string) bool {
	now := limiter.now()
	cutoff := now.Add(-limiter.window)

	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	recent := prune(limiter.attempts[key], cutoff)
	if len(recent) >= limiter.limit {
		limiter.attempts[key] = recent
		return false
	}

	limiter.attempts[key] = append(recent, now)
	return true
}

// Sweep drops keys with no attempts inside the window and returns how many remain.
func (limiter *Limiter) Sweep() int {
	cutoff := limiter.now().Add(-limiter.window)

	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	for key, attempts := range limiter.attempts {
		recent := prune(attempts, cutoff)
		if len(recent) == 0 {
			delete(limiter.attempts, key)
			continue
		}
		limiter.attempts[key] = recent
	}
	return len(limiter.attempts)
}

func prune(attempts []time.Time, cutoff time.Time) []time.Time {
	pruned := attempts[:0]
	for _, timestamp := range attempts {
		if timestamp.After(cutoff) {
			pruned = append(pruned, timestamp)
		}
	}
	return pruned
}
