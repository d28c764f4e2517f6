package provider

import (
	"sync"
	"time"
)

const (
	breakerThreshold = 5
	breakerCooldown  = 5 * time.Minute
)

// breaker is a per-provider circuit breaker. It opens after a run of
// consecutive failures and half-opens once the cooldown passes, letting a
// single probe through.
type breaker struct {
	mu          sync.Mutex
	threshold   int
	cooldown    time.Duration
	consecutive int
	open        bool
	openedAt    time.Time
}

func newBreaker() *breaker {
	return &breaker{threshold: breakerThreshold, cooldown: breakerCooldown}
}

// Allow reports whether a call may go through: closed, or open with the
// cooldown elapsed (half-open probe).
func (b *breaker) Allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	return now.Sub(b.openedAt) >= b.cooldown
}

// IsOpen reports whether the breaker is currently open, ignoring half-open
// probes.
func (b *breaker) IsOpen(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open && now.Sub(b.openedAt) < b.cooldown
}

// RecordSuccess closes the breaker and clears the failure run.
func (b *breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutive = 0
	b.open = false
}

// RecordFailure extends the failure run and opens the breaker at threshold.
func (b *breaker) RecordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutive++
	if b.consecutive >= b.threshold {
		b.open = true
		b.openedAt = now
	}
}
