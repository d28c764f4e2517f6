package provider

import (
	"context"
	"sort"
	"time"

	"skywatch/models"
	"skywatch/utils"

	"go.uber.org/zap"
)

// Entry pairs a registered provider with its runtime health state.
type Entry struct {
	Provider StatusProvider
	Metrics  *Metrics
	breaker  *breaker
}

// RecordSuccess routes a successful call into metrics and breaker.
func (e *Entry) RecordSuccess(elapsed time.Duration) {
	e.Metrics.RecordSuccess(elapsed)
	e.breaker.RecordSuccess()
}

// RecordFailure routes a failed call into metrics and breaker.
func (e *Entry) RecordFailure(err error, now time.Time) {
	e.Metrics.RecordFailure(err)
	e.breaker.RecordFailure(now)
}

// Registry holds every configured status provider in fallback order and
// tracks availability, metrics and circuit state. All registration happens
// at startup, before any fetch; the entry list is read-only afterwards.
type Registry struct {
	entries []*Entry
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a provider. A non-nil constructionErr marks it excluded at
// startup: it stays visible in diagnostics but never serves calls.
func (r *Registry) Register(p StatusProvider, constructionErr error) {
	entry := &Entry{Provider: p, Metrics: &Metrics{}, breaker: newBreaker()}
	if constructionErr != nil {
		entry.Metrics.SetLastError(constructionErr.Error())
		utils.GetLogger().Warn("status provider excluded at startup",
			zap.String("provider", p.Name()), zap.Error(constructionErr))
	}
	r.entries = append(r.entries, entry)
	sort.SliceStable(r.entries, func(i, j int) bool {
		return r.entries[i].Provider.Priority() > r.entries[j].Provider.Priority()
	})
}

// Ordered returns the entries eligible for a fetch right now, highest
// priority first: available, with a closed or half-open breaker.
func (r *Registry) Ordered(now time.Time) []*Entry {
	var out []*Entry
	for _, e := range r.entries {
		if !e.Provider.Available() {
			continue
		}
		if !e.breaker.Allow(now) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// All returns every registered entry regardless of eligibility.
func (r *Registry) All() []*Entry {
	return r.entries
}

// Diagnostics renders the per-provider stats block.
func (r *Registry) Diagnostics() []models.ProviderDiagnostics {
	now := time.Now()
	out := make([]models.ProviderDiagnostics, 0, len(r.entries))
	for _, e := range r.entries {
		d := e.Metrics.Snapshot()
		d.Name = e.Provider.Name()
		d.Priority = e.Provider.Priority()
		d.Available = e.Provider.Available()
		d.CircuitOpen = e.breaker.IsOpen(now)
		out = append(out, d)
	}
	return out
}

// StartHealthLoop probes unhealthy providers on a fixed cadence and closes
// their breakers when they answer again. It blocks until ctx is cancelled.
func (r *Registry) StartHealthLoop(ctx context.Context, interval time.Duration) {
	logger := utils.GetLogger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runHealthChecks(ctx, logger)
		}
	}
}

func (r *Registry) runHealthChecks(ctx context.Context, logger *zap.Logger) {
	now := time.Now()
	for _, e := range r.entries {
		hc, ok := e.Provider.(HealthChecker)
		if !ok || !e.Provider.Available() || !e.breaker.IsOpen(now) {
			continue
		}
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := hc.HealthCheck(probeCtx)
		cancel()
		if err != nil {
			logger.Debug("provider health probe failed",
				zap.String("provider", e.Provider.Name()), zap.Error(err))
			continue
		}
		e.breaker.RecordSuccess()
		logger.Info("provider recovered, circuit closed",
			zap.String("provider", e.Provider.Name()))
	}
}
