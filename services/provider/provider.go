package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"skywatch/models"
)

// StatusProvider is the plugin contract for a flight status source. The
// registry constructs every implementation once at startup; sources that
// cannot be configured stay registered but never enter the fallback order.
type StatusProvider interface {
	Name() string
	Priority() int
	Available() bool
	Fetch(ctx context.Context, flight string, departure time.Time) (*models.FlightStatus, error)
}

// HealthChecker is optionally implemented by providers with a cheap liveness
// probe. The registry uses it to close open circuit breakers early.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ErrNotConfigured marks a provider whose credential is missing; it is
// excluded at startup and never retried.
var ErrNotConfigured = errors.New("API key not configured")

// Error records one source failing one call. It never aborts an
// aggregation; the caller logs it and advances to the next provider.
type Error struct {
	Provider string
	Op       string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// RateLimitError reports a source throttling us. The aggregator skips the
// provider for the rest of the aggregation instead of retrying it.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("provider %s: rate limited, retry after %s", e.Provider, e.RetryAfter)
}

// Metrics tracks rolling health numbers for one provider. All methods are
// safe for concurrent use.
type Metrics struct {
	mu                sync.Mutex
	totalRequests     int64
	failedRequests    int64
	rateLimitHits     int64
	avgResponseMillis float64
	lastError         string
	lastSuccess       time.Time
}

// RecordSuccess folds a successful call into the rolling response average.
func (m *Metrics) RecordSuccess(elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRequests++
	millis := float64(elapsed.Milliseconds())
	if m.avgResponseMillis == 0 {
		m.avgResponseMillis = millis
	} else {
		m.avgResponseMillis = m.avgResponseMillis*0.9 + millis*0.1
	}
	m.lastSuccess = time.Now()
	m.lastError = ""
}

// RecordFailure counts a failed call and keeps its error for diagnostics.
func (m *Metrics) RecordFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRequests++
	m.failedRequests++
	if err != nil {
		m.lastError = err.Error()
	}
}

// RecordRateLimit counts a throttled call.
func (m *Metrics) RecordRateLimit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimitHits++
}

// SetLastError overrides the diagnostic error, used for startup exclusions.
func (m *Metrics) SetLastError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = msg
}

// LastError returns the most recent error message, empty after a success.
func (m *Metrics) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// SuccessRate returns the fraction of calls that succeeded, 1.0 before any
// call has been made.
func (m *Metrics) SuccessRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.totalRequests == 0 {
		return 1.0
	}
	return float64(m.totalRequests-m.failedRequests) / float64(m.totalRequests)
}

// Snapshot copies the counters into a diagnostics block.
func (m *Metrics) Snapshot() models.ProviderDiagnostics {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := models.ProviderDiagnostics{
		TotalRequests:     m.totalRequests,
		FailedRequests:    m.failedRequests,
		RateLimitHits:     m.rateLimitHits,
		AvgResponseMillis: m.avgResponseMillis,
		LastError:         m.lastError,
	}
	if m.totalRequests == 0 {
		d.SuccessRate = 1.0
	} else {
		d.SuccessRate = float64(m.totalRequests-m.failedRequests) / float64(m.totalRequests)
	}
	return d
}

// markDisruption derives the disruption flag and kind from the status code.
func markDisruption(s *models.FlightStatus) {
	switch s.Status {
	case models.StatusDelayed, models.StatusCancelled, models.StatusDiverted:
		s.IsDisrupted = true
		s.DisruptionType = s.Status
	}
}
