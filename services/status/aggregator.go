package status

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"skywatch/models"
	"skywatch/services/provider"
	"skywatch/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrNoStatusAvailable is returned when every provider failed and no cached
// snapshot exists to fall back on.
var ErrNoStatusAvailable = errors.New("no status available")

// LookupStats are the aggregate lookup counters exposed on the ops surface.
type LookupStats struct {
	CacheHits   int64 `json:"cacheHits"`
	CacheMisses int64 `json:"cacheMisses"`
	APICalls    int64 `json:"apiCalls"`
	Errors      int64 `json:"errors"`
}

// StatusService resolves the current status of a flight through the cache
// and the provider fallback chain.
type StatusService interface {
	GetStatus(ctx context.Context, flight string, departure time.Time) (*models.FlightStatus, error)
	Diagnostics() []models.ProviderDiagnostics
	CacheConnected(ctx context.Context) bool
	Stats() LookupStats
}

// DefaultStatusService implements StatusService. Freshness bounds the age a
// cached snapshot may have to short-circuit provider calls; CallTimeout and
// MaxRetries govern each provider attempt.
type DefaultStatusService struct {
	Cache       StatusCache
	Registry    *provider.Registry
	Freshness   time.Duration
	CallTimeout time.Duration
	MaxRetries  int

	group       singleflight.Group
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
	apiCalls    atomic.Int64
	errors      atomic.Int64
}

// GetStatus returns the freshest status snapshot obtainable for the flight.
// Concurrent lookups for the same flight/day coalesce into one resolution;
// followers share the leader's result and its context.
func (s *DefaultStatusService) GetStatus(ctx context.Context, flight string, departure time.Time) (*models.FlightStatus, error) {
	key := models.NewStatusKey(flight, departure)
	v, err, _ := s.group.Do(key.String(), func() (interface{}, error) {
		return s.resolve(ctx, key, flight, departure)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.FlightStatus), nil
}

func (s *DefaultStatusService) resolve(ctx context.Context, key models.StatusKey, flight string, departure time.Time) (*models.FlightStatus, error) {
	logger := utils.GetLogger()
	now := time.Now().UTC()

	cached, err := s.Cache.Get(ctx, key)
	if err != nil {
		logger.Warn("status cache read failed", zap.String("key", key.String()), zap.Error(err))
		cached = nil
	}
	if cached != nil && cached.IsFresh(now, s.Freshness) {
		s.cacheHits.Add(1)
		return cached, nil
	}
	s.cacheMisses.Add(1)

	if status := s.fetchFromProviders(ctx, flight, departure); status != nil {
		if err := s.Cache.Set(ctx, status); err != nil {
			logger.Warn("status cache write failed", zap.String("key", key.String()), zap.Error(err))
		}
		return status, nil
	}
	s.errors.Add(1)

	// Stale snapshots beat no answer at all; the flag tells readers how
	// much to trust it.
	if cached != nil {
		stale := *cached
		stale.Stale = true
		logger.Warn("all providers failed, serving stale snapshot",
			zap.String("key", key.String()),
			zap.Duration("age", stale.Age(now)))
		return &stale, nil
	}

	return nil, fmt.Errorf("%w for %s", ErrNoStatusAvailable, key.String())
}

// fetchFromProviders walks the eligible providers highest priority first.
// First success wins. Failures retry with exponential backoff up to
// MaxRetries; a rate-limited provider is skipped outright for this pass.
func (s *DefaultStatusService) fetchFromProviders(ctx context.Context, flight string, departure time.Time) *models.FlightStatus {
	logger := utils.GetLogger()
	for _, entry := range s.Registry.Ordered(time.Now()) {
		name := entry.Provider.Name()
		for attempt := 0; attempt <= s.MaxRetries; attempt++ {
			if attempt > 0 {
				backoff := time.Duration(1<<uint(attempt-1)) * time.Second
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(backoff):
				}
			}

			s.apiCalls.Add(1)
			callCtx, cancel := context.WithTimeout(ctx, s.CallTimeout)
			started := time.Now()
			status, err := entry.Provider.Fetch(callCtx, flight, departure)
			cancel()
			if err == nil {
				entry.RecordSuccess(time.Since(started))
				return status
			}

			var throttled *provider.RateLimitError
			if errors.As(err, &throttled) {
				entry.Metrics.RecordRateLimit()
				logger.Warn("provider rate limited, skipping",
					zap.String("provider", name),
					zap.Duration("retryAfter", throttled.RetryAfter))
				break
			}

			entry.RecordFailure(err, time.Now())
			logger.Warn("provider fetch failed",
				zap.String("provider", name),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			if ctx.Err() != nil {
				return nil
			}
		}
	}
	return nil
}

// Diagnostics renders per-provider health for the stats endpoint.
func (s *DefaultStatusService) Diagnostics() []models.ProviderDiagnostics {
	return s.Registry.Diagnostics()
}

// CacheConnected reports whether the cache answers a ping.
func (s *DefaultStatusService) CacheConnected(ctx context.Context) bool {
	return s.Cache.Ping(ctx) == nil
}

// Stats snapshots the lookup counters.
func (s *DefaultStatusService) Stats() LookupStats {
	return LookupStats{
		CacheHits:   s.cacheHits.Load(),
		CacheMisses: s.cacheMisses.Load(),
		APICalls:    s.apiCalls.Load(),
		Errors:      s.errors.Load(),
	}
}
