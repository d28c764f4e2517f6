package frequency

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	flightRepo "skywatch/database/repository/flightdata"
	"skywatch/models"
	"skywatch/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Route delay rates above these lines classify MEDIUM_RISK and HIGH_RISK.
// Both comparisons are strictly greater-than: a route at exactly 40% is
// still MEDIUM_RISK.
const (
	DefaultHighRiskThreshold   = 0.40
	DefaultMediumRiskThreshold = 0.20
)

// routeStatsWindowDays is the trailing sample window for delay statistics.
const routeStatsWindowDays = 30

const routeStatsKeyPrefix = "routestats:"

func routeStatsKey(origin, destination string) string {
	return fmt.Sprintf("%s%s-%s", routeStatsKeyPrefix, origin, destination)
}

// RouteStatsService computes and caches historical delay statistics per
// city pair and classifies route risk from them.
type RouteStatsService interface {
	GetRouteStats(ctx context.Context, origin, destination string) (*models.RouteDelayStats, error)
	Classify(stats *models.RouteDelayStats) models.RouteRiskLevel
	RefreshTopRoutes(ctx context.Context, windowDays, limit int) (int, error)
	HighRiskRoutes(ctx context.Context, windowDays, limit int) ([]models.HighRiskRoute, error)
}

// DefaultRouteStatsService caches computed stats in Redis for CacheTTL so a
// busy adjustment cycle does not recompute the same aggregation per monitor.
type DefaultRouteStatsService struct {
	FlightRepo          flightRepo.FlightDataRepository
	CacheClient         *redis.Client
	CacheTTL            time.Duration
	HighRiskThreshold   float64
	MediumRiskThreshold float64
}

// GetRouteStats returns delay statistics for a route, served from cache when
// present. Cache failures degrade to a recomputation, never to an error.
func (s *DefaultRouteStatsService) GetRouteStats(ctx context.Context, origin, destination string) (*models.RouteDelayStats, error) {
	if s.CacheClient != nil {
		cached, err := s.CacheClient.Get(ctx, routeStatsKey(origin, destination)).Result()
		if err == nil && cached != "" {
			var stats models.RouteDelayStats
			if err := json.Unmarshal([]byte(cached), &stats); err == nil {
				return &stats, nil
			}
		}
	}
	return s.computeAndCache(ctx, origin, destination)
}

func (s *DefaultRouteStatsService) computeAndCache(ctx context.Context, origin, destination string) (*models.RouteDelayStats, error) {
	history, err := s.FlightRepo.GetRouteHistory(origin, destination, routeStatsWindowDays)
	if err != nil {
		return nil, fmt.Errorf("error computing route stats for %s-%s: %w", origin, destination, err)
	}

	stats := &models.RouteDelayStats{
		Route:            origin + "-" + destination,
		Origin:           origin,
		Destination:      destination,
		TotalFlights:     history.TotalFlights,
		DelayedFlights:   history.DelayedFlights,
		SamplePeriodDays: routeStatsWindowDays,
		LastUpdated:      time.Now().UTC(),
	}
	if history.TotalFlights > 0 {
		stats.DelayRate = float64(history.DelayedFlights) / float64(history.TotalFlights)
	}
	if history.DelayedFlights > 0 {
		stats.AverageDelayMinutes = float64(history.TotalDelayMinutes) / float64(history.DelayedFlights)
	}

	if s.CacheClient != nil {
		if data, err := json.Marshal(stats); err == nil {
			s.CacheClient.Set(ctx, routeStatsKey(origin, destination), data, s.CacheTTL)
		}
	}
	return stats, nil
}

// Classify buckets a route by its delay rate.
func (s *DefaultRouteStatsService) Classify(stats *models.RouteDelayStats) models.RouteRiskLevel {
	high := s.HighRiskThreshold
	if high <= 0 {
		high = DefaultHighRiskThreshold
	}
	medium := s.MediumRiskThreshold
	if medium <= 0 {
		medium = DefaultMediumRiskThreshold
	}

	switch {
	case stats.DelayRate > high:
		return models.RouteHighRisk
	case stats.DelayRate > medium:
		return models.RouteMediumRisk
	default:
		return models.RouteLowRisk
	}
}

// RefreshTopRoutes recomputes statistics for the most-booked routes of the
// trailing window, bypassing the cache. Returns how many routes were
// refreshed.
func (s *DefaultRouteStatsService) RefreshTopRoutes(ctx context.Context, windowDays, limit int) (int, error) {
	logger := utils.GetLogger()
	pairs, err := s.FlightRepo.GetTopRoutes(windowDays, limit)
	if err != nil {
		return 0, fmt.Errorf("error listing top routes: %w", err)
	}

	refreshed := 0
	for _, pair := range pairs {
		if _, err := s.computeAndCache(ctx, pair.Origin, pair.Destination); err != nil {
			logger.Warn("route stats refresh failed",
				zap.String("route", pair.Origin+"-"+pair.Destination), zap.Error(err))
			continue
		}
		refreshed++
	}
	logger.Debug("route statistics cache refreshed", zap.Int("routes", refreshed))
	return refreshed, nil
}

// HighRiskRoutes reports every top route whose delay rate classifies
// HIGH_RISK.
func (s *DefaultRouteStatsService) HighRiskRoutes(ctx context.Context, windowDays, limit int) ([]models.HighRiskRoute, error) {
	pairs, err := s.FlightRepo.GetTopRoutes(windowDays, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing top routes: %w", err)
	}

	var out []models.HighRiskRoute
	for _, pair := range pairs {
		stats, err := s.GetRouteStats(ctx, pair.Origin, pair.Destination)
		if err != nil {
			utils.GetLogger().Warn("route stats lookup failed",
				zap.String("route", pair.Origin+"-"+pair.Destination), zap.Error(err))
			continue
		}
		if s.Classify(stats) != models.RouteHighRisk {
			continue
		}
		out = append(out, models.HighRiskRoute{
			Route:               stats.Route,
			DelayRate:           stats.DelayRate,
			TotalFlights:        stats.TotalFlights,
			DelayedFlights:      stats.DelayedFlights,
			AverageDelayMinutes: stats.AverageDelayMinutes,
			LastUpdated:         stats.LastUpdated,
			RiskLevel:           "HIGH",
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DelayRate > out[j].DelayRate })
	return out, nil
}
