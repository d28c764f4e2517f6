package frequency

import (
	"context"
	"fmt"
	"strings"
	"time"

	eventRepo "skywatch/database/repository/event"
	flightRepo "skywatch/database/repository/flightdata"
	monitorRepo "skywatch/database/repository/monitor"
	"skywatch/models"
	"skywatch/services/risk"
	"skywatch/utils"

	"go.uber.org/zap"
)

// Polling interval tiers in minutes.
const (
	HighFrequencyMinutes    = 5
	DefaultFrequencyMinutes = 15
	LowFrequencyMinutes     = 30
)

// AlertQueue enqueues a created alert for asynchronous dispatch.
type AlertQueue interface {
	EnqueueAlertDispatch(alertID string) error
}

// FrequencyController decides how often each monitor should poll and keeps
// the fleet of monitors healthy: it recommends intervals from risk, applies
// them with an audit trail, and reports monitoring gaps.
type FrequencyController interface {
	Recommend(ctx context.Context, monitor *models.TripMonitor) (*models.FrequencyAdjustment, error)
	Apply(adjustment *models.FrequencyAdjustment) (bool, error)
	FindInterruptions(ctx context.Context) ([]models.InterruptionReport, error)
	RunAdjustmentCycle(ctx context.Context) models.AdjustmentSummary
}

type DefaultFrequencyController struct {
	MonitorRepo monitorRepo.MonitorRepository
	FlightRepo  flightRepo.FlightDataRepository
	EventRepo   eventRepo.EventRepository
	Scorer      risk.RiskScorer
	RouteStats  RouteStatsService
	Alerts      AlertQueue // optional; nil means alerts are stored but not enqueued

	// InterruptionThreshold is the silence after which an active monitor
	// counts as interrupted. Zero means the 30 minute default.
	InterruptionThreshold time.Duration
}

// intervalForRisk maps a risk level to its polling tier.
func intervalForRisk(level models.RiskLevel) int {
	switch level {
	case models.RiskCritical, models.RiskHigh:
		return HighFrequencyMinutes
	case models.RiskMedium:
		return DefaultFrequencyMinutes
	default:
		return LowFrequencyMinutes
	}
}

// Recommend computes the optimal polling interval for one monitor from its
// booking's risk assessment, the route's historical delay rate and how close
// departure is. Proximity only ever tightens the interval.
func (c *DefaultFrequencyController) Recommend(ctx context.Context, monitor *models.TripMonitor) (*models.FrequencyAdjustment, error) {
	logger := utils.GetLogger()

	booking, err := c.FlightRepo.GetBooking(monitor.BookingID)
	if err != nil {
		return nil, fmt.Errorf("error loading booking %s for monitor %s: %w", monitor.BookingID, monitor.ID, err)
	}

	assessment := c.Scorer.Assess(ctx, booking, nil)

	stats, err := c.RouteStats.GetRouteStats(ctx, booking.Origin, booking.Destination)
	if err != nil {
		logger.Warn("route stats unavailable, treating route as low risk",
			zap.String("route", booking.Route()), zap.Error(err))
		stats = &models.RouteDelayStats{
			Route:       booking.Route(),
			Origin:      booking.Origin,
			Destination: booking.Destination,
			LastUpdated: time.Now().UTC(),
		}
	}
	routeRisk := c.RouteStats.Classify(stats)

	recommended := intervalForRisk(assessment.Level)
	if routeRisk == models.RouteHighRisk {
		recommended = HighFrequencyMinutes
		logger.Warn("high-risk route detected",
			zap.String("route", stats.Route),
			zap.Float64("delayRate", stats.DelayRate))
	}

	priority := 3
	var reasonParts []string

	switch assessment.Level {
	case models.RiskCritical, models.RiskHigh:
		reasonParts = append(reasonParts, fmt.Sprintf("High disruption risk (%s)", assessment.Level))
		priority = 1
	case models.RiskMedium:
		reasonParts = append(reasonParts, "Medium disruption risk")
		priority = 2
	}

	switch routeRisk {
	case models.RouteHighRisk:
		reasonParts = append(reasonParts, fmt.Sprintf("High-risk route (%.1f%% delay rate)", stats.DelayRate*100))
		priority = minInt(priority, 1)
	case models.RouteMediumRisk:
		reasonParts = append(reasonParts, fmt.Sprintf("Medium-risk route (%.1f%% delay rate)", stats.DelayRate*100))
		priority = minInt(priority, 2)
	}

	now := time.Now().UTC()
	hoursToDeparture := booking.DepartureDate.Sub(now).Hours()
	if hoursToDeparture <= 4 {
		recommended = minInt(recommended, HighFrequencyMinutes)
		reasonParts = append(reasonParts, "Departure within 4 hours")
		priority = minInt(priority, 1)
	} else if hoursToDeparture <= 24 {
		recommended = minInt(recommended, DefaultFrequencyMinutes)
		reasonParts = append(reasonParts, "Departure within 24 hours")
	}

	reason := "Standard monitoring frequency"
	if len(reasonParts) > 0 {
		reason = strings.Join(reasonParts, "; ")
	}

	var effectiveUntil time.Time
	switch priority {
	case 1:
		effectiveUntil = now.Add(2 * time.Hour)
	case 2:
		effectiveUntil = now.Add(6 * time.Hour)
	default:
		effectiveUntil = now.Add(12 * time.Hour)
	}

	return &models.FrequencyAdjustment{
		MonitorID:           monitor.ID,
		FlightNumber:        booking.FlightNumber,
		CurrentInterval:     monitor.CheckFrequencyMinutes,
		RecommendedInterval: recommended,
		Reason:              reason,
		RiskLevel:           assessment.Level,
		RouteRisk:           routeRisk,
		Priority:            priority,
		EffectiveUntil:      effectiveUntil,
	}, nil
}

// Apply persists a recommendation onto its monitor together with an audit
// note. Returns false without touching the store when the monitor already
// runs at the recommended interval.
func (c *DefaultFrequencyController) Apply(adjustment *models.FrequencyAdjustment) (bool, error) {
	logger := utils.GetLogger()

	if adjustment.RecommendedInterval == adjustment.CurrentInterval {
		logger.Debug("monitor already at optimal frequency",
			zap.String("monitorId", adjustment.MonitorID),
			zap.Int("minutes", adjustment.RecommendedInterval))
		return false, nil
	}

	monitor, err := c.MonitorRepo.GetByID(adjustment.MonitorID)
	if err != nil {
		return false, fmt.Errorf("error loading monitor %s: %w", adjustment.MonitorID, err)
	}

	note := fmt.Sprintf("[%s] Frequency adjusted: %dmin → %dmin. Reason: %s",
		time.Now().UTC().Format("01/02 15:04"),
		monitor.CheckFrequencyMinutes, adjustment.RecommendedInterval, adjustment.Reason)
	notes := note
	if monitor.Notes != "" {
		notes = monitor.Notes + "\n" + note
	}

	err = c.MonitorRepo.UpdateFields(monitor.ID, map[string]interface{}{
		"check_frequency_minutes": adjustment.RecommendedInterval,
		"notes":                   notes,
	})
	if err != nil {
		return false, fmt.Errorf("error applying frequency adjustment to monitor %s: %w", monitor.ID, err)
	}

	logger.Info("monitor frequency adjusted",
		zap.String("monitorId", monitor.ID),
		zap.Int("fromMinutes", monitor.CheckFrequencyMinutes),
		zap.Int("toMinutes", adjustment.RecommendedInterval),
		zap.String("reason", adjustment.Reason))
	return true, nil
}

// RunAdjustmentCycle is the periodic sweep over every active monitor:
// report interruptions, re-derive and apply polling intervals, then refresh
// the stats cache for the busiest routes of the last week.
func (c *DefaultFrequencyController) RunAdjustmentCycle(ctx context.Context) models.AdjustmentSummary {
	logger := utils.GetLogger()
	started := time.Now().UTC()
	summary := models.AdjustmentSummary{StartedAt: started}

	reports, err := c.FindInterruptions(ctx)
	if err != nil {
		logger.Error("interruption sweep failed", zap.Error(err))
	}
	summary.InterruptionAlerts = len(reports)

	monitors, err := c.MonitorRepo.GetActiveMonitors()
	if err != nil {
		logger.Error("error listing active monitors for adjustment cycle", zap.Error(err))
	}
	for i := range monitors {
		monitor := &monitors[i]
		summary.MonitorsEvaluated++

		adjustment, err := c.Recommend(ctx, monitor)
		if err != nil {
			logger.Warn("frequency recommendation failed",
				zap.String("monitorId", monitor.ID), zap.Error(err))
			continue
		}
		if adjustment.RouteRisk == models.RouteHighRisk {
			summary.HighRiskRoutes++
		}

		applied, err := c.Apply(adjustment)
		if err != nil {
			logger.Warn("frequency adjustment failed",
				zap.String("monitorId", monitor.ID), zap.Error(err))
			continue
		}
		if applied {
			summary.FrequencyChanges++
		}
	}

	refreshed, err := c.RouteStats.RefreshTopRoutes(ctx, 7, 20)
	if err != nil {
		logger.Warn("route stats refresh failed", zap.Error(err))
	}
	summary.RoutesRefreshed = refreshed

	summary.DurationMillis = time.Since(started).Milliseconds()
	logger.Info("monitoring adjustment cycle completed",
		zap.Int("monitorsEvaluated", summary.MonitorsEvaluated),
		zap.Int("frequencyChanges", summary.FrequencyChanges),
		zap.Int("highRiskRoutes", summary.HighRiskRoutes),
		zap.Int("interruptionAlerts", summary.InterruptionAlerts),
		zap.Int64("durationMillis", summary.DurationMillis))
	return summary
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
