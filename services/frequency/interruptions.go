package frequency

import (
	"context"
	"fmt"
	"time"

	"skywatch/models"
	"skywatch/utils"

	"go.uber.org/zap"
)

const defaultInterruptionThreshold = 30 * time.Minute

// FindInterruptions scans active monitors for ones that have gone silent
// past the threshold, files an alert (and a MONITORING_INTERRUPTION event
// when the booking has no open event) for each, and returns the gap report.
// Monitors that have never been checked are warming up, not interrupted.
func (c *DefaultFrequencyController) FindInterruptions(ctx context.Context) ([]models.InterruptionReport, error) {
	logger := utils.GetLogger()
	threshold := c.InterruptionThreshold
	if threshold <= 0 {
		threshold = defaultInterruptionThreshold
	}
	now := time.Now().UTC()

	monitors, err := c.MonitorRepo.GetActiveMonitors()
	if err != nil {
		return nil, fmt.Errorf("error listing active monitors: %w", err)
	}

	var reports []models.InterruptionReport
	for i := range monitors {
		monitor := &monitors[i]
		if monitor.LastCheck == nil {
			continue
		}
		gap := now.Sub(*monitor.LastCheck)
		if gap <= threshold {
			continue
		}

		booking, err := c.FlightRepo.GetBooking(monitor.BookingID)
		if err != nil {
			logger.Warn("skipping interrupted monitor with missing booking",
				zap.String("monitorId", monitor.ID), zap.Error(err))
			continue
		}

		gapMinutes := gap.Minutes()
		severity, urgency := interruptionSeverity(gapMinutes)

		report := models.InterruptionReport{
			MonitorID:         monitor.ID,
			FlightNumber:      booking.FlightNumber,
			Route:             booking.Route(),
			LastCheck:         *monitor.LastCheck,
			GapMinutes:        gapMinutes,
			ExpectedFrequency: monitor.CheckFrequencyMinutes,
			Severity:          severity,
		}
		reports = append(reports, report)

		if err := c.fileInterruptionAlert(monitor, booking, report, urgency, now); err != nil {
			logger.Error("failed to file interruption alert",
				zap.String("monitorId", monitor.ID), zap.Error(err))
			continue
		}
		logger.Warn("monitoring interruption alert created",
			zap.String("monitorId", monitor.ID),
			zap.String("flight", booking.FlightNumber),
			zap.Float64("gapMinutes", gapMinutes))
	}

	if len(reports) > 0 {
		logger.Info("interruption sweep finished",
			zap.Int("interrupted", len(reports)),
			zap.Duration("threshold", threshold))
	}
	return reports, nil
}

func interruptionSeverity(gapMinutes float64) (string, int) {
	switch {
	case gapMinutes >= 120:
		return models.SeverityCritical, 95
	case gapMinutes >= 60:
		return models.SeverityHigh, 80
	default:
		return models.SeverityMedium, 60
	}
}

// fileInterruptionAlert stores the alert and, when the booking has no open
// disruption event to hang it on, creates a MONITORING_INTERRUPTION event
// first.
func (c *DefaultFrequencyController) fileInterruptionAlert(monitor *models.TripMonitor, booking *models.Booking, report models.InterruptionReport, urgency int, now time.Time) error {
	eventID := ""
	hasOpen, err := c.EventRepo.HasOpenEvent(booking.ID)
	if err != nil {
		return err
	}
	if hasOpen {
		event, err := c.EventRepo.GetOpenEvent(booking.ID)
		if err != nil {
			return err
		}
		eventID = event.ID
	} else {
		eventID, err = c.EventRepo.Create(&models.DisruptionEvent{
			BookingID:         booking.ID,
			Type:              models.DisruptionMonitoringGap,
			DetectedAt:        now,
			OriginalDeparture: booking.DepartureDate,
			Reason:            fmt.Sprintf("Monitoring interrupted for %.0f minutes", report.GapMinutes),
			RebookingStatus:   "PENDING",
		})
		if err != nil {
			return err
		}
	}

	message := fmt.Sprintf(
		"MONITORING INTERRUPTION: Flight %s monitoring has been interrupted for %.0f minutes. Last check: %s UTC. Please verify flight status manually.",
		booking.FlightNumber, report.GapMinutes, report.LastCheck.UTC().Format("15:04:05"))

	expires := now.Add(6 * time.Hour)
	alertID, err := c.EventRepo.CreateAlert(&models.Alert{
		EventID:  eventID,
		UserID:   monitor.UserID,
		Severity: report.Severity,
		Urgency:  urgency,
		Message:  message,
		Metadata: map[string]interface{}{
			"interruption_type":    "monitoring_gap",
			"interruption_minutes": report.GapMinutes,
			"last_check":           report.LastCheck.UTC().Format(time.RFC3339),
			"monitor_id":           monitor.ID,
			"flight_number":        booking.FlightNumber,
			"route":                booking.Route(),
		},
		ExpiresAt: &expires,
	})
	if err != nil {
		return err
	}

	if c.Alerts != nil {
		if err := c.Alerts.EnqueueAlertDispatch(alertID); err != nil {
			utils.GetLogger().Warn("alert dispatch enqueue failed",
				zap.String("alertId", alertID), zap.Error(err))
		}
	}
	return nil
}
