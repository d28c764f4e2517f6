package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skywatch/models"
	"skywatch/utils"

	"go.uber.org/zap"
)

// AlternativeFinder sources substitute flights for a disrupted route.
type AlternativeFinder interface {
	FindAlternatives(ctx context.Context, origin, destination string, date time.Time) ([]models.AlternativeFlight, error)
}

// AlertQueue enqueues a created alert for asynchronous dispatch.
type AlertQueue interface {
	EnqueueAlertDispatch(alertID string) error
}

// handleDisruption records a disrupted snapshot as a disruption event with an
// attached alert. Bookings with an open event are skipped so one disruption
// produces one event, not one per check. Alternative flights are sourced only
// for hard disruptions, and only as a best effort.
func (s *Scheduler) handleDisruption(ctx context.Context, booking *models.Booking, st *models.FlightStatus) {
	logger := utils.GetLogger()

	hasOpen, err := s.EventRepo.HasOpenEvent(booking.ID)
	if err != nil {
		s.errorCount.Add(1)
		logger.Warn("could not check for open disruption events",
			zap.String("bookingId", booking.ID), zap.Error(err))
		return
	}
	if hasOpen {
		logger.Debug("disruption already being handled",
			zap.String("bookingId", booking.ID))
		return
	}

	eventID, err := s.EventRepo.Create(&models.DisruptionEvent{
		BookingID:         booking.ID,
		Type:              st.DisruptionType,
		DetectedAt:        time.Now().UTC(),
		OriginalDeparture: booking.DepartureDate,
		NewDeparture:      st.ActualDeparture,
		DelayMinutes:      st.DelayMinutes,
		Reason: fmt.Sprintf("Flight %s detected via %s (confidence: %.2f)",
			strings.ToLower(st.DisruptionType), st.Source, st.Confidence),
		RebookingStatus: "PENDING",
	})
	if err != nil {
		s.errorCount.Add(1)
		logger.Error("failed to create disruption event",
			zap.String("bookingId", booking.ID), zap.Error(err))
		return
	}

	if needsAlternatives(st.DisruptionType) && s.Alternatives != nil {
		alternatives, err := s.Alternatives.FindAlternatives(ctx, booking.Origin, booking.Destination, booking.DepartureDate)
		switch {
		case err != nil:
			logger.Warn("alternative flight search failed",
				zap.String("route", booking.Route()), zap.Error(err))
		case len(alternatives) > 0:
			if err := s.EventRepo.AttachAlternatives(eventID, alternatives); err != nil {
				logger.Warn("failed to attach alternatives",
					zap.String("eventId", eventID), zap.Error(err))
			} else {
				logger.Info("alternative flights attached",
					zap.String("eventId", eventID), zap.Int("count", len(alternatives)))
			}
		}
	}

	severity, urgency := disruptionSeverity(st)
	alertID, err := s.EventRepo.CreateAlert(&models.Alert{
		EventID:  eventID,
		UserID:   booking.UserID,
		Severity: severity,
		Urgency:  urgency,
		Message:  disruptionMessage(booking, st),
		Metadata: map[string]interface{}{
			"disruption_type": st.DisruptionType,
			"delay_minutes":   st.DelayMinutes,
			"source":          st.Source,
			"confidence":      st.Confidence,
			"flight_number":   booking.FlightNumber,
			"route":           booking.Route(),
		},
	})
	if err != nil {
		logger.Error("failed to create disruption alert",
			zap.String("eventId", eventID), zap.Error(err))
		return
	}
	if s.Alerts != nil {
		if err := s.Alerts.EnqueueAlertDispatch(alertID); err != nil {
			logger.Warn("alert dispatch enqueue failed",
				zap.String("alertId", alertID), zap.Error(err))
		}
	}

	logger.Info("disruption event created",
		zap.String("eventId", eventID),
		zap.String("bookingId", booking.ID),
		zap.String("type", st.DisruptionType),
		zap.String("severity", severity))
}

func needsAlternatives(disruptionType string) bool {
	return disruptionType == models.DisruptionCancelled || disruptionType == models.DisruptionDiverted
}

func disruptionSeverity(st *models.FlightStatus) (string, int) {
	switch st.DisruptionType {
	case models.DisruptionCancelled:
		return models.SeverityCritical, 95
	case models.DisruptionDiverted:
		return models.SeverityHigh, 85
	default:
		if st.DelayMinutes >= 120 {
			return models.SeverityHigh, 80
		}
		return models.SeverityMedium, 60
	}
}

func disruptionMessage(booking *models.Booking, st *models.FlightStatus) string {
	departure := booking.DepartureDate.UTC().Format("Jan 2 15:04")
	switch st.DisruptionType {
	case models.DisruptionCancelled:
		return fmt.Sprintf("FLIGHT CANCELLED: Flight %s (%s) scheduled for %s UTC has been cancelled. Please review alternative flights.",
			booking.FlightNumber, booking.Route(), departure)
	case models.DisruptionDiverted:
		return fmt.Sprintf("FLIGHT DIVERTED: Flight %s (%s) has been diverted. Please verify your arrival arrangements.",
			booking.FlightNumber, booking.Route())
	default:
		return fmt.Sprintf("FLIGHT DELAYED: Flight %s (%s) is delayed %d minutes. Departure was scheduled for %s UTC.",
			booking.FlightNumber, booking.Route(), st.DelayMinutes, departure)
	}
}
