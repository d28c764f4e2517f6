package risk

import (
	"context"
	"fmt"
	"time"

	flightRepo "skywatch/database/repository/flightdata"
	"skywatch/models"
)

// RiskScorer produces a disruption risk assessment for a booking. A live
// status snapshot sharpens the delay factor but is optional.
type RiskScorer interface {
	Assess(ctx context.Context, booking *models.Booking, status *models.FlightStatus) *models.RiskAssessment
}

// DefaultRiskScorer combines five weighted factors: delay probability,
// weather impact, connection risk, historical patterns and airport
// congestion. A factor that cannot be computed substitutes a conservative
// default instead of failing the assessment.
type DefaultRiskScorer struct {
	FlightRepo flightRepo.FlightDataRepository
	Weather    WeatherProvider

	// AlertThreshold is the overall probability above which the
	// assessment carries a high-risk recommendation. The system-wide
	// alerting line is 0.3.
	AlertThreshold float64
}

func (s *DefaultRiskScorer) Assess(ctx context.Context, booking *models.Booking, status *models.FlightStatus) *models.RiskAssessment {
	if booking == nil {
		return ErrorAssessment("", "", "", "no booking supplied")
	}

	factors := []models.RiskFactor{
		s.delayFactor(booking, status),
		s.weatherFactor(ctx, booking),
		s.connectionFactor(booking),
		s.historicalFactor(booking),
		s.congestionFactor(booking),
	}

	overall := overallProbability(factors)
	return &models.RiskAssessment{
		BookingID:          booking.ID,
		FlightNumber:       booking.FlightNumber,
		Route:              booking.Route(),
		OverallProbability: overall,
		Level:              LevelFor(overall),
		Factors:            factors,
		Confidence:         confidenceScore(factors),
		ComputedAt:         time.Now().UTC(),
		Recommendations:    s.recommendations(factors, overall),
	}
}

// overallProbability is the weighted mean of the factor probabilities,
// clamped to [0,1]. No factors means no measurable risk.
func overallProbability(factors []models.RiskFactor) float64 {
	if len(factors) == 0 {
		return 0.0
	}
	var weightedSum, totalWeight float64
	for _, f := range factors {
		weightedSum += f.Probability * f.Weight
		totalWeight += f.Weight
	}
	if totalWeight == 0 {
		return 0.0
	}
	return minFloat(weightedSum/totalWeight, 1.0)
}

// LevelFor buckets an overall probability. The 0.3 line doubles as the
// system-wide alerting threshold.
func LevelFor(probability float64) models.RiskLevel {
	switch {
	case probability >= 0.7:
		return models.RiskCritical
	case probability >= 0.5:
		return models.RiskHigh
	case probability >= 0.3:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// confidenceScore starts from how many of the five factors were analyzed
// and drops 0.1 for each one that fell back to a default, floored at 0.1.
func confidenceScore(factors []models.RiskFactor) float64 {
	base := minFloat(float64(len(factors))/5.0, 1.0)
	for _, f := range factors {
		if f.Defaulted {
			base -= 0.1
		}
	}
	return maxFloat(base, 0.1)
}

func (s *DefaultRiskScorer) recommendations(factors []models.RiskFactor, overall float64) []string {
	var recs []string

	threshold := s.AlertThreshold
	if threshold <= 0 {
		threshold = 0.3
	}
	if overall > threshold {
		recs = append(recs, fmt.Sprintf("High risk alert: %.1f%% disruption probability exceeds %.0f%% threshold",
			overall*100, threshold*100))
	}

	for _, f := range factors {
		if f.Probability <= 0.4 {
			continue
		}
		switch f.Kind {
		case models.FactorWeatherImpact:
			recs = append(recs, "Monitor weather conditions closely and consider alternative flights if severe weather is expected")
		case models.FactorConnectionRisk:
			recs = append(recs, "Connection risk detected, consider a longer layover or alternative routing")
		case models.FactorDelayProbability:
			recs = append(recs, "High delay probability, arrive at the airport early and line up backup plans")
		case models.FactorAirportCongestion:
			recs = append(recs, "Airport congestion expected, allow extra time for check-in and security")
		}
	}

	if overall > 0.6 {
		recs = append(recs, "Consider rebooking to a lower-risk flight if flexibility allows")
	} else if overall > 0.4 {
		recs = append(recs, "Enable real-time notifications and keep backup travel plans ready")
	}
	return recs
}

// ErrorAssessment is the conservative fallback when a booking cannot be
// assessed at all: low risk, minimal confidence, no factors.
func ErrorAssessment(bookingID, flightNumber, route, reason string) *models.RiskAssessment {
	return &models.RiskAssessment{
		BookingID:          bookingID,
		FlightNumber:       flightNumber,
		Route:              route,
		OverallProbability: 0.2,
		Level:              models.RiskLow,
		Confidence:         0.1,
		ComputedAt:         time.Now().UTC(),
		Recommendations:    []string{fmt.Sprintf("Risk assessment incomplete: %s", reason)},
	}
}
