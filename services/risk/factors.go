package risk

import (
	"context"
	"fmt"
	"time"

	"skywatch/models"
)

// Factor weights. They need not sum to 1; the aggregate normalizes by the
// total weight of the factors present.
const (
	weightDelay      = 0.25
	weightWeather    = 0.30
	weightConnection = 0.05
	weightHistorical = 0.15
	weightCongestion = 0.15
)

// Conservative defaults substituted when a factor cannot be computed.
const (
	defaultDelayProbability      = 0.2
	defaultWeatherProbability    = 0.1
	defaultConnectionProbability = 0.0
	defaultHistoricalProbability = 0.15
	defaultCongestionProbability = 0.2
)

// Historical delay rates by carrier; budget carriers run higher.
var airlineDelayRates = map[string]float64{
	"AA": 0.18, "DL": 0.15, "UA": 0.20, "WN": 0.22, "AS": 0.12,
	"B6": 0.25, "NK": 0.35, "F9": 0.30,
}

// Multipliers for notoriously congested city pairs.
var routeDelayFactors = map[string]float64{
	"JFK-LAX": 1.2, "ORD-LAX": 1.3, "ATL-LAX": 1.1,
	"LGA-DCA": 1.4, "EWR-BOS": 1.3,
}

// Airline on-time reliability, 0..1, higher is better.
var airlineReliability = map[string]float64{
	"DL": 0.85, "AS": 0.88, "AA": 0.82, "UA": 0.80, "WN": 0.78,
	"B6": 0.75, "F9": 0.70, "NK": 0.65,
}

// High-traffic routes tend to recover better from disruptions. Checked in
// both directions.
var majorRoutes = map[string]bool{
	"JFK-LAX": true, "ORD-LAX": true, "ATL-LAX": true, "JFK-SFO": true,
	"BOS-LAX": true, "DCA-LAX": true, "ORD-JFK": true, "ATL-JFK": true,
}

// Minimum connection times in minutes by airport.
var minConnectionTimes = map[string]int{
	"JFK": 90, "LAX": 75, "ORD": 60, "ATL": 45, "DFW": 50,
	"LHR": 120, "CDG": 90, "FRA": 60,
}

// Base congestion scores by airport.
var airportCongestion = map[string]float64{
	"LGA": 0.4, "JFK": 0.35, "EWR": 0.38, "ORD": 0.33, "ATL": 0.25,
	"LAX": 0.30, "SFO": 0.32, "BOS": 0.28, "DCA": 0.35,
}

// delayFactor estimates delay probability from the carrier's historical
// rate, departure timing and the live status when one is supplied.
func (s *DefaultRiskScorer) delayFactor(booking *models.Booking, status *models.FlightStatus) models.RiskFactor {
	baseRate := historicalDelayRate(booking.Airline, booking.Origin, booking.Destination)
	timeFactor := timeOfDayFactor(booking.DepartureDate)
	dayFactor := dayOfWeekFactor(booking.DepartureDate)

	statusFactor := 0.0
	if status != nil {
		if status.IsDisrupted {
			statusFactor = 0.8
		} else if status.DelayMinutes > 0 {
			statusFactor = minFloat(float64(status.DelayMinutes)/120.0, 0.6)
		}
	}

	probability := minFloat(baseRate*timeFactor*dayFactor+statusFactor, 1.0)
	return models.RiskFactor{
		Kind:        models.FactorDelayProbability,
		Weight:      weightDelay,
		Probability: probability,
		Description: fmt.Sprintf("Delay probability: %.1f%% based on historical patterns and current status", probability*100),
	}
}

// weatherFactor takes the worse of departure and estimated-arrival
// conditions. Arrival conditions are read three hours after departure.
func (s *DefaultRiskScorer) weatherFactor(ctx context.Context, booking *models.Booking) models.RiskFactor {
	if s.Weather == nil {
		return weatherDefault("no weather provider configured")
	}

	depConditions, depErr := s.Weather.Conditions(ctx, booking.Origin, booking.DepartureDate)
	arrConditions, arrErr := s.Weather.Conditions(ctx, booking.Destination, booking.DepartureDate.Add(3*time.Hour))
	if depErr != nil || arrErr != nil {
		err := depErr
		if err == nil {
			err = arrErr
		}
		return weatherDefault(err.Error())
	}

	impact := maxFloat(weatherRiskScore(depConditions), weatherRiskScore(arrConditions))
	return models.RiskFactor{
		Kind:        models.FactorWeatherImpact,
		Weight:      weightWeather,
		Probability: impact,
		Description: fmt.Sprintf("Weather impact: %.1f%% risk based on conditions at origin and destination", impact*100),
	}
}

func weatherDefault(reason string) models.RiskFactor {
	return models.RiskFactor{
		Kind:        models.FactorWeatherImpact,
		Weight:      weightWeather,
		Probability: defaultWeatherProbability,
		Description: fmt.Sprintf("Weather data unavailable: %s", reason),
		Defaulted:   true,
	}
}

// weatherRiskScore folds visibility, wind and precipitation into one 0..1
// score.
func weatherRiskScore(c *Conditions) float64 {
	var visRisk, windRisk, precipRisk float64
	if c.VisibilityMiles < 3 {
		visRisk = maxFloat((3-c.VisibilityMiles)/3, 0)
	}
	if c.WindSpeedMPH > 25 {
		windRisk = maxFloat((c.WindSpeedMPH-25)/20, 0)
	}
	if c.PrecipitationInches > 0 {
		precipRisk = minFloat(c.PrecipitationInches/0.5, 1)
	}
	return minFloat(visRisk+windRisk+precipRisk, 1.0)
}

// connectionFactor finds the rider's onward bookings leaving the arrival
// airport within twelve hours and scores the tightest layover against the
// airport's minimum connection time.
func (s *DefaultRiskScorer) connectionFactor(booking *models.Booking) models.RiskFactor {
	candidates, err := s.FlightRepo.GetUserBookingsDepartingBetween(
		booking.UserID, booking.DepartureDate, booking.DepartureDate.Add(12*time.Hour))
	if err != nil {
		return models.RiskFactor{
			Kind:        models.FactorConnectionRisk,
			Weight:      weightConnection,
			Probability: defaultConnectionProbability,
			Description: fmt.Sprintf("Error assessing connections: %v", err),
			Defaulted:   true,
		}
	}

	maxRisk := 0.0
	connections := 0
	for i := range candidates {
		conn := &candidates[i]
		if conn.ID == booking.ID || conn.Origin != booking.Destination {
			continue
		}
		connections++

		layoverMinutes := conn.DepartureDate.Sub(booking.DepartureDate).Minutes()
		mct := float64(minConnectionTime(booking.Destination, booking.Airline, conn.Airline))

		var r float64
		switch {
		case layoverMinutes <= mct:
			r = 0.9
		case layoverMinutes <= mct*1.5:
			r = 0.6
		case layoverMinutes <= mct*2:
			r = 0.3
		default:
			r = 0.1
		}
		if r > maxRisk {
			maxRisk = r
		}
	}

	if connections == 0 {
		return models.RiskFactor{
			Kind:        models.FactorConnectionRisk,
			Weight:      weightConnection,
			Probability: 0.0,
			Description: "No connecting flights detected",
		}
	}
	return models.RiskFactor{
		Kind:        models.FactorConnectionRisk,
		Weight:      weightConnection,
		Probability: maxRisk,
		Description: fmt.Sprintf("Connection risk: %.1f%% across %d connecting flight(s)", maxRisk*100, connections),
	}
}

// historicalFactor blends airline reliability, route performance and
// seasonality.
func (s *DefaultRiskScorer) historicalFactor(booking *models.Booking) models.RiskFactor {
	reliability := airlineReliabilityScore(booking.Airline)
	routePerf := routePerformanceScore(booking.Origin, booking.Destination)
	seasonal := seasonalDisruptionFactor(booking.DepartureDate)

	probability := (1-reliability)*0.5 + (1-routePerf)*0.3 + seasonal*0.2
	return models.RiskFactor{
		Kind:        models.FactorHistoricalPattern,
		Weight:      weightHistorical,
		Probability: probability,
		Description: fmt.Sprintf("Historical risk: %.1f%% based on airline and route performance", probability*100),
	}
}

// congestionFactor averages congestion at the two endpoints.
func (s *DefaultRiskScorer) congestionFactor(booking *models.Booking) models.RiskFactor {
	dep := airportCongestionScore(booking.Origin, booking.DepartureDate)
	arr := airportCongestionScore(booking.Destination, booking.DepartureDate)

	probability := (dep + arr) / 2
	return models.RiskFactor{
		Kind:        models.FactorAirportCongestion,
		Weight:      weightCongestion,
		Probability: probability,
		Description: fmt.Sprintf("Airport congestion risk: %.1f%%", probability*100),
	}
}

func historicalDelayRate(airline, origin, destination string) float64 {
	baseRate, ok := airlineDelayRates[airline]
	if !ok {
		baseRate = 0.18
	}
	routeFactor, ok := routeDelayFactors[origin+"-"+destination]
	if !ok {
		routeFactor = 1.0
	}
	return minFloat(baseRate*routeFactor, 0.5)
}

func timeOfDayFactor(departure time.Time) float64 {
	hour := departure.Hour()
	switch {
	case (hour >= 6 && hour <= 9) || (hour >= 17 && hour <= 20):
		return 1.3
	case hour >= 10 && hour <= 16:
		return 1.1
	default:
		return 0.9
	}
}

func dayOfWeekFactor(departure time.Time) float64 {
	switch departure.Weekday() {
	case time.Monday, time.Friday:
		return 1.2
	case time.Saturday, time.Sunday:
		return 0.9
	default:
		return 1.0
	}
}

func minConnectionTime(airport, airline1, airline2 string) int {
	base, ok := minConnectionTimes[airport]
	if !ok {
		base = 60
	}
	// Interline connections usually mean re-check-in.
	if airline1 != airline2 {
		base += 30
	}
	return base
}

func airlineReliabilityScore(airline string) float64 {
	if score, ok := airlineReliability[airline]; ok {
		return score
	}
	return 0.75
}

func routePerformanceScore(origin, destination string) float64 {
	if majorRoutes[origin+"-"+destination] || majorRoutes[destination+"-"+origin] {
		return 0.85
	}
	return 0.75
}

func seasonalDisruptionFactor(departure time.Time) float64 {
	switch departure.Month() {
	case time.December, time.January, time.February:
		return 0.3
	case time.June, time.July, time.August:
		return 0.2
	default:
		return 0.1
	}
}

func airportCongestionScore(airport string, departure time.Time) float64 {
	base, ok := airportCongestion[airport]
	if !ok {
		base = 0.2
	}
	if isPeakHours(departure) {
		base *= 1.5
	}
	return minFloat(base, 0.6)
}

func isPeakHours(departure time.Time) bool {
	hour := departure.Hour()
	return (hour >= 6 && hour <= 9) || (hour >= 17 && hour <= 20)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
