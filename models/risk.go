package models

import "time"

// RiskLevel buckets an overall disruption probability.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// FactorKind tags one weighted component of a risk assessment.
type FactorKind string

const (
	FactorDelayProbability  FactorKind = "DELAY_PROBABILITY"
	FactorWeatherImpact     FactorKind = "WEATHER_IMPACT"
	FactorConnectionRisk    FactorKind = "CONNECTION_RISK"
	FactorHistoricalPattern FactorKind = "HISTORICAL_PATTERN"
	FactorAirportCongestion FactorKind = "AIRPORT_CONGESTION"
)

// RiskFactor is one weighted component of an assessment. Defaulted marks a
// factor whose computation failed and was replaced by a low-confidence
// fallback value.
type RiskFactor struct {
	Kind        FactorKind `bson:"kind" json:"kind"`
	Weight      float64    `bson:"weight" json:"weight"`
	Probability float64    `bson:"probability" json:"probability"`
	Description string     `bson:"description" json:"description"`
	Defaulted   bool       `bson:"defaulted,omitempty" json:"defaulted,omitempty"`
}

// RiskAssessment is the scored disruption outlook for one booking. The
// overall probability is the weighted mean of the factor probabilities.
type RiskAssessment struct {
	BookingID          string       `bson:"booking_id" json:"booking_id"`
	FlightNumber       string       `bson:"flight_number" json:"flight_number"`
	Route              string       `bson:"route" json:"route"`
	OverallProbability float64      `bson:"overall_probability" json:"overall_probability"`
	Level              RiskLevel    `bson:"level" json:"level"`
	Factors            []RiskFactor `bson:"factors" json:"factors"`
	Confidence         float64      `bson:"confidence" json:"confidence"`
	ComputedAt         time.Time    `bson:"computed_at" json:"computed_at"`
	Recommendations    []string     `bson:"recommendations,omitempty" json:"recommendations,omitempty"`
}

// RouteRiskLevel classifies a route's historical delay rate, independent of
// any specific flight.
type RouteRiskLevel string

const (
	RouteLowRisk    RouteRiskLevel = "LOW_RISK"
	RouteMediumRisk RouteRiskLevel = "MEDIUM_RISK"
	RouteHighRisk   RouteRiskLevel = "HIGH_RISK"
)

// RouteDelayStats aggregates historical delay performance for one city pair.
type RouteDelayStats struct {
	Route               string    `bson:"route" json:"route"` // "ORIGIN-DESTINATION"
	Origin              string    `bson:"origin" json:"origin"`
	Destination         string    `bson:"destination" json:"destination"`
	TotalFlights        int       `bson:"total_flights" json:"totalFlights"`
	DelayedFlights      int       `bson:"delayed_flights" json:"delayedFlights"`
	DelayRate           float64   `bson:"delay_rate" json:"delayRate"`
	AverageDelayMinutes float64   `bson:"average_delay_minutes" json:"averageDelayMinutes"`
	SamplePeriodDays    int       `bson:"sample_period_days" json:"samplePeriodDays"`
	LastUpdated         time.Time `bson:"last_updated" json:"lastUpdated"`
}

// FrequencyAdjustment is a computed polling-interval recommendation. It is
// transient: applied to the monitor or discarded, never persisted itself.
type FrequencyAdjustment struct {
	MonitorID           string         `json:"monitorId"`
	FlightNumber        string         `json:"flightNumber"`
	CurrentInterval     int            `json:"currentInterval"`     // minutes
	RecommendedInterval int            `json:"recommendedInterval"` // minutes
	Reason              string         `json:"reason"`
	RiskLevel           RiskLevel      `json:"riskLevel"`
	RouteRisk           RouteRiskLevel `json:"routeRisk"`
	Priority            int            `json:"priority"` // 1 = highest
	EffectiveUntil      time.Time      `json:"effectiveUntil"`
}
