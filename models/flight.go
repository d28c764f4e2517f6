package models

import (
	"strings"
	"time"
)

// Flight status codes as reported by providers.
const (
	StatusOnTime    = "ON_TIME"
	StatusDelayed   = "DELAYED"
	StatusCancelled = "CANCELLED"
	StatusDiverted  = "DIVERTED"
	StatusBoarding  = "BOARDING"
	StatusDeparted  = "DEPARTED"
	StatusArrived   = "ARRIVED"
	StatusUnknown   = "UNKNOWN"
)

// Booking lifecycle states.
const (
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
	BookingCompleted = "COMPLETED"
)

// StatusKey identifies one flight on one departure day. Snapshots, cache
// entries and in-flight aggregations are all keyed by it.
type StatusKey struct {
	Carrier      string `bson:"carrier" json:"carrier"`             // IATA carrier code, e.g. "AA"
	FlightNumber string `bson:"flight_number" json:"flightNumber"`  // numeric part, e.g. "123"
	DepartureDay string `bson:"departure_day" json:"departureDay"`  // "YYYYMMDD"
}

// NewStatusKey splits a flight designator such as "AA123" into carrier and
// number and truncates the departure to day granularity.
func NewStatusKey(flight string, departure time.Time) StatusKey {
	flight = strings.ToUpper(strings.TrimSpace(flight))
	carrier := flight
	number := ""
	for i, r := range flight {
		if r >= '0' && r <= '9' {
			carrier = flight[:i]
			number = flight[i:]
			break
		}
	}
	return StatusKey{
		Carrier:      carrier,
		FlightNumber: number,
		DepartureDay: departure.Format("20060102"),
	}
}

// Designator returns the full flight designator, e.g. "AA123".
func (k StatusKey) Designator() string {
	return k.Carrier + k.FlightNumber
}

// String renders the key as "AA123:20250715".
func (k StatusKey) String() string {
	return k.Designator() + ":" + k.DepartureDay
}

// FlightStatus is a point-in-time status snapshot obtained from a single
// provider. Snapshots are immutable; a newer capture supersedes an older one
// for the same key, it never mutates it.
type FlightStatus struct {
	Key                StatusKey              `bson:"key" json:"key"`
	Status             string                 `bson:"status" json:"status"`
	DelayMinutes       int                    `bson:"delay_minutes" json:"delayMinutes"`
	ScheduledDeparture time.Time              `bson:"scheduled_departure" json:"scheduledDeparture"`
	ActualDeparture    *time.Time             `bson:"actual_departure,omitempty" json:"actualDeparture,omitempty"`
	ScheduledArrival   *time.Time             `bson:"scheduled_arrival,omitempty" json:"scheduledArrival,omitempty"`
	ActualArrival      *time.Time             `bson:"actual_arrival,omitempty" json:"actualArrival,omitempty"`
	Gate               string                 `bson:"gate,omitempty" json:"gate,omitempty"`
	Terminal           string                 `bson:"terminal,omitempty" json:"terminal,omitempty"`
	IsDisrupted        bool                   `bson:"is_disrupted" json:"isDisrupted"`
	DisruptionType     string                 `bson:"disruption_type,omitempty" json:"disruptionType,omitempty"`
	CapturedAt         time.Time              `bson:"captured_at" json:"capturedAt"`
	Source             string                 `bson:"source" json:"source"` // provider name
	Confidence         float64                `bson:"confidence" json:"confidence"`
	Stale              bool                   `bson:"-" json:"stale,omitempty"` // served past the freshness window
	Raw                map[string]interface{} `bson:"raw,omitempty" json:"raw,omitempty"`
}

// Age returns how old the snapshot is relative to now.
func (s *FlightStatus) Age(now time.Time) time.Duration {
	return now.Sub(s.CapturedAt)
}

// IsFresh reports whether the snapshot is young enough to short-circuit
// provider calls.
func (s *FlightStatus) IsFresh(now time.Time, window time.Duration) bool {
	return s.Age(now) < window
}

// Booking is a traveler's flight booking. The monitoring core reads bookings;
// creating them belongs to the import pipeline.
type Booking struct {
	ID            string     `bson:"id" json:"id"`
	UserID        string     `bson:"user_id" json:"user_id"`
	PNR           string     `bson:"pnr,omitempty" json:"pnr,omitempty"`
	Airline       string     `bson:"airline" json:"airline"` // IATA carrier code
	FlightNumber  string     `bson:"flight_number" json:"flight_number"`
	Origin        string     `bson:"origin" json:"origin"`           // IATA airport code
	Destination   string     `bson:"destination" json:"destination"` // IATA airport code
	DepartureDate time.Time  `bson:"departure_date" json:"departure_date"`
	ArrivalDate   *time.Time `bson:"arrival_date,omitempty" json:"arrival_date,omitempty"`
	BookingClass  string     `bson:"booking_class,omitempty" json:"booking_class,omitempty"`
	Status        string     `bson:"status" json:"status"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	LastChecked   *time.Time `bson:"last_checked,omitempty" json:"last_checked,omitempty"`
}

// Route returns the booking's city pair as "ORIGIN-DESTINATION".
func (b *Booking) Route() string {
	return b.Origin + "-" + b.Destination
}
