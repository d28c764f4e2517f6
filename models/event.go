package models

import "time"

// Disruption kinds persisted on disruption events.
const (
	DisruptionDelayed       = "DELAYED"
	DisruptionCancelled     = "CANCELLED"
	DisruptionDiverted      = "DIVERTED"
	DisruptionMonitoringGap = "MONITORING_INTERRUPTION"
)

// Alert severities with their dispatch urgencies.
const (
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// Alert delivery states.
const (
	AlertPending = "PENDING"
	AlertSent    = "SENT"
	AlertFailed  = "FAILED"
)

// DisruptionEvent records that a specific booking's flight deviated from
// plan. An event is open until ResolvedAt is set; the scheduler creates at
// most one open event per booking.
type DisruptionEvent struct {
	ID                string              `bson:"id" json:"id"`
	BookingID         string              `bson:"booking_id" json:"booking_id"`
	Type              string              `bson:"type" json:"type"` // DELAYED, CANCELLED, DIVERTED, MONITORING_INTERRUPTION
	DetectedAt        time.Time           `bson:"detected_at" json:"detected_at"`
	OriginalDeparture time.Time           `bson:"original_departure" json:"original_departure"`
	NewDeparture      *time.Time          `bson:"new_departure,omitempty" json:"new_departure,omitempty"`
	DelayMinutes      int                 `bson:"delay_minutes,omitempty" json:"delay_minutes,omitempty"`
	Reason            string              `bson:"reason,omitempty" json:"reason,omitempty"`
	RebookingStatus   string              `bson:"rebooking_status" json:"rebooking_status"` // PENDING, IN_PROGRESS, COMPLETED, FAILED
	Alternatives      []AlternativeFlight `bson:"alternatives,omitempty" json:"alternatives,omitempty"`
	UserNotified      bool                `bson:"user_notified" json:"user_notified"`
	ResolvedAt        *time.Time          `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
}

// AlternativeFlight is a substitute option sourced when a flight is
// cancelled or diverted.
type AlternativeFlight struct {
	FlightNumber string    `bson:"flight_number" json:"flight_number"`
	Airline      string    `bson:"airline" json:"airline"`
	Origin       string    `bson:"origin" json:"origin"`
	Destination  string    `bson:"destination" json:"destination"`
	Departure    time.Time `bson:"departure" json:"departure"`
	Arrival      time.Time `bson:"arrival" json:"arrival"`
	PriceTotal   string    `bson:"price_total,omitempty" json:"price_total,omitempty"`
	Currency     string    `bson:"currency,omitempty" json:"currency,omitempty"`
}

// Alert is a user-facing signal attached to a disruption event. Delivery is
// handled by the dispatch worker; the core only creates and enqueues them.
type Alert struct {
	ID        string                 `bson:"id" json:"id"`
	EventID   string                 `bson:"event_id" json:"event_id"`
	UserID    string                 `bson:"user_id" json:"user_id"`
	Severity  string                 `bson:"severity" json:"severity"`
	Urgency   int                    `bson:"urgency" json:"urgency"` // 0-100
	Message   string                 `bson:"message" json:"message"`
	Metadata  map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Status    string                 `bson:"status" json:"status"`
	CreatedAt time.Time              `bson:"created_at" json:"created_at"`
	ExpiresAt *time.Time             `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
}
