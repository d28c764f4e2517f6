package models

import "time"

// TripMonitor is the durable record that a booking is under active, periodic
// status watch. The scheduler mutates LastCheck; the frequency controller
// mutates CheckFrequencyMinutes and Notes. They never touch each other's
// fields.
type TripMonitor struct {
	ID                    string     `bson:"id" json:"id"`
	UserID                string     `bson:"user_id" json:"user_id"`
	BookingID             string     `bson:"booking_id" json:"booking_id"`
	FlightNumber          string     `bson:"flight_number" json:"flight_number"`
	Origin                string     `bson:"origin" json:"origin"`
	Destination           string     `bson:"destination" json:"destination"`
	DepartureDate         time.Time  `bson:"departure_date" json:"departure_date"`
	CheckFrequencyMinutes int        `bson:"check_frequency_minutes" json:"check_frequency_minutes"`
	LastCheck             *time.Time `bson:"last_check,omitempty" json:"last_check,omitempty"` // nil until the first successful check
	IsActive              bool       `bson:"is_active" json:"is_active"`
	ExpiresAt             *time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	AutoRebookingEnabled  bool       `bson:"auto_rebooking_enabled" json:"auto_rebooking_enabled"`
	Notes                 string     `bson:"notes,omitempty" json:"notes,omitempty"` // audit trail of frequency adjustments
	CreatedAt             time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `bson:"updated_at" json:"updated_at"`
}

// Route returns the monitored city pair as "ORIGIN-DESTINATION".
func (m *TripMonitor) Route() string {
	return m.Origin + "-" + m.Destination
}

// IsDue reports whether the monitor should be checked now: never checked, or
// the configured interval has elapsed since the last check.
func (m *TripMonitor) IsDue(now time.Time) bool {
	if m.LastCheck == nil {
		return true
	}
	return now.Sub(*m.LastCheck) >= time.Duration(m.CheckFrequencyMinutes)*time.Minute
}
