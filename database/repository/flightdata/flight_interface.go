package flightRepo

import (
	"time"

	"skywatch/models"
)

// RouteHistory is the raw delay aggregate for one city pair over a trailing
// window, before it is turned into RouteDelayStats.
type RouteHistory struct {
	Origin            string
	Destination       string
	TotalFlights      int
	DelayedFlights    int
	TotalDelayMinutes int
}

// RoutePair identifies a city pair with its observed booking volume.
type RoutePair struct {
	Origin      string `bson:"origin"`
	Destination string `bson:"destination"`
	Bookings    int    `bson:"bookings"`
}

// FlightDataRepository defines read access to bookings and historical route
// performance, plus the append-only snapshot log.
type FlightDataRepository interface {
	GetBooking(bookingID string) (*models.Booking, error)
	GetUserBookingsDepartingBetween(userID string, from, to time.Time) ([]models.Booking, error)
	MarkBookingChecked(bookingID string, at time.Time) error
	SaveSnapshot(snapshot *models.FlightStatus) error
	GetRouteHistory(origin, destination string, windowDays int) (*RouteHistory, error)
	GetTopRoutes(windowDays, limit int) ([]RoutePair, error)
}
