package flightRepo

import (
	"context"
	"fmt"
	"time"

	"skywatch/config"
	"skywatch/database"
	"skywatch/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoFlightDataRepo implements FlightDataRepository using MongoDB.
type MongoFlightDataRepo struct {
	bookingColl  *mongo.Collection
	snapshotColl *mongo.Collection
	eventColl    *mongo.Collection
}

// NewMongoFlightDataRepo constructs a new instance of MongoFlightDataRepo.
func NewMongoFlightDataRepo() FlightDataRepository {
	db := database.MongoClient.Database(config.AppConfig.MongoDB)
	return &MongoFlightDataRepo{
		bookingColl:  db.Collection("bookings"),
		snapshotColl: db.Collection("flight_snapshots"),
		eventColl:    db.Collection("disruption_events"),
	}
}

// GetBooking retrieves a booking document by ID.
func (repo *MongoFlightDataRepo) GetBooking(bookingID string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var booking models.Booking
	filter := bson.M{"id": bookingID}
	if err := repo.bookingColl.FindOne(ctx, filter).Decode(&booking); err != nil {
		return nil, fmt.Errorf("error fetching booking with id %s: %w", bookingID, err)
	}
	return &booking, nil
}

// GetUserBookingsDepartingBetween returns a user's bookings with a departure
// inside (from, to]. The connection-risk factor scans these for onward legs.
func (repo *MongoFlightDataRepo) GetUserBookingsDepartingBetween(userID string, from, to time.Time) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{
		"user_id":        userID,
		"departure_date": bson.M{"$gt": from, "$lte": to},
	}
	cursor, err := repo.bookingColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error fetching bookings for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	for cursor.Next(ctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("error decoding booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return bookings, nil
}

// MarkBookingChecked stamps the last successful status check on the booking.
func (repo *MongoFlightDataRepo) MarkBookingChecked(bookingID string, at time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{"id": bookingID}
	update := bson.M{"$set": bson.M{"last_checked": at}}
	if _, err := repo.bookingColl.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("error marking booking %s checked: %w", bookingID, err)
	}
	return nil
}

// SaveSnapshot appends a status snapshot. Snapshots are immutable; there is
// no update path.
func (repo *MongoFlightDataRepo) SaveSnapshot(snapshot *models.FlightStatus) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := repo.snapshotColl.InsertOne(ctx, snapshot); err != nil {
		return fmt.Errorf("error saving snapshot for %s: %w", snapshot.Key, err)
	}
	return nil
}

// GetRouteHistory aggregates delay counts for a city pair over the trailing
// window: every booking on the route counts as one observed flight, and a
// flight is delayed when it has at least one disruption event.
func (repo *MongoFlightDataRepo) GetRouteHistory(origin, destination string, windowDays int) (*RouteHistory, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	since := time.Now().UTC().AddDate(0, 0, -windowDays)
	filter := bson.M{
		"origin":         origin,
		"destination":    destination,
		"departure_date": bson.M{"$gte": since},
	}
	cursor, err := repo.bookingColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error fetching route history %s-%s: %w", origin, destination, err)
	}
	defer cursor.Close(ctx)

	var bookingIDs []string
	for cursor.Next(ctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("error decoding booking: %w", err)
		}
		bookingIDs = append(bookingIDs, b.ID)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	history := &RouteHistory{
		Origin:       origin,
		Destination:  destination,
		TotalFlights: len(bookingIDs),
	}
	if len(bookingIDs) == 0 {
		return history, nil
	}

	eventFilter := bson.M{
		"booking_id": bson.M{"$in": bookingIDs},
		"type": bson.M{"$in": []string{
			models.DisruptionDelayed,
			models.DisruptionCancelled,
			models.DisruptionDiverted,
		}},
	}
	evCursor, err := repo.eventColl.Find(ctx, eventFilter)
	if err != nil {
		return nil, fmt.Errorf("error fetching disruption events for %s-%s: %w", origin, destination, err)
	}
	defer evCursor.Close(ctx)

	delayed := make(map[string]bool)
	for evCursor.Next(ctx) {
		var ev models.DisruptionEvent
		if err := evCursor.Decode(&ev); err != nil {
			return nil, fmt.Errorf("error decoding disruption event: %w", err)
		}
		if !delayed[ev.BookingID] {
			delayed[ev.BookingID] = true
			history.DelayedFlights++
		}
		history.TotalDelayMinutes += ev.DelayMinutes
	}
	if err := evCursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return history, nil
}

// GetTopRoutes returns the most-booked city pairs over the trailing window,
// busiest first. The frequency cycle refreshes route statistics for these.
func (repo *MongoFlightDataRepo) GetTopRoutes(windowDays, limit int) ([]RoutePair, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	since := time.Now().UTC().AddDate(0, 0, -windowDays)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"departure_date": bson.M{"$gte": since},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":      bson.M{"origin": "$origin", "destination": "$destination"},
			"bookings": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"bookings": -1}}},
		{{Key: "$limit", Value: limit}},
	}
	cursor, err := repo.bookingColl.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregation error: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		ID struct {
			Origin      string `bson:"origin"`
			Destination string `bson:"destination"`
		} `bson:"_id"`
		Bookings int `bson:"bookings"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("error decoding aggregation result: %w", err)
	}

	routes := make([]RoutePair, 0, len(results))
	for _, r := range results {
		routes = append(routes, RoutePair{
			Origin:      r.ID.Origin,
			Destination: r.ID.Destination,
			Bookings:    r.Bookings,
		})
	}
	return routes, nil
}
