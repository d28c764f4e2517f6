package eventRepo

import (
	"context"
	"fmt"
	"time"

	"skywatch/config"
	"skywatch/database"
	"skywatch/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoEventRepo implements EventRepository using MongoDB.
type MongoEventRepo struct {
	eventColl *mongo.Collection
	alertColl *mongo.Collection
}

// NewMongoEventRepo constructs a new instance of MongoEventRepo.
func NewMongoEventRepo() EventRepository {
	db := database.MongoClient.Database(config.AppConfig.MongoDB)
	return &MongoEventRepo{
		eventColl: db.Collection("disruption_events"),
		alertColl: db.Collection("alerts"),
	}
}

// Create inserts a new disruption event and returns its ID.
func (repo *MongoEventRepo) Create(event *models.DisruptionEvent) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.DetectedAt.IsZero() {
		event.DetectedAt = time.Now().UTC()
	}
	if _, err := repo.eventColl.InsertOne(ctx, event); err != nil {
		return "", fmt.Errorf("error creating disruption event for booking %s: %w", event.BookingID, err)
	}
	return event.ID, nil
}

// GetOpenEvent returns the unresolved disruption event for a booking, or
// mongo.ErrNoDocuments wrapped when there is none.
func (repo *MongoEventRepo) GetOpenEvent(bookingID string) (*models.DisruptionEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var event models.DisruptionEvent
	filter := bson.M{"booking_id": bookingID, "resolved_at": bson.M{"$exists": false}}
	if err := repo.eventColl.FindOne(ctx, filter).Decode(&event); err != nil {
		return nil, fmt.Errorf("error fetching open event for booking %s: %w", bookingID, err)
	}
	return &event, nil
}

// HasOpenEvent reports whether a booking already has an unresolved event.
func (repo *MongoEventRepo) HasOpenEvent(bookingID string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{"booking_id": bookingID, "resolved_at": bson.M{"$exists": false}}
	count, err := repo.eventColl.CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("error counting open events for booking %s: %w", bookingID, err)
	}
	return count > 0, nil
}

// AttachAlternatives stores sourced substitute flights on an event.
func (repo *MongoEventRepo) AttachAlternatives(eventID string, alternatives []models.AlternativeFlight) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{"id": eventID}
	update := bson.M{"$set": bson.M{"alternatives": alternatives}}
	res, err := repo.eventColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error attaching alternatives to event %s: %w", eventID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("event with id %s not found", eventID)
	}
	return nil
}

// CreateAlert inserts a new alert and returns its ID.
func (repo *MongoEventRepo) CreateAlert(alert *models.Alert) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	if alert.Status == "" {
		alert.Status = models.AlertPending
	}
	if _, err := repo.alertColl.InsertOne(ctx, alert); err != nil {
		return "", fmt.Errorf("error creating alert for event %s: %w", alert.EventID, err)
	}
	return alert.ID, nil
}

// GetAlertByID fetches a single alert.
func (repo *MongoEventRepo) GetAlertByID(alertID string) (*models.Alert, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var alert models.Alert
	if err := repo.alertColl.FindOne(ctx, bson.M{"id": alertID}).Decode(&alert); err != nil {
		return nil, fmt.Errorf("error fetching alert %s: %w", alertID, err)
	}
	return &alert, nil
}

// UpdateAlertStatus moves an alert through its delivery states.
func (repo *MongoEventRepo) UpdateAlertStatus(alertID, status string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{"id": alertID}
	update := bson.M{"$set": bson.M{"status": status}}
	res, err := repo.alertColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error updating alert %s: %w", alertID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("alert with id %s not found", alertID)
	}
	return nil
}
