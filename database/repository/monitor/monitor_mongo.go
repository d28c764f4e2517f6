package monitorRepo

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

// MongoMonitorRepo implements MonitorRepository using MongoDB.
type MongoMonitorRepo struct {
	coll *mongo.Collection
}

// NewMongoMonitorRepo constructs a new instance of MongoMonitorRepo.
func NewMongoMonitorRepo() MonitorRepository {
	db := database.MongoClient.Database(config.AppConfig.MongoDB)
	return &MongoMonitorRepo{coll: db.Collection("trip_monitors")}
}

// Create inserts a new monitor document.
func (repo *MongoMonitorRepo) Create(monitor *models.TripMonitor) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := repo.coll.InsertOne(ctx, monitor); err != nil {
		return fmt.Errorf("error creating monitor: %w", err)
	}
	return nil
}

// GetByID retrieves a monitor document by ID.
func (repo *MongoMonitorRepo) GetByID(monitorID string) (*models.TripMonitor, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var monitor models.TripMonitor
	filter := bson.M{"id": monitorID}
	if err := repo.coll.FindOne(ctx, filter).Decode(&monitor); err != nil {
		return nil, fmt.Errorf("error fetching monitor with id %s: %w", monitorID, err)
	}
	return &monitor, nil
}

// GetActiveMonitors returns every monitor still under active watch.
func (repo *MongoMonitorRepo) GetActiveMonitors() ([]models.TripMonitor, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cursor, err := repo.coll.Find(ctx, bson.M{"is_active": true})
	if err != nil {
		return nil, fmt.Errorf("error fetching active monitors: %w", err)
	}
	defer cursor.Close(ctx)

	var monitors []models.TripMonitor
	for cursor.Next(ctx) {
		var m models.TripMonitor
		if err := cursor.Decode(&m); err != nil {
			return nil, fmt.Errorf("error decoding monitor: %w", err)
		}
		monitors = append(monitors, m)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return monitors, nil
}

// UpdateFields applies a partial update to a monitor document. Writers stay
// on their own fields (the scheduler owns last_check, the frequency
// controller owns check_frequency_minutes and notes) so concurrent updates
// never clobber each other.
func (repo *MongoMonitorRepo) UpdateFields(monitorID string, fields map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}
	filter := bson.M{"id": monitorID}
	res, err := repo.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("error updating monitor %s: %w", monitorID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("monitor with id %s not found", monitorID)
	}
	return nil
}

// MarkChecked stamps the time of a successful status check.
func (repo *MongoMonitorRepo) MarkChecked(monitorID string, checkedAt time.Time) error {
	return repo.UpdateFields(monitorID, map[string]interface{}{"last_check": checkedAt})
}

// Deactivate turns a monitor off without deleting its history.
func (repo *MongoMonitorRepo) Deactivate(monitorID string) error {
	return repo.UpdateFields(monitorID, map[string]interface{}{"is_active": false})
}
