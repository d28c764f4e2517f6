package monitorRepo

import (
	"time"

	"skywatch/models"
)

// MonitorRepository defines persistence operations for trip monitors.
type MonitorRepository interface {
	Create(monitor *models.TripMonitor) error
	GetByID(monitorID string) (*models.TripMonitor, error)
	GetActiveMonitors() ([]models.TripMonitor, error)
	UpdateFields(monitorID string, fields map[string]interface{}) error
	MarkChecked(monitorID string, checkedAt time.Time) error
	Deactivate(monitorID string) error
}
