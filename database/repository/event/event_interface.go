package eventRepo

import "skywatch/models"

// EventRepository defines persistence operations for disruption events and
// the alerts attached to them.
type EventRepository interface {
	Create(event *models.DisruptionEvent) (string, error)
	GetOpenEvent(bookingID string) (*models.DisruptionEvent, error)
	HasOpenEvent(bookingID string) (bool, error)
	AttachAlternatives(eventID string, alternatives []models.AlternativeFlight) error
	CreateAlert(alert *models.Alert) (string, error)
	GetAlertByID(alertID string) (*models.Alert, error)
	UpdateAlertStatus(alertID, status string) error
}
