package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"skywatch/models"
	"skywatch/services/tasks"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAlertStore struct {
	alerts map[string]*models.Alert
}

func (f *fakeAlertStore) Create(event *models.DisruptionEvent) (string, error) { return "", nil }
func (f *fakeAlertStore) GetOpenEvent(bookingID string) (*models.DisruptionEvent, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeAlertStore) HasOpenEvent(bookingID string) (bool, error) { return false, nil }
func (f *fakeAlertStore) AttachAlternatives(eventID string, alternatives []models.AlternativeFlight) error {
	return nil
}
func (f *fakeAlertStore) CreateAlert(alert *models.Alert) (string, error) { return alert.ID, nil }

func (f *fakeAlertStore) GetAlertByID(alertID string) (*models.Alert, error) {
	if a, ok := f.alerts[alertID]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("alert %s not found", alertID)
}

func (f *fakeAlertStore) UpdateAlertStatus(alertID, status string) error {
	a, ok := f.alerts[alertID]
	if !ok {
		return fmt.Errorf("alert %s not found", alertID)
	}
	a.Status = status
	return nil
}

type fakeNotifier struct {
	delivered []*models.Alert
	err       error
}

func (f *fakeNotifier) DeliverAlert(ctx context.Context, alert *models.Alert) error {
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, alert)
	return nil
}

func dispatchTask(t *testing.T, alertID string) *asynq.Task {
	t.Helper()
	task, _, err := tasks.NewAlertDispatchTask(alertID)
	require.NoError(t, err)
	return task
}

func pendingAlert(id string) *models.Alert {
	return &models.Alert{
		ID:       id,
		EventID:  "event-1",
		UserID:   "u1",
		Severity: models.SeverityHigh,
		Urgency:  80,
		Message:  "FLIGHT DELAYED: Flight AA123 (JFK-LAX) is delayed 95 minutes. Departure was scheduled for Dec 1 14:00 UTC.",
		Status:   models.AlertPending,
	}
}

func TestHandleAlertDispatchDeliversAndMarksSent(t *testing.T) {
	store := &fakeAlertStore{alerts: map[string]*models.Alert{"alert-1": pendingAlert("alert-1")}}
	notifier := &fakeNotifier{}
	handler := handleAlertDispatch(store, notifier)

	err := handler(context.Background(), dispatchTask(t, "alert-1"))
	require.NoError(t, err)

	require.Len(t, notifier.delivered, 1)
	assert.Equal(t, "alert-1", notifier.delivered[0].ID)
	assert.Equal(t, models.AlertSent, store.alerts["alert-1"].Status)
}

func TestHandleAlertDispatchSkipsNonPendingAlert(t *testing.T) {
	sent := pendingAlert("alert-1")
	sent.Status = models.AlertSent
	store := &fakeAlertStore{alerts: map[string]*models.Alert{"alert-1": sent}}
	notifier := &fakeNotifier{}
	handler := handleAlertDispatch(store, notifier)

	err := handler(context.Background(), dispatchTask(t, "alert-1"))
	require.NoError(t, err, "retries of handled alerts succeed without redelivery")
	assert.Empty(t, notifier.delivered)
	assert.Equal(t, models.AlertSent, store.alerts["alert-1"].Status)
}

func TestHandleAlertDispatchExpiredAlertFails(t *testing.T) {
	expired := pendingAlert("alert-1")
	past := time.Now().UTC().Add(-time.Minute)
	expired.ExpiresAt = &past
	store := &fakeAlertStore{alerts: map[string]*models.Alert{"alert-1": expired}}
	notifier := &fakeNotifier{}
	handler := handleAlertDispatch(store, notifier)

	err := handler(context.Background(), dispatchTask(t, "alert-1"))
	require.NoError(t, err)
	assert.Empty(t, notifier.delivered)
	assert.Equal(t, models.AlertFailed, store.alerts["alert-1"].Status)
}

func TestHandleAlertDispatchDeliveryFailureRequeues(t *testing.T) {
	store := &fakeAlertStore{alerts: map[string]*models.Alert{"alert-1": pendingAlert("alert-1")}}
	notifier := &fakeNotifier{err: errors.New("webhook returned 503 for alert alert-1")}
	handler := handleAlertDispatch(store, notifier)

	err := handler(context.Background(), dispatchTask(t, "alert-1"))
	require.Error(t, err, "delivery failures propagate so the queue retries")
	assert.Equal(t, models.AlertPending, store.alerts["alert-1"].Status)
}

func TestHandleAlertDispatchUnknownAlert(t *testing.T) {
	handler := handleAlertDispatch(&fakeAlertStore{}, &fakeNotifier{})
	err := handler(context.Background(), dispatchTask(t, "ghost"))
	require.Error(t, err)
}

func TestHandleAlertDispatchInvalidPayload(t *testing.T) {
	handler := handleAlertDispatch(&fakeAlertStore{}, &fakeNotifier{})
	err := handler(context.Background(), asynq.NewTask(tasks.TypeAlertDispatch, []byte("{not json")))
	require.Error(t, err)
}

func TestDispatchPayloadRoundTrip(t *testing.T) {
	task := dispatchTask(t, "alert-7")
	var p models.AlertDispatchPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, "alert-7", p.AlertID)
}
