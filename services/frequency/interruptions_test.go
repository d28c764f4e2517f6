package frequency

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"skywatch/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interruptedController(lastCheck time.Time) (*DefaultFrequencyController, *fakeMonitorRepo, *fakeEventRepo, *captureQueue) {
	monitors, flights := monitoredBooking(time.Now().UTC().Add(72 * time.Hour))
	monitors.monitors[0].LastCheck = &lastCheck

	events := &fakeEventRepo{}
	queue := &captureQueue{}
	c := &DefaultFrequencyController{
		MonitorRepo: monitors,
		FlightRepo:  flights,
		EventRepo:   events,
		Scorer:      &stubScorer{level: models.RiskLow},
		RouteStats:  &stubRouteStats{},
		Alerts:      queue,
	}
	return c, monitors, events, queue
}

func TestInterruptionSeverity(t *testing.T) {
	tests := []struct {
		gapMinutes float64
		severity   string
		urgency    int
	}{
		{31, models.SeverityMedium, 60},
		{45, models.SeverityMedium, 60},
		{59.9, models.SeverityMedium, 60},
		{60, models.SeverityHigh, 80},
		{90, models.SeverityHigh, 80},
		{119.9, models.SeverityHigh, 80},
		{120, models.SeverityCritical, 95},
		{150, models.SeverityCritical, 95},
	}

	for _, tc := range tests {
		severity, urgency := interruptionSeverity(tc.gapMinutes)
		assert.Equal(t, tc.severity, severity, "gap %.1f min", tc.gapMinutes)
		assert.Equal(t, tc.urgency, urgency, "gap %.1f min", tc.gapMinutes)
	}
}

func TestFindInterruptionsIgnoresHealthyMonitors(t *testing.T) {
	c, monitors, events, queue := interruptedController(time.Now().UTC().Add(-10 * time.Minute))

	// Never-checked monitors are still warming up.
	monitors.monitors = append(monitors.monitors, models.TripMonitor{
		ID: "m-new", BookingID: "b1", UserID: "u1", CheckFrequencyMinutes: 30, IsActive: true,
	})

	reports, err := c.FindInterruptions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.Empty(t, events.alerts)
	assert.Empty(t, events.events)
	assert.Empty(t, queue.ids)
}

func TestFindInterruptionsFilesAlertAndEvent(t *testing.T) {
	lastCheck := time.Now().UTC().Add(-45 * time.Minute)
	c, monitors, events, queue := interruptedController(lastCheck)

	reports, err := c.FindInterruptions(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)

	report := reports[0]
	assert.Equal(t, "m1", report.MonitorID)
	assert.Equal(t, "AA123", report.FlightNumber)
	assert.Equal(t, "ORD-DFW", report.Route)
	assert.Equal(t, lastCheck, report.LastCheck)
	assert.InDelta(t, 45, report.GapMinutes, 0.5)
	assert.Equal(t, 30, report.ExpectedFrequency)
	assert.Equal(t, models.SeverityMedium, report.Severity)

	require.Len(t, events.events, 1)
	event := events.events[0]
	assert.Equal(t, models.DisruptionMonitoringGap, event.Type)
	assert.Equal(t, "b1", event.BookingID)
	assert.Equal(t, fmt.Sprintf("Monitoring interrupted for %.0f minutes", report.GapMinutes), event.Reason)
	assert.Equal(t, "PENDING", event.RebookingStatus)
	assert.Equal(t, monitors.monitors[0].DepartureDate, event.OriginalDeparture)

	require.Len(t, events.alerts, 1)
	alert := events.alerts[0]
	assert.Equal(t, event.ID, alert.EventID)
	assert.Equal(t, "u1", alert.UserID)
	assert.Equal(t, models.SeverityMedium, alert.Severity)
	assert.Equal(t, 60, alert.Urgency)
	assert.Equal(t, fmt.Sprintf(
		"MONITORING INTERRUPTION: Flight AA123 monitoring has been interrupted for %.0f minutes. Last check: %s UTC. Please verify flight status manually.",
		report.GapMinutes, lastCheck.Format("15:04:05")), alert.Message)

	assert.Equal(t, "monitoring_gap", alert.Metadata["interruption_type"])
	assert.Equal(t, report.GapMinutes, alert.Metadata["interruption_minutes"])
	assert.Equal(t, lastCheck.Format(time.RFC3339), alert.Metadata["last_check"])
	assert.Equal(t, "m1", alert.Metadata["monitor_id"])
	assert.Equal(t, "AA123", alert.Metadata["flight_number"])
	assert.Equal(t, "ORD-DFW", alert.Metadata["route"])

	require.NotNil(t, alert.ExpiresAt)
	assert.WithinDuration(t, time.Now().UTC().Add(6*time.Hour), *alert.ExpiresAt, 10*time.Second)

	assert.Equal(t, []string{alert.ID}, queue.ids)
}

func TestFindInterruptionsEscalatesWithGapLength(t *testing.T) {
	t.Run("over an hour", func(t *testing.T) {
		c, _, events, _ := interruptedController(time.Now().UTC().Add(-90 * time.Minute))

		reports, err := c.FindInterruptions(context.Background())
		require.NoError(t, err)
		require.Len(t, reports, 1)
		assert.Equal(t, models.SeverityHigh, reports[0].Severity)
		require.Len(t, events.alerts, 1)
		assert.Equal(t, 80, events.alerts[0].Urgency)
	})

	t.Run("over two hours", func(t *testing.T) {
		c, _, events, _ := interruptedController(time.Now().UTC().Add(-150 * time.Minute))

		reports, err := c.FindInterruptions(context.Background())
		require.NoError(t, err)
		require.Len(t, reports, 1)
		assert.Equal(t, models.SeverityCritical, reports[0].Severity)
		require.Len(t, events.alerts, 1)
		assert.Equal(t, 95, events.alerts[0].Urgency)
	})
}

func TestFindInterruptionsReusesOpenEvent(t *testing.T) {
	c, _, events, _ := interruptedController(time.Now().UTC().Add(-45 * time.Minute))
	events.openEvents = map[string]*models.DisruptionEvent{
		"b1": {ID: "event-open", BookingID: "b1", Type: models.DisruptionDelayed},
	}

	reports, err := c.FindInterruptions(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)

	assert.Empty(t, events.events, "no second event while one is open")
	require.Len(t, events.alerts, 1)
	assert.Equal(t, "event-open", events.alerts[0].EventID)
}

func TestFindInterruptionsHonorsCustomThreshold(t *testing.T) {
	c, _, events, _ := interruptedController(time.Now().UTC().Add(-90 * time.Minute))
	c.InterruptionThreshold = 2 * time.Hour

	reports, err := c.FindInterruptions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.Empty(t, events.alerts)
}

func TestFindInterruptionsSkipsMissingBooking(t *testing.T) {
	c, monitors, events, _ := interruptedController(time.Now().UTC().Add(-45 * time.Minute))
	monitors.monitors[0].BookingID = "gone"

	reports, err := c.FindInterruptions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.Empty(t, events.alerts)
}

func TestFindInterruptionsListError(t *testing.T) {
	c, monitors, _, _ := interruptedController(time.Now().UTC().Add(-45 * time.Minute))
	monitors.listErr = errors.New("mongo unreachable")

	_, err := c.FindInterruptions(context.Background())
	require.Error(t, err)
}
