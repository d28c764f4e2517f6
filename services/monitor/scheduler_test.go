package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	flightRepo "skywatch/database/repository/flightdata"
	"skywatch/models"
	"skywatch/services/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The check cycle fans monitors out to goroutines, so every fake guards its
// state with a mutex.

type fakeMonitorRepo struct {
	mu          sync.Mutex
	monitors    []models.TripMonitor
	listErr     error
	checked     map[string]time.Time
	deactivated []string
}

func (f *fakeMonitorRepo) Create(monitor *models.TripMonitor) error { return nil }

func (f *fakeMonitorRepo) GetByID(monitorID string) (*models.TripMonitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.monitors {
		if f.monitors[i].ID == monitorID {
			m := f.monitors[i]
			return &m, nil
		}
	}
	return nil, fmt.Errorf("monitor %s not found", monitorID)
}

func (f *fakeMonitorRepo) GetActiveMonitors() ([]models.TripMonitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.TripMonitor, len(f.monitors))
	copy(out, f.monitors)
	return out, nil
}

func (f *fakeMonitorRepo) UpdateFields(monitorID string, fields map[string]interface{}) error {
	return nil
}

func (f *fakeMonitorRepo) MarkChecked(monitorID string, checkedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checked == nil {
		f.checked = make(map[string]time.Time)
	}
	f.checked[monitorID] = checkedAt
	return nil
}

func (f *fakeMonitorRepo) Deactivate(monitorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivated = append(f.deactivated, monitorID)
	return nil
}

func (f *fakeMonitorRepo) checkedAt(monitorID string) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.checked[monitorID]
	return at, ok
}

type fakeFlightRepo struct {
	mu             sync.Mutex
	bookings       map[string]*models.Booking
	snapshots      []*models.FlightStatus
	bookingChecked map[string]time.Time
}

func (f *fakeFlightRepo) GetBooking(bookingID string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.bookings[bookingID]; ok {
		booking := *b
		return &booking, nil
	}
	return nil, fmt.Errorf("booking %s not found", bookingID)
}

func (f *fakeFlightRepo) GetUserBookingsDepartingBetween(userID string, from, to time.Time) ([]models.Booking, error) {
	return nil, nil
}

func (f *fakeFlightRepo) MarkBookingChecked(bookingID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bookingChecked == nil {
		f.bookingChecked = make(map[string]time.Time)
	}
	f.bookingChecked[bookingID] = at
	return nil
}

func (f *fakeFlightRepo) SaveSnapshot(snapshot *models.FlightStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, snapshot)
	return nil
}

func (f *fakeFlightRepo) GetRouteHistory(origin, destination string, windowDays int) (*flightRepo.RouteHistory, error) {
	return &flightRepo.RouteHistory{Origin: origin, Destination: destination}, nil
}

func (f *fakeFlightRepo) GetTopRoutes(windowDays, limit int) ([]flightRepo.RoutePair, error) {
	return nil, nil
}

type fakeEventRepo struct {
	mu           sync.Mutex
	openEvents   map[string]*models.DisruptionEvent
	events       []*models.DisruptionEvent
	alerts       []*models.Alert
	alternatives map[string][]models.AlternativeFlight
}

func (f *fakeEventRepo) Create(event *models.DisruptionEvent) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = fmt.Sprintf("event-%d", len(f.events)+1)
	f.events = append(f.events, event)
	return event.ID, nil
}

func (f *fakeEventRepo) GetOpenEvent(bookingID string) (*models.DisruptionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.openEvents[bookingID]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("no open event for booking %s", bookingID)
}

func (f *fakeEventRepo) HasOpenEvent(bookingID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.openEvents[bookingID]
	return ok, nil
}

func (f *fakeEventRepo) AttachAlternatives(eventID string, alternatives []models.AlternativeFlight) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.alternatives == nil {
		f.alternatives = make(map[string][]models.AlternativeFlight)
	}
	f.alternatives[eventID] = alternatives
	return nil
}

func (f *fakeEventRepo) CreateAlert(alert *models.Alert) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert.ID = fmt.Sprintf("alert-%d", len(f.alerts)+1)
	if alert.Status == "" {
		alert.Status = models.AlertPending
	}
	f.alerts = append(f.alerts, alert)
	return alert.ID, nil
}

func (f *fakeEventRepo) GetAlertByID(alertID string) (*models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.alerts {
		if a.ID == alertID {
			return a, nil
		}
	}
	return nil, fmt.Errorf("alert %s not found", alertID)
}

func (f *fakeEventRepo) UpdateAlertStatus(alertID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.alerts {
		if a.ID == alertID {
			a.Status = status
			return nil
		}
	}
	return fmt.Errorf("alert %s not found", alertID)
}

type fakeStatusService struct {
	mu       sync.Mutex
	statuses map[string]*models.FlightStatus
	err      error
	calls    map[string]int
	lookups  status.LookupStats
	diags    []models.ProviderDiagnostics
}

func (f *fakeStatusService) GetStatus(ctx context.Context, flight string, departure time.Time) (*models.FlightStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[flight]++
	if f.err != nil {
		return nil, f.err
	}
	if st, ok := f.statuses[flight]; ok {
		snapshot := *st
		return &snapshot, nil
	}
	return &models.FlightStatus{
		Key:        models.NewStatusKey(flight, departure),
		Status:     models.StatusOnTime,
		CapturedAt: time.Now().UTC(),
		Source:     "test",
		Confidence: 1,
	}, nil
}

func (f *fakeStatusService) Diagnostics() []models.ProviderDiagnostics { return f.diags }
func (f *fakeStatusService) CacheConnected(ctx context.Context) bool   { return true }
func (f *fakeStatusService) Stats() status.LookupStats                 { return f.lookups }

func (f *fakeStatusService) callCount(flight string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[flight]
}

type fakeFrequencyController struct {
	mu     sync.Mutex
	cycles int
}

func (f *fakeFrequencyController) Recommend(ctx context.Context, monitor *models.TripMonitor) (*models.FrequencyAdjustment, error) {
	return &models.FrequencyAdjustment{MonitorID: monitor.ID}, nil
}

func (f *fakeFrequencyController) Apply(adjustment *models.FrequencyAdjustment) (bool, error) {
	return false, nil
}

func (f *fakeFrequencyController) FindInterruptions(ctx context.Context) ([]models.InterruptionReport, error) {
	return nil, nil
}

func (f *fakeFrequencyController) RunAdjustmentCycle(ctx context.Context) models.AdjustmentSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cycles++
	return models.AdjustmentSummary{}
}

func (f *fakeFrequencyController) cycleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cycles
}

type stubFinder struct {
	mu    sync.Mutex
	alts  []models.AlternativeFlight
	err   error
	calls int
}

func (s *stubFinder) FindAlternatives(ctx context.Context, origin, destination string, date time.Time) ([]models.AlternativeFlight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.alts, s.err
}

type captureQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *captureQueue) EnqueueAlertDispatch(alertID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, alertID)
	return nil
}

var testDeparture = time.Date(2025, 12, 1, 14, 0, 0, 0, time.UTC)

func schedulerFixture() (*Scheduler, *fakeMonitorRepo, *fakeFlightRepo, *fakeEventRepo, *fakeStatusService, *captureQueue) {
	monitors := &fakeMonitorRepo{monitors: []models.TripMonitor{{
		ID:                    "m1",
		UserID:                "u1",
		BookingID:             "b1",
		FlightNumber:          "AA123",
		Origin:                "JFK",
		Destination:           "LAX",
		DepartureDate:         testDeparture,
		CheckFrequencyMinutes: 15,
		IsActive:              true,
	}}}
	flights := &fakeFlightRepo{bookings: map[string]*models.Booking{"b1": {
		ID:            "b1",
		UserID:        "u1",
		Airline:       "AA",
		FlightNumber:  "AA123",
		Origin:        "JFK",
		Destination:   "LAX",
		DepartureDate: testDeparture,
		Status:        models.BookingConfirmed,
	}}}
	events := &fakeEventRepo{}
	statusSvc := &fakeStatusService{}
	queue := &captureQueue{}

	sched := &Scheduler{
		MonitorRepo: monitors,
		FlightRepo:  flights,
		EventRepo:   events,
		Status:      statusSvc,
		Frequency:   &fakeFrequencyController{},
		Alerts:      queue,
	}
	return sched, monitors, flights, events, statusSvc, queue
}

func disruptedStatus(disruptionType string, delayMinutes int, confidence float64) *models.FlightStatus {
	return &models.FlightStatus{
		Key:            models.NewStatusKey("AA123", testDeparture),
		Status:         disruptionType,
		DelayMinutes:   delayMinutes,
		IsDisrupted:    true,
		DisruptionType: disruptionType,
		CapturedAt:     time.Now().UTC(),
		Source:         "MockStatus",
		Confidence:     confidence,
	}
}

func TestCheckMonitorRecordsHealthyCheck(t *testing.T) {
	sched, monitors, flights, events, statusSvc, _ := schedulerFixture()

	sched.checkMonitor(context.Background(), &monitors.monitors[0])

	assert.Equal(t, 1, statusSvc.callCount("AA123"))
	assert.Len(t, flights.snapshots, 1)

	checkedAt, ok := monitors.checkedAt("m1")
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().UTC(), checkedAt, 5*time.Second)
	assert.Equal(t, checkedAt, flights.bookingChecked["b1"], "booking and monitor share the check timestamp")

	assert.Empty(t, events.events)
	assert.Equal(t, int64(1), sched.checksPerformed.Load())
	assert.Zero(t, sched.disruptionsDetected.Load())
	assert.Zero(t, sched.errorCount.Load())
}

func TestCheckMonitorStatusFailureKeepsMonitorDue(t *testing.T) {
	sched, monitors, flights, _, statusSvc, _ := schedulerFixture()
	statusSvc.err = errors.New("all providers down")

	sched.checkMonitor(context.Background(), &monitors.monitors[0])

	_, ok := monitors.checkedAt("m1")
	assert.False(t, ok, "a failed lookup must not advance LastCheck")
	assert.Empty(t, flights.snapshots)
	assert.Equal(t, int64(1), sched.errorCount.Load())
	assert.Equal(t, int64(1), sched.checksPerformed.Load())
}

func TestCheckMonitorUnknownBooking(t *testing.T) {
	sched, monitors, _, _, statusSvc, _ := schedulerFixture()
	monitors.monitors[0].BookingID = "gone"

	sched.checkMonitor(context.Background(), &monitors.monitors[0])

	assert.Zero(t, statusSvc.callCount("AA123"))
	assert.Equal(t, int64(1), sched.errorCount.Load())
}

func TestCheckMonitorCancelledFlight(t *testing.T) {
	sched, monitors, _, events, statusSvc, queue := schedulerFixture()
	statusSvc.statuses = map[string]*models.FlightStatus{"AA123": disruptedStatus(models.DisruptionCancelled, 0, 0.9)}
	finder := &stubFinder{alts: []models.AlternativeFlight{
		{FlightNumber: "DL200", Airline: "DL", Origin: "JFK", Destination: "LAX"},
		{FlightNumber: "UA300", Airline: "UA", Origin: "JFK", Destination: "LAX"},
	}}
	sched.Alternatives = finder

	sched.checkMonitor(context.Background(), &monitors.monitors[0])

	assert.Equal(t, int64(1), sched.disruptionsDetected.Load())

	require.Len(t, events.events, 1)
	event := events.events[0]
	assert.Equal(t, models.DisruptionCancelled, event.Type)
	assert.Equal(t, "b1", event.BookingID)
	assert.Equal(t, testDeparture, event.OriginalDeparture)
	assert.Equal(t, "Flight cancelled detected via MockStatus (confidence: 0.90)", event.Reason)
	assert.Equal(t, "PENDING", event.RebookingStatus)

	assert.Equal(t, 1, finder.calls)
	assert.Len(t, events.alternatives[event.ID], 2)

	require.Len(t, events.alerts, 1)
	alert := events.alerts[0]
	assert.Equal(t, event.ID, alert.EventID)
	assert.Equal(t, "u1", alert.UserID)
	assert.Equal(t, models.SeverityCritical, alert.Severity)
	assert.Equal(t, 95, alert.Urgency)
	assert.Equal(t, "FLIGHT CANCELLED: Flight AA123 (JFK-LAX) scheduled for Dec 1 14:00 UTC has been cancelled. Please review alternative flights.", alert.Message)
	assert.Equal(t, models.DisruptionCancelled, alert.Metadata["disruption_type"])
	assert.Equal(t, "MockStatus", alert.Metadata["source"])
	assert.Equal(t, 0.9, alert.Metadata["confidence"])
	assert.Equal(t, "JFK-LAX", alert.Metadata["route"])

	assert.Equal(t, []string{alert.ID}, queue.ids)

	_, ok := monitors.checkedAt("m1")
	assert.True(t, ok, "a disrupted check still counts as a check")
}

func TestCheckMonitorDelayedFlight(t *testing.T) {
	sched, monitors, _, events, statusSvc, _ := schedulerFixture()
	statusSvc.statuses = map[string]*models.FlightStatus{"AA123": disruptedStatus(models.DisruptionDelayed, 45, 0.95)}
	finder := &stubFinder{}
	sched.Alternatives = finder

	sched.checkMonitor(context.Background(), &monitors.monitors[0])

	require.Len(t, events.events, 1)
	assert.Equal(t, 45, events.events[0].DelayMinutes)

	require.Len(t, events.alerts, 1)
	alert := events.alerts[0]
	assert.Equal(t, models.SeverityMedium, alert.Severity)
	assert.Equal(t, 60, alert.Urgency)
	assert.Equal(t, "FLIGHT DELAYED: Flight AA123 (JFK-LAX) is delayed 45 minutes. Departure was scheduled for Dec 1 14:00 UTC.", alert.Message)

	assert.Zero(t, finder.calls, "delays do not trigger alternative sourcing")
}

func TestHandleDisruptionLongDelayEscalates(t *testing.T) {
	sched, _, flights, events, _, _ := schedulerFixture()
	booking, err := flights.GetBooking("b1")
	require.NoError(t, err)

	sched.handleDisruption(context.Background(), booking, disruptedStatus(models.DisruptionDelayed, 150, 0.95))

	require.Len(t, events.alerts, 1)
	assert.Equal(t, models.SeverityHigh, events.alerts[0].Severity)
	assert.Equal(t, 80, events.alerts[0].Urgency)
}

func TestHandleDisruptionSkipsOpenEvent(t *testing.T) {
	sched, _, flights, events, _, queue := schedulerFixture()
	events.openEvents = map[string]*models.DisruptionEvent{
		"b1": {ID: "event-open", BookingID: "b1", Type: models.DisruptionDelayed},
	}
	finder := &stubFinder{}
	sched.Alternatives = finder
	booking, err := flights.GetBooking("b1")
	require.NoError(t, err)

	sched.handleDisruption(context.Background(), booking, disruptedStatus(models.DisruptionCancelled, 0, 0.9))

	assert.Empty(t, events.events, "one disruption produces one event, not one per check")
	assert.Empty(t, events.alerts)
	assert.Zero(t, finder.calls)
	assert.Empty(t, queue.ids)
}

func TestDisruptionSeverity(t *testing.T) {
	tests := []struct {
		name     string
		status   *models.FlightStatus
		severity string
		urgency  int
	}{
		{"cancelled", disruptedStatus(models.DisruptionCancelled, 0, 0.9), models.SeverityCritical, 95},
		{"diverted", disruptedStatus(models.DisruptionDiverted, 0, 0.9), models.SeverityHigh, 85},
		{"short delay", disruptedStatus(models.DisruptionDelayed, 45, 0.95), models.SeverityMedium, 60},
		{"two hour delay", disruptedStatus(models.DisruptionDelayed, 120, 0.95), models.SeverityHigh, 80},
		{"long delay", disruptedStatus(models.DisruptionDelayed, 150, 0.95), models.SeverityHigh, 80},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			severity, urgency := disruptionSeverity(tc.status)
			assert.Equal(t, tc.severity, severity)
			assert.Equal(t, tc.urgency, urgency)
		})
	}
}

func TestDisruptionMessage(t *testing.T) {
	booking := &models.Booking{
		FlightNumber:  "AA123",
		Origin:        "JFK",
		Destination:   "LAX",
		DepartureDate: testDeparture,
	}

	assert.Equal(t,
		"FLIGHT CANCELLED: Flight AA123 (JFK-LAX) scheduled for Dec 1 14:00 UTC has been cancelled. Please review alternative flights.",
		disruptionMessage(booking, disruptedStatus(models.DisruptionCancelled, 0, 0.9)))
	assert.Equal(t,
		"FLIGHT DIVERTED: Flight AA123 (JFK-LAX) has been diverted. Please verify your arrival arrangements.",
		disruptionMessage(booking, disruptedStatus(models.DisruptionDiverted, 0, 0.9)))
	assert.Equal(t,
		"FLIGHT DELAYED: Flight AA123 (JFK-LAX) is delayed 95 minutes. Departure was scheduled for Dec 1 14:00 UTC.",
		disruptionMessage(booking, disruptedStatus(models.DisruptionDelayed, 95, 0.95)))
}

func TestNeedsAlternatives(t *testing.T) {
	assert.True(t, needsAlternatives(models.DisruptionCancelled))
	assert.True(t, needsAlternatives(models.DisruptionDiverted))
	assert.False(t, needsAlternatives(models.DisruptionDelayed))
	assert.False(t, needsAlternatives(models.DisruptionMonitoringGap))
}

func TestCheckCycleDeactivatesExpiredMonitors(t *testing.T) {
	sched, monitors, _, _, statusSvc, _ := schedulerFixture()
	expired := time.Now().UTC().Add(-time.Hour)
	monitors.monitors = append(monitors.monitors, models.TripMonitor{
		ID:                    "m-old",
		UserID:                "u1",
		BookingID:             "b1",
		FlightNumber:          "AA123",
		CheckFrequencyMinutes: 15,
		IsActive:              true,
		ExpiresAt:             &expired,
	})

	sched.checkCycle(context.Background())

	monitors.mu.Lock()
	deactivated := append([]string(nil), monitors.deactivated...)
	monitors.mu.Unlock()
	assert.Equal(t, []string{"m-old"}, deactivated)

	_, ok := monitors.checkedAt("m-old")
	assert.False(t, ok, "expired monitors are not checked")
	_, ok = monitors.checkedAt("m1")
	assert.True(t, ok)
	assert.Equal(t, 1, statusSvc.callCount("AA123"))
}

func TestCheckCycleChecksOnlyDueMonitors(t *testing.T) {
	sched, monitors, _, _, statusSvc, _ := schedulerFixture()
	recent := time.Now().UTC().Add(-5 * time.Minute)
	monitors.monitors = append(monitors.monitors, models.TripMonitor{
		ID:                    "m-recent",
		UserID:                "u1",
		BookingID:             "b1",
		FlightNumber:          "AA123",
		CheckFrequencyMinutes: 15,
		LastCheck:             &recent,
		IsActive:              true,
	})

	sched.checkCycle(context.Background())

	assert.Equal(t, 1, statusSvc.callCount("AA123"), "only the never-checked monitor is due")
	_, ok := monitors.checkedAt("m1")
	assert.True(t, ok)
	_, ok = monitors.checkedAt("m-recent")
	assert.False(t, ok)
}

func TestSchedulerStartStop(t *testing.T) {
	sched, _, _, _, _, _ := schedulerFixture()
	freq := &fakeFrequencyController{}
	sched.Frequency = freq
	sched.CheckInterval = time.Hour
	sched.FrequencyInterval = time.Hour

	require.NoError(t, sched.Start(context.Background()))
	assert.True(t, sched.Running())

	err := sched.Start(context.Background())
	require.Error(t, err, "second start while running must fail")

	// Both loops run once immediately on start.
	require.Eventually(t, func() bool { return sched.checksPerformed.Load() >= 1 },
		2*time.Second, 10*time.Millisecond)

	sched.Stop()
	assert.False(t, sched.Running())
	assert.GreaterOrEqual(t, freq.cycleCount(), 1)

	sched.Stop() // second stop is a no-op
}

func TestSchedulerStats(t *testing.T) {
	sched, monitors, _, _, statusSvc, _ := schedulerFixture()
	monitors.monitors[0].CheckFrequencyMinutes = 5
	monitors.monitors = append(monitors.monitors, models.TripMonitor{
		ID: "m2", BookingID: "b1", CheckFrequencyMinutes: 15, IsActive: true,
	})
	statusSvc.lookups = status.LookupStats{CacheHits: 10, CacheMisses: 4, APICalls: 6, Errors: 2}
	statusSvc.diags = []models.ProviderDiagnostics{{Name: "AeroAPI", Priority: 10, Available: true}}

	sched.CacheTTLSeconds = 300
	sched.checksPerformed.Store(7)
	sched.disruptionsDetected.Store(2)
	sched.errorCount.Store(1)

	stats := sched.Stats(context.Background())

	assert.Equal(t, "stopped", stats.Status)
	assert.Equal(t, 60, stats.CheckIntervalSeconds, "unset interval reports the default")
	assert.Equal(t, 300, stats.CacheTTLSeconds)
	assert.True(t, stats.CacheConnected)
	require.Len(t, stats.DataSources, 1)
	assert.Equal(t, "AeroAPI", stats.DataSources[0].Name)

	assert.Equal(t, int64(7), stats.Statistics.ChecksPerformed)
	assert.Equal(t, int64(2), stats.Statistics.DisruptionsDetected)
	assert.Equal(t, int64(10), stats.Statistics.CacheHits)
	assert.Equal(t, int64(4), stats.Statistics.CacheMisses)
	assert.Equal(t, int64(6), stats.Statistics.APICalls)
	assert.Equal(t, int64(3), stats.Statistics.Errors, "scheduler and lookup errors are merged")

	assert.Equal(t, 2, stats.ActiveMonitors)
	assert.InDelta(t, 10.0, stats.AverageFrequencyMinutes, 1e-9)
}

func TestSchedulerStatsListError(t *testing.T) {
	sched, monitors, _, _, _, _ := schedulerFixture()
	monitors.listErr = errors.New("mongo unreachable")

	stats := sched.Stats(context.Background())
	assert.Zero(t, stats.ActiveMonitors)
	assert.Zero(t, stats.AverageFrequencyMinutes)
}
