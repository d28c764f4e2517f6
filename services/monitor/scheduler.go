package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	eventRepo "skywatch/database/repository/event"
	flightRepo "skywatch/database/repository/flightdata"
	monitorRepo "skywatch/database/repository/monitor"
	"skywatch/models"
	"skywatch/services/frequency"
	"skywatch/services/status"
	"skywatch/utils"

	"go.uber.org/zap"
)

const (
	defaultCheckInterval       = 60 * time.Second
	defaultFrequencyInterval   = 5 * time.Minute
	defaultMaxConcurrentChecks = 10
)

// Scheduler drives the two monitoring loops: a fast sweep that checks due
// monitors against the status aggregator, and a slower cycle that re-tunes
// polling frequencies and detects monitoring gaps. Loops never overlap with
// themselves; individual monitors are checked concurrently up to a bound.
type Scheduler struct {
	MonitorRepo  monitorRepo.MonitorRepository
	FlightRepo   flightRepo.FlightDataRepository
	EventRepo    eventRepo.EventRepository
	Status       status.StatusService
	Frequency    frequency.FrequencyController
	Alternatives AlternativeFinder // optional; nil skips alternative sourcing
	Alerts       AlertQueue        // optional; nil means alerts are stored but not enqueued

	CheckInterval       time.Duration
	FrequencyInterval   time.Duration
	MaxConcurrentChecks int
	CacheTTLSeconds     int // reported in stats only

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	checksPerformed     atomic.Int64
	disruptionsDetected atomic.Int64
	errorCount          atomic.Int64
}

// Start launches the check and frequency loops. It returns an error if the
// scheduler is already running.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("monitoring scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go s.checkLoop(runCtx)
	go s.frequencyLoop(runCtx)

	utils.GetLogger().Info("monitoring scheduler started",
		zap.Duration("checkInterval", s.checkInterval()),
		zap.Duration("frequencyInterval", s.frequencyInterval()),
		zap.Int("maxConcurrentChecks", s.maxConcurrentChecks()))
	return nil
}

// Stop halts both loops and waits for in-flight checks to finish. Outstanding
// provider calls run to completion; their results are discarded with the
// cancelled context.
func (s *Scheduler) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.cancel()
	s.wg.Wait()
	utils.GetLogger().Info("monitoring scheduler stopped")
}

// Running reports whether the loops are live.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

func (s *Scheduler) checkInterval() time.Duration {
	if s.CheckInterval > 0 {
		return s.CheckInterval
	}
	return defaultCheckInterval
}

func (s *Scheduler) frequencyInterval() time.Duration {
	if s.FrequencyInterval > 0 {
		return s.FrequencyInterval
	}
	return defaultFrequencyInterval
}

func (s *Scheduler) maxConcurrentChecks() int {
	if s.MaxConcurrentChecks > 0 {
		return s.MaxConcurrentChecks
	}
	return defaultMaxConcurrentChecks
}

func (s *Scheduler) checkLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.checkInterval())
	defer ticker.Stop()

	s.checkCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkCycle(ctx)
		}
	}
}

func (s *Scheduler) frequencyLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.frequencyInterval())
	defer ticker.Stop()

	s.Frequency.RunAdjustmentCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Frequency.RunAdjustmentCycle(ctx)
		}
	}
}

// checkCycle deactivates expired monitors and fans the due ones out to
// checkMonitor, bounded by maxConcurrentChecks.
func (s *Scheduler) checkCycle(ctx context.Context) {
	logger := utils.GetLogger()

	monitors, err := s.MonitorRepo.GetActiveMonitors()
	if err != nil {
		s.errorCount.Add(1)
		logger.Error("check cycle could not list active monitors", zap.Error(err))
		return
	}

	now := time.Now().UTC()
	due := make([]*models.TripMonitor, 0, len(monitors))
	for i := range monitors {
		monitor := &monitors[i]
		if monitor.ExpiresAt != nil && now.After(*monitor.ExpiresAt) {
			if err := s.MonitorRepo.Deactivate(monitor.ID); err != nil {
				logger.Warn("failed to deactivate expired monitor",
					zap.String("monitorId", monitor.ID), zap.Error(err))
			} else {
				logger.Info("monitor expired",
					zap.String("monitorId", monitor.ID),
					zap.String("flight", monitor.FlightNumber))
			}
			continue
		}
		if monitor.IsDue(now) {
			due = append(due, monitor)
		}
	}
	if len(due) == 0 {
		return
	}
	logger.Info("checking due monitors",
		zap.Int("due", len(due)), zap.Int("active", len(monitors)))

	sem := make(chan struct{}, s.maxConcurrentChecks())
	var wg sync.WaitGroup
	for _, monitor := range due {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(m *models.TripMonitor) {
			defer wg.Done()
			defer func() { <-sem }()
			s.checkMonitor(ctx, m)
		}(monitor)
	}
	wg.Wait()
}

// checkMonitor runs one status check for one monitor. A failed lookup leaves
// LastCheck untouched so the monitor stays due and, if the outage persists,
// surfaces as a monitoring interruption.
func (s *Scheduler) checkMonitor(ctx context.Context, monitor *models.TripMonitor) {
	logger := utils.GetLogger()
	s.checksPerformed.Add(1)

	booking, err := s.FlightRepo.GetBooking(monitor.BookingID)
	if err != nil {
		s.errorCount.Add(1)
		logger.Warn("monitor points at unknown booking",
			zap.String("monitorId", monitor.ID),
			zap.String("bookingId", monitor.BookingID), zap.Error(err))
		return
	}

	st, err := s.Status.GetStatus(ctx, booking.FlightNumber, booking.DepartureDate)
	if err != nil {
		s.errorCount.Add(1)
		logger.Warn("status lookup failed",
			zap.String("flight", booking.FlightNumber), zap.Error(err))
		return
	}

	if err := s.FlightRepo.SaveSnapshot(st); err != nil {
		logger.Warn("failed to persist status snapshot",
			zap.String("flight", booking.FlightNumber), zap.Error(err))
	}

	if st.IsDisrupted {
		s.disruptionsDetected.Add(1)
		logger.Warn("disruption detected",
			zap.String("flight", booking.FlightNumber),
			zap.String("type", st.DisruptionType),
			zap.String("source", st.Source),
			zap.Float64("confidence", st.Confidence))
		s.handleDisruption(ctx, booking, st)
	} else {
		logger.Debug("flight nominal",
			zap.String("flight", booking.FlightNumber),
			zap.String("status", st.Status))
	}

	checkedAt := time.Now().UTC()
	if err := s.MonitorRepo.MarkChecked(monitor.ID, checkedAt); err != nil {
		s.errorCount.Add(1)
		logger.Warn("failed to mark monitor checked",
			zap.String("monitorId", monitor.ID), zap.Error(err))
	}
	if err := s.FlightRepo.MarkBookingChecked(booking.ID, checkedAt); err != nil {
		logger.Warn("failed to mark booking checked",
			zap.String("bookingId", booking.ID), zap.Error(err))
	}
}
