package monitor

import (
	"context"

	"skywatch/models"
	"skywatch/utils"

	"go.uber.org/zap"
)

// Stats assembles the operational snapshot: loop state, cache connectivity,
// provider diagnostics, the scheduler's counters merged with the aggregator's
// lookup counters, and the shape of the active monitor fleet.
func (s *Scheduler) Stats(ctx context.Context) models.ServiceStats {
	stats := models.ServiceStats{
		Status:               "stopped",
		CheckIntervalSeconds: int(s.checkInterval().Seconds()),
		CacheTTLSeconds:      s.CacheTTLSeconds,
		CacheConnected:       s.Status.CacheConnected(ctx),
		DataSources:          s.Status.Diagnostics(),
	}
	if s.running.Load() {
		stats.Status = "running"
	}

	lookups := s.Status.Stats()
	stats.Statistics = models.MonitorCounters{
		ChecksPerformed:     s.checksPerformed.Load(),
		DisruptionsDetected: s.disruptionsDetected.Load(),
		CacheHits:           lookups.CacheHits,
		CacheMisses:         lookups.CacheMisses,
		APICalls:            lookups.APICalls,
		Errors:              s.errorCount.Load() + lookups.Errors,
	}

	monitors, err := s.MonitorRepo.GetActiveMonitors()
	if err != nil {
		utils.GetLogger().Warn("stats could not count active monitors", zap.Error(err))
		return stats
	}
	stats.ActiveMonitors = len(monitors)
	if len(monitors) > 0 {
		total := 0
		for i := range monitors {
			total += monitors[i].CheckFrequencyMinutes
		}
		stats.AverageFrequencyMinutes = float64(total) / float64(len(monitors))
	}
	return stats
}
