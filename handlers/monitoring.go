package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"skywatch/services/frequency"
	"skywatch/services/monitor"
	"skywatch/services/status"
	"skywatch/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MonitoringHandler exposes the operational surface of the monitoring core:
// service stats, manual frequency optimization, high-risk routes,
// interruption reports and direct status lookups.
type MonitoringHandler struct {
	Scheduler  *monitor.Scheduler
	Frequency  frequency.FrequencyController
	RouteStats frequency.RouteStatsService
	Status     status.StatusService
}

// NewMonitoringHandler creates a new MonitoringHandler.
func NewMonitoringHandler(
	scheduler *monitor.Scheduler,
	controller frequency.FrequencyController,
	routeStats frequency.RouteStatsService,
	statusSvc status.StatusService,
) *MonitoringHandler {
	return &MonitoringHandler{
		Scheduler:  scheduler,
		Frequency:  controller,
		RouteStats: routeStats,
		Status:     statusSvc,
	}
}

// StatsHandler returns the service stats snapshot.
func (mh *MonitoringHandler) StatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, mh.Scheduler.Stats(c.Request.Context()))
}

// OptimizeHandler runs one frequency-adjustment cycle and returns its summary.
func (mh *MonitoringHandler) OptimizeHandler(c *gin.Context) {
	summary := mh.Frequency.RunAdjustmentCycle(c.Request.Context())
	c.JSON(http.StatusOK, summary)
}

// HighRiskRoutesHandler lists monitored routes whose delay rate classifies
// HIGH_RISK, sorted by delay rate descending.
func (mh *MonitoringHandler) HighRiskRoutesHandler(c *gin.Context) {
	windowDays := intQuery(c, "windowDays", 30)
	limit := intQuery(c, "limit", 20)

	routes, err := mh.RouteStats.HighRiskRoutes(c.Request.Context(), windowDays, limit)
	if err != nil {
		getLogger(c).Error("Failed to compute high-risk routes", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute high-risk routes"})
		return
	}
	c.JSON(http.StatusOK, routes)
}

// InterruptionsHandler reports monitors that have gone silent past the
// interruption threshold.
func (mh *MonitoringHandler) InterruptionsHandler(c *gin.Context) {
	reports, err := mh.Frequency.FindInterruptions(c.Request.Context())
	if err != nil {
		getLogger(c).Error("Failed to detect interruptions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to detect interruptions"})
		return
	}
	c.JSON(http.StatusOK, reports)
}

// FlightStatusHandler resolves the current status of one flight through the
// aggregator. The date query parameter defaults to today (UTC).
func (mh *MonitoringHandler) FlightStatusHandler(c *gin.Context) {
	flight := c.Param("flight")
	departure := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
			return
		}
		departure = parsed
	}

	st, err := mh.Status.GetStatus(c.Request.Context(), flight, departure)
	if err != nil {
		if errors.Is(err, status.ErrNoStatusAvailable) {
			utils.JSONError(c, http.StatusNotFound, "No status available",
				"all providers failed and no cached snapshot exists")
			return
		}
		getLogger(c).Error("Status lookup failed", zap.String("flight", flight), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Status lookup failed"})
		return
	}
	c.JSON(http.StatusOK, st)
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
