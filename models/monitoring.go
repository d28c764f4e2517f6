package models

import "time"

// ProviderDiagnostics is the per-source block of the service stats snapshot.
type ProviderDiagnostics struct {
	Name              string  `json:"name"`
	Priority          int     `json:"priority"`
	Available         bool    `json:"available"`
	CircuitOpen       bool    `json:"circuitOpen,omitempty"`
	LastError         string  `json:"lastError,omitempty"`
	TotalRequests     int64   `json:"totalRequests"`
	FailedRequests    int64   `json:"failedRequests"`
	RateLimitHits     int64   `json:"rateLimitHits"`
	SuccessRate       float64 `json:"successRate"`
	AvgResponseMillis float64 `json:"avgResponseMillis"`
}

// MonitorCounters are the monotonic counters kept by the scheduler.
type MonitorCounters struct {
	ChecksPerformed     int64 `json:"checksPerformed"`
	DisruptionsDetected int64 `json:"disruptionsDetected"`
	CacheHits           int64 `json:"cacheHits"`
	CacheMisses         int64 `json:"cacheMisses"`
	APICalls            int64 `json:"apiCalls"`
	Errors              int64 `json:"errors"`
}

// ServiceStats is the operational snapshot returned by the stats endpoint.
type ServiceStats struct {
	Status                  string                `json:"serviceStatus"` // running | stopped
	CheckIntervalSeconds    int                   `json:"checkIntervalSeconds"`
	CacheTTLSeconds         int                   `json:"cacheTtlSeconds"`
	CacheConnected          bool                  `json:"cacheConnected"`
	DataSources             []ProviderDiagnostics `json:"dataSources"`
	Statistics              MonitorCounters       `json:"statistics"`
	ActiveMonitors          int                   `json:"activeMonitors"`
	AverageFrequencyMinutes float64               `json:"averageMonitoringFrequency"`
}

// AdjustmentSummary reports the outcome of one frequency-adjustment cycle.
type AdjustmentSummary struct {
	MonitorsEvaluated  int       `json:"monitorsEvaluated"`
	FrequencyChanges   int       `json:"frequencyChanges"`
	HighRiskRoutes     int       `json:"highRiskRoutesDetected"`
	InterruptionAlerts int       `json:"interruptionAlertsSent"`
	RoutesRefreshed    int       `json:"routesRefreshed"`
	StartedAt          time.Time `json:"startedAt"`
	DurationMillis     int64     `json:"durationMillis"`
}

// HighRiskRoute is one entry of the high-risk routes report, built from
// RouteDelayStats that classified HIGH_RISK.
type HighRiskRoute struct {
	Route               string    `json:"route"`
	DelayRate           float64   `json:"delayRate"`
	TotalFlights        int       `json:"totalFlights"`
	DelayedFlights      int       `json:"delayedFlights"`
	AverageDelayMinutes float64   `json:"averageDelayMinutes"`
	LastUpdated         time.Time `json:"lastUpdated"`
	RiskLevel           string    `json:"riskLevel"` // always "HIGH"
}

// InterruptionReport is one entry of the monitoring-gap report.
type InterruptionReport struct {
	MonitorID         string    `json:"monitorId"`
	FlightNumber      string    `json:"flightNumber"`
	Route             string    `json:"route"`
	LastCheck         time.Time `json:"lastCheck"`
	GapMinutes        float64   `json:"gapMinutes"`
	ExpectedFrequency int       `json:"expectedFrequency"` // minutes
	Severity          string    `json:"severity"`
}
