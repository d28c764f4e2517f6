package models

// AlertDispatchPayload is the queue payload for one alert delivery. It
// carries only the alert ID; the dispatch worker re-reads the stored alert
// so it always delivers canonical state.
type AlertDispatchPayload struct {
	AlertID string `json:"alertId"`
}
