package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"skywatch/models"
)

const backupProviderName = "BackupStatus"

// BackupStatusProvider is the secondary source (priority 5). It talks to a
// plainer status API and reports lower confidence than AeroAPI.
type BackupStatusProvider struct {
	apiKey    string
	baseURL   string
	client    *http.Client
	available atomic.Bool
}

func NewBackupStatusProvider(apiKey, baseURL string, timeout time.Duration) (*BackupStatusProvider, error) {
	p := &BackupStatusProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
	if apiKey == "" {
		return p, ErrNotConfigured
	}
	p.available.Store(true)
	return p, nil
}

func (p *BackupStatusProvider) Name() string    { return backupProviderName }
func (p *BackupStatusProvider) Priority() int   { return 5 }
func (p *BackupStatusProvider) Available() bool { return p.available.Load() }

type backupFlight struct {
	Number             string     `json:"number"`
	Status             string     `json:"status"`
	DelayMinutes       int        `json:"delay_minutes"`
	ScheduledDeparture *time.Time `json:"scheduled_departure"`
	EstimatedDeparture *time.Time `json:"estimated_departure"`
	ScheduledArrival   *time.Time `json:"scheduled_arrival"`
	Gate               string     `json:"gate"`
	Terminal           string     `json:"terminal"`
}

type backupResponse struct {
	Flight *backupFlight `json:"flight"`
}

func (p *BackupStatusProvider) Fetch(ctx context.Context, flight string, departure time.Time) (*models.FlightStatus, error) {
	q := url.Values{}
	q.Set("flight", flight)
	q.Set("date", departure.UTC().Format("2006-01-02"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/status?"+q.Encode(), nil)
	if err != nil {
		return nil, &Error{Provider: backupProviderName, Op: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &Error{Provider: backupProviderName, Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{Provider: backupProviderName, RetryAfter: retryAfter(resp, time.Minute)}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		p.available.Store(false)
		return nil, &Error{Provider: backupProviderName, Op: "fetch",
			Err: fmt.Errorf("credentials rejected (%d)", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, &Error{Provider: backupProviderName, Op: "fetch",
			Err: fmt.Errorf("unexpected response (%d)", resp.StatusCode)}
	}

	var body backupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &Error{Provider: backupProviderName, Op: "decode", Err: err}
	}
	if body.Flight == nil {
		return nil, &Error{Provider: backupProviderName, Op: "parse",
			Err: fmt.Errorf("no flight entry for %s", flight)}
	}

	f := body.Flight
	s := &models.FlightStatus{
		Key:              models.NewStatusKey(flight, departure),
		Status:           mapBackupStatus(f.Status),
		DelayMinutes:     f.DelayMinutes,
		ActualDeparture:  f.EstimatedDeparture,
		ScheduledArrival: f.ScheduledArrival,
		Gate:             f.Gate,
		Terminal:         f.Terminal,
		CapturedAt:       time.Now().UTC(),
		Source:           backupProviderName,
		Confidence:       0.85,
	}
	if f.ScheduledDeparture != nil {
		s.ScheduledDeparture = *f.ScheduledDeparture
	} else {
		s.ScheduledDeparture = departure
	}
	if s.Status == models.StatusOnTime && s.DelayMinutes > 15 {
		s.Status = models.StatusDelayed
	}
	markDisruption(s)
	return s, nil
}

func mapBackupStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on_time", "on time", "scheduled":
		return models.StatusOnTime
	case "delayed":
		return models.StatusDelayed
	case "cancelled", "canceled":
		return models.StatusCancelled
	case "diverted":
		return models.StatusDiverted
	case "boarding":
		return models.StatusBoarding
	case "departed", "active", "en_route":
		return models.StatusDeparted
	case "landed", "arrived":
		return models.StatusArrived
	default:
		return models.StatusUnknown
	}
}
