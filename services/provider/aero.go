package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"skywatch/models"

	"golang.org/x/time/rate"
)

const aeroProviderName = "AeroAPI"

// AeroDataProvider reads flight status from an AeroAPI-style flights
// endpoint. It is the primary source (priority 10).
type AeroDataProvider struct {
	apiKey    string
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	available atomic.Bool
}

// NewAeroDataProvider builds the primary provider. Without an API key it is
// returned unavailable together with ErrNotConfigured so the registry can
// record the exclusion.
func NewAeroDataProvider(apiKey, baseURL string, timeout time.Duration) (*AeroDataProvider, error) {
	p := &AeroDataProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		// Personal-tier quota is about 10 calls per minute.
		limiter: rate.NewLimiter(rate.Every(6*time.Second), 10),
	}
	if apiKey == "" {
		return p, ErrNotConfigured
	}
	p.available.Store(true)
	return p, nil
}

func (p *AeroDataProvider) Name() string  { return aeroProviderName }
func (p *AeroDataProvider) Priority() int { return 10 }

// Available reports whether the provider may serve calls. It flips false
// permanently when the API rejects our credentials.
func (p *AeroDataProvider) Available() bool { return p.available.Load() }

type aeroFlight struct {
	Ident               string     `json:"ident"`
	Status              string     `json:"status"`
	Cancelled           bool       `json:"cancelled"`
	Diverted            bool       `json:"diverted"`
	ScheduledOut        *time.Time `json:"scheduled_out"`
	EstimatedOut        *time.Time `json:"estimated_out"`
	ActualOut           *time.Time `json:"actual_out"`
	ScheduledIn         *time.Time `json:"scheduled_in"`
	EstimatedIn         *time.Time `json:"estimated_in"`
	ActualIn            *time.Time `json:"actual_in"`
	GateDestination     string     `json:"gate_destination"`
	TerminalDestination string     `json:"terminal_destination"`
}

type aeroFlightsResponse struct {
	Flights []aeroFlight `json:"flights"`
}

// Fetch queries /flights/{ident} bounded to the departure day and maps the
// schedule entry closest to the requested departure onto a snapshot.
func (p *AeroDataProvider) Fetch(ctx context.Context, flight string, departure time.Time) (*models.FlightStatus, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, &Error{Provider: aeroProviderName, Op: "rate wait", Err: err}
	}

	day := departure.UTC().Truncate(24 * time.Hour)
	url := fmt.Sprintf("%s/flights/%s?start=%s&end=%s",
		p.baseURL, flight, day.Format("2006-01-02"), day.AddDate(0, 0, 1).Format("2006-01-02"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Provider: aeroProviderName, Op: "build request", Err: err}
	}
	req.Header.Set("x-apikey", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &Error{Provider: aeroProviderName, Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{Provider: aeroProviderName, RetryAfter: retryAfter(resp, 5*time.Minute)}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		p.available.Store(false)
		return nil, &Error{Provider: aeroProviderName, Op: "fetch",
			Err: fmt.Errorf("credentials rejected (%d)", resp.StatusCode)}
	case resp.StatusCode >= 500:
		return nil, &Error{Provider: aeroProviderName, Op: "fetch",
			Err: fmt.Errorf("upstream error (%d)", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, &Error{Provider: aeroProviderName, Op: "fetch",
			Err: fmt.Errorf("unexpected response (%d)", resp.StatusCode)}
	}

	var body aeroFlightsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &Error{Provider: aeroProviderName, Op: "decode", Err: err}
	}
	status := p.parse(flight, departure, &body)
	if status == nil {
		return nil, &Error{Provider: aeroProviderName, Op: "parse",
			Err: fmt.Errorf("no flights returned for %s on %s", flight, day.Format("2006-01-02"))}
	}
	return status, nil
}

func (p *AeroDataProvider) parse(flight string, departure time.Time, body *aeroFlightsResponse) *models.FlightStatus {
	// The API may return several legs; take the one scheduled closest to
	// the requested departure.
	var best *aeroFlight
	var bestDiff time.Duration
	for i := range body.Flights {
		f := &body.Flights[i]
		if f.ScheduledOut == nil {
			continue
		}
		diff := f.ScheduledOut.Sub(departure)
		if diff < 0 {
			diff = -diff
		}
		if best == nil || diff < bestDiff {
			best, bestDiff = f, diff
		}
	}
	if best == nil {
		return nil
	}

	s := &models.FlightStatus{
		Key:                models.NewStatusKey(flight, departure),
		Status:             models.StatusOnTime,
		ScheduledDeparture: *best.ScheduledOut,
		ScheduledArrival:   best.ScheduledIn,
		ActualArrival:      best.ActualIn,
		Gate:               best.GateDestination,
		Terminal:           best.TerminalDestination,
		CapturedAt:         time.Now().UTC(),
		Source:             aeroProviderName,
		Confidence:         0.95,
	}

	depActual := best.ActualOut
	if depActual == nil {
		depActual = best.EstimatedOut
	}
	if depActual != nil {
		s.ActualDeparture = depActual
		if delta := depActual.Sub(*best.ScheduledOut); delta > 0 {
			s.DelayMinutes = int(delta.Minutes())
		}
	}

	switch {
	case best.Cancelled:
		s.Status = models.StatusCancelled
	case best.Diverted:
		s.Status = models.StatusDiverted
	case s.DelayMinutes > 15:
		s.Status = models.StatusDelayed
	}
	markDisruption(s)
	return s
}

// HealthCheck probes a static airports endpoint.
func (p *AeroDataProvider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/airports/LAX", nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-apikey", p.apiKey)
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health probe returned %d", resp.StatusCode)
	}
	return nil
}

// retryAfter reads the Retry-After header, falling back when absent.
func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}
