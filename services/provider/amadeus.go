package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"skywatch/models"
)

// AmadeusAlternativeFinder sources substitute flights for a disrupted route
// through the Amadeus flight-offers search. Tokens come from the
// client-credentials grant and are reused until shortly before expiry.
type AmadeusAlternativeFinder struct {
	clientID     string
	clientSecret string
	baseURL      string
	client       *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewAmadeusAlternativeFinder(clientID, clientSecret, baseURL string, timeout time.Duration) (*AmadeusAlternativeFinder, error) {
	f := &AmadeusAlternativeFinder{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      baseURL,
		client:       &http.Client{Timeout: timeout},
	}
	if clientID == "" || clientSecret == "" {
		return f, ErrNotConfigured
	}
	return f, nil
}

func (f *AmadeusAlternativeFinder) token(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accessToken != "" && time.Now().Before(f.tokenExpiry) {
		return f.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", f.clientID)
	form.Set("client_secret", f.clientSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		f.baseURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("error building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error fetching amadeus token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("amadeus token request returned %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("error decoding amadeus token: %w", err)
	}

	f.accessToken = body.AccessToken
	// Renew a minute early so in-flight searches never carry a dead token.
	f.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn-60) * time.Second)
	return f.accessToken, nil
}

type amadeusOffer struct {
	Itineraries []struct {
		Segments []struct {
			CarrierCode string `json:"carrierCode"`
			Number      string `json:"number"`
			Departure   struct {
				IATACode string `json:"iataCode"`
				At       string `json:"at"`
			} `json:"departure"`
			Arrival struct {
				IATACode string `json:"iataCode"`
				At       string `json:"at"`
			} `json:"arrival"`
		} `json:"segments"`
	} `json:"itineraries"`
	Price struct {
		Total    string `json:"total"`
		Currency string `json:"currency"`
	} `json:"price"`
}

// FindAlternatives searches up to five offers for the route on the given
// day and maps the first segment of each onto an alternative flight.
func (f *AmadeusAlternativeFinder) FindAlternatives(ctx context.Context, origin, destination string, date time.Time) ([]models.AlternativeFlight, error) {
	token, err := f.token(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("originLocationCode", origin)
	q.Set("destinationLocationCode", destination)
	q.Set("departureDate", date.UTC().Format("2006-01-02"))
	q.Set("adults", "1")
	q.Set("max", "5")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		f.baseURL+"/v2/shopping/flight-offers?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error building offers request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error searching alternative flights: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("amadeus offers search returned %d", resp.StatusCode)
	}

	var body struct {
		Data []amadeusOffer `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("error decoding amadeus offers: %w", err)
	}

	var alternatives []models.AlternativeFlight
	for _, offer := range body.Data {
		if len(offer.Itineraries) == 0 || len(offer.Itineraries[0].Segments) == 0 {
			continue
		}
		seg := offer.Itineraries[0].Segments[0]
		alternatives = append(alternatives, models.AlternativeFlight{
			FlightNumber: seg.CarrierCode + seg.Number,
			Airline:      seg.CarrierCode,
			Origin:       seg.Departure.IATACode,
			Destination:  seg.Arrival.IATACode,
			Departure:    parseAmadeusTime(seg.Departure.At),
			Arrival:      parseAmadeusTime(seg.Arrival.At),
			PriceTotal:   offer.Price.Total,
			Currency:     offer.Price.Currency,
		})
	}
	return alternatives, nil
}

// parseAmadeusTime reads Amadeus timestamps, which come with or without a
// zone offset depending on environment.
func parseAmadeusTime(raw string) time.Time {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02T15:04:05", raw)
	return t
}
