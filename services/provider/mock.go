package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"skywatch/models"
)

const mockProviderName = "MockStatus"

// MockStatusProvider is the development fallback (priority 1). It serves
// canned fixtures for a few well-known flight numbers and deterministic
// pseudo-random statuses for everything else, so local runs behave the same
// across restarts.
type MockStatusProvider struct{}

func NewMockStatusProvider() (*MockStatusProvider, error) {
	return &MockStatusProvider{}, nil
}

func (p *MockStatusProvider) Name() string    { return mockProviderName }
func (p *MockStatusProvider) Priority() int   { return 1 }
func (p *MockStatusProvider) Available() bool { return true }

var (
	mockGates     = []string{"A1", "A12", "B5", "B23", "C7", "C14", "D3", "D18"}
	mockTerminals = []string{"1", "2", "3", "North", "South", "International"}
)

func (p *MockStatusProvider) Fetch(ctx context.Context, flight string, departure time.Time) (*models.FlightStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Provider: mockProviderName, Op: "fetch", Err: err}
	}

	s := &models.FlightStatus{
		Key:                models.NewStatusKey(flight, departure),
		Status:             models.StatusOnTime,
		ScheduledDeparture: departure,
		CapturedAt:         time.Now().UTC(),
		Source:             mockProviderName,
	}

	switch flight {
	case "AA123":
		s.Confidence = 1.0
	case "UA456":
		s.Status = models.StatusDelayed
		s.DelayMinutes = 45
		s.Confidence = 0.95
	case "DL789":
		s.Status = models.StatusCancelled
		s.Confidence = 1.0
	case "SW111":
		s.Status = models.StatusDiverted
		s.Confidence = 0.9
	case "AA999":
		return nil, &Error{Provider: mockProviderName, Op: "fetch",
			Err: fmt.Errorf("simulated upstream failure for %s", flight)}
	default:
		p.randomize(s, flight, departure)
	}

	rng := mockRand(flight, departure)
	s.Gate = mockGates[rng.Intn(len(mockGates))]
	s.Terminal = mockTerminals[rng.Intn(len(mockTerminals))]
	markDisruption(s)
	return s, nil
}

// randomize picks a status with roughly real-world frequencies: 70% on time,
// 15% delayed, 10% cancelled, 5% diverted. Seeded per flight and day so the
// same request always gets the same answer.
func (p *MockStatusProvider) randomize(s *models.FlightStatus, flight string, departure time.Time) {
	rng := mockRand(flight, departure)
	roll := rng.Float64()
	switch {
	case roll < 0.70:
		s.Status = models.StatusOnTime
	case roll < 0.85:
		s.Status = models.StatusDelayed
		s.DelayMinutes = 20 + rng.Intn(60)
	case roll < 0.95:
		s.Status = models.StatusCancelled
	default:
		s.Status = models.StatusDiverted
	}
	s.Confidence = 0.85 + rng.Float64()*0.15
}

func mockRand(flight string, departure time.Time) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(flight))
	h.Write([]byte(departure.UTC().Format("20060102")))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}
