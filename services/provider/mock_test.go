package provider

import (
	"context"
	"testing"
	"time"

	"skywatch/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProviderFixtures(t *testing.T) {
	p, err := NewMockStatusProvider()
	require.NoError(t, err)
	departure := time.Date(2025, 7, 15, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		flight     string
		status     string
		delay      int
		disrupted  bool
		confidence float64
	}{
		{"AA123", models.StatusOnTime, 0, false, 1.0},
		{"UA456", models.StatusDelayed, 45, true, 0.95},
		{"DL789", models.StatusCancelled, 0, true, 1.0},
		{"SW111", models.StatusDiverted, 0, true, 0.9},
	}

	for _, tc := range tests {
		t.Run(tc.flight, func(t *testing.T) {
			st, err := p.Fetch(context.Background(), tc.flight, departure)
			require.NoError(t, err)
			assert.Equal(t, tc.status, st.Status)
			assert.Equal(t, tc.delay, st.DelayMinutes)
			assert.Equal(t, tc.disrupted, st.IsDisrupted)
			assert.Equal(t, tc.confidence, st.Confidence)
			assert.Equal(t, "MockStatus", st.Source)
			assert.Equal(t, models.NewStatusKey(tc.flight, departure), st.Key)
			assert.NotEmpty(t, st.Gate)
			assert.NotEmpty(t, st.Terminal)
		})
	}
}

func TestMockProviderSimulatedFailure(t *testing.T) {
	p, _ := NewMockStatusProvider()
	_, err := p.Fetch(context.Background(), "AA999", time.Now())
	require.Error(t, err)

	var provErr *Error
	assert.ErrorAs(t, err, &provErr)
	assert.Contains(t, err.Error(), "simulated upstream failure")
}

func TestMockProviderIsDeterministic(t *testing.T) {
	p, _ := NewMockStatusProvider()
	departure := time.Date(2025, 7, 15, 9, 30, 0, 0, time.UTC)

	first, err := p.Fetch(context.Background(), "XX321", departure)
	require.NoError(t, err)
	second, err := p.Fetch(context.Background(), "XX321", departure)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.DelayMinutes, second.DelayMinutes)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.Equal(t, first.Gate, second.Gate)
	assert.Equal(t, first.Terminal, second.Terminal)
}

func TestMockProviderHonorsCancelledContext(t *testing.T) {
	p, _ := NewMockStatusProvider()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Fetch(ctx, "AA123", time.Now())
	assert.Error(t, err)
}

func TestMockProviderIsAlwaysAvailable(t *testing.T) {
	p, _ := NewMockStatusProvider()
	assert.True(t, p.Available())
	assert.Equal(t, 1, p.Priority())
	assert.Equal(t, "MockStatus", p.Name())
}
