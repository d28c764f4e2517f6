package risk

import (
	"context"
	"hash/fnv"
	"math/rand"
	"time"
)

// Conditions is the simplified weather picture the scorer needs.
type Conditions struct {
	VisibilityMiles     float64 `json:"visibility_miles"`
	WindSpeedMPH        float64 `json:"wind_speed_mph"`
	PrecipitationInches float64 `json:"precipitation_inches"`
}

// WeatherProvider reports conditions at an airport around a point in time.
type WeatherProvider interface {
	Conditions(ctx context.Context, airport string, at time.Time) (*Conditions, error)
}

// Airports where weather routinely drives delays, with the odds of finding
// degraded conditions there on any given day.
var weatherProneAirports = map[string]float64{
	"ORD": 0.3, "DFW": 0.2, "BOS": 0.25, "SFO": 0.15, "LGA": 0.35, "EWR": 0.3,
}

// SimulatedWeatherProvider synthesizes plausible conditions from per-airport
// climatology. Seeded per airport and day so repeated assessments of the
// same booking agree with each other.
type SimulatedWeatherProvider struct{}

func (p *SimulatedWeatherProvider) Conditions(ctx context.Context, airport string, at time.Time) (*Conditions, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	baseRisk, ok := weatherProneAirports[airport]
	if !ok {
		baseRisk = 0.1
	}
	rng := weatherRand(airport, at)

	c := &Conditions{VisibilityMiles: 10}
	if rng.Float64() < baseRisk {
		c.VisibilityMiles = 1 + rng.Float64()*9
	}
	if rng.Float64() < baseRisk*0.5 {
		c.WindSpeedMPH = 15 + rng.Float64()*30
	} else {
		c.WindSpeedMPH = rng.Float64() * 15
	}
	if rng.Float64() < baseRisk*0.4 {
		c.PrecipitationInches = 0.1 + rng.Float64()*1.9
	}
	return c, nil
}

func weatherRand(airport string, at time.Time) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(airport))
	h.Write([]byte(at.UTC().Format("20060102")))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}
