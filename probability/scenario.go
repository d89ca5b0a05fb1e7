// Package probability measures portfolio risk by simulating the underlying
// and revaluing the whole book in each scenario.
package probability

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/bcdannyboy/optbook/config"
)

// Dynamics describe the real-world path of the underlying: a lognormal
// diffusion with optional lognormal jumps.
type Dynamics struct {
	Drift      float64 // annual
	Volatility float64

	JumpIntensity float64 // jumps per year
	JumpMean      float64 // mean log jump size
	JumpVol       float64 // log jump size volatility
}

// SimulatePrice walks one path from s0 over t years in steps with at most
// one jump per step.
func (d Dynamics) SimulatePrice(s0, t float64, steps int, rng *rand.Rand) float64 {
	dt := t / float64(steps)
	drift := (d.Drift - 0.5*d.Volatility*d.Volatility) * dt
	diffusion := d.Volatility * math.Sqrt(dt)
	price := s0

	for i := 0; i < steps; i++ {
		price *= math.Exp(drift + diffusion*rng.NormFloat64())
		if d.JumpIntensity > 0 && rng.Float64() < d.JumpIntensity*dt {
			price *= math.Exp(d.JumpMean + d.JumpVol*rng.NormFloat64())
		}
	}
	return price
}

// SimulateSpots returns cfg.Paths spots at the horizon. The draws depend
// only on cfg.Seed.
func SimulateSpots(s0 float64, d Dynamics, cfg config.RiskConfig) []float64 {
	rng := rand.New(rand.NewSource(cfg.Seed))
	spots := make([]float64, cfg.Paths)
	for i := range spots {
		spots[i] = d.SimulatePrice(s0, cfg.Horizon, cfg.Steps, rng)
	}
	return spots
}
