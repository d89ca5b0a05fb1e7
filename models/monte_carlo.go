package models

import (
	"fmt"
	"math"
	"sync"

	"golang.org/x/exp/rand"
)

// MonteCarlo prices European options by sampling the terminal lognormal
// spot with antithetic pairs. Each worker owns a generator seeded from Seed
// and its index, so a given configuration always returns the same number and
// bumped revaluations reuse the same draws.
// American contracts are valued as European.
type MonteCarlo struct {
	Paths   int
	Workers int
	Seed    uint64

	// SpotBumpRelative is the spot step for differencing the estimate. The
	// estimate is piecewise linear in spot between sampled terminal values,
	// so the step has to span many of them.
	SpotBumpRelative float64
}

func NewMonteCarlo(paths, workers int, seed uint64) (*MonteCarlo, error) {
	if paths < 2 || workers < 1 {
		return nil, fmt.Errorf("invalid monte carlo settings: paths=%d workers=%d", paths, workers)
	}
	return &MonteCarlo{Paths: paths, Workers: workers, Seed: seed, SpotBumpRelative: 1e-2}, nil
}

func (m *MonteCarlo) SpotBump(p Params) float64 { return m.SpotBumpRelative * p.Spot }

func (m *MonteCarlo) Name() string { return "monte-carlo" }

func (m *MonteCarlo) Price(p Params) float64 {
	v, _ := m.PriceWithError(p)
	return v
}

// PriceWithError returns the estimate and its standard error.
func (m *MonteCarlo) PriceWithError(p Params) (float64, float64) {
	if v, ok := DegenerateValue(p.WithStyle(European)); ok {
		return v, 0
	}

	pairs := m.Paths / 2
	workers := m.Workers
	if workers > pairs {
		workers = pairs
	}
	perWorker := pairs / workers

	drift := (p.Rate - p.Dividend - 0.5*p.Volatility*p.Volatility) * p.Expiry
	diffusion := p.Volatility * math.Sqrt(p.Expiry)

	sums := make([]float64, workers)
	sumSquares := make([]float64, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		n := perWorker
		if w == workers-1 {
			n = pairs - perWorker*(workers-1)
		}
		wg.Add(1)
		go func(w, n int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(m.Seed + uint64(w)*0x9E3779B97F4A7C15))
			var sum, sumSq float64
			for j := 0; j < n; j++ {
				z := rng.NormFloat64()
				up := Intrinsic(p.Type, p.Spot*math.Exp(drift+diffusion*z), p.Strike)
				down := Intrinsic(p.Type, p.Spot*math.Exp(drift-diffusion*z), p.Strike)
				pair := 0.5 * (up + down)
				sum += pair
				sumSq += pair * pair
			}
			sums[w], sumSquares[w] = sum, sumSq
		}(w, n)
	}
	wg.Wait()

	var sum, sumSq float64
	for w := range sums {
		sum += sums[w]
		sumSq += sumSquares[w]
	}
	n := float64(pairs)
	mean := sum / n
	variance := math.Max(sumSq/n-mean*mean, 0) * n / math.Max(n-1, 1)
	df := math.Exp(-p.Rate * p.Expiry)
	return df * mean, df * math.Sqrt(variance/n)
}
