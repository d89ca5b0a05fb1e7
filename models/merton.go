package models

import (
	"fmt"
	"math"
)

// MertonJump prices European options under Merton's jump diffusion: a
// lognormal diffusion plus Poisson jumps whose log size is normal. The value
// is the Poisson-weighted sum of Black-Scholes-Merton prices.
// American contracts are valued as European.
type MertonJump struct {
	Lambda float64 // jump intensity per year
	Mu     float64 // mean log jump size
	Delta  float64 // log jump size volatility
	Terms  int

	bsm BlackScholesMerton
}

func NewMertonJump(lambda, mu, delta float64, terms int) (*MertonJump, error) {
	if lambda < 0 || delta < 0 || math.IsNaN(mu) || terms < 1 {
		return nil, fmt.Errorf("invalid merton parameters: lambda=%g mu=%g delta=%g terms=%d", lambda, mu, delta, terms)
	}
	return &MertonJump{
		Lambda: lambda,
		Mu:     mu,
		Delta:  delta,
		Terms:  terms,
	}, nil
}

func (m *MertonJump) Name() string { return "merton-jump-diffusion" }

func (m *MertonJump) Price(p Params) float64 {
	if p.Expiry == 0 {
		return Intrinsic(p.Type, p.Spot, p.Strike)
	}
	if m.Lambda == 0 {
		p.Style = European
		return m.bsm.Price(p)
	}

	logJump := m.Mu + 0.5*m.Delta*m.Delta // ln(1+k), k = E[J-1]
	k := math.Exp(logJump) - 1
	lt := m.Lambda * (1 + k) * p.Expiry

	weight := math.Exp(-lt)
	var value float64
	for n := 0; n < m.Terms; n++ {
		if n > 0 {
			weight *= lt / float64(n)
		}
		nf := float64(n)
		term := p
		term.Style = European
		term.Volatility = math.Sqrt(p.Volatility*p.Volatility + nf*m.Delta*m.Delta/p.Expiry)
		term.Rate = p.Rate - m.Lambda*k + nf*logJump/p.Expiry
		value += weight * m.bsm.Price(term)
		if nf > lt && weight < 1e-16 {
			break
		}
	}
	return value
}
