package models

import (
	"fmt"
	"math"

	"github.com/bcdannyboy/optbook/config"
)

// Binomial is a recombining Cox-Ross-Rubinstein lattice centred on the
// risk-neutral drift, so the branch probability 1/(1+e^{sigma*sqrt(dt)})
// stays inside (0, 1) for any rate and dividend. It prices European and
// American exercise.
type Binomial struct {
	Steps    int
	TieBreak float64
	bump     config.GreeksConfig
}

func NewBinomial(steps int, tieBreak float64, bump config.GreeksConfig) (*Binomial, error) {
	// delta and gamma are read off the second layer below the root
	if steps < 3 {
		return nil, fmt.Errorf("binomial kernel needs at least 3 steps, got %d", steps)
	}
	return &Binomial{Steps: steps, TieBreak: tieBreak, bump: bump}, nil
}

func (k *Binomial) Name() string { return "cox-ross-rubinstein" }

// lattice holds the root value and the first two layers of the tree.
type lattice struct {
	value float64
	s1    [2]float64 // down, up
	v1    [2]float64
	s2    [3]float64 // dd, ud, uu
	v2    [3]float64
}

func (k *Binomial) roll(p Params) lattice {
	n := k.Steps
	dt := p.Expiry / float64(n)
	a := p.Volatility * math.Sqrt(dt)
	drift := (p.Rate - p.Dividend) * dt
	logU := drift + a
	logD := drift - a
	prob := 1 / (1 + math.Exp(a))
	disc := math.Exp(-p.Rate * dt)
	logS := math.Log(p.Spot)
	american := p.Style == American

	node := func(i, j int) float64 {
		return math.Exp(logS + float64(j)*logU + float64(i-j)*logD)
	}

	values := make([]float64, n+1)
	for j := 0; j <= n; j++ {
		values[j] = Intrinsic(p.Type, node(n, j), p.Strike)
	}

	var out lattice
	for i := n - 1; i >= 0; i-- {
		for j := 0; j <= i; j++ {
			cont := disc * (prob*values[j+1] + (1-prob)*values[j])
			if american {
				cont = math.Max(cont, Intrinsic(p.Type, node(i, j), p.Strike))
			}
			values[j] = cont
		}
		switch i {
		case 2:
			for j := 0; j < 3; j++ {
				out.s2[j], out.v2[j] = node(2, j), values[j]
			}
		case 1:
			for j := 0; j < 2; j++ {
				out.s1[j], out.v1[j] = node(1, j), values[j]
			}
		}
	}
	out.value = values[0]
	return out
}

// SpotBump is the spacing of adjacent terminal nodes. The lattice value is
// piecewise linear in spot between those nodes.
func (k *Binomial) SpotBump(p Params) float64 {
	return p.Spot * math.Expm1(2*p.Volatility*math.Sqrt(p.Expiry/float64(k.Steps)))
}

func (k *Binomial) Price(p Params) float64 {
	if v, ok := DegenerateValue(p); ok {
		return v
	}
	return k.roll(p).value
}

// Evaluate reads delta and gamma off the first two lattice layers and
// bumps the tree for vega, theta and rho.
func (k *Binomial) Evaluate(p Params) (PricingResult, Greeks) {
	if res, g, ok := Degenerate(p, k.TieBreak); ok {
		return res, g
	}
	l := k.roll(p)
	deltaUp := (l.v2[2] - l.v2[1]) / (l.s2[2] - l.s2[1])
	deltaDown := (l.v2[1] - l.v2[0]) / (l.s2[1] - l.s2[0])

	g := Greeks{
		Delta: (l.v1[1] - l.v1[0]) / (l.s1[1] - l.s1[0]),
		Gamma: (deltaUp - deltaDown) / (0.5 * (l.s2[2] - l.s2[0])),
	}

	hv := BumpSize(p.Volatility, k.bump.BumpRelative, k.bump.VolFloor)
	g.Vega = CentralOrForward(func(v float64) float64 { return k.Price(p.WithVolatility(v)) }, p.Volatility, hv, 0)

	hr := BumpSize(p.Rate, k.bump.BumpRelative, k.bump.RateFloor)
	g.Rho = CentralOrForward(func(r float64) float64 {
		q := p
		q.Rate = r
		return k.Price(q)
	}, p.Rate, hr, math.Inf(-1))

	ht := BumpSize(p.Expiry, k.bump.BumpRelative, k.bump.TimeFloor)
	g.Theta = -CentralOrForward(func(t float64) float64 {
		q := p
		q.Expiry = t
		return k.Price(q)
	}, p.Expiry, ht, 0)

	return PricingResult{
		Value:          l.value,
		SqrtT:          math.Sqrt(p.Expiry),
		DiscountFactor: math.Exp(-p.Rate * p.Expiry),
		DividendFactor: math.Exp(-p.Dividend * p.Expiry),
	}, g
}
