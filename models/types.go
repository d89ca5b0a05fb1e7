package models

import "fmt"

type OptionType int

const (
	Call OptionType = iota
	Put
)

func (t OptionType) String() string {
	switch t {
	case Call:
		return "call"
	case Put:
		return "put"
	default:
		return fmt.Sprintf("OptionType(%d)", int(t))
	}
}

// ParseOptionType accepts "call"/"put" in any case, plus "c"/"p".
func ParseOptionType(s string) (OptionType, error) {
	switch s {
	case "call", "Call", "CALL", "c", "C":
		return Call, nil
	case "put", "Put", "PUT", "p", "P":
		return Put, nil
	}
	return 0, fmt.Errorf("unknown option type %q", s)
}

type ExerciseStyle int

const (
	European ExerciseStyle = iota
	American
)

func (s ExerciseStyle) String() string {
	switch s {
	case European:
		return "european"
	case American:
		return "american"
	default:
		return fmt.Sprintf("ExerciseStyle(%d)", int(s))
	}
}

// OptionContract holds the terms of a vanilla option. Expiry is the time to
// expiry in years. A nil Volatility means the volatility is unknown and has
// to be implied from an observed price or read from a surface.
type OptionContract struct {
	Underlying string
	Type       OptionType
	Style      ExerciseStyle
	Strike     float64
	Expiry     float64
	Volatility *float64
}

// Vol returns a pointer suitable for OptionContract.Volatility.
func Vol(v float64) *float64 {
	return &v
}

// WithVolatility returns a copy of c carrying volatility v.
func (c OptionContract) WithVolatility(v float64) OptionContract {
	c.Volatility = Vol(v)
	return c
}

// HasVolatility reports whether the contract carries its own volatility.
func (c OptionContract) HasVolatility() bool {
	return c.Volatility != nil
}

// TermStructure maps a time in years to an annualized continuously
// compounded rate.
type TermStructure interface {
	Value(t float64) float64
}

// VolatilitySurface maps strike and expiry to a Black volatility for a given spot.
type VolatilitySurface interface {
	Volatility(spot, strike, expiry float64) float64
}

// MarketState is the snapshot supplied by the market-data side. The engine
// never writes to it. RateCurve and DividendCurve, when set, replace Rate and
// Dividend at each contract's expiry. ObservedPrices is keyed by position ID.
type MarketState struct {
	Spot     float64
	Rate     float64
	Dividend float64

	RateCurve     TermStructure
	DividendCurve TermStructure
	Surface       VolatilitySurface

	ObservedPrices map[string]float64
}

// RateAt returns the risk-free rate for expiry t.
func (m MarketState) RateAt(t float64) float64 {
	if m.RateCurve != nil {
		return m.RateCurve.Value(t)
	}
	return m.Rate
}

// DividendAt returns the dividend yield for expiry t.
func (m MarketState) DividendAt(t float64) float64 {
	if m.DividendCurve != nil {
		return m.DividendCurve.Value(t)
	}
	return m.Dividend
}

// Observed returns the observed market price recorded for a position.
func (m MarketState) Observed(positionID string) (float64, bool) {
	if m.ObservedPrices == nil {
		return 0, false
	}
	p, ok := m.ObservedPrices[positionID]
	return p, ok
}

// Params is the flat numeric view of a contract under a market state.
type Params struct {
	Type       OptionType
	Style      ExerciseStyle
	Spot       float64
	Strike     float64
	Expiry     float64
	Rate       float64
	Dividend   float64
	Volatility float64
}

// WithStyle returns a copy of p with exercise style s.
func (p Params) WithStyle(s ExerciseStyle) Params {
	p.Style = s
	return p
}

// WithVolatility returns a copy of p with volatility v.
func (p Params) WithVolatility(v float64) Params {
	p.Volatility = v
	return p
}

// PricingResult is a fair value plus the model quantities used to get it.
// D1, D2 and the discount factors are only populated by closed-form kernels
// on the diffusive path.
type PricingResult struct {
	Value          float64
	D1             float64
	D2             float64
	SqrtT          float64
	DiscountFactor float64 // e^{-rT}
	DividendFactor float64 // e^{-qT}
}

// Greeks are first and second order sensitivities of a single contract.
// Vega and Rho are per unit change of volatility and rate; Theta is the
// change in value per year of calendar time.
type Greeks struct {
	Delta float64
	Gamma float64
	Vega  float64
	Theta float64
	Rho   float64
}

// Scale returns g multiplied by q.
func (g Greeks) Scale(q float64) Greeks {
	return Greeks{
		Delta: g.Delta * q,
		Gamma: g.Gamma * q,
		Vega:  g.Vega * q,
		Theta: g.Theta * q,
		Rho:   g.Rho * q,
	}
}

// Add returns the elementwise sum of g and o.
func (g Greeks) Add(o Greeks) Greeks {
	return Greeks{
		Delta: g.Delta + o.Delta,
		Gamma: g.Gamma + o.Gamma,
		Vega:  g.Vega + o.Vega,
		Theta: g.Theta + o.Theta,
		Rho:   g.Rho + o.Rho,
	}
}
