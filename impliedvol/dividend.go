package impliedvol

import (
	"fmt"
	"math"

	"github.com/bcdannyboy/optbook/models"
)

// ParityQuote is a call and a put sharing strike and expiry.
type ParityQuote struct {
	Call   float64
	Put    float64
	Spot   float64
	Strike float64
	Expiry float64
	Rate   float64
}

func (q ParityQuote) validate() error {
	switch {
	case !(q.Spot > 0) || math.IsInf(q.Spot, 0):
		return &models.InputError{Field: "spot", Value: q.Spot, Reason: "must be positive"}
	case !(q.Strike > 0) || math.IsInf(q.Strike, 0):
		return &models.InputError{Field: "strike", Value: q.Strike, Reason: "must be positive"}
	case !(q.Expiry > 0) || math.IsInf(q.Expiry, 0):
		return &models.InputError{Field: "time to expiry", Value: q.Expiry, Reason: "must be positive to imply a yield"}
	case math.IsNaN(q.Rate) || math.IsInf(q.Rate, 0):
		return &models.InputError{Field: "rate", Value: q.Rate, Reason: "must be finite"}
	case math.IsNaN(q.Call) || math.IsNaN(q.Put):
		return &models.InputError{Field: "quote", Value: math.NaN(), Reason: "must be a number"}
	}
	return nil
}

// ImpliedDividendYield solves European put-call parity
// C - P = S e^{-qT} - K e^{-rT} for q.
func ImpliedDividendYield(q ParityQuote) (float64, error) {
	if err := q.validate(); err != nil {
		return 0, err
	}
	return parityYield(q.Call, q.Put, q)
}

func parityYield(call, put float64, q ParityQuote) (float64, error) {
	df := math.Exp(-q.Rate * q.Expiry)
	fwd := (call-put)/df + q.Strike
	if !(fwd > 0) {
		return 0, &models.ArbitrageError{Observed: call - put, Lower: -q.Strike * df, Upper: math.Inf(1)}
	}
	return q.Rate - math.Log(fwd/q.Spot)/q.Expiry, nil
}

// AmericanImpliedDividendYield recovers q from American quotes, which do
// not obey parity. Starting from the European yield it alternates: imply
// American volatilities for both legs at q, reprice them as European with
// european, and re-solve parity. It stops when q moves less than 1e-9.
func AmericanImpliedDividendYield(american *Solver, european models.Kernel, q ParityQuote, maxIterations int) (float64, int, error) {
	y, err := ImpliedDividendYield(q)
	if err != nil {
		return 0, 0, err
	}
	if maxIterations < 1 {
		maxIterations = american.cfg.MaxIterations
	}

	for i := 1; i <= maxIterations; i++ {
		call, err := americanAsEuropean(american, european, models.Call, q.Call, q, y)
		if err != nil {
			return y, i, fmt.Errorf("american call leg: %w", err)
		}
		put, err := americanAsEuropean(american, european, models.Put, q.Put, q, y)
		if err != nil {
			return y, i, fmt.Errorf("american put leg: %w", err)
		}
		next, err := parityYield(call, put, q)
		if err != nil {
			return y, i, err
		}
		if math.Abs(next-y) < 1e-9 {
			return next, i, nil
		}
		y = next
	}
	return y, maxIterations, &models.SolverError{
		Estimate:   y,
		Iterations: maxIterations,
		Reason:     "dividend yield iteration did not settle",
	}
}

func americanAsEuropean(american *Solver, european models.Kernel, typ models.OptionType, observed float64, q ParityQuote, y float64) (float64, error) {
	p := models.Params{
		Type:     typ,
		Style:    models.American,
		Spot:     q.Spot,
		Strike:   q.Strike,
		Expiry:   q.Expiry,
		Rate:     q.Rate,
		Dividend: y,
	}
	res, err := american.SolveParams(p, observed)
	if err != nil {
		return 0, err
	}
	p.Style = models.European
	return european.Price(p.WithVolatility(res.Volatility)), nil
}
