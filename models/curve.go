package models

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/optimize"
)

// FlatCurve returns the same rate for every expiry.
type FlatCurve float64

func (c FlatCurve) Value(float64) float64 { return float64(c) }

// PiecewiseLinear interpolates linearly between pillars and holds the end
// values flat outside them.
type PiecewiseLinear struct {
	Times  []float64
	Values []float64
}

// NewPiecewiseLinear sorts the pillars by time. Times must be distinct.
func NewPiecewiseLinear(times, values []float64) (*PiecewiseLinear, error) {
	if len(times) == 0 || len(times) != len(values) {
		return nil, fmt.Errorf("%w: curve needs matching non-empty pillars, got %d times and %d values",
			ErrInvalidInput, len(times), len(values))
	}
	idx := make([]int, len(times))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return times[idx[a]] < times[idx[b]] })

	c := &PiecewiseLinear{
		Times:  make([]float64, len(times)),
		Values: make([]float64, len(values)),
	}
	for i, j := range idx {
		if !finite(times[j]) || !finite(values[j]) {
			return nil, &InputError{Field: "curve pillar", Value: values[j], Reason: "must be finite"}
		}
		c.Times[i], c.Values[i] = times[j], values[j]
		if i > 0 && c.Times[i] == c.Times[i-1] {
			return nil, &InputError{Field: "curve pillar time", Value: c.Times[i], Reason: "duplicate"}
		}
	}
	return c, nil
}

func (c *PiecewiseLinear) Value(t float64) float64 {
	n := len(c.Times)
	if t <= c.Times[0] {
		return c.Values[0]
	}
	if t >= c.Times[n-1] {
		return c.Values[n-1]
	}
	i := sort.SearchFloat64s(c.Times, t)
	t0, t1 := c.Times[i-1], c.Times[i]
	w := (t - t0) / (t1 - t0)
	return (1-w)*c.Values[i-1] + w*c.Values[i]
}

// NelsonSiegel is the level/slope/curvature yield curve
// y(t) = b0 + b1 (1-e^{-t/tau})/(t/tau) + b2 ((1-e^{-t/tau})/(t/tau) - e^{-t/tau}).
type NelsonSiegel struct {
	B0, B1, B2, Tau float64
}

func (c NelsonSiegel) Value(t float64) float64 {
	return nelsonSiegel(t, c.B0, c.B1, c.B2, c.Tau)
}

func nelsonSiegel(t, b0, b1, b2, tau float64) float64 {
	if t < 1e-6 {
		return b0 + b1
	}
	x := t / tau
	decay := (1 - math.Exp(-x)) / x
	return b0 + b1*decay + b2*(decay-math.Exp(-x))
}

// fitPenalty is returned by objectives outside their parameter domain.
const fitPenalty = 1e10

// FitNelsonSiegel calibrates the curve to observed yields by least squares.
// guess seeds the search; a zero guess starts from a flat curve at the mean
// yield.
func FitNelsonSiegel(tenors, yields []float64, guess NelsonSiegel) (NelsonSiegel, float64, error) {
	if len(tenors) < 4 || len(tenors) != len(yields) {
		return NelsonSiegel{}, 0, fmt.Errorf("%w: need at least 4 matching tenors and yields, got %d and %d",
			ErrInvalidInput, len(tenors), len(yields))
	}
	if guess == (NelsonSiegel{}) {
		var mean float64
		for _, y := range yields {
			mean += y
		}
		guess = NelsonSiegel{B0: mean / float64(len(yields)), Tau: 1}
	}

	rmse := func(x []float64) float64 {
		// tau must stay positive
		if x[3] <= 1e-4 {
			return fitPenalty
		}
		var sse float64
		for i, t := range tenors {
			d := yields[i] - nelsonSiegel(t, x[0], x[1], x[2], x[3])
			sse += d * d
		}
		return math.Sqrt(sse / float64(len(tenors)))
	}

	problem := optimize.Problem{Func: rmse}
	result, err := optimize.Minimize(problem, []float64{guess.B0, guess.B1, guess.B2, guess.Tau}, nil, &optimize.NelderMead{})
	if err != nil {
		return NelsonSiegel{}, 0, fmt.Errorf("fit nelson-siegel: %w", err)
	}
	fit := NelsonSiegel{B0: result.X[0], B1: result.X[1], B2: result.X[2], Tau: result.X[3]}
	return fit, result.F, nil
}

// BootstrapZeroCurve strips a par yield curve of semi-annual coupon bonds
// into continuously compounded zero rates. A bond maturing at each multiple
// of step up to maxTenor pays half its par yield at every earlier pillar, so
// step is the coupon period (0.5 for Treasuries). A one-month pillar is
// added from the par rate there, read as a monthly compounded zero rate.
func BootstrapZeroCurve(par TermStructure, step, maxTenor float64) (*PiecewiseLinear, error) {
	if par == nil {
		return nil, fmt.Errorf("%w: bootstrap needs a par curve", ErrInvalidInput)
	}
	if !(step > 0) || !finite(step) || !(maxTenor >= step) || !finite(maxTenor) {
		return nil, fmt.Errorf("%w: bootstrap step %g and max tenor %g", ErrInvalidInput, step, maxTenor)
	}

	n := int(math.Floor(maxTenor/step + 1e-9))
	times := make([]float64, 0, n+1)
	zeros := make([]float64, 0, n+1)
	var discounts float64 // sum of earlier discount factors
	for i := 1; i <= n; i++ {
		t := float64(i) * step
		coupon := par.Value(t) / 2
		df := (1 - coupon*discounts) / (1 + coupon)
		if !(df > 0) || !finite(coupon) {
			return nil, &InputError{Field: "par yield", Value: 2 * coupon, Reason: fmt.Sprintf("implies a non-positive discount factor at %g years", t)}
		}
		times = append(times, t)
		zeros = append(zeros, -math.Log(df)/t)
		discounts += df
	}

	const month = 1.0 / 12
	if month < step {
		r := par.Value(month)
		if !(1+r/12 > 0) {
			return nil, &InputError{Field: "par yield", Value: r, Reason: "implies a non-positive one-month discount factor"}
		}
		times = append(times, month)
		zeros = append(zeros, 12*math.Log1p(r/12))
	}
	return NewPiecewiseLinear(times, zeros)
}
