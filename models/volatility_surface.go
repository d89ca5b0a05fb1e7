package models

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/optimize"
)

// FlatVolatility quotes one volatility everywhere.
type FlatVolatility float64

func (v FlatVolatility) Volatility(_, _, _ float64) float64 { return float64(v) }

// GridSurface is a sticky-strike surface quoted on a strike by expiry grid.
// Vols[i][j] is the volatility at Times[i] and Strikes[j]. Queries are
// bilinear inside the grid and clamped to the nearest edge outside it.
type GridSurface struct {
	Strikes []float64
	Times   []float64
	Vols    [][]float64
}

// NewGridSurface checks that both axes are strictly increasing and that
// every row matches the strike axis.
func NewGridSurface(strikes, times []float64, vols [][]float64) (*GridSurface, error) {
	if len(strikes) == 0 || len(times) == 0 || len(vols) != len(times) {
		return nil, fmt.Errorf("%w: surface grid is %d expiries by %d strikes with %d rows",
			ErrInvalidInput, len(times), len(strikes), len(vols))
	}
	if !increasing(strikes) || !increasing(times) {
		return nil, fmt.Errorf("%w: surface axes must be strictly increasing", ErrInvalidInput)
	}
	for i, row := range vols {
		if len(row) != len(strikes) {
			return nil, fmt.Errorf("%w: surface row %d has %d vols for %d strikes",
				ErrInvalidInput, i, len(row), len(strikes))
		}
		for _, v := range row {
			if err := ValidateVolatility(v); err != nil {
				return nil, err
			}
		}
	}
	return &GridSurface{Strikes: strikes, Times: times, Vols: vols}, nil
}

func increasing(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return false
		}
	}
	return true
}

// bracket returns the indices around x and the weight of the upper one.
func bracket(axis []float64, x float64) (lo, hi int, w float64) {
	n := len(axis)
	if x <= axis[0] {
		return 0, 0, 0
	}
	if x >= axis[n-1] {
		return n - 1, n - 1, 0
	}
	hi = sort.SearchFloat64s(axis, x)
	lo = hi - 1
	return lo, hi, (x - axis[lo]) / (axis[hi] - axis[lo])
}

func (s *GridSurface) Volatility(_, strike, expiry float64) float64 {
	t0, t1, wt := bracket(s.Times, expiry)
	k0, k1, wk := bracket(s.Strikes, strike)

	v00 := s.Vols[t0][k0]
	v01 := s.Vols[t0][k1]
	v10 := s.Vols[t1][k0]
	v11 := s.Vols[t1][k1]

	return (1-wt)*(1-wk)*v00 + wt*(1-wk)*v10 + (1-wt)*wk*v01 + wt*wk*v11
}

// SSVI is the power-law surface stochastic volatility inspired
// parameterisation (Gatheral and Jacquier). Total variance at log forward
// moneyness k is
//
//	w(k, theta) = theta/2 (1 + rho phi k + sqrt((phi k + rho)^2 + 1 - rho^2))
//
// with phi = eta / (theta^gamma (1+theta)^(1-gamma)) and theta the ATM total
// variance read from ATM. Carry is r - q, used to find the forward.
type SSVI struct {
	Gamma float64
	Eta   float64
	Rho   float64

	ATM   TermStructure // ATM volatility by expiry
	Carry float64
}

func (s *SSVI) phi(theta float64) float64 {
	return s.Eta / (math.Pow(theta, s.Gamma) * math.Pow(1+theta, 1-s.Gamma))
}

// TotalVariance returns w at log forward moneyness k and expiry t.
func (s *SSVI) TotalVariance(k, t float64) float64 {
	atm := s.ATM.Value(t)
	theta := atm * atm * t
	if theta <= 0 {
		return 0
	}
	p := s.phi(theta)
	return 0.5 * theta * (1 + s.Rho*p*k + math.Sqrt((p*k+s.Rho)*(p*k+s.Rho)+1-s.Rho*s.Rho))
}

func (s *SSVI) Volatility(spot, strike, expiry float64) float64 {
	if expiry <= 0 {
		return s.ATM.Value(0)
	}
	k := math.Log(strike/spot) - s.Carry*expiry
	w := s.TotalVariance(k, expiry)
	if w <= 0 {
		return 0
	}
	return math.Sqrt(w / expiry)
}

// Admissible reports whether the parameters satisfy the sufficient
// conditions for a surface free of static arbitrage.
func (s *SSVI) Admissible() bool {
	return s.Gamma > 0 && s.Gamma <= 0.5 &&
		math.Abs(s.Rho) < 1 &&
		s.Eta > 0 && s.Eta*(1+math.Abs(s.Rho)) <= 2
}

// SurfacePoint is one quoted volatility.
type SurfacePoint struct {
	Strike     float64
	Expiry     float64
	Volatility float64
}

// FitSSVI calibrates gamma, eta and rho to quoted volatilities, holding the
// ATM term structure and carry fixed. Parameters outside the admissible
// region are rejected during the search.
func FitSSVI(points []SurfacePoint, spot, carry float64, atm TermStructure) (*SSVI, float64, error) {
	if len(points) < 3 {
		return nil, 0, fmt.Errorf("%w: need at least 3 quotes to fit ssvi, got %d", ErrInvalidInput, len(points))
	}
	if !finite(spot) || spot <= 0 {
		return nil, 0, &InputError{Field: "spot", Value: spot, Reason: "must be positive"}
	}

	candidate := &SSVI{ATM: atm, Carry: carry}
	objective := func(x []float64) float64 {
		candidate.Gamma, candidate.Eta, candidate.Rho = x[0], x[1], x[2]
		if !candidate.Admissible() {
			return fitPenalty
		}
		var sse float64
		for _, pt := range points {
			d := candidate.Volatility(spot, pt.Strike, pt.Expiry) - pt.Volatility
			sse += d * d
		}
		return math.Sqrt(sse / float64(len(points)))
	}

	problem := optimize.Problem{Func: objective}
	result, err := optimize.Minimize(problem, []float64{0.4, 0.5, -0.3}, nil, &optimize.NelderMead{})
	if err != nil {
		return nil, 0, fmt.Errorf("fit ssvi: %w", err)
	}
	fit := &SSVI{Gamma: result.X[0], Eta: result.X[1], Rho: result.X[2], ATM: atm, Carry: carry}
	return fit, result.F, nil
}
