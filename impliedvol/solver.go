// Package impliedvol inverts a pricing kernel for volatility.
package impliedvol

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/bcdannyboy/optbook/config"
	"github.com/bcdannyboy/optbook/models"
)

// Result is the outcome of a solve. On failure the SolverError carries the
// same estimate.
type Result struct {
	Volatility float64
	Residual   float64 // model price minus observed price
	Iterations int
	Converged  bool
}

// Solver finds the volatility reproducing an observed price with a
// safeguarded Newton iteration inside [VolLower, VolUpper]. The kernel is
// never evaluated outside that bracket.
type Solver struct {
	kernel models.Kernel
	vega   models.VegaKernel // nil when the kernel has no closed-form vega
	cfg    config.SolverConfig
	log    zerolog.Logger
}

func NewSolver(kernel models.Kernel, cfg config.SolverConfig, log zerolog.Logger) (*Solver, error) {
	if kernel == nil {
		return nil, fmt.Errorf("implied volatility solver needs a kernel")
	}
	if !(cfg.VolLower > 0) || !(cfg.VolUpper > cfg.VolLower) || !(cfg.PriceTolerance > 0) || cfg.MaxIterations < 1 {
		return nil, fmt.Errorf("invalid solver settings: bracket [%g, %g] tol=%g iterations=%d",
			cfg.VolLower, cfg.VolUpper, cfg.PriceTolerance, cfg.MaxIterations)
	}
	s := &Solver{
		kernel: kernel,
		cfg:    cfg,
		log:    log.With().Str("component", "implied_vol").Logger(),
	}
	s.vega, _ = kernel.(models.VegaKernel)
	return s, nil
}

// Solve finds the volatility at which the kernel prices c at observed.
// Any volatility carried by c is ignored.
func (s *Solver) Solve(c models.OptionContract, m models.MarketState, observed float64) (Result, error) {
	p, err := models.BindWithVolatility(c, m, s.cfg.VolLower)
	if err != nil {
		return Result{}, err
	}
	return s.SolveParams(p, observed)
}

// SolveParams is Solve for already validated Params.
func (s *Solver) SolveParams(p models.Params, observed float64) (Result, error) {
	if math.IsNaN(observed) || math.IsInf(observed, 0) || observed < 0 {
		return Result{}, &models.InputError{Field: "observed price", Value: observed, Reason: "must be finite and non-negative"}
	}
	tol := s.cfg.PriceTolerance
	if err := CheckBounds(p, observed, tol); err != nil {
		return Result{}, err
	}

	lo, hi := s.cfg.VolLower, s.cfg.VolUpper
	fLo := s.kernel.Price(p.WithVolatility(lo)) - observed
	if math.Abs(fLo) <= tol {
		return Result{Volatility: lo, Residual: fLo, Converged: true}, nil
	}
	fHi := s.kernel.Price(p.WithVolatility(hi)) - observed
	if math.Abs(fHi) <= tol {
		return Result{Volatility: hi, Residual: fHi, Converged: true}, nil
	}
	if math.IsNaN(fLo) || math.IsNaN(fHi) {
		return Result{}, fmt.Errorf("%w: kernel %s returned NaN at the bracket ends", models.ErrNumericDegeneracy, s.kernel.Name())
	}
	if (fLo < 0) == (fHi < 0) {
		est, res := lo, fLo
		if math.Abs(fHi) < math.Abs(fLo) {
			est, res = hi, fHi
		}
		return s.fail(p, est, res, 0, "bracket does not straddle the observed price")
	}

	best, bestRes := lo, fLo
	if math.Abs(fHi) < math.Abs(fLo) {
		best, bestRes = hi, fHi
	}

	x := clamp(seed(p, observed), lo, hi)
	for i := 1; i <= s.cfg.MaxIterations; i++ {
		price, vega := s.priceVega(p.WithVolatility(x))
		f := price - observed
		if math.IsNaN(f) {
			return Result{}, fmt.Errorf("%w: kernel %s returned NaN at sigma=%g", models.ErrNumericDegeneracy, s.kernel.Name(), x)
		}
		if math.Abs(f) < math.Abs(bestRes) {
			best, bestRes = x, f
		}
		if math.Abs(f) <= tol {
			return Result{Volatility: x, Residual: f, Iterations: i, Converged: true}, nil
		}

		if (f < 0) == (fLo < 0) {
			lo, fLo = x, f
		} else {
			hi = x
		}

		next := math.NaN()
		if vega > 0 && !math.IsInf(vega, 0) {
			next = x - f/vega
		}
		if !(next > lo && next < hi) {
			next = 0.5 * (lo + hi)
		}
		if next == x {
			// bracket exhausted at floating-point resolution
			return s.fail(p, best, bestRes, i, "bracket collapsed before reaching tolerance")
		}
		x = next
	}
	return s.fail(p, best, bestRes, s.cfg.MaxIterations, "iteration limit reached")
}

func (s *Solver) priceVega(p models.Params) (float64, float64) {
	if s.vega != nil {
		return s.vega.PriceVega(p)
	}
	return s.kernel.Price(p), math.NaN()
}

func (s *Solver) fail(p models.Params, estimate, residual float64, iterations int, reason string) (Result, error) {
	s.log.Debug().
		Str("type", p.Type.String()).
		Float64("strike", p.Strike).
		Float64("expiry", p.Expiry).
		Float64("estimate", estimate).
		Float64("residual", residual).
		Int("iterations", iterations).
		Msg(reason)
	return Result{Volatility: estimate, Residual: residual, Iterations: iterations},
		&models.SolverError{Estimate: estimate, Residual: residual, Iterations: iterations, Reason: reason}
}

// seed is the Brenner-Subrahmanyam approximation sigma ~ sqrt(2pi/T) C/S,
// exact at the money forward.
func seed(p models.Params, observed float64) float64 {
	if p.Expiry == 0 {
		return 0.2
	}
	fwdSpot := p.Spot * math.Exp(-p.Dividend*p.Expiry)
	pvStrike := p.Strike * math.Exp(-p.Rate*p.Expiry)
	// strip the parity component so the approximation sees time value only
	tv := observed - models.Intrinsic(p.Type, fwdSpot, pvStrike)
	if tv <= 0 {
		return 0.2
	}
	return math.Sqrt(2*math.Pi/p.Expiry) * tv / fwdSpot
}

func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return 0.5 * (lo + hi)
	}
	return math.Min(math.Max(x, lo), hi)
}
