package models

import (
	"fmt"
	"math"

	"github.com/bcdannyboy/optbook/config"
)

// Kernel values a single vanilla option. Implementations are pure: the same
// Params always give the same value and nothing is retained between calls.
// Callers validate Params (see Bind) before pricing.
type Kernel interface {
	Name() string
	Price(p Params) float64
}

// GreeksKernel is implemented by kernels that produce sensitivities from
// their own model quantities in the same pass as the value.
type GreeksKernel interface {
	Kernel
	Evaluate(p Params) (PricingResult, Greeks)
}

// VegaKernel is implemented by kernels with a closed-form volatility
// derivative.
type VegaKernel interface {
	Kernel
	PriceVega(p Params) (price, vega float64)
}

// BatchKernel is implemented by kernels that evaluate struct-of-arrays
// batches column by column. Results must equal repeated Evaluate calls.
type BatchKernel interface {
	GreeksKernel
	EvaluateBatch(b *Batch)
}

// SpotBumper is implemented by kernels whose value is only piecewise smooth
// in spot at fine scales. SpotBump is the smallest spot step that a spot
// difference of the kernel should use.
type SpotBumper interface {
	SpotBump(p Params) float64
}

// NewKernel builds the kernel named by cfg.Model.Kernel.
func NewKernel(cfg config.Config) (Kernel, error) {
	tie := cfg.Greeks.ATMDeltaTieBreak
	switch cfg.Model.Kernel {
	case config.KernelAuto, "":
		tree, err := NewBinomial(cfg.Model.TreeSteps, tie, cfg.Greeks)
		if err != nil {
			return nil, err
		}
		return NewExerciseRouter(NewBlackScholesMerton(tie), tree), nil
	case config.KernelBlackScholes:
		return NewBlackScholesMerton(tie), nil
	case config.KernelBinomial:
		return NewBinomial(cfg.Model.TreeSteps, tie, cfg.Greeks)
	case config.KernelMerton:
		return NewMertonJump(cfg.Model.JumpIntensity, cfg.Model.JumpMean, cfg.Model.JumpVol, cfg.Model.MertonTerms)
	case config.KernelMonteCarlo:
		mc, err := NewMonteCarlo(cfg.Model.MonteCarloPaths, cfg.Model.MonteCarloWorkers, cfg.Model.MonteCarloSeed)
		if err != nil {
			return nil, err
		}
		mc.SpotBumpRelative = cfg.Greeks.GammaBumpRelative
		return mc, nil
	default:
		return nil, fmt.Errorf("unknown kernel %q", cfg.Model.Kernel)
	}
}

// Intrinsic is the immediate exercise value.
func Intrinsic(typ OptionType, spot, strike float64) float64 {
	if typ == Call {
		return math.Max(spot-strike, 0)
	}
	return math.Max(strike-spot, 0)
}

// sign is +1 for calls and -1 for puts.
func sign(typ OptionType) float64 {
	if typ == Call {
		return 1
	}
	return -1
}

// deterministicPayoff is the discounted payoff when exercising at time tau
// on the zero-volatility forward path.
func deterministicPayoff(p Params, tau float64) float64 {
	return sign(p.Type) * (p.Spot*math.Exp(-p.Dividend*tau) - p.Strike*math.Exp(-p.Rate*tau))
}

// deterministicExercise returns the optimal exercise time on the
// zero-volatility path and the (unfloored) discounted payoff there.
// European contracts always exercise at expiry.
func deterministicExercise(p Params) (tau, payoff float64) {
	best, bestTau := deterministicPayoff(p, p.Expiry), p.Expiry
	if p.Style != American {
		return bestTau, best
	}
	candidates := []float64{0}
	// d/dt of S e^{-qt} - K e^{-rt} vanishes at t = ln(rK/(qS)) / (r-q).
	if p.Rate != p.Dividend && p.Rate*p.Dividend > 0 {
		ratio := p.Rate * p.Strike / (p.Dividend * p.Spot)
		if ratio > 0 {
			t := math.Log(ratio) / (p.Rate - p.Dividend)
			if t > 0 && t < p.Expiry {
				candidates = append(candidates, t)
			}
		}
	}
	for _, t := range candidates {
		if v := deterministicPayoff(p, t); v > best {
			best, bestTau = v, t
		}
	}
	return bestTau, best
}

// atMoney reports whether a payoff is zero up to rounding at the scale of
// the contract.
func atMoney(payoff float64, p Params) bool {
	return math.Abs(payoff) <= 1e-14*math.Max(p.Spot, p.Strike)
}

// DegenerateValue prices the two cases the diffusive formulas cannot:
// expiry (intrinsic value) and zero volatility (discounted deterministic
// payoff). ok is false when neither applies.
func DegenerateValue(p Params) (value float64, ok bool) {
	if p.Expiry == 0 {
		return Intrinsic(p.Type, p.Spot, p.Strike), true
	}
	if p.Volatility == 0 {
		_, payoff := deterministicExercise(p)
		return math.Max(payoff, 0), true
	}
	return 0, false
}

// DegenerateGreeks returns the sensitivities matching DegenerateValue.
// At expiry delta is the moneyness indicator with tieBreak at the strike and
// every other Greek is zero. At zero volatility the Greeks are the
// derivatives of the deterministic payoff, scaled by tieBreak at the
// forward-at-the-money point.
func DegenerateGreeks(p Params, tieBreak float64) (Greeks, bool) {
	s := sign(p.Type)
	if p.Expiry == 0 {
		var delta float64
		switch {
		case p.Spot == p.Strike:
			delta = s * tieBreak
		case Intrinsic(p.Type, p.Spot, p.Strike) > 0:
			delta = s
		}
		return Greeks{Delta: delta}, true
	}
	if p.Volatility != 0 {
		return Greeks{}, false
	}

	tau, payoff := deterministicExercise(p)
	weight := 1.0
	switch {
	case atMoney(payoff, p):
		weight = tieBreak
	case payoff < 0:
		return Greeks{}, true
	}
	df := math.Exp(-p.Rate * tau)
	qf := math.Exp(-p.Dividend * tau)
	g := Greeks{
		Delta: s * qf,
		Rho:   s * tau * p.Strike * df,
	}
	if tau == p.Expiry {
		g.Theta = s * (p.Dividend*p.Spot*qf - p.Rate*p.Strike*df)
	}
	g = g.Scale(weight)
	if weight != 1 && p.Style == European {
		// Limit of S e^{-qT} n(d1) sqrt(T) as sigma -> 0 with d1 -> 0.
		g.Vega = p.Spot * qf * math.Sqrt(tau) * invSqrt2Pi
	}
	return g, true
}

// Degenerate returns the full result for expired or zero-volatility
// contracts.
func Degenerate(p Params, tieBreak float64) (PricingResult, Greeks, bool) {
	v, ok := DegenerateValue(p)
	if !ok {
		return PricingResult{}, Greeks{}, false
	}
	g, _ := DegenerateGreeks(p, tieBreak)
	return PricingResult{
		Value:          v,
		DiscountFactor: math.Exp(-p.Rate * p.Expiry),
		DividendFactor: math.Exp(-p.Dividend * p.Expiry),
	}, g, true
}
