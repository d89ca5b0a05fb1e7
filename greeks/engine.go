// Package greeks produces option sensitivities from any pricing kernel,
// either from the kernel's own model quantities or by bumping its inputs.
package greeks

import (
	"fmt"
	"math"

	"github.com/bcdannyboy/optbook/config"
	"github.com/bcdannyboy/optbook/models"
)

// Engine computes Greeks for single contracts. It holds no state besides
// its kernel and settings and is safe for concurrent use.
type Engine struct {
	kernel models.Kernel
	cfg    config.GreeksConfig
}

// NewEngine returns an engine over kernel. The analytic method requires a
// kernel implementing models.GreeksKernel.
func NewEngine(kernel models.Kernel, cfg config.GreeksConfig) (*Engine, error) {
	if kernel == nil {
		return nil, fmt.Errorf("greeks engine needs a kernel")
	}
	switch cfg.Method {
	case config.MethodAuto, config.MethodFiniteDifference, "":
	case config.MethodAnalytic:
		if _, ok := kernel.(models.GreeksKernel); !ok {
			return nil, fmt.Errorf("kernel %s has no analytic greeks", kernel.Name())
		}
	default:
		return nil, fmt.Errorf("unknown greeks method %q", cfg.Method)
	}
	return &Engine{kernel: kernel, cfg: cfg}, nil
}

func (e *Engine) Kernel() models.Kernel { return e.kernel }

// Greeks returns the sensitivities of one contract.
func (e *Engine) Greeks(c models.OptionContract, m models.MarketState) (models.Greeks, error) {
	_, g, err := e.Evaluate(c, m)
	return g, err
}

// Evaluate returns value and sensitivities of one contract priced with its
// own volatility.
func (e *Engine) Evaluate(c models.OptionContract, m models.MarketState) (models.PricingResult, models.Greeks, error) {
	p, err := models.Bind(c, m)
	if err != nil {
		return models.PricingResult{}, models.Greeks{}, err
	}
	return e.EvaluateParams(p)
}

// EvaluateParams is Evaluate for already validated Params.
func (e *Engine) EvaluateParams(p models.Params) (models.PricingResult, models.Greeks, error) {
	var (
		res models.PricingResult
		g   models.Greeks
	)
	if gk, ok := e.kernel.(models.GreeksKernel); ok && e.cfg.Method != config.MethodFiniteDifference {
		res, g = gk.Evaluate(p)
	} else {
		res, g = e.finiteDifference(p)
	}
	if _, err := models.CheckValue(res.Value, p); err != nil {
		return models.PricingResult{}, models.Greeks{}, err
	}
	if err := Check(g, p); err != nil {
		return models.PricingResult{}, models.Greeks{}, err
	}
	return res, g, nil
}

// Check reports non-finite sensitivities as models.ErrNumericDegeneracy.
func Check(g models.Greeks, p models.Params) error {
	for _, x := range [...]float64{g.Delta, g.Gamma, g.Vega, g.Theta, g.Rho} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: greeks %+v for %s K=%g T=%g sigma=%g",
				models.ErrNumericDegeneracy, g, p.Type, p.Strike, p.Expiry, p.Volatility)
		}
	}
	return nil
}

// Analytic reports whether Evaluate uses the kernel's own Greeks.
func (e *Engine) Analytic() bool {
	_, ok := e.kernel.(models.GreeksKernel)
	return ok && e.cfg.Method != config.MethodFiniteDifference
}
