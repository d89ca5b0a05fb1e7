package greeks

import (
	"math"

	"github.com/bcdannyboy/optbook/models"
)

// edge returns the closed-form sensitivities of expired and zero-volatility
// contracts instead of differencing across the payoff kink.
//
// Every kernel returns intrinsic value at expiry. At zero volatility the
// deterministic Greeks are used only when the kernel agrees with the
// deterministic value; a jump kernel stays stochastic there and is bumped.
// A kernel that values American contracts as European matches the European
// deterministic value.
func (e *Engine) edge(p models.Params, value float64) (models.Greeks, bool) {
	if p.Expiry == 0 {
		return models.DegenerateGreeks(p, e.cfg.ATMDeltaTieBreak)
	}
	if p.Volatility != 0 {
		return models.Greeks{}, false
	}
	if !deterministic(p, value) {
		if p.Style != models.American {
			return models.Greeks{}, false
		}
		p = p.WithStyle(models.European)
		if !deterministic(p, value) {
			return models.Greeks{}, false
		}
	}
	return models.DegenerateGreeks(p, e.cfg.ATMDeltaTieBreak)
}

func deterministic(p models.Params, value float64) bool {
	det, _ := models.DegenerateValue(p)
	return math.Abs(det-value) <= 1e-12*math.Max(1, math.Abs(det))
}
