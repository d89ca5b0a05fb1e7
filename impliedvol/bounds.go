package impliedvol

import (
	"math"

	"github.com/bcdannyboy/optbook/models"
)

// Bounds returns the model-free price range of a contract.
//
// European call: [max(Se^{-qT} - Ke^{-rT}, 0), Se^{-qT}]
// European put:  [max(Ke^{-rT} - Se^{-qT}, 0), Ke^{-rT}]
//
// American contracts can also be exercised now, so intrinsic value joins
// the lower bound. The upper bounds become S for calls and K for puts, or
// the European bound when that is larger (negative carry).
func Bounds(p models.Params) (lower, upper float64) {
	fwdSpot := p.Spot * math.Exp(-p.Dividend*p.Expiry)
	pvStrike := p.Strike * math.Exp(-p.Rate*p.Expiry)

	if p.Type == models.Call {
		lower, upper = math.Max(fwdSpot-pvStrike, 0), fwdSpot
		if p.Style == models.American {
			lower = math.Max(lower, p.Spot-p.Strike)
			upper = math.Max(upper, p.Spot)
		}
		return lower, upper
	}

	lower, upper = math.Max(pvStrike-fwdSpot, 0), pvStrike
	if p.Style == models.American {
		lower = math.Max(lower, p.Strike-p.Spot)
		upper = math.Max(upper, p.Strike)
	}
	return lower, upper
}

// CheckBounds reports an ArbitrageError for an observed price more than
// tol outside Bounds.
func CheckBounds(p models.Params, observed, tol float64) error {
	lower, upper := Bounds(p)
	if observed < lower-tol || observed > upper+tol {
		return &models.ArbitrageError{Observed: observed, Lower: lower, Upper: upper}
	}
	return nil
}
