package greeks

import (
	"math"

	"github.com/bcdannyboy/optbook/models"
)

// finiteDifference bumps each input of the kernel's Price. Spot steps are
// relative to the spot, widened to the kernel's SpotBump when it has one;
// the other steps use the configured floors.
// Differences are central unless the lower point would leave the domain.
func (e *Engine) finiteDifference(p models.Params) (models.PricingResult, models.Greeks) {
	price := e.kernel.Price
	res := models.PricingResult{
		Value:          price(p),
		SqrtT:          math.Sqrt(p.Expiry),
		DiscountFactor: math.Exp(-p.Rate * p.Expiry),
		DividendFactor: math.Exp(-p.Dividend * p.Expiry),
	}
	if g, ok := e.edge(p, res.Value); ok {
		return res, g
	}

	atSpot := func(s float64) float64 {
		q := p
		q.Spot = s
		return price(q)
	}
	hs := e.cfg.BumpRelative * p.Spot
	if b, ok := e.kernel.(models.SpotBumper); ok {
		hs = math.Min(math.Max(hs, b.SpotBump(p)), 0.5*p.Spot)
	}

	var g models.Greeks
	g.Delta = models.CentralOrForward(atSpot, p.Spot, hs, 0)
	g.Gamma = models.SecondCentral(atSpot, p.Spot, hs)

	hv := models.BumpSize(p.Volatility, e.cfg.BumpRelative, e.cfg.VolFloor)
	g.Vega = models.CentralOrForward(func(v float64) float64 {
		return price(p.WithVolatility(v))
	}, p.Volatility, hv, 0)

	hr := models.BumpSize(p.Rate, e.cfg.BumpRelative, e.cfg.RateFloor)
	g.Rho = models.CentralOrForward(func(r float64) float64 {
		q := p
		q.Rate = r
		return price(q)
	}, p.Rate, hr, math.Inf(-1))

	ht := models.BumpSize(p.Expiry, e.cfg.BumpRelative, e.cfg.TimeFloor)
	g.Theta = -models.CentralOrForward(func(t float64) float64 {
		q := p
		q.Expiry = t
		return price(q)
	}, p.Expiry, ht, 0)

	return res, g
}
