package greeks

import "github.com/bcdannyboy/optbook/models"

// ShadowGamma measures how delta moves when spot and volatility move
// together: spot is bumped by ±spotMove (relative) while volatility is
// scaled by 1±volMove. It returns the up and down shadow gammas.
func (e *Engine) ShadowGamma(c models.OptionContract, m models.MarketState, spotMove, volMove float64) (up, down float64, err error) {
	p, err := models.Bind(c, m)
	if err != nil {
		return 0, 0, err
	}
	delta := func(q models.Params) (float64, error) {
		_, g, err := e.EvaluateParams(q)
		return g.Delta, err
	}

	base, err := delta(p)
	if err != nil {
		return 0, 0, err
	}

	pu := p
	pu.Spot = p.Spot * (1 + spotMove)
	pu.Volatility = p.Volatility * (1 + volMove)
	du, err := delta(pu)
	if err != nil {
		return 0, 0, err
	}

	pd := p
	pd.Spot = p.Spot * (1 - spotMove)
	pd.Volatility = p.Volatility * (1 - volMove)
	dd, err := delta(pd)
	if err != nil {
		return 0, 0, err
	}

	return (du - base) / (pu.Spot - p.Spot), (base - dd) / (p.Spot - pd.Spot), nil
}

// Volga is the volatility derivative of vega, by central difference of
// the engine's vega with step volStep.
func (e *Engine) Volga(c models.OptionContract, m models.MarketState, volStep float64) (float64, error) {
	p, err := models.Bind(c, m)
	if err != nil {
		return 0, err
	}
	lo := p.Volatility - volStep
	if lo < 0 {
		lo = 0
	}
	hi := p.Volatility + volStep

	_, gu, err := e.EvaluateParams(p.WithVolatility(hi))
	if err != nil {
		return 0, err
	}
	_, gd, err := e.EvaluateParams(p.WithVolatility(lo))
	if err != nil {
		return 0, err
	}
	return (gu.Vega - gd.Vega) / (hi - lo), nil
}
