package models

import "math"

// BlackScholesMerton is the closed-form lognormal kernel with a continuous
// dividend yield. American contracts are valued as European.
type BlackScholesMerton struct {
	TieBreak float64
}

func NewBlackScholesMerton(tieBreak float64) *BlackScholesMerton {
	return &BlackScholesMerton{TieBreak: tieBreak}
}

func (k *BlackScholesMerton) Name() string { return "black-scholes-merton" }

// bsmTerms holds the quantities shared by value and Greeks.
type bsmTerms struct {
	sqrtT, d1, d2, df, qf float64
}

func newBSMTerms(spot, strike, expiry, rate, dividend, vol float64) bsmTerms {
	sqrtT := math.Sqrt(expiry)
	volT := vol * sqrtT
	d1 := (math.Log(spot/strike) + (rate-dividend+0.5*vol*vol)*expiry) / volT
	return bsmTerms{
		sqrtT: sqrtT,
		d1:    d1,
		d2:    d1 - volT,
		df:    math.Exp(-rate * expiry),
		qf:    math.Exp(-dividend * expiry),
	}
}

func (t bsmTerms) result(value float64) PricingResult {
	return PricingResult{
		Value:          value,
		D1:             t.d1,
		D2:             t.d2,
		SqrtT:          t.sqrtT,
		DiscountFactor: t.df,
		DividendFactor: t.qf,
	}
}

func bsmValue(typ OptionType, spot, strike float64, t bsmTerms) float64 {
	if typ == Call {
		return spot*t.qf*normCDF(t.d1) - strike*t.df*normCDF(t.d2)
	}
	return strike*t.df*normCDF(-t.d2) - spot*t.qf*normCDF(-t.d1)
}

func bsmVega(spot float64, t bsmTerms) float64 {
	return spot * t.qf * normPDF(t.d1) * t.sqrtT
}

func bsmGreeks(typ OptionType, spot, strike, rate, dividend, vol, expiry float64, t bsmTerms) Greeks {
	pdf := normPDF(t.d1)
	g := Greeks{
		Gamma: t.qf * pdf / (spot * vol * t.sqrtT),
		Vega:  spot * t.qf * pdf * t.sqrtT,
	}
	decay := -spot * t.qf * pdf * vol / (2 * t.sqrtT)
	if typ == Call {
		nd1, nd2 := normCDF(t.d1), normCDF(t.d2)
		g.Delta = t.qf * nd1
		g.Theta = decay - rate*strike*t.df*nd2 + dividend*spot*t.qf*nd1
		g.Rho = strike * expiry * t.df * nd2
	} else {
		nd1, nd2 := normCDF(-t.d1), normCDF(-t.d2)
		g.Delta = -t.qf * nd1
		g.Theta = decay + rate*strike*t.df*nd2 - dividend*spot*t.qf*nd1
		g.Rho = -strike * expiry * t.df * nd2
	}
	return g
}

func (k *BlackScholesMerton) Price(p Params) float64 {
	p = p.WithStyle(European)
	if v, ok := DegenerateValue(p); ok {
		return v
	}
	t := newBSMTerms(p.Spot, p.Strike, p.Expiry, p.Rate, p.Dividend, p.Volatility)
	return bsmValue(p.Type, p.Spot, p.Strike, t)
}

// PriceVega returns the value and the volatility derivative from one set of
// d1/d2 terms.
func (k *BlackScholesMerton) PriceVega(p Params) (float64, float64) {
	p = p.WithStyle(European)
	if v, ok := DegenerateValue(p); ok {
		g, _ := DegenerateGreeks(p, k.TieBreak)
		return v, g.Vega
	}
	t := newBSMTerms(p.Spot, p.Strike, p.Expiry, p.Rate, p.Dividend, p.Volatility)
	return bsmValue(p.Type, p.Spot, p.Strike, t), bsmVega(p.Spot, t)
}

// Evaluate computes the value and all Greeks sharing a single d1/d2.
func (k *BlackScholesMerton) Evaluate(p Params) (PricingResult, Greeks) {
	p = p.WithStyle(European)
	if res, g, ok := Degenerate(p, k.TieBreak); ok {
		return res, g
	}
	t := newBSMTerms(p.Spot, p.Strike, p.Expiry, p.Rate, p.Dividend, p.Volatility)
	return t.result(bsmValue(p.Type, p.Spot, p.Strike, t)),
		bsmGreeks(p.Type, p.Spot, p.Strike, p.Rate, p.Dividend, p.Volatility, p.Expiry, t)
}

// EvaluateBatch fills the output columns of b. The first pass computes the
// d1/d2 terms column for every diffusive lane, the second turns them into
// values and Greeks; degenerate lanes go through the same branch Evaluate
// uses.
func (k *BlackScholesMerton) EvaluateBatch(b *Batch) {
	n := b.Len()
	terms := make([]bsmTerms, n)
	diffusive := make([]bool, n)
	for i := 0; i < n; i++ {
		if b.Expiry[i] == 0 || b.Volatility[i] == 0 {
			continue
		}
		diffusive[i] = true
		terms[i] = newBSMTerms(b.Spot[i], b.Strike[i], b.Expiry[i], b.Rate[i], b.Dividend[i], b.Volatility[i])
	}
	for i := 0; i < n; i++ {
		if !diffusive[i] {
			res, g, _ := Degenerate(b.Params(i).WithStyle(European), k.TieBreak)
			b.store(i, res.Value, g)
			continue
		}
		t := terms[i]
		b.store(i,
			bsmValue(b.Type[i], b.Spot[i], b.Strike[i], t),
			bsmGreeks(b.Type[i], b.Spot[i], b.Strike[i], b.Rate[i], b.Dividend[i], b.Volatility[i], b.Expiry[i], t))
	}
}
