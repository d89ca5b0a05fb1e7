package main

import (
	"fmt"
	"io"

	"github.com/xhhuango/json"

	"github.com/bcdannyboy/optbook/models"
	"github.com/bcdannyboy/optbook/portfolio"
)

// bookFile is the JSON layout read by the evaluate and risk commands.
type bookFile struct {
	Market    marketFile     `json:"market"`
	Positions []positionFile `json:"positions"`
}

type marketFile struct {
	Spot     float64            `json:"spot"`
	Rate     float64            `json:"rate"`
	Dividend float64            `json:"dividend"`
	Observed map[string]float64 `json:"observed"`

	RateCurve     *curveFile   `json:"rate_curve,omitempty"`
	ParCurve      *curveFile   `json:"par_curve,omitempty"` // semi-annual par yields, bootstrapped into the rate curve
	DividendCurve *curveFile   `json:"dividend_curve,omitempty"`
	Surface       *surfaceFile `json:"surface,omitempty"`
}

type curveFile struct {
	Times  []float64 `json:"times"`
	Values []float64 `json:"values"`
}

type surfaceFile struct {
	Strikes []float64   `json:"strikes"`
	Times   []float64   `json:"times"`
	Vols    [][]float64 `json:"vols"`
}

type positionFile struct {
	ID         string   `json:"id"`
	Quantity   float64  `json:"quantity"`
	Underlying string   `json:"underlying"`
	Type       string   `json:"type"`
	Style      string   `json:"style"`
	Strike     float64  `json:"strike"`
	Expiry     float64  `json:"expiry"`
	Volatility *float64 `json:"volatility,omitempty"`
}

// zeroCurve bootstraps par yields on semi-annual coupons out to the last
// pillar.
func zeroCurve(c *curveFile) (*models.PiecewiseLinear, error) {
	par, err := models.NewPiecewiseLinear(c.Times, c.Values)
	if err != nil {
		return nil, err
	}
	last := par.Times[len(par.Times)-1]
	return models.BootstrapZeroCurve(par, 0.5, last)
}

func readBook(r io.Reader) (*portfolio.Portfolio, models.MarketState, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, models.MarketState{}, fmt.Errorf("failed to read book: %w", err)
	}
	var f bookFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, models.MarketState{}, fmt.Errorf("failed to unmarshal book: %w", err)
	}

	m := models.MarketState{
		Spot:           f.Market.Spot,
		Rate:           f.Market.Rate,
		Dividend:       f.Market.Dividend,
		ObservedPrices: f.Market.Observed,
	}
	if c := f.Market.RateCurve; c != nil {
		curve, err := models.NewPiecewiseLinear(c.Times, c.Values)
		if err != nil {
			return nil, models.MarketState{}, fmt.Errorf("rate curve: %w", err)
		}
		m.RateCurve = curve
	}
	if c := f.Market.ParCurve; c != nil {
		if m.RateCurve != nil {
			return nil, models.MarketState{}, fmt.Errorf("book sets both rate_curve and par_curve")
		}
		curve, err := zeroCurve(c)
		if err != nil {
			return nil, models.MarketState{}, fmt.Errorf("par curve: %w", err)
		}
		m.RateCurve = curve
	}
	if c := f.Market.DividendCurve; c != nil {
		curve, err := models.NewPiecewiseLinear(c.Times, c.Values)
		if err != nil {
			return nil, models.MarketState{}, fmt.Errorf("dividend curve: %w", err)
		}
		m.DividendCurve = curve
	}
	if s := f.Market.Surface; s != nil {
		surface, err := models.NewGridSurface(s.Strikes, s.Times, s.Vols)
		if err != nil {
			return nil, models.MarketState{}, fmt.Errorf("surface: %w", err)
		}
		m.Surface = surface
	}

	book, err := portfolio.New()
	if err != nil {
		return nil, models.MarketState{}, err
	}
	for i, p := range f.Positions {
		typ, err := models.ParseOptionType(p.Type)
		if err != nil {
			return nil, models.MarketState{}, fmt.Errorf("position %d: %w", i, err)
		}
		style := models.European
		switch p.Style {
		case "", "european":
		case "american":
			style = models.American
		default:
			return nil, models.MarketState{}, fmt.Errorf("position %d: unknown exercise style %q", i, p.Style)
		}
		c := models.OptionContract{
			Underlying: p.Underlying,
			Type:       typ,
			Style:      style,
			Strike:     p.Strike,
			Expiry:     p.Expiry,
			Volatility: p.Volatility,
		}
		if err := book.Add(portfolio.NewPosition(p.ID, p.Quantity, c)); err != nil {
			return nil, models.MarketState{}, err
		}
	}
	return book, m, nil
}
