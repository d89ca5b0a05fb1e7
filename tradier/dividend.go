package tradier

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bcdannyboy/optbook/impliedvol"
	"github.com/bcdannyboy/optbook/models"
)

// minParityPrice drops pairs too cheap to carry a yield.
const minParityPrice = 1e-3

// DividendOptions control DividendCurve.
type DividendOptions struct {
	// Spot overrides the snapshot spot when positive.
	Spot float64
	// Rate discounts each expiry. The flat snapshot rate is used when nil.
	Rate models.TermStructure
	// American implies the volatilities of both legs of an American pair.
	// It is required when the snapshot is American.
	American *impliedvol.Solver
	// MinExpiry skips expiries closer than this many years.
	MinExpiry float64
}

// DividendCurve implies a continuous dividend yield per expiry from the
// call and put mids struck closest to the spot, and joins them into a
// piecewise linear curve. European snapshots solve put-call parity
// directly; American snapshots go through the American fixed point.
// Expiries without a usable pair, or whose pair does not solve, are skipped
// and counted.
func (s *Snapshot) DividendCurve(opts DividendOptions) (*models.PiecewiseLinear, int, error) {
	asOf, err := s.asOf()
	if err != nil {
		return nil, 0, err
	}
	style, err := s.style()
	if err != nil {
		return nil, 0, err
	}
	if style == models.American && opts.American == nil {
		return nil, 0, fmt.Errorf("american dividend curve of %s needs an implied volatility solver", s.Underlying)
	}
	spot := s.Spot
	if opts.Spot > 0 {
		spot = opts.Spot
	}
	european := models.NewBlackScholesMerton(0.5)

	dates := make([]string, 0, len(s.Chains))
	for d := range s.Chains {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var times, yields []float64
	skipped := 0
	for _, d := range dates {
		chain := s.Chains[d]
		if chain == nil {
			continue
		}
		exp, err := time.Parse(dateLayout, d)
		if err != nil {
			skipped++
			continue
		}
		t := YearFraction(asOf, exp)
		if !(t > 0) || t < opts.MinExpiry {
			skipped++
			continue
		}
		strike, call, put, ok := atmPair(chain, spot)
		if !ok {
			skipped++
			continue
		}
		rate := s.Rate
		if opts.Rate != nil {
			rate = opts.Rate.Value(t)
		}
		q := impliedvol.ParityQuote{Call: call, Put: put, Spot: spot, Strike: strike, Expiry: t, Rate: rate}

		var y float64
		if style == models.American {
			y, _, err = impliedvol.AmericanImpliedDividendYield(opts.American, european, q, 0)
		} else {
			y, err = impliedvol.ImpliedDividendYield(q)
		}
		if err != nil {
			skipped++
			continue
		}
		times = append(times, t)
		yields = append(yields, y)
	}
	if len(times) == 0 {
		return nil, skipped, fmt.Errorf("%w: no expiry of %s has a usable at-the-money call and put",
			models.ErrInvalidInput, s.Underlying)
	}
	curve, err := models.NewPiecewiseLinear(times, yields)
	return curve, skipped, err
}

// atmPair returns the strike nearest spot quoted two-sided for both a call
// and a put, with their mids. Ties go to the lower strike.
func atmPair(chain *OptionChain, spot float64) (strike, call, put float64, ok bool) {
	calls := make(map[float64]float64)
	puts := make(map[float64]float64)
	for _, o := range chain.Options.Option {
		mid, quoted := o.Mid()
		if !quoted || mid < minParityPrice {
			continue
		}
		typ, err := models.ParseOptionType(o.OptionType)
		if err != nil {
			continue
		}
		if typ == models.Call {
			calls[o.Strike] = mid
		} else {
			puts[o.Strike] = mid
		}
	}

	best := math.Inf(1)
	for k, c := range calls {
		p, both := puts[k]
		if !both {
			continue
		}
		if d := math.Abs(k - spot); d < best || (d == best && k < strike) {
			best, strike, call, put, ok = d, k, c, p, true
		}
	}
	return strike, call, put, ok
}
