package tradier

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/xhhuango/json"

	"github.com/bcdannyboy/optbook/impliedvol"
	"github.com/bcdannyboy/optbook/models"
	"github.com/bcdannyboy/optbook/portfolio"
)

const dateLayout = "2006-01-02"

// Snapshot is a saved chain for one underlying: the quote, the rates to
// price under, and the chains keyed by expiration date.
type Snapshot struct {
	Underlying string                  `json:"underlying"`
	Spot       float64                 `json:"spot"`
	Rate       float64                 `json:"rate"`
	Dividend   float64                 `json:"dividend"`
	AsOf       string                  `json:"as_of"`
	Style      string                  `json:"style"` // "american" (listed equity default) or "european"
	Chains     map[string]*OptionChain `json:"chains"`
	History    *QuoteHistory           `json:"history,omitempty"`
}

// DecodeSnapshot reads a Snapshot from JSON.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	s := &Snapshot{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return s, nil
}

// BookOptions control how a chain becomes a book.
type BookOptions struct {
	// UseFeedIV prices contracts at the feed's mid implied volatility when
	// it is present. Otherwise contracts carry no volatility and must be
	// implied from the mid price.
	UseFeedIV bool
	// Spot overrides the snapshot spot when positive.
	Spot float64
	// Rate overrides the snapshot rate when set.
	Rate *float64
	// ImplyDividends replaces the flat snapshot dividend with the curve
	// implied from each expiry's at-the-money call and put.
	ImplyDividends bool
	// American solves the legs of American snapshots for ImplyDividends.
	American *impliedvol.Solver
}

// Book turns every option of the snapshot into a unit long position keyed
// by its OCC symbol, and returns the market with mid prices as observed
// prices. Options expired at AsOf, or with unreadable fields, are skipped
// and counted.
func (s *Snapshot) Book(opts BookOptions) (*portfolio.Portfolio, models.MarketState, int, error) {
	asOf, err := s.asOf()
	if err != nil {
		return nil, models.MarketState{}, 0, err
	}
	style, err := s.style()
	if err != nil {
		return nil, models.MarketState{}, 0, err
	}

	m := models.MarketState{
		Spot:           s.Spot,
		Rate:           s.Rate,
		Dividend:       s.Dividend,
		ObservedPrices: make(map[string]float64),
	}
	if opts.Spot > 0 {
		m.Spot = opts.Spot
	}
	if opts.Rate != nil {
		m.Rate = *opts.Rate
	}
	if opts.ImplyDividends {
		curve, _, err := s.DividendCurve(DividendOptions{Spot: m.Spot, Rate: models.FlatCurve(m.Rate), American: opts.American})
		if err != nil {
			return nil, models.MarketState{}, 0, err
		}
		m.DividendCurve = curve
	}

	// expirations in date order keep the book stable across runs
	dates := make([]string, 0, len(s.Chains))
	for d := range s.Chains {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	book, _ := portfolio.New()
	skipped := 0
	for _, d := range dates {
		chain := s.Chains[d]
		if chain == nil {
			continue
		}
		for _, o := range chain.Options.Option {
			c, err := contract(o, d, asOf, style, s.Underlying)
			if err != nil {
				skipped++
				continue
			}
			if opts.UseFeedIV && o.Greeks.MidIv > 0 {
				c = c.WithVolatility(o.Greeks.MidIv)
			}
			pos := portfolio.NewPosition(o.Symbol, 1, c)
			if err := book.Add(pos); err != nil {
				skipped++
				continue
			}
			if mid, ok := o.Mid(); ok {
				m.ObservedPrices[pos.ID] = mid
			}
		}
	}
	return book, m, skipped, nil
}

func (s *Snapshot) style() (models.ExerciseStyle, error) {
	switch strings.ToLower(s.Style) {
	case "", "american":
		return models.American, nil
	case "european":
		return models.European, nil
	default:
		return 0, fmt.Errorf("unknown exercise style %q", s.Style)
	}
}

func (s *Snapshot) asOf() (time.Time, error) {
	if s.AsOf == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	t, err := time.Parse(dateLayout, s.AsOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse as_of date: %w", err)
	}
	return t, nil
}

func contract(o Option, chainDate string, asOf time.Time, style models.ExerciseStyle, underlying string) (models.OptionContract, error) {
	typ, err := models.ParseOptionType(o.OptionType)
	if err != nil {
		return models.OptionContract{}, err
	}
	date := o.ExpirationDate
	if date == "" {
		date = chainDate
	}
	exp, err := time.Parse(dateLayout, date)
	if err != nil {
		return models.OptionContract{}, fmt.Errorf("failed to parse expiration date: %w", err)
	}
	years := YearFraction(asOf, exp)
	if years < 0 {
		return models.OptionContract{}, fmt.Errorf("option %s expired on %s", o.Symbol, date)
	}
	if o.Underlying != "" {
		underlying = o.Underlying
	}
	c := models.OptionContract{
		Underlying: underlying,
		Type:       typ,
		Style:      style,
		Strike:     o.Strike,
		Expiry:     years,
	}
	return c, models.ValidateContract(c)
}

// YearFraction is calendar days over 365.
func YearFraction(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24 / 365
}
