package probability

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/bcdannyboy/optbook/config"
	"github.com/bcdannyboy/optbook/models"
	"github.com/bcdannyboy/optbook/portfolio"
)

// Report summarises the simulated profit and loss of a book over the
// risk horizon. VaR and ExpectedShortfall are positive losses.
type Report struct {
	Confidence        float64
	VaR               float64
	ExpectedShortfall float64
	MeanPnL           float64
	WorstLoss         float64
	Scenarios         int
	BaseValue         float64
}

// Analyzer revalues a book under simulated spots.
type Analyzer struct {
	evaluator *portfolio.Evaluator
	cfg       config.RiskConfig
	log       zerolog.Logger
	progress  func()
}

func NewAnalyzer(ev *portfolio.Evaluator, cfg config.RiskConfig, log zerolog.Logger) (*Analyzer, error) {
	if ev == nil {
		return nil, fmt.Errorf("risk analyzer needs an evaluator")
	}
	if cfg.Paths < 1 || cfg.Steps < 1 || !(cfg.Horizon >= 0) || !(cfg.Confidence > 0 && cfg.Confidence < 1) {
		return nil, fmt.Errorf("invalid risk settings: horizon=%g steps=%d paths=%d confidence=%g",
			cfg.Horizon, cfg.Steps, cfg.Paths, cfg.Confidence)
	}
	return &Analyzer{
		evaluator: ev,
		cfg:       cfg,
		log:       log.With().Str("component", "risk").Logger(),
	}, nil
}

// OnScenario registers fn to be called after each scenario is revalued.
func (a *Analyzer) OnScenario(fn func()) {
	a.progress = fn
}

// Run simulates spots under d and reports value at risk of book.
func (a *Analyzer) Run(book *portfolio.Portfolio, m models.MarketState, opts portfolio.Options, d Dynamics) (Report, error) {
	spots := SimulateSpots(m.Spot, d, a.cfg)
	pnl, base, err := a.Revalue(book, m, opts, spots)
	if err != nil {
		return Report{}, err
	}

	r := Report{
		Confidence:        a.cfg.Confidence,
		VaR:               ValueAtRisk(pnl, a.cfg.Confidence),
		ExpectedShortfall: ExpectedShortfall(pnl, a.cfg.Confidence),
		MeanPnL:           stat.Mean(pnl, nil),
		Scenarios:         len(pnl),
		BaseValue:         base.Totals.Value,
	}
	for _, x := range pnl {
		r.WorstLoss = math.Max(r.WorstLoss, -x)
	}
	a.log.Debug().
		Int("scenarios", r.Scenarios).
		Float64("var", r.VaR).
		Float64("es", r.ExpectedShortfall).
		Msg("scenario risk computed")
	return r, nil
}

// Revalue prices book now and again after the horizon at each spot,
// holding every position at the volatility it was priced with today.
// Positions that cannot be priced today are left out of every scenario.
func (a *Analyzer) Revalue(book *portfolio.Portfolio, m models.MarketState, opts portfolio.Options, spots []float64) ([]float64, *portfolio.Result, error) {
	base, err := a.evaluator.Evaluate(book, m, opts)
	if err != nil {
		return nil, nil, err
	}

	aged, err := a.age(book, base)
	if err != nil {
		return nil, nil, err
	}

	shocked := m
	shocked.ObservedPrices = nil
	pnl := make([]float64, len(spots))
	for i, s := range spots {
		shocked.Spot = s
		res, err := a.evaluator.Evaluate(aged, shocked, portfolio.Options{})
		if err != nil {
			return nil, nil, fmt.Errorf("scenario %d: %w", i, err)
		}
		if res.Totals.Failed > 0 {
			a.log.Warn().Int("scenario", i).Int("failed", res.Totals.Failed).Msg("positions failed in scenario")
		}
		pnl[i] = res.Totals.Value - base.Totals.Value
		if a.progress != nil {
			a.progress()
		}
	}
	return pnl, base, nil
}

func (a *Analyzer) age(book *portfolio.Portfolio, base *portfolio.Result) (*portfolio.Portfolio, error) {
	var kept []portfolio.Position
	for _, row := range base.Rows {
		if !row.Priced {
			continue
		}
		pos := book.At(row.Index)
		pos.Contract = pos.Contract.WithVolatility(row.Volatility)
		pos.Contract.Expiry = math.Max(pos.Contract.Expiry-a.cfg.Horizon, 0)
		kept = append(kept, pos)
	}
	return portfolio.New(kept...)
}

// ValueAtRisk is the loss not exceeded with the given confidence.
func ValueAtRisk(pnl []float64, confidence float64) float64 {
	if len(pnl) == 0 {
		return 0
	}
	return stat.Quantile(confidence, stat.Empirical, losses(pnl), nil)
}

// ExpectedShortfall is the mean loss at or beyond ValueAtRisk.
func ExpectedShortfall(pnl []float64, confidence float64) float64 {
	if len(pnl) == 0 {
		return 0
	}
	l := losses(pnl)
	v := stat.Quantile(confidence, stat.Empirical, l, nil)
	i := sort.SearchFloat64s(l, v)
	return stat.Mean(l[i:], nil)
}

// losses returns -pnl sorted ascending.
func losses(pnl []float64) []float64 {
	l := make([]float64, len(pnl))
	for i, x := range pnl {
		l[i] = -x
	}
	sort.Float64s(l)
	return l
}
