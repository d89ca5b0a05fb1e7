package portfolio

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bcdannyboy/optbook/config"
	"github.com/bcdannyboy/optbook/greeks"
	"github.com/bcdannyboy/optbook/impliedvol"
	"github.com/bcdannyboy/optbook/models"
)

// VolSource records where a row's pricing volatility came from.
type VolSource int

const (
	VolNone VolSource = iota
	VolImplied
	VolContract
	VolSurface
)

func (s VolSource) String() string {
	switch s {
	case VolImplied:
		return "implied"
	case VolContract:
		return "contract"
	case VolSurface:
		return "surface"
	default:
		return "none"
	}
}

// Options select optional work for one evaluation.
type Options struct {
	// ImpliedVol solves for volatility wherever the market holds an
	// observed price for the position.
	ImpliedVol bool
}

// Row is the result for one position. Value and Greeks are per contract;
// multiply by Quantity for the position's contribution. Err is set for
// every failure, including an implied volatility failure on a row that was
// still priced from the contract's own volatility.
type Row struct {
	Index      int
	PositionID string
	Quantity   float64

	Volatility float64
	VolSource  VolSource
	ImpliedVol *impliedvol.Result

	Value  float64
	Greeks models.Greeks

	Priced bool
	Err    error
}

// Result holds rows in portfolio order and their signed totals.
type Result struct {
	Rows   []Row
	Totals Totals
}

// Failed returns the rows carrying an error.
func (r *Result) Failed() []Row {
	var out []Row
	for _, row := range r.Rows {
		if row.Err != nil {
			out = append(out, row)
		}
	}
	return out
}

// Evaluator prices whole portfolios under one market snapshot.
type Evaluator struct {
	engine *greeks.Engine
	solver *impliedvol.Solver
	batch  models.BatchKernel
	cfg    config.BatchConfig
	log    zerolog.Logger
}

func NewEvaluator(kernel models.Kernel, cfg config.Config, log zerolog.Logger) (*Evaluator, error) {
	engine, err := greeks.NewEngine(kernel, cfg.Greeks)
	if err != nil {
		return nil, err
	}
	solver, err := impliedvol.NewSolver(kernel, cfg.Solver, log)
	if err != nil {
		return nil, err
	}
	if cfg.Batch.Workers < 1 || cfg.Batch.ChunkSize < 1 {
		return nil, fmt.Errorf("invalid batch settings: workers=%d chunk=%d", cfg.Batch.Workers, cfg.Batch.ChunkSize)
	}
	e := &Evaluator{
		engine: engine,
		solver: solver,
		cfg:    cfg.Batch,
		log:    log.With().Str("component", "portfolio_evaluator").Logger(),
	}
	if bk, ok := kernel.(models.BatchKernel); ok && engine.Analytic() {
		e.batch = bk
	}
	return e, nil
}

// Evaluate prices every position of book under m. Per-position failures
// are recorded on their rows; only a malformed portfolio or an invalid
// market snapshot fails the call.
func (e *Evaluator) Evaluate(book *Portfolio, m models.MarketState, opts Options) (*Result, error) {
	if book == nil {
		return nil, fmt.Errorf("%w: nil portfolio", models.ErrMalformedPortfolio)
	}
	if err := models.ValidateMarket(m); err != nil {
		return nil, fmt.Errorf("market snapshot: %w", err)
	}

	start := time.Now()
	n := book.Len()
	rows := make([]Row, n)
	batched := e.batch != nil && n >= e.cfg.MinBatch

	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for lo := 0; lo < n; lo += e.cfg.ChunkSize {
		lo, hi := lo, min(lo+e.cfg.ChunkSize, n)
		g.Go(func() error {
			e.evaluateChunk(book, m, opts, rows[lo:hi], lo, batched)
			return nil
		})
	}
	// chunks never return errors; failures live on the rows
	_ = g.Wait()

	res := &Result{Rows: rows, Totals: aggregate(rows)}

	for _, row := range rows {
		if row.Err != nil {
			e.log.Warn().
				Err(row.Err).
				Str("position", row.PositionID).
				Bool("priced", row.Priced).
				Msg("position failed")
		}
	}
	e.log.Debug().
		Int("positions", n).
		Int("priced", res.Totals.Priced).
		Int("failed", res.Totals.Failed).
		Bool("batched", batched).
		Dur("elapsed", time.Since(start)).
		Msg("portfolio evaluated")
	return res, nil
}

// evaluateChunk fills rows, which hold positions offset.. of book.
func (e *Evaluator) evaluateChunk(book *Portfolio, m models.MarketState, opts Options, rows []Row, offset int, batched bool) {
	params := make([]models.Params, len(rows))
	for i := range rows {
		params[i] = e.resolve(book.positions[offset+i], m, opts, &rows[i])
		rows[i].Index = offset + i
	}

	if batched {
		e.priceBatch(rows, params)
		return
	}
	for i := range rows {
		if !pricable(rows[i]) {
			continue
		}
		res, g, err := e.engine.EvaluateParams(params[i])
		e.store(&rows[i], res.Value, g, err)
	}
}

// resolve picks the row's volatility: implied from an observed price when
// requested, then the contract's own, then the market surface.
func (e *Evaluator) resolve(pos Position, m models.MarketState, opts Options, row *Row) models.Params {
	row.PositionID = pos.ID
	row.Quantity = pos.Quantity

	c := pos.Contract
	if err := models.ValidateContract(c); err != nil {
		row.Err = err
		return models.Params{}
	}

	var ivErr error
	if opts.ImpliedVol {
		if observed, ok := m.Observed(pos.ID); ok {
			iv, err := e.solver.Solve(c, m, observed)
			var solverErr *models.SolverError
			if err == nil || errors.As(err, &solverErr) {
				row.ImpliedVol = &iv
			}
			if err == nil {
				row.Volatility, row.VolSource = iv.Volatility, VolImplied
			} else {
				ivErr = fmt.Errorf("implied volatility: %w", err)
			}
		}
	}

	if row.VolSource == VolNone && c.HasVolatility() {
		row.Volatility, row.VolSource = *c.Volatility, VolContract
	}
	if row.VolSource == VolNone && m.Surface != nil {
		v := m.Surface.Volatility(m.Spot, c.Strike, c.Expiry)
		if err := models.ValidateVolatility(v); err != nil {
			row.Err = errors.Join(ivErr, fmt.Errorf("surface: %w", err))
			return models.Params{}
		}
		row.Volatility, row.VolSource = v, VolSurface
	}
	if row.VolSource == VolNone {
		if ivErr != nil {
			row.Err = ivErr
		} else {
			row.Err = &models.InputError{Field: "volatility", Value: 0, Reason: "no contract, implied or surface volatility"}
		}
		return models.Params{}
	}

	p, err := models.BindWithVolatility(c, m, row.Volatility)
	if err != nil {
		row.Err = errors.Join(ivErr, err)
		row.VolSource = VolNone
		return models.Params{}
	}
	row.Err = ivErr
	return p
}

func pricable(r Row) bool {
	return r.VolSource != VolNone
}

func (e *Evaluator) store(row *Row, value float64, g models.Greeks, err error) {
	if err != nil {
		row.Err = errors.Join(row.Err, err)
		return
	}
	row.Value, row.Greeks, row.Priced = value, g, true
}
