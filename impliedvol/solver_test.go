package impliedvol

import (
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcdannyboy/optbook/config"
	"github.com/bcdannyboy/optbook/models"
)

var market = models.MarketState{Spot: 100, Rate: 0.05}

func newSolver(t *testing.T, kernel models.Kernel, cfg config.SolverConfig) *Solver {
	t.Helper()
	s, err := NewSolver(kernel, cfg, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func option(typ models.OptionType, strike, expiry float64) models.OptionContract {
	return models.OptionContract{
		Underlying: "TEST",
		Type:       typ,
		Style:      models.European,
		Strike:     strike,
		Expiry:     expiry,
	}
}

func TestSolve_ReferenceQuote(t *testing.T) {
	s := newSolver(t, models.NewBlackScholesMerton(0.5), config.Default().Solver)

	res, err := s.Solve(option(models.Call, 100, 1), market, 10.4506)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.InDelta(t, 0.2, res.Volatility, 1e-4)
	assert.LessOrEqual(t, math.Abs(res.Residual), 1e-6)
	assert.Greater(t, res.Iterations, 0)
}

func TestSolve_RoundTrip(t *testing.T) {
	bsm := models.NewBlackScholesMerton(0.5)
	s := newSolver(t, bsm, config.Default().Solver)

	for _, typ := range []models.OptionType{models.Call, models.Put} {
		for _, strike := range []float64{80, 100, 120} {
			for _, vol := range []float64{0.1, 0.2, 0.45, 1.5} {
				c := option(typ, strike, 1)
				p, err := models.BindWithVolatility(c, market, vol)
				require.NoError(t, err)
				observed := bsm.Price(p)

				res, err := s.Solve(c, market, observed)
				require.NoError(t, err, "%s K=%g sigma=%g", typ, strike, vol)
				assert.InDelta(t, vol, res.Volatility, 1e-4, "%s K=%g sigma=%g", typ, strike, vol)
			}
		}
	}
}

func TestSolve_IgnoresContractVolatility(t *testing.T) {
	s := newSolver(t, models.NewBlackScholesMerton(0.5), config.Default().Solver)
	c := option(models.Call, 100, 1).WithVolatility(0.9)

	res, err := s.Solve(c, market, 10.450583572185565)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, res.Volatility, 1e-6)
}

func TestSolve_ArbitrageViolation(t *testing.T) {
	s := newSolver(t, models.NewBlackScholesMerton(0.5), config.Default().Solver)

	testCases := []struct {
		name     string
		c        models.OptionContract
		observed float64
	}{
		{"call above spot", option(models.Call, 100, 1), 150},
		{"call below forward intrinsic", option(models.Call, 50, 1), 40},
		{"put above discounted strike", option(models.Put, 100, 1), 99},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Solve(tc.c, market, tc.observed)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrArbitrageViolation))
			var arb *models.ArbitrageError
			require.True(t, errors.As(err, &arb))
			assert.Equal(t, tc.observed, arb.Observed)
		})
	}
}

func TestSolve_OutsideBracket(t *testing.T) {
	cfg := config.Default().Solver
	cfg.VolUpper = 0.5
	s := newSolver(t, models.NewBlackScholesMerton(0.5), cfg)

	// inside the model-free bounds but above any price the bracket reaches
	res, err := s.Solve(option(models.Call, 100, 1), market, 90)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSolverNonconvergence))

	var solverErr *models.SolverError
	require.True(t, errors.As(err, &solverErr))
	assert.Equal(t, 0.5, solverErr.Estimate)
	assert.Equal(t, 0, solverErr.Iterations)
	assert.False(t, res.Converged)
	assert.Equal(t, 0.5, res.Volatility)
}

func TestSolve_IterationLimit(t *testing.T) {
	cfg := config.Default().Solver
	cfg.MaxIterations = 1
	cfg.PriceTolerance = 1e-14
	s := newSolver(t, models.NewBlackScholesMerton(0.5), cfg)

	res, err := s.Solve(option(models.Put, 90, 0.5), market, 2.5)
	var solverErr *models.SolverError
	require.True(t, errors.As(err, &solverErr))
	assert.Equal(t, 1, solverErr.Iterations)
	assert.Equal(t, res.Volatility, solverErr.Estimate)
	assert.Greater(t, res.Volatility, cfg.VolLower)
}

func TestSolve_InvalidObserved(t *testing.T) {
	s := newSolver(t, models.NewBlackScholesMerton(0.5), config.Default().Solver)
	for _, observed := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := s.Solve(option(models.Call, 100, 1), market, observed)
		assert.True(t, errors.Is(err, models.ErrInvalidInput), "observed %g", observed)
	}

	_, err := s.Solve(option(models.Call, 100, 1), models.MarketState{Spot: -1}, 5)
	assert.True(t, errors.Is(err, models.ErrInvalidInput))
}

func TestSolve_ExpiredAtIntrinsic(t *testing.T) {
	s := newSolver(t, models.NewBlackScholesMerton(0.5), config.Default().Solver)
	res, err := s.Solve(option(models.Put, 110, 0), market, 10)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Equal(t, config.Default().Solver.VolLower, res.Volatility)
}

func TestSolve_AmericanByBisection(t *testing.T) {
	tree, err := models.NewBinomial(200, 0.5, config.Default().Greeks)
	require.NoError(t, err)
	router := models.NewExerciseRouter(models.NewBlackScholesMerton(0.5), tree)
	s := newSolver(t, router, config.Default().Solver)

	c := option(models.Put, 105, 0.75)
	c.Style = models.American
	p, err := models.BindWithVolatility(c, market, 0.3)
	require.NoError(t, err)
	observed := tree.Price(p)

	res, err := s.Solve(c, market, observed)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, res.Volatility, 1e-4)
}

func TestBounds(t *testing.T) {
	p := models.Params{Type: models.Call, Style: models.European, Spot: 100, Strike: 90, Expiry: 1, Rate: 0.05, Dividend: 0.02}
	lower, upper := Bounds(p)
	assert.InDelta(t, 100*math.Exp(-0.02)-90*math.Exp(-0.05), lower, 1e-12)
	assert.InDelta(t, 100*math.Exp(-0.02), upper, 1e-12)

	// the forward bound already exceeds intrinsic value
	p.Style = models.American
	lower, upper = Bounds(p)
	assert.InDelta(t, 100*math.Exp(-0.02)-90*math.Exp(-0.05), lower, 1e-12)
	assert.Equal(t, 100.0, upper)

	p = models.Params{Type: models.Put, Style: models.American, Spot: 80, Strike: 100, Expiry: 1, Rate: 0.05}
	lower, upper = Bounds(p)
	assert.Equal(t, 20.0, lower)
	assert.Equal(t, 100.0, upper)

	assert.NoError(t, CheckBounds(p, 20, 1e-6))
	assert.Error(t, CheckBounds(p, 19.9, 1e-6))
}
