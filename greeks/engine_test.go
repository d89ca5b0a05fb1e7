package greeks

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcdannyboy/optbook/config"
	"github.com/bcdannyboy/optbook/models"
)

var market = models.MarketState{Spot: 100, Rate: 0.05}

func contract(typ models.OptionType, strike, expiry, vol float64) models.OptionContract {
	return models.OptionContract{
		Underlying: "TEST",
		Type:       typ,
		Style:      models.European,
		Strike:     strike,
		Expiry:     expiry,
		Volatility: models.Vol(vol),
	}
}

func engine(t *testing.T, kernel models.Kernel, method string) *Engine {
	t.Helper()
	cfg := config.Default().Greeks
	cfg.Method = method
	e, err := NewEngine(kernel, cfg)
	require.NoError(t, err)
	return e
}

func TestNewEngine(t *testing.T) {
	cfg := config.Default().Greeks

	_, err := NewEngine(nil, cfg)
	assert.Error(t, err)

	merton, err := models.NewMertonJump(0.1, -0.05, 0.1, 30)
	require.NoError(t, err)
	cfg.Method = config.MethodAnalytic
	_, err = NewEngine(merton, cfg)
	assert.Error(t, err, "merton has no analytic greeks")

	cfg.Method = "adjoint"
	_, err = NewEngine(models.NewBlackScholesMerton(0.5), cfg)
	assert.Error(t, err)

	e := engine(t, merton, config.MethodAuto)
	assert.False(t, e.Analytic())
	assert.Equal(t, merton, e.Kernel())
	assert.True(t, engine(t, models.NewBlackScholesMerton(0.5), config.MethodAuto).Analytic())
	assert.False(t, engine(t, models.NewBlackScholesMerton(0.5), config.MethodFiniteDifference).Analytic())
}

func TestFiniteDifferenceMatchesAnalytic(t *testing.T) {
	bsm := models.NewBlackScholesMerton(0.5)
	analytic := engine(t, bsm, config.MethodAnalytic)
	bumped := engine(t, bsm, config.MethodFiniteDifference)

	testCases := []struct {
		name string
		c    models.OptionContract
		m    models.MarketState
	}{
		{"atm call", contract(models.Call, 100, 1, 0.2), market},
		{"otm put", contract(models.Put, 85, 0.5, 0.3), market},
		{"itm call with yield", contract(models.Call, 90, 2, 0.25), models.MarketState{Spot: 100, Rate: 0.03, Dividend: 0.02}},
		{"short dated", contract(models.Put, 102, 0.05, 0.4), market},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ra, ga, err := analytic.Evaluate(tc.c, tc.m)
			require.NoError(t, err)
			rb, gb, err := bumped.Evaluate(tc.c, tc.m)
			require.NoError(t, err)

			assert.InDelta(t, ra.Value, rb.Value, 1e-12)
			assert.InDelta(t, ga.Delta, gb.Delta, 1e-5)
			assert.InDelta(t, ga.Gamma, gb.Gamma, 1e-4)
			assert.InDelta(t, ga.Vega, gb.Vega, 1e-3)
			assert.InDelta(t, ga.Theta, gb.Theta, 1e-2)
			assert.InDelta(t, ga.Rho, gb.Rho, 1e-3)
		})
	}
}

func TestDeltaIncreasesWithSpot(t *testing.T) {
	e := engine(t, models.NewBlackScholesMerton(0.5), config.MethodAuto)
	c := contract(models.Call, 100, 0.5, 0.25)

	prev := -1.0
	for spot := 60.0; spot <= 160; spot += 5 {
		g, err := e.Greeks(c, models.MarketState{Spot: spot, Rate: 0.05})
		require.NoError(t, err)
		assert.Greater(t, g.Delta, prev, "spot %g", spot)
		assert.GreaterOrEqual(t, g.Delta, 0.0)
		assert.LessOrEqual(t, g.Delta, 1.0)
		assert.GreaterOrEqual(t, g.Gamma, 0.0)
		prev = g.Delta
	}
}

func TestExpiredContract(t *testing.T) {
	for _, method := range []string{config.MethodAnalytic, config.MethodFiniteDifference} {
		t.Run(method, func(t *testing.T) {
			e := engine(t, models.NewBlackScholesMerton(0.5), method)

			res, g, err := e.Evaluate(contract(models.Call, 100, 0, 0.2), market)
			require.NoError(t, err)
			assert.Equal(t, 0.0, res.Value)
			assert.Equal(t, models.Greeks{Delta: 0.5}, g)

			res, g, err = e.Evaluate(contract(models.Put, 110, 0, 0.2), market)
			require.NoError(t, err)
			assert.Equal(t, 10.0, res.Value)
			assert.Equal(t, models.Greeks{Delta: -1}, g)
		})
	}
}

func TestZeroVolatility(t *testing.T) {
	bsm := models.NewBlackScholesMerton(0.5)
	_, want, err := engine(t, bsm, config.MethodAnalytic).Evaluate(contract(models.Call, 90, 1, 0), market)
	require.NoError(t, err)
	_, got, err := engine(t, bsm, config.MethodFiniteDifference).Evaluate(contract(models.Call, 90, 1, 0), market)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// jump kernels stay stochastic without diffusion and are bumped
	merton, err := models.NewMertonJump(1, -0.1, 0.2, 40)
	require.NoError(t, err)
	res, g, err := engine(t, merton, config.MethodAuto).Evaluate(contract(models.Put, 100, 1, 0), market)
	require.NoError(t, err)
	assert.Greater(t, res.Value, 0.0)
	assert.Less(t, g.Delta, 0.0)
	assert.Greater(t, g.Gamma, 0.0)
}

func TestEvaluate_InvalidInput(t *testing.T) {
	e := engine(t, models.NewBlackScholesMerton(0.5), config.MethodAuto)

	_, _, err := e.Evaluate(contract(models.Call, -5, 1, 0.2), market)
	assert.True(t, errors.Is(err, models.ErrInvalidInput))

	_, err = e.Greeks(contract(models.Call, 100, 1, 0.2), models.MarketState{Spot: math.Inf(1)})
	assert.True(t, errors.Is(err, models.ErrInvalidInput))
}

func TestCheck(t *testing.T) {
	p := models.Params{Type: models.Call, Strike: 100, Expiry: 1, Volatility: 0.2}
	assert.NoError(t, Check(models.Greeks{Delta: 0.5}, p))
	assert.True(t, errors.Is(Check(models.Greeks{Vega: math.NaN()}, p), models.ErrNumericDegeneracy))
	assert.True(t, errors.Is(Check(models.Greeks{Gamma: math.Inf(-1)}, p), models.ErrNumericDegeneracy))
}

func TestBinomialGreeksThroughEngine(t *testing.T) {
	tree, err := models.NewBinomial(300, 0.5, config.Default().Greeks)
	require.NoError(t, err)
	e := engine(t, tree, config.MethodAuto)
	require.True(t, e.Analytic())

	c := contract(models.Put, 100, 1, 0.3)
	c.Style = models.American
	_, g, err := e.Evaluate(c, market)
	require.NoError(t, err)
	assert.Less(t, g.Delta, 0.0)
	assert.Greater(t, g.Delta, -1.0)
	assert.Greater(t, g.Vega, 0.0)
	assert.Less(t, g.Rho, 0.0)
}

func TestFiniteDifference_Lattice(t *testing.T) {
	tree, err := models.NewBinomial(500, 0.5, config.Default().Greeks)
	require.NoError(t, err)
	bumped := engine(t, tree, config.MethodFiniteDifference)

	put := contract(models.Put, 100, 1, 0.2)
	_, want, err := engine(t, models.NewBlackScholesMerton(0.5), config.MethodAnalytic).Evaluate(put, market)
	require.NoError(t, err)
	_, got, err := bumped.Evaluate(put, market)
	require.NoError(t, err)
	assert.InDelta(t, want.Delta, got.Delta, 5e-3)
	assert.InDelta(t, want.Gamma, got.Gamma, 1e-3)

	american := contract(models.Put, 90, 1, 0.2)
	american.Style = models.American
	_, lattice, err := engine(t, tree, config.MethodAnalytic).Evaluate(american, market)
	require.NoError(t, err)
	_, got, err = bumped.Evaluate(american, market)
	require.NoError(t, err)
	assert.InDelta(t, lattice.Delta, got.Delta, 5e-3)
	assert.InDelta(t, lattice.Gamma, got.Gamma, 1.5e-3)
}

func TestFiniteDifference_RouterUsesLatticeStep(t *testing.T) {
	cfg := config.Default()
	cfg.Model.TreeSteps = 500
	kernel, err := models.NewKernel(cfg)
	require.NoError(t, err)

	put := contract(models.Put, 100, 1, 0.2)
	put.Style = models.American
	_, lattice, err := engine(t, kernel, config.MethodAnalytic).Evaluate(put, market)
	require.NoError(t, err)
	_, got, err := engine(t, kernel, config.MethodFiniteDifference).Evaluate(put, market)
	require.NoError(t, err)
	assert.InDelta(t, lattice.Gamma, got.Gamma, 1.5e-3)
}

func TestFiniteDifference_MonteCarlo(t *testing.T) {
	mc, err := models.NewMonteCarlo(200000, 4, 42)
	require.NoError(t, err)
	e := engine(t, mc, config.MethodAuto)
	require.False(t, e.Analytic())

	call := contract(models.Call, 100, 1, 0.2)
	_, want, err := engine(t, models.NewBlackScholesMerton(0.5), config.MethodAnalytic).Evaluate(call, market)
	require.NoError(t, err)
	_, got, err := e.Evaluate(call, market)
	require.NoError(t, err)
	assert.InDelta(t, want.Delta, got.Delta, 0.01)
	assert.InEpsilon(t, want.Gamma, got.Gamma, 0.1)
}

func TestZeroVolatility_AmericanOnClosedForm(t *testing.T) {
	bsm := models.NewBlackScholesMerton(0.5)
	c := contract(models.Put, 110, 1, 0)
	c.Style = models.American

	_, want, err := engine(t, bsm, config.MethodAnalytic).Evaluate(c, market)
	require.NoError(t, err)
	res, got, err := engine(t, bsm, config.MethodFiniteDifference).Evaluate(c, market)
	require.NoError(t, err)
	assert.InDelta(t, 110*math.Exp(-0.05)-100, res.Value, 1e-12)
	assert.Equal(t, want, got)
}
