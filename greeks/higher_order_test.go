package greeks

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcdannyboy/optbook/config"
	"github.com/bcdannyboy/optbook/models"
)

func TestShadowGamma_WithoutVolMoveIsGamma(t *testing.T) {
	e := engine(t, models.NewBlackScholesMerton(0.5), config.MethodAuto)
	c := contract(models.Call, 100, 1, 0.2)

	g, err := e.Greeks(c, market)
	require.NoError(t, err)

	up, down, err := e.ShadowGamma(c, market, 0.001, 0)
	require.NoError(t, err)
	assert.InEpsilon(t, g.Gamma, up, 1e-2)
	assert.InEpsilon(t, g.Gamma, down, 1e-2)
}

func TestShadowGamma_SpotVolCoupling(t *testing.T) {
	e := engine(t, models.NewBlackScholesMerton(0.5), config.MethodAuto)
	c := contract(models.Call, 120, 1, 0.2)

	plain, _, err := e.ShadowGamma(c, market, 0.01, 0)
	require.NoError(t, err)
	coupled, _, err := e.ShadowGamma(c, market, 0.01, 0.05)
	require.NoError(t, err)
	// out of the money calls gain delta when volatility rises with spot
	assert.Greater(t, coupled, plain)
}

func TestVolga(t *testing.T) {
	e := engine(t, models.NewBlackScholesMerton(0.5), config.MethodAuto)
	c := contract(models.Call, 100, 1, 0.2)

	g, err := e.Greeks(c, market)
	require.NoError(t, err)
	d1, d2 := 0.35, 0.15
	want := g.Vega * d1 * d2 / 0.2

	got, err := e.Volga(c, market, 1e-4)
	require.NoError(t, err)
	assert.InEpsilon(t, want, got, 1e-3)

	_, err = e.Volga(contract(models.Call, 100, 1, math.NaN()), market, 1e-4)
	assert.Error(t, err)
}
