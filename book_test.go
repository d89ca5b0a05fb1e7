package main

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcdannyboy/optbook/models"
)

const bookJSON = `{
  "market": {
    "spot": 100,
    "rate": 0.05,
    "observed": {"short-put": 5.57},
    "dividend_curve": {"times": [0.5, 2], "values": [0.01, 0.02]},
    "surface": {"strikes": [90, 110], "times": [0.5, 1], "vols": [[0.25, 0.2], [0.24, 0.21]]}
  },
  "positions": [
    {"id": "long-call", "quantity": 3, "underlying": "XYZ", "type": "call", "strike": 100, "expiry": 1, "volatility": 0.2},
    {"id": "short-put", "quantity": -2, "type": "put", "style": "american", "strike": 95, "expiry": 0.5},
    {"quantity": 1, "type": "C", "strike": 120, "expiry": 2}
  ]
}`

func TestReadBook(t *testing.T) {
	book, m, err := readBook(strings.NewReader(bookJSON))
	require.NoError(t, err)
	require.Equal(t, 3, book.Len())

	call := book.At(0)
	assert.Equal(t, "long-call", call.ID)
	assert.Equal(t, 3.0, call.Quantity)
	assert.Equal(t, models.European, call.Contract.Style)
	require.True(t, call.Contract.HasVolatility())
	assert.Equal(t, 0.2, *call.Contract.Volatility)

	put := book.At(1)
	assert.Equal(t, models.Put, put.Contract.Type)
	assert.Equal(t, models.American, put.Contract.Style)
	assert.False(t, put.Contract.HasVolatility())

	assert.NotEmpty(t, book.At(2).ID)

	assert.Equal(t, 100.0, m.Spot)
	observed, ok := m.Observed("short-put")
	require.True(t, ok)
	assert.Equal(t, 5.57, observed)
	assert.InDelta(t, 0.015, m.DividendAt(1.25), 1e-12)
	assert.Equal(t, 0.05, m.RateAt(1))
	require.NotNil(t, m.Surface)
	assert.InDelta(t, 0.225, m.Surface.Volatility(100, 100, 0.75), 1e-12)
}

func TestReadBook_ParCurve(t *testing.T) {
	body := `{"market": {"spot": 100, "par_curve": {"times": [0.5, 5], "values": [0.05, 0.05]}}, "positions": []}`
	_, m, err := readBook(strings.NewReader(body))
	require.NoError(t, err)
	require.NotNil(t, m.RateCurve)
	assert.InDelta(t, 2*math.Log(1.025), m.RateAt(3), 1e-12)
}

func TestReadBook_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"not json", `{"market":`},
		{"bad type", `{"market": {"spot": 100}, "positions": [{"id": "a", "type": "spread", "strike": 1, "expiry": 1}]}`},
		{"bad style", `{"market": {"spot": 100}, "positions": [{"id": "a", "type": "call", "style": "asian", "strike": 1, "expiry": 1}]}`},
		{"duplicate id", `{"market": {"spot": 100}, "positions": [{"id": "a", "type": "call"}, {"id": "a", "type": "put"}]}`},
		{"bad curve", `{"market": {"spot": 100, "rate_curve": {"times": [1, 1], "values": [0.01, 0.02]}}}`},
		{"short par curve", `{"market": {"spot": 100, "par_curve": {"times": [0.25], "values": [0.05]}}}`},
		{"two rate curves", `{"market": {"spot": 100, "rate_curve": {"times": [1], "values": [0.05]}, "par_curve": {"times": [1], "values": [0.05]}}}`},
		{"ragged surface", `{"market": {"spot": 100, "surface": {"strikes": [90, 110], "times": [1], "vols": [[0.2]]}}}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := readBook(strings.NewReader(tc.body))
			assert.Error(t, err)
		})
	}
}
