package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhhuango/json"

	"github.com/bcdannyboy/optbook/impliedvol"
	"github.com/bcdannyboy/optbook/models"
	"github.com/bcdannyboy/optbook/portfolio"
)

func result() *portfolio.Result {
	return &portfolio.Result{
		Rows: []portfolio.Row{
			{
				Index:      0,
				PositionID: "long-call",
				Quantity:   2,
				Volatility: 0.2,
				VolSource:  portfolio.VolImplied,
				ImpliedVol: &impliedvol.Result{Volatility: 0.2, Converged: true},
				Value:      10.450583572185565,
				Greeks:     models.Greeks{Delta: 0.6368, Gamma: 0.0188, Vega: 37.524, Theta: -6.414, Rho: 53.232},
				Priced:     true,
			},
			{
				Index:      1,
				PositionID: "broken",
				Quantity:   -1,
				Err:        errors.New("invalid strike -1: must be positive"),
			},
		},
		Totals: portfolio.Totals{
			Value:  20.90116714437113,
			Greeks: models.Greeks{Delta: 1.2736, Gamma: 0.0376, Vega: 75.048, Theta: -12.828, Rho: 106.464},
			Priced: 1,
			Failed: 1,
		},
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, result()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "position")
	assert.Contains(t, lines[1], "long-call")
	assert.Contains(t, lines[1], "10.4506")
	assert.Contains(t, lines[1], "0.2000")
	assert.Contains(t, lines[1], "implied")
	assert.Contains(t, lines[2], "broken")
	assert.Contains(t, lines[2], "must be positive")
	assert.Contains(t, lines[3], "TOTAL")
	assert.Contains(t, lines[3], "20.9012")
	assert.Contains(t, lines[3], "1 priced, 1 failed, 0 errored")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, result()))

	var out struct {
		Positions []struct {
			Position   string  `json:"position"`
			Value      *string `json:"value"`
			ImpliedVol *string `json:"implied_vol"`
			VolSource  string  `json:"vol_source"`
			Error      string  `json:"error"`
		} `json:"positions"`
		Totals struct {
			Value   string `json:"value"`
			Priced  int    `json:"priced"`
			Failed  int    `json:"failed"`
			Errored *int   `json:"errored"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	require.Len(t, out.Positions, 2)
	long := out.Positions[0]
	assert.Equal(t, "long-call", long.Position)
	require.NotNil(t, long.Value)
	assert.Equal(t, "10.4505835722", *long.Value)
	require.NotNil(t, long.ImpliedVol)
	assert.Equal(t, "0.2", *long.ImpliedVol)
	assert.Equal(t, "implied", long.VolSource)

	broken := out.Positions[1]
	assert.Nil(t, broken.Value)
	assert.Equal(t, "none", broken.VolSource)
	assert.Contains(t, broken.Error, "must be positive")

	assert.Equal(t, "20.9011671444", out.Totals.Value)
	assert.Equal(t, 1, out.Totals.Priced)
	assert.Equal(t, 1, out.Totals.Failed)
	require.NotNil(t, out.Totals.Errored)
	assert.Equal(t, 0, *out.Totals.Errored)
}
