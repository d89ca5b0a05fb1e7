package tradier

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcdannyboy/optbook/models"
)

const snapshotJSON = `{
  "underlying": "SPY",
  "spot": 470.5,
  "rate": 0.05,
  "dividend": 0.013,
  "as_of": "2024-01-02",
  "chains": {
    "2024-03-15": {
      "expiration_date": "2024-03-15",
      "options": {
        "option": [
          {"symbol": "SPY240315C00470000", "underlying": "SPY", "strike": 470, "bid": 12.1, "ask": 12.3,
           "option_type": "call", "expiration_date": "2024-03-15", "greeks": {"mid_iv": 0.14}},
          {"symbol": "SPY240315P00470000", "underlying": "SPY", "strike": 470, "bid": 0, "ask": 11.0,
           "option_type": "put", "expiration_date": "2024-03-15", "greeks": {"mid_iv": 0.15}}
        ]
      }
    },
    "2024-01-19": {
      "expiration_date": "2024-01-19",
      "options": {
        "option": [
          {"symbol": "SPY240119C00480000", "underlying": "SPY", "strike": 480, "bid": 1.0, "ask": 1.2,
           "option_type": "call", "greeks": {"mid_iv": 0.11}},
          {"symbol": "SPY240119X00480000", "underlying": "SPY", "strike": 480, "bid": 1.0, "ask": 1.2,
           "option_type": "straddle"}
        ]
      }
    },
    "2023-12-29": {
      "options": {
        "option": [
          {"symbol": "SPY231229C00470000", "strike": 470, "bid": 0.5, "ask": 0.6, "option_type": "call"}
        ]
      }
    }
  }
}`

func decode(t *testing.T) *Snapshot {
	t.Helper()
	s, err := DecodeSnapshot(strings.NewReader(snapshotJSON))
	require.NoError(t, err)
	return s
}

func TestDecodeSnapshot(t *testing.T) {
	s := decode(t)
	assert.Equal(t, "SPY", s.Underlying)
	assert.Equal(t, 470.5, s.Spot)
	require.Len(t, s.Chains, 3)
	assert.Len(t, s.Chains["2024-03-15"].Options.Option, 2)
	assert.Equal(t, 0.14, s.Chains["2024-03-15"].Options.Option[0].Greeks.MidIv)

	_, err := DecodeSnapshot(strings.NewReader("{not json"))
	assert.Error(t, err)
}

func TestSnapshot_Book(t *testing.T) {
	book, m, skipped, err := decode(t).Book(BookOptions{})
	require.NoError(t, err)

	// one expired option and one unknown type
	assert.Equal(t, 2, skipped)
	require.Equal(t, 3, book.Len())

	ids := make([]string, 0, book.Len())
	for _, p := range book.Positions() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"SPY240119C00480000", "SPY240315C00470000", "SPY240315P00470000"}, ids)

	first := book.At(0)
	assert.Equal(t, models.American, first.Contract.Style)
	assert.Equal(t, models.Call, first.Contract.Type)
	assert.InDelta(t, 17.0/365, first.Contract.Expiry, 1e-12)
	assert.False(t, first.Contract.HasVolatility())
	assert.Equal(t, 1.0, first.Quantity)

	assert.Equal(t, 470.5, m.Spot)
	assert.Equal(t, 0.013, m.Dividend)
	mid, ok := m.Observed("SPY240315C00470000")
	require.True(t, ok)
	assert.InDelta(t, 12.2, mid, 1e-12)
	_, ok = m.Observed("SPY240315P00470000")
	assert.False(t, ok, "one-sided quote has no mid")
}

func TestSnapshot_BookOverrides(t *testing.T) {
	rate := 0.04
	book, m, _, err := decode(t).Book(BookOptions{UseFeedIV: true, Spot: 480, Rate: &rate})
	require.NoError(t, err)
	assert.Equal(t, 480.0, m.Spot)
	assert.Equal(t, 0.04, m.Rate)

	pos, ok := book.Lookup("SPY240315P00470000")
	require.True(t, ok)
	require.True(t, pos.Contract.HasVolatility())
	assert.Equal(t, 0.15, *pos.Contract.Volatility)
}

func TestSnapshot_Style(t *testing.T) {
	s := decode(t)
	s.Style = "European"
	book, _, _, err := s.Book(BookOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.European, book.At(0).Contract.Style)

	s.Style = "bermudan"
	_, _, _, err = s.Book(BookOptions{})
	assert.Error(t, err)

	s.Style, s.AsOf = "", "01/02/2024"
	_, _, _, err = s.Book(BookOptions{})
	assert.Error(t, err)
}

func TestOption_Mid(t *testing.T) {
	testCases := []struct {
		name string
		bid  float64
		ask  float64
		mid  float64
		ok   bool
	}{
		{"two sided", 1.0, 1.2, 1.1, true},
		{"no bid", 0, 1.2, 0, false},
		{"no ask", 1.0, 0, 0, false},
		{"crossed", 1.3, 1.2, 0, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mid, ok := Option{Bid: tc.bid, Ask: tc.ask}.Mid()
			assert.Equal(t, tc.ok, ok)
			assert.InDelta(t, tc.mid, mid, 1e-12)
		})
	}
}

func TestYearFraction(t *testing.T) {
	from := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 1.0, YearFraction(from, from.AddDate(0, 0, 365)))
	assert.Equal(t, 0.0, YearFraction(from, from))
	assert.Less(t, YearFraction(from, from.AddDate(0, 0, -1)), 0.0)
}
