package probability

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcdannyboy/optbook/tradier"
)

func history(bars ...tradier.Day) tradier.QuoteHistory {
	var h tradier.QuoteHistory
	h.History.Day = bars
	return h
}

func bar(i int, open, high, low, last float64) tradier.Day {
	return tradier.Day{
		Date:  fmt.Sprintf("2024-01-%02d", i+1),
		Open:  open,
		High:  high,
		Low:   low,
		Close: last,
	}
}

func TestLogReturns(t *testing.T) {
	h := history(bar(0, 100, 101, 99, 100), bar(1, 100, 111, 99, 110), bar(2, 110, 111, 98, 99))
	r := LogReturns(h)
	require.Len(t, r, 2)
	assert.InDelta(t, math.Log(1.1), r[0], 1e-12)
	assert.InDelta(t, math.Log(0.9), r[1], 1e-12)

	assert.Nil(t, LogReturns(history(bar(0, 100, 101, 99, 100))))
}

func TestCloseToClose(t *testing.T) {
	flat := history(bar(0, 100, 101, 99, 100), bar(1, 100, 101, 99, 100), bar(2, 100, 101, 99, 100))
	assert.Equal(t, 0.0, CloseToClose(flat))

	var days []tradier.Day
	closes := []float64{100, 102, 99, 101, 98, 103}
	for i, c := range closes {
		days = append(days, bar(i, c, c+1, c-1, c))
	}
	vol := CloseToClose(history(days...))
	assert.Greater(t, vol, 0.3)
	assert.Less(t, vol, 0.7)
}

func TestRangeEstimators(t *testing.T) {
	var days []tradier.Day
	for i := 0; i < 10; i++ {
		days = append(days, bar(i, 100, 101, 99, 100))
	}
	h := history(append([]tradier.Day(nil), days...)...)
	hl := math.Log(101.0 / 99.0)

	assert.InDelta(t, math.Sqrt(hl*hl/(4*math.Ln2)*252), Parkinson(h, 0), 1e-12)
	assert.InDelta(t, math.Sqrt(0.5*hl*hl*252), GarmanKlass(h, 0), 1e-12)
	assert.InDelta(t, Parkinson(h, 0), Parkinson(h, 3), 1e-12)

	// only the most recent bars are used
	days[0] = bar(0, 100, 130, 80, 100)
	assert.InDelta(t, Parkinson(h, 0), Parkinson(history(days...), 5), 1e-12)
	assert.Greater(t, Parkinson(history(days...), 0), Parkinson(h, 0))

	assert.Equal(t, 0.0, GarmanKlass(history(), 5))
	assert.Equal(t, 0.0, Parkinson(history(), 5))
}

func TestDynamicsFromHistory(t *testing.T) {
	_, err := DynamicsFromHistory(history(bar(0, 100, 101, 99, 100)))
	assert.Error(t, err)

	_, err = DynamicsFromHistory(history(bar(0, 100, 101, 99, 100), bar(1, 100, 101, 0, 100)))
	assert.Error(t, err)

	h := history(bar(0, 100, 101, 99, 100), bar(1, 100, 102, 98, 101))
	d, err := DynamicsFromHistory(h)
	require.NoError(t, err)
	assert.Equal(t, GarmanKlass(h, 0), d.Volatility)
	assert.Equal(t, 0.0, d.Drift)
}

func TestRogersSatchellAndYangZhang(t *testing.T) {
	var days []tradier.Day
	for i := 0; i < 10; i++ {
		days = append(days, bar(i, 100, 101, 99, 100))
	}
	h := history(days...)
	up, down := math.Log(1.01), math.Log(0.99)
	rs := up*up + down*down

	assert.InDelta(t, math.Sqrt(rs*252), RogersSatchell(h, 0), 1e-12)

	// no overnight gaps and no open-to-close moves leave only the range term
	k := 0.34 / (1.34 + 11.0/9.0)
	assert.InDelta(t, math.Sqrt((1-k)*rs*252), YangZhang(h, 0), 1e-12)

	assert.Equal(t, 0.0, YangZhang(history(bar(0, 100, 101, 99, 100)), 0))
	assert.Equal(t, 0.0, RogersSatchell(history(), 0))
}

func TestYangZhang_OvernightGaps(t *testing.T) {
	smooth := history(bar(0, 100, 101, 99, 100), bar(1, 100, 101, 99, 100), bar(2, 100, 101, 99, 100), bar(3, 100, 101, 99, 100))
	gappy := history(bar(0, 100, 101, 99, 100), bar(1, 104, 105, 103, 104), bar(2, 99, 100, 98, 99), bar(3, 103, 104, 102, 103))
	assert.Greater(t, YangZhang(gappy, 0), YangZhang(smooth, 0))
}

func TestWindows(t *testing.T) {
	var days []tradier.Day
	for i := 0; i < 30; i++ {
		days = append(days, bar(i, 100, 101, 99, 100))
	}
	got := Windows(history(days...), Parkinson, StandardWindows)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "1w")
	assert.Contains(t, got, "1m")
	assert.NotContains(t, got, "3m")

	flat := make([]tradier.Day, 30)
	for i := range flat {
		flat[i] = bar(i, 100, 100, 100, 100)
	}
	assert.Empty(t, Windows(history(flat...), GarmanKlass, StandardWindows))
}
