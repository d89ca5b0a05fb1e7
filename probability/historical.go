package probability

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/bcdannyboy/optbook/tradier"
)

const tradingDays = 252

// LogReturns are the daily close-to-close log returns of history.
func LogReturns(history tradier.QuoteHistory) []float64 {
	days := history.History.Day
	if len(days) < 2 {
		return nil
	}
	returns := make([]float64, len(days)-1)
	for i := 1; i < len(days); i++ {
		returns[i-1] = math.Log(days[i].Close / days[i-1].Close)
	}
	return returns
}

// CloseToClose is the annualised sample standard deviation of log returns.
func CloseToClose(history tradier.QuoteHistory) float64 {
	r := LogReturns(history)
	if len(r) < 2 {
		return 0
	}
	return stat.StdDev(r, nil) * math.Sqrt(tradingDays)
}

// GarmanKlass estimates annualised volatility from the open, high, low and
// close of the last days bars.
func GarmanKlass(history tradier.QuoteHistory, days int) float64 {
	bars := lastBars(history, days)
	if len(bars) == 0 {
		return 0
	}
	var sum float64
	for _, d := range bars {
		hl := math.Log(d.High / d.Low)
		co := math.Log(d.Close / d.Open)
		sum += 0.5*hl*hl - (2*math.Ln2-1)*co*co
	}
	return math.Sqrt(math.Max(sum, 0) / float64(len(bars)) * tradingDays)
}

// Parkinson estimates annualised volatility from the high-low range of the
// last days bars.
func Parkinson(history tradier.QuoteHistory, days int) float64 {
	bars := lastBars(history, days)
	if len(bars) == 0 {
		return 0
	}
	var sum float64
	for _, d := range bars {
		hl := math.Log(d.High / d.Low)
		sum += hl * hl
	}
	return math.Sqrt(sum / (4 * float64(len(bars)) * math.Ln2) * tradingDays)
}

// RogersSatchell estimates annualised volatility from the last days bars
// without assuming zero drift.
func RogersSatchell(history tradier.QuoteHistory, days int) float64 {
	bars := lastBars(history, days)
	if len(bars) == 0 {
		return 0
	}
	return math.Sqrt(math.Max(rogersSatchellVariance(bars), 0) * tradingDays)
}

func rogersSatchellVariance(bars []tradier.Day) float64 {
	var sum float64
	for _, d := range bars {
		sum += math.Log(d.High/d.Close)*math.Log(d.High/d.Open) +
			math.Log(d.Low/d.Close)*math.Log(d.Low/d.Open)
	}
	return sum / float64(len(bars))
}

// YangZhang combines overnight, open-to-close and Rogers-Satchell variance
// over the last days bars. It needs at least 2 bars.
func YangZhang(history tradier.QuoteHistory, days int) float64 {
	bars := lastBars(history, days)
	n := len(bars)
	if n < 2 {
		return 0
	}
	overnight := make([]float64, n-1)
	for i := 1; i < n; i++ {
		overnight[i-1] = math.Log(bars[i].Open / bars[i-1].Close)
	}
	openClose := make([]float64, n)
	for i, d := range bars {
		openClose[i] = math.Log(d.Close / d.Open)
	}

	var vo float64
	if len(overnight) > 1 {
		vo = stat.Variance(overnight, nil)
	}
	vc := stat.Variance(openClose, nil)
	k := 0.34 / (1.34 + float64(n+1)/float64(n-1))
	v := vo + k*vc + (1-k)*rogersSatchellVariance(bars)
	return math.Sqrt(math.Max(v, 0) * tradingDays)
}

// Estimator computes annualised volatility from the last days bars.
type Estimator func(history tradier.QuoteHistory, days int) float64

// Window is a named lookback in trading days.
type Window struct {
	Name string
	Days int
}

// StandardWindows are one week, one, three and six months.
var StandardWindows = []Window{
	{"1w", 5},
	{"1m", 21},
	{"3m", 63},
	{"6m", 126},
}

// Windows applies estimate to every window the history is long enough
// for. Windows with a zero estimate are left out.
func Windows(history tradier.QuoteHistory, estimate Estimator, windows []Window) map[string]float64 {
	out := make(map[string]float64, len(windows))
	for _, w := range windows {
		if len(history.History.Day) < w.Days {
			continue
		}
		if v := estimate(history, w.Days); v != 0 {
			out[w.Name] = v
		}
	}
	return out
}

func lastBars(history tradier.QuoteHistory, days int) []tradier.Day {
	all := history.History.Day
	if days <= 0 || days > len(all) {
		days = len(all)
	}
	return all[len(all)-days:]
}

// DynamicsFromHistory fits a driftless diffusion to history, using the
// Garman-Klass estimate over the whole window.
func DynamicsFromHistory(history tradier.QuoteHistory) (Dynamics, error) {
	if len(history.History.Day) < 2 {
		return Dynamics{}, fmt.Errorf("need at least 2 daily bars, got %d", len(history.History.Day))
	}
	for _, d := range history.History.Day {
		if !(d.Open > 0 && d.High > 0 && d.Low > 0 && d.Close > 0) {
			return Dynamics{}, fmt.Errorf("bar %s has non-positive prices", d.Date)
		}
	}
	return Dynamics{Volatility: GarmanKlass(history, 0)}, nil
}
