package models

// Batch is a struct-of-arrays view of many contracts priced under one
// market snapshot. Input columns are filled with Set; output columns are
// written by a BatchKernel.
type Batch struct {
	Type       []OptionType
	Style      []ExerciseStyle
	Spot       []float64
	Strike     []float64
	Expiry     []float64
	Rate       []float64
	Dividend   []float64
	Volatility []float64

	Value []float64
	Delta []float64
	Gamma []float64
	Vega  []float64
	Theta []float64
	Rho   []float64
}

func NewBatch(n int) *Batch {
	return &Batch{
		Type:       make([]OptionType, n),
		Style:      make([]ExerciseStyle, n),
		Spot:       make([]float64, n),
		Strike:     make([]float64, n),
		Expiry:     make([]float64, n),
		Rate:       make([]float64, n),
		Dividend:   make([]float64, n),
		Volatility: make([]float64, n),
		Value:      make([]float64, n),
		Delta:      make([]float64, n),
		Gamma:      make([]float64, n),
		Vega:       make([]float64, n),
		Theta:      make([]float64, n),
		Rho:        make([]float64, n),
	}
}

func (b *Batch) Len() int { return len(b.Strike) }

// Set stores p in lane i.
func (b *Batch) Set(i int, p Params) {
	b.Type[i] = p.Type
	b.Style[i] = p.Style
	b.Spot[i] = p.Spot
	b.Strike[i] = p.Strike
	b.Expiry[i] = p.Expiry
	b.Rate[i] = p.Rate
	b.Dividend[i] = p.Dividend
	b.Volatility[i] = p.Volatility
}

// Params reads lane i back as Params.
func (b *Batch) Params(i int) Params {
	return Params{
		Type:       b.Type[i],
		Style:      b.Style[i],
		Spot:       b.Spot[i],
		Strike:     b.Strike[i],
		Expiry:     b.Expiry[i],
		Rate:       b.Rate[i],
		Dividend:   b.Dividend[i],
		Volatility: b.Volatility[i],
	}
}

// Greeks reads the output Greeks of lane i.
func (b *Batch) Greeks(i int) Greeks {
	return Greeks{
		Delta: b.Delta[i],
		Gamma: b.Gamma[i],
		Vega:  b.Vega[i],
		Theta: b.Theta[i],
		Rho:   b.Rho[i],
	}
}

func (b *Batch) store(i int, value float64, g Greeks) {
	b.Value[i] = value
	b.Delta[i] = g.Delta
	b.Gamma[i] = g.Gamma
	b.Vega[i] = g.Vega
	b.Theta[i] = g.Theta
	b.Rho[i] = g.Rho
}

// Slice returns lanes [lo, hi) sharing storage with b, so kernels working
// on disjoint slices can run concurrently.
func (b *Batch) Slice(lo, hi int) *Batch {
	return &Batch{
		Type:       b.Type[lo:hi],
		Style:      b.Style[lo:hi],
		Spot:       b.Spot[lo:hi],
		Strike:     b.Strike[lo:hi],
		Expiry:     b.Expiry[lo:hi],
		Rate:       b.Rate[lo:hi],
		Dividend:   b.Dividend[lo:hi],
		Volatility: b.Volatility[lo:hi],
		Value:      b.Value[lo:hi],
		Delta:      b.Delta[lo:hi],
		Gamma:      b.Gamma[lo:hi],
		Vega:       b.Vega[lo:hi],
		Theta:      b.Theta[lo:hi],
		Rho:        b.Rho[lo:hi],
	}
}
