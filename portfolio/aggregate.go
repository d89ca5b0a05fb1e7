package portfolio

import (
	"gonum.org/v1/gonum/floats"

	"github.com/bcdannyboy/optbook/models"
)

// Totals are the quantity-weighted sums over priced rows.
type Totals struct {
	Value  float64
	Greeks models.Greeks

	Priced  int
	Failed  int // rows that could not be priced
	Errored int // priced rows that still carry an error
}

// aggregate sums rows in portfolio order, so the totals do not depend on
// how the rows were scheduled.
func aggregate(rows []Row) Totals {
	n := len(rows)
	qty := make([]float64, n)
	value := make([]float64, n)
	delta := make([]float64, n)
	gamma := make([]float64, n)
	vega := make([]float64, n)
	theta := make([]float64, n)
	rho := make([]float64, n)

	var t Totals
	for i, r := range rows {
		if !r.Priced {
			t.Failed++
			continue
		}
		t.Priced++
		if r.Err != nil {
			t.Errored++
		}
		qty[i] = r.Quantity
		value[i] = r.Value
		delta[i] = r.Greeks.Delta
		gamma[i] = r.Greeks.Gamma
		vega[i] = r.Greeks.Vega
		theta[i] = r.Greeks.Theta
		rho[i] = r.Greeks.Rho
	}

	t.Value = floats.Dot(qty, value)
	t.Greeks = models.Greeks{
		Delta: floats.Dot(qty, delta),
		Gamma: floats.Dot(qty, gamma),
		Vega:  floats.Dot(qty, vega),
		Theta: floats.Dot(qty, theta),
		Rho:   floats.Dot(qty, rho),
	}
	return t
}
