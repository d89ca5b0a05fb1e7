package models

import "math"

// ExerciseRouter sends European contracts to the closed form and American
// contracts to the lattice.
type ExerciseRouter struct {
	European *BlackScholesMerton
	American *Binomial
}

func NewExerciseRouter(european *BlackScholesMerton, american *Binomial) *ExerciseRouter {
	return &ExerciseRouter{European: european, American: american}
}

func (r *ExerciseRouter) Name() string { return "exercise-router" }

func (r *ExerciseRouter) Price(p Params) float64 {
	if p.Style == American {
		return r.American.Price(p)
	}
	return r.European.Price(p)
}

func (r *ExerciseRouter) Evaluate(p Params) (PricingResult, Greeks) {
	if p.Style == American {
		return r.American.Evaluate(p)
	}
	return r.European.Evaluate(p)
}

// SpotBump is the lattice node spacing for American contracts and zero for
// the closed form.
func (r *ExerciseRouter) SpotBump(p Params) float64 {
	if p.Style == American {
		return r.American.SpotBump(p)
	}
	return 0
}

// PriceVega returns a NaN vega for American contracts, which have no
// closed-form volatility derivative.
func (r *ExerciseRouter) PriceVega(p Params) (float64, float64) {
	if p.Style == American {
		return r.American.Price(p), math.NaN()
	}
	return r.European.PriceVega(p)
}

// EvaluateBatch runs the closed form over every lane, then reprices the
// American lanes on the lattice.
func (r *ExerciseRouter) EvaluateBatch(b *Batch) {
	r.European.EvaluateBatch(b)
	for i := 0; i < b.Len(); i++ {
		if b.Style[i] != American {
			continue
		}
		res, g := r.American.Evaluate(b.Params(i))
		b.store(i, res.Value, g)
	}
}
