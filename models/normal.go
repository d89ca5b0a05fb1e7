package models

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

var invSqrt2Pi = 1 / math.Sqrt(2*math.Pi)

// normCDF is the standard normal CDF. distuv evaluates it through erfc, which
// keeps full relative precision in the lower tail.
func normCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// normPDF is the standard normal density.
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) * invSqrt2Pi
}
