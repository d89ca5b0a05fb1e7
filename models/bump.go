package models

import "math"

// BumpSize scales a finite-difference step with the magnitude of the bumped
// parameter, never going below rel*floor.
func BumpSize(x, rel, floor float64) float64 {
	return rel * math.Max(math.Abs(x), floor)
}

// CentralOrForward estimates f'(x) with a symmetric difference, switching to
// a forward difference when x-h would cross lower.
func CentralOrForward(f func(float64) float64, x, h, lower float64) float64 {
	if x-h < lower {
		return (f(x+h) - f(x)) / h
	}
	return (f(x+h) - f(x-h)) / (2 * h)
}

// SecondCentral estimates f''(x) from f(x-h), f(x), f(x+h).
func SecondCentral(f func(float64) float64, x, h float64) float64 {
	return (f(x+h) - 2*f(x) + f(x-h)) / (h * h)
}
