package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a contract or market parameter outside its domain.
	ErrInvalidInput = errors.New("invalid input")
	// ErrArbitrageViolation marks an observed price outside the no-arbitrage bounds.
	ErrArbitrageViolation = errors.New("arbitrage violation")
	// ErrSolverNonconvergence marks an implied volatility search that did not converge.
	ErrSolverNonconvergence = errors.New("solver did not converge")
	// ErrNumericDegeneracy marks a model result that is not a finite number.
	ErrNumericDegeneracy = errors.New("numeric degeneracy")
	// ErrMalformedPortfolio marks a portfolio that cannot be evaluated at all.
	ErrMalformedPortfolio = errors.New("malformed portfolio")
)

// InputError describes a parameter that violates its domain constraint.
type InputError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s %g: %s", e.Field, e.Value, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// ArbitrageError reports an observed price outside [Lower, Upper].
type ArbitrageError struct {
	Observed float64
	Lower    float64
	Upper    float64
}

func (e *ArbitrageError) Error() string {
	return fmt.Sprintf("observed price %g outside no-arbitrage bounds [%g, %g]", e.Observed, e.Lower, e.Upper)
}

func (e *ArbitrageError) Unwrap() error { return ErrArbitrageViolation }

// SolverError carries the best estimate reached by a failed search.
type SolverError struct {
	Estimate   float64
	Residual   float64
	Iterations int
	Reason     string
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("implied volatility %s after %d iterations (estimate %g, residual %g)",
		e.Reason, e.Iterations, e.Estimate, e.Residual)
}

func (e *SolverError) Unwrap() error { return ErrSolverNonconvergence }
