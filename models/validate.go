package models

import (
	"fmt"
	"math"
)

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// ValidateMarket checks the parts of a snapshot shared by every contract.
func ValidateMarket(m MarketState) error {
	if !finite(m.Spot) || m.Spot <= 0 {
		return &InputError{Field: "spot", Value: m.Spot, Reason: "must be positive"}
	}
	if !finite(m.Rate) {
		return &InputError{Field: "rate", Value: m.Rate, Reason: "must be finite"}
	}
	if !finite(m.Dividend) {
		return &InputError{Field: "dividend yield", Value: m.Dividend, Reason: "must be finite"}
	}
	return nil
}

// ValidateContract checks the contract terms. The volatility is only
// checked when present.
func ValidateContract(c OptionContract) error {
	if c.Type != Call && c.Type != Put {
		return fmt.Errorf("%w: unknown option type %d", ErrInvalidInput, int(c.Type))
	}
	if c.Style != European && c.Style != American {
		return fmt.Errorf("%w: unknown exercise style %d", ErrInvalidInput, int(c.Style))
	}
	if !finite(c.Strike) || c.Strike <= 0 {
		return &InputError{Field: "strike", Value: c.Strike, Reason: "must be positive"}
	}
	if !finite(c.Expiry) || c.Expiry < 0 {
		return &InputError{Field: "time to expiry", Value: c.Expiry, Reason: "must be non-negative"}
	}
	if c.Volatility != nil {
		if err := ValidateVolatility(*c.Volatility); err != nil {
			return err
		}
	}
	return nil
}

// ValidateVolatility checks a volatility value.
func ValidateVolatility(v float64) error {
	if !finite(v) || v < 0 {
		return &InputError{Field: "volatility", Value: v, Reason: "must be non-negative"}
	}
	return nil
}

// Bind validates the contract and market and flattens them into Params
// using the contract's own volatility.
func Bind(c OptionContract, m MarketState) (Params, error) {
	if c.Volatility == nil {
		return Params{}, &InputError{Field: "volatility", Value: math.NaN(), Reason: "required"}
	}
	return BindWithVolatility(c, m, *c.Volatility)
}

// BindWithVolatility validates and flattens c and m, pricing with vol in
// place of whatever the contract carries.
func BindWithVolatility(c OptionContract, m MarketState, vol float64) (Params, error) {
	if err := ValidateMarket(m); err != nil {
		return Params{}, err
	}
	if err := ValidateContract(c); err != nil {
		return Params{}, err
	}
	if err := ValidateVolatility(vol); err != nil {
		return Params{}, err
	}
	p := Params{
		Type:       c.Type,
		Style:      c.Style,
		Spot:       m.Spot,
		Strike:     c.Strike,
		Expiry:     c.Expiry,
		Rate:       m.RateAt(c.Expiry),
		Dividend:   m.DividendAt(c.Expiry),
		Volatility: vol,
	}
	if !finite(p.Rate) {
		return Params{}, &InputError{Field: "rate", Value: p.Rate, Reason: "curve value must be finite"}
	}
	if !finite(p.Dividend) {
		return Params{}, &InputError{Field: "dividend yield", Value: p.Dividend, Reason: "curve value must be finite"}
	}
	return p, nil
}

// CheckValue turns a non-finite model output into ErrNumericDegeneracy.
func CheckValue(v float64, p Params) (float64, error) {
	if !finite(v) {
		return 0, fmt.Errorf("%w: value %g for %s K=%g T=%g sigma=%g",
			ErrNumericDegeneracy, v, p.Type, p.Strike, p.Expiry, p.Volatility)
	}
	return v, nil
}
