// Package pricing holds the discounting primitives every solver roots
// against: discount factors under the supported compounding conventions,
// curve-based present value with an additive spread, and forward rates.
package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/meenmo/bondlib/curve"
)

// Compounding enumerates the supported compounding conventions.
type Compounding string

const (
	Annual     Compounding = "ANNUAL"
	Semiannual Compounding = "SEMIANNUAL"
	Quarterly  Compounding = "QUARTERLY"
	Monthly    Compounding = "MONTHLY"
	Continuous Compounding = "CONTINUOUS"
)

// ErrInvalidInterval is returned when a forward interval is not strictly
// increasing.
var ErrInvalidInterval = errors.New("invalid interval")

// PeriodsPerYear returns the compounding frequency m, or 0 for Continuous.
func (c Compounding) PeriodsPerYear() (int, error) {
	switch c {
	case Annual:
		return 1, nil
	case Semiannual:
		return 2, nil
	case Quarterly:
		return 4, nil
	case Monthly:
		return 12, nil
	case Continuous:
		return 0, nil
	default:
		return 0, fmt.Errorf("pricing: unsupported compounding %q", c)
	}
}

// DiscountFactor computes the discount factor for rate over t years:
// (1+r/m)^(-mt) for discrete conventions, e^{-rt} for Continuous.
func DiscountFactor(rate, t float64, comp Compounding) (float64, error) {
	m, err := comp.PeriodsPerYear()
	if err != nil {
		return 0, err
	}
	if m == 0 {
		return math.Exp(-rate * t), nil
	}
	return math.Pow(1+rate/float64(m), -float64(m)*t), nil
}

// PresentValue discounts each cashflow at the curve rate for its time plus
// an additive spread. This is the single pricing primitive shared by the
// yield, spread, duration and OAS solvers.
func PresentValue(times, cashflows []float64, zc *curve.ZeroCurve, spread float64, comp Compounding) (float64, error) {
	if len(times) != len(cashflows) {
		return 0, fmt.Errorf("pricing.PresentValue: times and cashflows length mismatch (%d vs %d)", len(times), len(cashflows))
	}
	if zc == nil {
		return 0, fmt.Errorf("pricing.PresentValue: curve is required")
	}
	pv := 0.0
	for i, t := range times {
		df, err := DiscountFactor(zc.Rate(t)+spread, t, comp)
		if err != nil {
			return 0, err
		}
		pv += cashflows[i] * df
	}
	return pv, nil
}

// ForwardRate derives the forward rate over (t1, t2] from the ratio of
// discount factors under the requested compounding. Requires t2 > t1.
func ForwardRate(zc *curve.ZeroCurve, t1, t2 float64, comp Compounding) (float64, error) {
	if t2 <= t1 {
		return 0, fmt.Errorf("pricing.ForwardRate: %w: t2 (%g) must exceed t1 (%g)", ErrInvalidInterval, t2, t1)
	}
	if zc == nil {
		return 0, fmt.Errorf("pricing.ForwardRate: curve is required")
	}
	df1, err := DiscountFactor(zc.Rate(t1), t1, comp)
	if err != nil {
		return 0, err
	}
	df2, err := DiscountFactor(zc.Rate(t2), t2, comp)
	if err != nil {
		return 0, err
	}
	tau := t2 - t1
	m, _ := comp.PeriodsPerYear()
	if m == 0 {
		return math.Log(df1/df2) / tau, nil
	}
	mf := float64(m)
	return mf * (math.Pow(df1/df2, 1/(mf*tau)) - 1), nil
}

// ToContinuous converts a rate quoted under comp to its continuous
// equivalent. Used by G-spread to difference yields on a common basis.
func ToContinuous(rate float64, comp Compounding) (float64, error) {
	m, err := comp.PeriodsPerYear()
	if err != nil {
		return 0, err
	}
	if m == 0 {
		return rate, nil
	}
	return float64(m) * math.Log(1+rate/float64(m)), nil
}

// FromContinuous converts a continuously compounded rate back to comp.
func FromContinuous(rate float64, comp Compounding) (float64, error) {
	m, err := comp.PeriodsPerYear()
	if err != nil {
		return 0, err
	}
	if m == 0 {
		return rate, nil
	}
	return float64(m) * (math.Exp(rate/float64(m)) - 1), nil
}
