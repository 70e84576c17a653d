package bond

import (
	"fmt"
	"math"

	"github.com/meenmo/bondlib/curve"
	"github.com/meenmo/bondlib/pricing"
)

// DurationSet bundles every risk measure computed for one
// (price, curve, schedule) triple. Immutable value object.
type DurationSet struct {
	Effective      float64
	Modified       float64
	Macaulay       float64
	Convexity      float64
	SpreadDuration float64
	DV01           float64
	// KeyRate maps tenor labels to key-rate durations in years.
	KeyRate map[string]float64
	// YTM is the flat yield backing Macaulay/modified, kept for reporting.
	YTM float64
	// ZSpread is the spread held constant through the curve bumps.
	ZSpread float64
}

// Bump sizes per the usual market practice: 1bp for first-order measures,
// a wider 10bp for convexity so the second difference stays numerically
// stable.
const (
	durationBump  = 1e-4
	convexityBump = 1e-3
)

// KeyRateTenor is one entry of the standard key-rate grid.
type KeyRateTenor struct {
	Label string
	Years float64
}

// StandardKeyRateTenors is the default KRD grid. Extend by passing a custom
// grid to DurationsWithTenors.
var StandardKeyRateTenors = []KeyRateTenor{
	{"1M", 1.0 / 12}, {"3M", 0.25}, {"6M", 0.5},
	{"1Y", 1}, {"2Y", 2}, {"3Y", 3}, {"5Y", 5}, {"7Y", 7},
	{"10Y", 10}, {"20Y", 20}, {"30Y", 30},
}

// Durations computes the full risk set by central-difference
// bump-and-reprice against the whole curve. The bond's z-spread is solved
// first and held constant through every bump so the base price reproduces
// the market price.
func Durations(dirtyPrice float64, times, cashflows []float64, zc *curve.ZeroCurve, comp pricing.Compounding) (DurationSet, error) {
	return DurationsWithTenors(dirtyPrice, times, cashflows, zc, comp, StandardKeyRateTenors)
}

// DurationsWithTenors is Durations with a caller-supplied key-rate grid.
func DurationsWithTenors(dirtyPrice float64, times, cashflows []float64, zc *curve.ZeroCurve, comp pricing.Compounding, tenors []KeyRateTenor) (DurationSet, error) {
	if dirtyPrice <= 0 {
		return DurationSet{}, fmt.Errorf("bond.Durations: price must be positive, got %g", dirtyPrice)
	}
	if len(times) == 0 {
		return DurationSet{}, fmt.Errorf("bond.Durations: %w: no future cashflows", ErrDegenerateSchedule)
	}
	if zc == nil {
		return DurationSet{}, fmt.Errorf("bond.Durations: curve is required")
	}

	zres, err := ZSpread(dirtyPrice, times, cashflows, zc, comp)
	if err != nil {
		return DurationSet{}, fmt.Errorf("bond.Durations: solving z-spread: %w", err)
	}
	zspread := zres.Root

	reprice := func(c *curve.ZeroCurve, spread float64) (float64, error) {
		return pricing.PresentValue(times, cashflows, c, spread, comp)
	}

	// Effective duration, 1bp parallel bump.
	pUp, err := reprice(zc.ParallelShift(durationBump), zspread)
	if err != nil {
		return DurationSet{}, err
	}
	pDown, err := reprice(zc.ParallelShift(-durationBump), zspread)
	if err != nil {
		return DurationSet{}, err
	}
	effective := (pDown - pUp) / (2 * dirtyPrice * durationBump)

	// Convexity, 10bp bump for second-difference stability.
	cUp, err := reprice(zc.ParallelShift(convexityBump), zspread)
	if err != nil {
		return DurationSet{}, err
	}
	cDown, err := reprice(zc.ParallelShift(-convexityBump), zspread)
	if err != nil {
		return DurationSet{}, err
	}
	convexity := (cUp + cDown - 2*dirtyPrice) / (dirtyPrice * convexityBump * convexityBump)

	// Spread duration: bump only the discounting spread, not the curve.
	sUp, err := reprice(zc, zspread+durationBump)
	if err != nil {
		return DurationSet{}, err
	}
	sDown, err := reprice(zc, zspread-durationBump)
	if err != nil {
		return DurationSet{}, err
	}
	spreadDuration := (sDown - sUp) / (2 * dirtyPrice * durationBump)

	// Macaulay and modified from the solved flat yield.
	yres, err := SolveYTM(dirtyPrice, times, cashflows, comp)
	if err != nil {
		return DurationSet{}, fmt.Errorf("bond.Durations: solving yield: %w", err)
	}
	ytm := yres.Root
	macaulay, err := macaulayDuration(ytm, times, cashflows, comp)
	if err != nil {
		return DurationSet{}, err
	}
	m, err := comp.PeriodsPerYear()
	if err != nil {
		return DurationSet{}, err
	}
	modified := macaulay
	if m > 0 {
		modified = macaulay / (1 + ytm/float64(m))
	}

	keyRate, err := keyRateDurations(dirtyPrice, times, cashflows, zc, zspread, comp, tenors)
	if err != nil {
		return DurationSet{}, err
	}

	return DurationSet{
		Effective:      effective,
		Modified:       modified,
		Macaulay:       macaulay,
		Convexity:      convexity,
		SpreadDuration: spreadDuration,
		DV01:           effective * dirtyPrice / 10_000,
		KeyRate:        keyRate,
		YTM:            ytm,
		ZSpread:        zspread,
	}, nil
}

// macaulayDuration is the cashflow-time weighted average of discounted
// cashflows at the flat yield.
func macaulayDuration(ytm float64, times, cashflows []float64, comp pricing.Compounding) (float64, error) {
	var weighted, total float64
	for i, t := range times {
		df, err := pricing.DiscountFactor(ytm, t, comp)
		if err != nil {
			return 0, err
		}
		pv := cashflows[i] * df
		weighted += t * pv
		total += pv
	}
	if total == 0 {
		return 0, fmt.Errorf("bond.Durations: zero present value")
	}
	return weighted / total, nil
}

// keyRateDurations bumps one tenor knot at a time by ±1bp, inserting the
// knot at the interpolated rate when the tenor is not already a pillar.
// On a flat curve the KRDs sum to the effective duration up to the
// interpolation residual.
func keyRateDurations(dirtyPrice float64, times, cashflows []float64, zc *curve.ZeroCurve, zspread float64, comp pricing.Compounding, tenors []KeyRateTenor) (map[string]float64, error) {
	out := make(map[string]float64, len(tenors))
	maxTime := times[len(times)-1]
	for _, tn := range tenors {
		base, idx, err := zc.WithKnot(tn.Years)
		if err != nil {
			return nil, err
		}
		up, err := base.BumpKnot(idx, durationBump)
		if err != nil {
			return nil, err
		}
		down, err := base.BumpKnot(idx, -durationBump)
		if err != nil {
			return nil, err
		}
		pUp, err := pricing.PresentValue(times, cashflows, up, zspread, comp)
		if err != nil {
			return nil, err
		}
		pDown, err := pricing.PresentValue(times, cashflows, down, zspread, comp)
		if err != nil {
			return nil, err
		}
		krd := (pDown - pUp) / (2 * dirtyPrice * durationBump)
		// Tenors far beyond the last cashflow contribute pure noise.
		if tn.Years > maxTime+1 && math.Abs(krd) < 1e-12 {
			krd = 0
		}
		out[tn.Label] = krd
	}
	return out, nil
}
