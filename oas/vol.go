package oas

import "math"

// VolPoint is one tenor band of the default volatility term structure.
type VolPoint struct {
	// MaxTenor is the band's upper bound in years.
	MaxTenor float64
	// Vol is the lognormal price volatility for options expiring in the band.
	Vol float64
}

// VolSurface supplies the calibrated volatility for an embedded call.
// Absent market quotes it degrades to a tenor-banded default with a smile
// adjustment by moneyness and an optional credit multiplier.
type VolSurface struct {
	// Bands must be ordered by MaxTenor; the last band covers everything
	// beyond it. Empty means DefaultVolBands.
	Bands []VolPoint
	// SmileStrength scales the moneyness smile; 0 disables it.
	SmileStrength float64
	// CreditMultiplier scales the whole surface, e.g. from a rating map.
	// Zero means 1.
	CreditMultiplier float64
}

// DefaultVolBands is the fallback term structure: shorter expiries carry
// lower vol, levelling off past ten years.
var DefaultVolBands = []VolPoint{
	{MaxTenor: 1, Vol: 0.08},
	{MaxTenor: 3, Vol: 0.10},
	{MaxTenor: 5, Vol: 0.12},
	{MaxTenor: 10, Vol: 0.14},
	{MaxTenor: math.Inf(1), Vol: 0.15},
}

// DefaultVolSurface is the surface used when the caller supplies none.
var DefaultVolSurface = &VolSurface{
	Bands:         DefaultVolBands,
	SmileStrength: 0.25,
}

// Vol returns the volatility for an option expiring at tenor years with
// the given moneyness (forward/strike). Deep in- or out-of-the-money
// strikes pick up the smile adjustment.
func (s *VolSurface) Vol(tenor, moneyness float64) float64 {
	bands := s.Bands
	if len(bands) == 0 {
		bands = DefaultVolBands
	}
	base := bands[len(bands)-1].Vol
	for _, b := range bands {
		if tenor <= b.MaxTenor {
			base = b.Vol
			break
		}
	}

	if s.SmileStrength != 0 && moneyness > 0 {
		// Symmetric smile in log-moneyness: at-the-money is the floor.
		k := math.Log(moneyness)
		base *= 1 + s.SmileStrength*k*k
	}

	if s.CreditMultiplier > 0 {
		base *= s.CreditMultiplier
	}
	return base
}
