// Package curve provides the zero curve used for discounting and forward
// projection. Curves are immutable after construction; bumping produces a
// fresh curve so concurrent pricers can share one instance freely.
package curve

import (
	"fmt"
	"math"
	"sort"
)

// Interpolation selects how zero rates between knots are computed.
type Interpolation string

const (
	Linear Interpolation = "LINEAR"
	// MonotoneCubic is a shape-preserving cubic Hermite (Hyman/PCHIP
	// filtered tangents, zero tangent at local extrema).
	MonotoneCubic Interpolation = "MONOTONE_CUBIC"
)

// ZeroCurve is an ordered, strictly increasing sequence of
// (timeYears, zeroRate) knots. Rates are decimals (0.05 == 5%).
type ZeroCurve struct {
	times    []float64
	rates    []float64
	interp   Interpolation
	tangents []float64 // Hermite tangents; nil for Linear
}

// New constructs a curve from knot times (years) and zero rates (decimals).
// Times must be strictly increasing and non-negative.
func New(times, rates []float64, interp Interpolation) (*ZeroCurve, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("curve.New: at least one knot is required")
	}
	if len(times) != len(rates) {
		return nil, fmt.Errorf("curve.New: times and rates length mismatch (%d vs %d)", len(times), len(rates))
	}
	for i := range times {
		if times[i] < 0 {
			return nil, fmt.Errorf("curve.New: negative knot time %g", times[i])
		}
		if i > 0 && times[i] <= times[i-1] {
			return nil, fmt.Errorf("curve.New: knot times must be strictly increasing (%g after %g)", times[i], times[i-1])
		}
	}
	switch interp {
	case Linear, MonotoneCubic:
	default:
		return nil, fmt.Errorf("curve.New: unsupported interpolation %q", interp)
	}

	c := &ZeroCurve{
		times:  append([]float64(nil), times...),
		rates:  append([]float64(nil), rates...),
		interp: interp,
	}
	if interp == MonotoneCubic && len(times) >= 2 {
		c.tangents = pchipTangents(c.times, c.rates)
	}
	return c, nil
}

// Interpolation returns the configured interpolation mode.
func (c *ZeroCurve) Interpolation() Interpolation {
	return c.interp
}

// Len returns the number of knots.
func (c *ZeroCurve) Len() int {
	return len(c.times)
}

// Times returns a copy of the knot times.
func (c *ZeroCurve) Times() []float64 {
	return append([]float64(nil), c.times...)
}

// Rates returns a copy of the knot rates.
func (c *ZeroCurve) Rates() []float64 {
	return append([]float64(nil), c.rates...)
}

// Rate interpolates the zero rate at time t (years). Outside the knot range
// the nearest endpoint is returned (flat extrapolation); every solver in
// this module relies on that contract.
func (c *ZeroCurve) Rate(t float64) float64 {
	n := len(c.times)
	if t <= c.times[0] {
		return c.rates[0]
	}
	if t >= c.times[n-1] {
		return c.rates[n-1]
	}
	// First index with times[i] >= t.
	i := sort.SearchFloat64s(c.times, t)
	if c.times[i] == t {
		return c.rates[i]
	}
	lo, hi := i-1, i
	if c.interp == MonotoneCubic && c.tangents != nil {
		return hermite(t, c.times[lo], c.times[hi], c.rates[lo], c.rates[hi], c.tangents[lo], c.tangents[hi])
	}
	w := (t - c.times[lo]) / (c.times[hi] - c.times[lo])
	return c.rates[lo] + w*(c.rates[hi]-c.rates[lo])
}

// ParallelShift returns a new curve with every knot rate shifted by delta.
func (c *ZeroCurve) ParallelShift(delta float64) *ZeroCurve {
	rates := make([]float64, len(c.rates))
	for i, r := range c.rates {
		rates[i] = r + delta
	}
	out, _ := New(c.times, rates, c.interp)
	return out
}

// BumpKnot returns a new curve with the rate at knot index i shifted by delta.
func (c *ZeroCurve) BumpKnot(i int, delta float64) (*ZeroCurve, error) {
	if i < 0 || i >= len(c.times) {
		return nil, fmt.Errorf("curve.BumpKnot: knot index %d out of range [0,%d)", i, len(c.times))
	}
	rates := append([]float64(nil), c.rates...)
	rates[i] += delta
	return New(c.times, rates, c.interp)
}

// KnotIndex returns the index of the knot at time t, if present.
func (c *ZeroCurve) KnotIndex(t float64) (int, bool) {
	i := sort.SearchFloat64s(c.times, t)
	if i < len(c.times) && c.times[i] == t {
		return i, true
	}
	return 0, false
}

// WithKnot returns a curve guaranteed to carry a knot at time t, inserting
// one at the interpolated rate when absent, along with the knot's index.
// Used by key-rate bumping when a standard tenor is not a curve pillar.
func (c *ZeroCurve) WithKnot(t float64) (*ZeroCurve, int, error) {
	if t < 0 {
		return nil, 0, fmt.Errorf("curve.WithKnot: negative time %g", t)
	}
	if i, ok := c.KnotIndex(t); ok {
		return c, i, nil
	}
	i := sort.SearchFloat64s(c.times, t)
	times := make([]float64, 0, len(c.times)+1)
	rates := make([]float64, 0, len(c.rates)+1)
	times = append(times, c.times[:i]...)
	times = append(times, t)
	times = append(times, c.times[i:]...)
	rates = append(rates, c.rates[:i]...)
	rates = append(rates, c.Rate(t))
	rates = append(rates, c.rates[i:]...)
	out, err := New(times, rates, c.interp)
	if err != nil {
		return nil, 0, err
	}
	return out, i, nil
}

// hermite evaluates the cubic Hermite segment on [x0, x1].
func hermite(x, x0, x1, y0, y1, m0, m1 float64) float64 {
	h := x1 - x0
	s := (x - x0) / h
	s2 := s * s
	s3 := s2 * s
	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2
	return h00*y0 + h10*h*m0 + h01*y1 + h11*h*m1
}

// pchipTangents builds shape-preserving Hermite tangents (Fritsch-Carlson).
// Tangents are zeroed at local extrema so the interpolant never overshoots
// the data, which keeps bumped curves from manufacturing arbitrage.
func pchipTangents(xs, ys []float64) []float64 {
	n := len(xs)
	m := make([]float64, n)
	if n == 2 {
		d := (ys[1] - ys[0]) / (xs[1] - xs[0])
		m[0], m[1] = d, d
		return m
	}

	h := make([]float64, n-1) // interval widths
	d := make([]float64, n-1) // secant slopes
	for i := 0; i < n-1; i++ {
		h[i] = xs[i+1] - xs[i]
		d[i] = (ys[i+1] - ys[i]) / h[i]
	}

	// Interior tangents: weighted harmonic mean when the secants agree in
	// sign, zero at local extrema.
	for i := 1; i < n-1; i++ {
		if d[i-1]*d[i] <= 0 {
			m[i] = 0
			continue
		}
		w1 := 2*h[i] + h[i-1]
		w2 := h[i] + 2*h[i-1]
		m[i] = (w1 + w2) / (w1/d[i-1] + w2/d[i])
	}

	m[0] = endpointTangent(h[0], h[1], d[0], d[1])
	m[n-1] = endpointTangent(h[n-2], h[n-3], d[n-2], d[n-3])
	return m
}

// endpointTangent uses the non-centered three-point estimate with the
// standard monotonicity clamps.
func endpointTangent(h0, h1, d0, d1 float64) float64 {
	t := ((2*h0+h1)*d0 - h0*d1) / (h0 + h1)
	if t*d0 <= 0 {
		return 0
	}
	if d0*d1 < 0 && math.Abs(t) > 3*math.Abs(d0) {
		return 3 * d0
	}
	return t
}
