package oas

import (
	"fmt"
	"math"
)

// solveLattice values the multi-call embedded option on a recombining
// binomial short-rate lattice and roots for the OAS. The lattice baseline
// is the step forward rate off the spread-shifted curve, so the drift
// reprices the curve and the up/down factors carry the calibrated vol.
func (p *Params) solveLattice(times, cfs []float64, calls []futureCall) (*Result, error) {
	vol := p.Vol
	if vol <= 0 {
		vol = p.Surface.Vol(calls[0].time, 1)
	}

	optionValue := func(spread float64) (float64, error) {
		return p.latticeOptionValue(times, cfs, calls, spread, vol)
	}

	oasValue, opt, approx, err := p.solveOAS(times, cfs, optionValue)
	if err != nil {
		return nil, err
	}
	return &Result{
		OAS:          oasValue,
		Model:        ModelHWBinomial,
		Volatility:   vol,
		OptionValue:  opt,
		Steps:        p.Steps,
		Approximated: approx,
	}, nil
}

// latticeOptionValue runs the backward induction. Two value lattices roll
// back together: the straight bond continuation B and the option O. At
// every node on a call date, O = max(O_continuation, B - strike).
func (p *Params) latticeOptionValue(times, cfs []float64, calls []futureCall, spread, vol float64) (float64, error) {
	horizon := times[len(times)-1]
	n := p.Steps
	dt := horizon / float64(n)
	if dt <= 0 {
		return 0, fmt.Errorf("oas: lattice horizon must be positive")
	}

	shifted := func(t float64) float64 { return p.Curve.Rate(t) + spread }

	// Step forward rates (continuous) as the drift baseline.
	fwd := make([]float64, n)
	for i := 0; i < n; i++ {
		t1 := float64(i) * dt
		t2 := float64(i+1) * dt
		fwd[i] = (shifted(t2)*t2 - shifted(t1)*t1) / dt
	}

	// Cashflows and call strikes bucketed by step.
	cfAt := make([]float64, n+1)
	for i, t := range times {
		k := int(math.Round(t / dt))
		if k < 0 {
			k = 0
		}
		if k > n {
			k = n
		}
		cfAt[k] += cfs[i]
	}
	strikeAt := make(map[int]float64, len(calls))
	for _, c := range calls {
		k := int(math.Round(c.time / dt))
		if k <= 0 || k >= n {
			continue
		}
		// Two calls landing in one bucket keep the earlier (lower) strike.
		if existing, ok := strikeAt[k]; !ok || c.strike < existing {
			strikeAt[k] = c.strike
		}
	}

	sq := vol * math.Sqrt(dt)
	bondVals := make([]float64, n+1)
	optVals := make([]float64, n+1)

	// Backward induction with risk-neutral probability 1/2; the drift sits
	// in the forward-rate baseline.
	for i := n - 1; i >= 0; i-- {
		for j := 0; j <= i; j++ {
			r := fwd[i] * math.Exp(sq*(2*float64(j)-float64(i)))
			if fwd[i] <= 0 {
				// Lognormal nodes need a positive baseline; fall back to an
				// additive shift for negative-rate segments.
				r = fwd[i] + sq*(2*float64(j)-float64(i))
			}
			df := math.Exp(-r * dt)
			bondVals[j] = df * (0.5*(bondVals[j]+bondVals[j+1]) + cfAt[i+1])
			optVals[j] = df * 0.5 * (optVals[j] + optVals[j+1])
		}
		if strike, ok := strikeAt[i]; ok {
			for j := 0; j <= i; j++ {
				if intrinsic := bondVals[j] - strike; intrinsic > optVals[j] {
					optVals[j] = intrinsic
				}
			}
		}
	}
	return optVals[0], nil
}
