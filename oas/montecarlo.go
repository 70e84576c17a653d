package oas

import (
	"math"
	"math/rand"
)

// solveMonteCarlo values the embedded option by simulating Hull-White
// short-rate paths fitted to the spread-shifted curve. Exercise along a
// path happens the first time a call's intrinsic value (analytic HW
// continuation minus strike) goes positive, a lower-bound exercise rule.
func (p *Params) solveMonteCarlo(times, cfs []float64, calls []futureCall) (*Result, error) {
	vol := p.Vol
	if vol <= 0 {
		vol = p.Surface.Vol(calls[0].time, 1)
	}
	// The surface quotes lognormal price vol; scale to a normal short-rate
	// vol against the front-end curve level.
	rateVol := vol * math.Max(p.Curve.Rate(calls[0].time), 0.01)

	optionValue := func(spread float64) (float64, error) {
		return p.monteCarloOptionValue(times, cfs, calls, spread, rateVol)
	}

	oasValue, opt, approx, err := p.solveOAS(times, cfs, optionValue)
	if err != nil {
		return nil, err
	}
	return &Result{
		OAS:          oasValue,
		Model:        ModelHWMonteCarlo,
		Volatility:   vol,
		OptionValue:  opt,
		Paths:        p.Paths,
		Approximated: approx,
	}, nil
}

// hwModel precomputes everything path generation and the analytic bond
// price need for one spread trial.
type hwModel struct {
	a     float64 // mean reversion
	sigma float64 // normal short-rate vol
	dt    float64
	steps int
	// df[k] is the curve discount factor to step k under the shifted curve.
	df []float64
	// f[k] is the instantaneous forward at step k.
	f []float64
}

func (p *Params) newHWModel(horizon, spread, rateVol float64) hwModel {
	steps := p.Steps
	dt := horizon / float64(steps)
	m := hwModel{a: p.MeanReversion, sigma: rateVol, dt: dt, steps: steps}
	m.df = make([]float64, steps+1)
	m.f = make([]float64, steps+1)
	for k := 0; k <= steps; k++ {
		t := float64(k) * dt
		m.df[k] = math.Exp(-(p.Curve.Rate(t) + spread) * t)
	}
	// Instantaneous forwards by central difference on -ln DF.
	for k := 0; k <= steps; k++ {
		lo, hi := k-1, k+1
		if lo < 0 {
			lo = 0
		}
		if hi > steps {
			hi = steps
		}
		m.f[k] = (math.Log(m.df[lo]) - math.Log(m.df[hi])) / (float64(hi-lo) * dt)
	}
	return m
}

// alpha is the deterministic shift fitting the simulated rate to the curve:
// r(t) = x(t) + alpha(t) with x an OU process started at zero.
func (m hwModel) alpha(k int) float64 {
	t := float64(k) * m.dt
	b := (1 - math.Exp(-m.a*t))
	return m.f[k] + m.sigma*m.sigma/(2*m.a*m.a)*b*b
}

// zeroBond is the analytic Hull-White ZCB price P(t,T) given the short
// rate r at step k, fitted to the shifted initial curve.
func (m hwModel) zeroBond(k int, T float64, r float64) float64 {
	t := float64(k) * m.dt
	if T <= t {
		return 1
	}
	b := (1 - math.Exp(-m.a*(T-t))) / m.a
	pT := math.Exp(mInterpLogDF(m, T))
	pt := m.df[k]
	lnA := math.Log(pT/pt) + b*m.f[k] -
		m.sigma*m.sigma/(4*m.a)*(1-math.Exp(-2*m.a*t))*b*b
	return math.Exp(lnA - b*r)
}

// mInterpLogDF interpolates ln DF at an off-grid time.
func mInterpLogDF(m hwModel, t float64) float64 {
	x := t / m.dt
	k := int(x)
	if k >= m.steps {
		return math.Log(m.df[m.steps])
	}
	w := x - float64(k)
	return (1-w)*math.Log(m.df[k]) + w*math.Log(m.df[k+1])
}

func (p *Params) monteCarloOptionValue(times, cfs []float64, calls []futureCall, spread, rateVol float64) (float64, error) {
	horizon := times[len(times)-1]
	m := p.newHWModel(horizon, spread, rateVol)
	rng := rand.New(rand.NewSource(p.Seed))

	// Call exercise bucketed by step.
	type callStep struct {
		k      int
		strike float64
	}
	steps := make([]callStep, 0, len(calls))
	for _, c := range calls {
		k := int(math.Round(c.time / m.dt))
		if k <= 0 || k >= m.steps {
			continue
		}
		steps = append(steps, callStep{k: k, strike: c.strike})
	}
	if len(steps) == 0 {
		return 0, nil
	}

	decay := math.Exp(-m.a * m.dt)
	diff := m.sigma * math.Sqrt((1-decay*decay)/(2*m.a))

	total := 0.0
	for path := 0; path < p.Paths; path++ {
		x := 0.0
		integral := 0.0
		exercised := false
		stepIdx := 0
		for k := 1; k <= m.steps && !exercised; k++ {
			x = x*decay + diff*rng.NormFloat64()
			r := x + m.alpha(k)
			integral += r * m.dt

			for stepIdx < len(steps) && steps[stepIdx].k == k {
				// Continuation: analytic HW value of the remaining
				// cashflows given the realized short rate.
				continuation := 0.0
				t := float64(k) * m.dt
				for i, ct := range times {
					if ct <= t {
						continue
					}
					continuation += cfs[i] * m.zeroBond(k, ct, r)
				}
				if intrinsic := continuation - steps[stepIdx].strike; intrinsic > 0 {
					total += math.Exp(-integral) * intrinsic
					exercised = true
					break
				}
				stepIdx++
			}
		}
	}
	return total / float64(p.Paths), nil
}
