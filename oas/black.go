package oas

import (
	"math"

	"github.com/meenmo/bondlib/pricing"
)

// solveBlack prices the single embedded call as a European option on the
// forward price of the post-call cashflows, then roots for the OAS.
func (p *Params) solveBlack(times, cfs []float64, calls []futureCall) (*Result, error) {
	call := calls[0]

	var lastVol float64
	optionValue := func(spread float64) (float64, error) {
		opt, vol, err := p.blackOptionValue(times, cfs, call, spread)
		if err != nil {
			return 0, err
		}
		lastVol = vol
		return opt, nil
	}

	oasValue, opt, approx, err := p.solveOAS(times, cfs, optionValue)
	if err != nil {
		return nil, err
	}
	return &Result{
		OAS:          oasValue,
		Model:        ModelBlack,
		Volatility:   lastVol,
		OptionValue:  opt,
		Approximated: approx,
	}, nil
}

// blackOptionValue computes the call value under the spread-shifted curve.
// Returns (value, vol used).
func (p *Params) blackOptionValue(times, cfs []float64, call futureCall, spread float64) (float64, float64, error) {
	dfCall, err := pricing.DiscountFactor(p.Curve.Rate(call.time)+spread, call.time, p.Compounding)
	if err != nil {
		return 0, 0, err
	}

	// Forward price of the cashflows beyond the call date, discounted to
	// the call date under the shifted curve.
	pvBeyond := 0.0
	for i, t := range times {
		if t <= call.time {
			continue
		}
		df, err := pricing.DiscountFactor(p.Curve.Rate(t)+spread, t, p.Compounding)
		if err != nil {
			return 0, 0, err
		}
		pvBeyond += cfs[i] * df
	}
	if pvBeyond <= 0 || call.strike <= 0 {
		return 0, 0, nil
	}
	forward := pvBeyond / dfCall

	vol := p.Vol
	if vol <= 0 {
		vol = p.Surface.Vol(call.time, forward/call.strike)
	}

	return dfCall * blackCall(forward, call.strike, vol, call.time), vol, nil
}

// blackCall is the undiscounted Black-76 call value.
func blackCall(forward, strike, vol, expiry float64) float64 {
	if expiry <= 0 {
		return math.Max(forward-strike, 0)
	}
	sd := vol * math.Sqrt(expiry)
	if sd < 1e-10 {
		return math.Max(forward-strike, 0)
	}
	d1 := (math.Log(forward/strike) + 0.5*sd*sd) / sd
	d2 := d1 - sd
	return forward*normCDF(d1) - strike*normCDF(d2)
}

func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}
