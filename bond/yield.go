// Package bond implements the yield and spread solvers plus the duration,
// convexity and key-rate risk engine. Everything here prices off immutable
// inputs and is safe to run from parallel workers.
package bond

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/meenmo/bondlib/curve"
	"github.com/meenmo/bondlib/daycount"
	"github.com/meenmo/bondlib/pricing"
	"github.com/meenmo/bondlib/schedule"
	"github.com/meenmo/bondlib/solver"
)

// ErrDegenerateSchedule is returned when a solver is handed a schedule it
// cannot price, e.g. discount margin with no floating legs.
var ErrDegenerateSchedule = errors.New("degenerate schedule")

// Default solver brackets. Callers with unusual instruments can widen them
// through the *InBracket variants.
const (
	yieldBracketLo  = -0.50
	yieldBracketHi  = 2.00
	spreadBracketLo = -0.10
	spreadBracketHi = 0.50
)

// SolveYTM solves for the flat yield equating the discounted cashflows to
// price. Fails with solver.ErrNonConvergence when no root exists in the
// default bracket (yield in [-50%, 200%]).
func SolveYTM(price float64, times, cashflows []float64, comp pricing.Compounding) (solver.Result, error) {
	return SolveYTMInBracket(price, times, cashflows, comp, yieldBracketLo, yieldBracketHi)
}

// SolveYTMInBracket is SolveYTM with a caller-supplied bracket.
func SolveYTMInBracket(price float64, times, cashflows []float64, comp pricing.Compounding, lo, hi float64) (solver.Result, error) {
	if price <= 0 {
		return solver.Result{}, fmt.Errorf("bond.SolveYTM: price must be positive, got %g", price)
	}
	if len(times) == 0 {
		return solver.Result{}, fmt.Errorf("bond.SolveYTM: %w: no future cashflows", ErrDegenerateSchedule)
	}
	f := func(y float64) float64 {
		pv, err := priceAtYield(y, times, cashflows, comp)
		if err != nil {
			return math.NaN()
		}
		return pv - price
	}
	return solver.Solve(f, lo, hi, solver.DefaultTolerance, solver.DefaultMaxIter)
}

// priceAtYield discounts all cashflows at a single flat yield.
func priceAtYield(y float64, times, cashflows []float64, comp pricing.Compounding) (float64, error) {
	pv := 0.0
	for i, t := range times {
		df, err := pricing.DiscountFactor(y, t, comp)
		if err != nil {
			return 0, err
		}
		pv += cashflows[i] * df
	}
	return pv, nil
}

// ZSpread solves for the constant spread over every curve point that
// reprices the bond to price. A bond priced off curve+s recovers s to
// within the solver tolerance.
func ZSpread(price float64, times, cashflows []float64, zc *curve.ZeroCurve, comp pricing.Compounding) (solver.Result, error) {
	if price <= 0 {
		return solver.Result{}, fmt.Errorf("bond.ZSpread: price must be positive, got %g", price)
	}
	if len(times) == 0 {
		return solver.Result{}, fmt.Errorf("bond.ZSpread: %w: no future cashflows", ErrDegenerateSchedule)
	}
	if zc == nil {
		return solver.Result{}, fmt.Errorf("bond.ZSpread: curve is required")
	}
	f := func(s float64) float64 {
		pv, err := pricing.PresentValue(times, cashflows, zc, s, comp)
		if err != nil {
			return math.NaN()
		}
		return pv - price
	}
	return solver.Solve(f, spreadBracketLo, spreadBracketHi, solver.DefaultTolerance, solver.DefaultMaxIter)
}

// GSpread is the bond yield minus the interpolated benchmark yield at the
// bond's maturity. Both rates are taken through a common continuous basis
// before differencing and the result is re-expressed on the yield's own
// compounding. curveComp states how the benchmark curve's rates are quoted.
func GSpread(ytm, maturity float64, zc *curve.ZeroCurve, ytmComp, curveComp pricing.Compounding) (float64, error) {
	if zc == nil {
		return 0, fmt.Errorf("bond.GSpread: curve is required")
	}
	benchmark := zc.Rate(maturity)

	ytmCont, err := pricing.ToContinuous(ytm, ytmComp)
	if err != nil {
		return 0, err
	}
	benchCont, err := pricing.ToContinuous(benchmark, curveComp)
	if err != nil {
		return 0, err
	}
	return pricing.FromContinuous(ytmCont-benchCont, ytmComp)
}

// DiscountMarginParams feeds DiscountMargin.
type DiscountMarginParams struct {
	DirtyPrice    float64
	Schedule      []schedule.PaymentEvent
	ValuationDate time.Time
	// ProjCurve projects the floating coupons.
	ProjCurve *curve.ZeroCurve
	// DiscCurve discounts; defaults to ProjCurve when nil.
	DiscCurve   *curve.ZeroCurve
	DayBasis    daycount.Convention
	Compounding pricing.Compounding
}

// DiscountMargin computes the floater margin in closed form. PV is linear
// in the margin, so
//
//	dm = (price - pvBase) / Σ df_i · accrual_i · notional_i
//
// summed over the future floating legs. Fails with ErrDegenerateSchedule
// when the weight sum vanishes (no floating legs).
func DiscountMargin(p DiscountMarginParams) (float64, error) {
	if p.ValuationDate.IsZero() {
		return 0, fmt.Errorf("bond.DiscountMargin: ValuationDate is required")
	}
	if p.ProjCurve == nil {
		return 0, fmt.Errorf("bond.DiscountMargin: ProjCurve is required")
	}
	disc := p.DiscCurve
	if disc == nil {
		disc = p.ProjCurve
	}
	if p.DayBasis == "" {
		p.DayBasis = daycount.Act365Fixed
	}
	if p.Compounding == "" {
		p.Compounding = pricing.Annual
	}

	pvBase := 0.0
	weight := 0.0
	for _, ev := range p.Schedule {
		if !ev.Date.After(p.ValuationDate) {
			continue
		}
		t, err := daycount.YearFraction(p.ValuationDate, ev.Date, p.DayBasis)
		if err != nil {
			return 0, err
		}
		df, err := pricing.DiscountFactor(disc.Rate(t), t, p.Compounding)
		if err != nil {
			return 0, err
		}

		amount := ev.Amount()
		if ev.Floating != nil {
			f := ev.Floating
			accrual, err := daycount.YearFraction(f.AccrualStart, f.AccrualEnd, p.DayBasis)
			if err != nil {
				return 0, err
			}
			coupon, err := projectedCoupon(f, p.ValuationDate, p.ProjCurve, p.DayBasis, p.Compounding, accrual, t)
			if err != nil {
				return 0, err
			}
			amount = coupon + ev.Principal
			weight += df * accrual * f.Notional
		}
		pvBase += amount * df
	}

	if math.Abs(weight) < 1e-12 {
		return 0, fmt.Errorf("bond.DiscountMargin: %w: no floating legs after valuation date", ErrDegenerateSchedule)
	}
	return (p.DirtyPrice - pvBase) / weight, nil
}

func projectedCoupon(f *schedule.FloatingTerms, valuation time.Time, proj *curve.ZeroCurve, basis daycount.Convention, comp pricing.Compounding, accrual, tPay float64) (float64, error) {
	tReset, err := daycount.YearFraction(valuation, f.ResetDate, basis)
	if err != nil {
		return 0, err
	}
	if tReset < 0 {
		tReset = 0
	}
	if tPay <= tReset {
		return f.Notional * (proj.Rate(tPay) + f.Spread) * accrual, nil
	}
	fwd, err := pricing.ForwardRate(proj, tReset, tPay, comp)
	if err != nil {
		return 0, err
	}
	return f.Notional * (fwd + f.Spread) * accrual, nil
}

// WorstKind labels the redemption scenario achieving the worst yield.
type WorstKind string

const (
	WorstMaturity WorstKind = "MATURITY"
	WorstCall     WorstKind = "CALL"
)

// WorstResult reports the minimum yield and the scenario that produced it.
type WorstResult struct {
	Yield float64
	Kind  WorstKind
	// Date is the redemption date of the worst scenario.
	Date time.Time
	// Scenarios holds the yield for every evaluated scenario, keyed by
	// redemption date.
	Scenarios map[time.Time]float64
}

// YieldToWorstParams feeds YieldToWorst.
type YieldToWorstParams struct {
	DirtyPrice    float64
	Schedule      []schedule.PaymentEvent
	Calls         []schedule.CallEntry
	Notional      float64
	ValuationDate time.Time
	DayBasis      daycount.Convention
	Compounding   pricing.Compounding
	// Curve projects floating coupons when present; optional otherwise.
	Curve *curve.ZeroCurve
}

// YieldToWorst evaluates the maturity scenario plus one scenario per future
// call: the schedule truncated at the call date with redemption at the call
// price applied to the then-outstanding (amortization-aware) notional. The
// minimum yield wins. Requires at least one future call; bonds without one
// should use SolveYTM directly.
func YieldToWorst(p YieldToWorstParams) (WorstResult, error) {
	if p.ValuationDate.IsZero() {
		return WorstResult{}, fmt.Errorf("bond.YieldToWorst: ValuationDate is required")
	}
	notional := p.Notional
	if notional == 0 {
		notional = 100
	}
	if p.DayBasis == "" {
		p.DayBasis = daycount.Act365Fixed
	}
	if p.Compounding == "" {
		p.Compounding = pricing.Annual
	}

	futureCalls := make([]schedule.CallEntry, 0, len(p.Calls))
	for _, c := range p.Calls {
		if c.Date.After(p.ValuationDate) {
			futureCalls = append(futureCalls, c)
		}
	}
	if len(futureCalls) == 0 {
		return WorstResult{}, fmt.Errorf("bond.YieldToWorst: no future call in schedule")
	}

	extract := schedule.ExtractParams{
		ValuationDate: p.ValuationDate,
		Curve:         p.Curve,
		DayBasis:      p.DayBasis,
		Compounding:   p.Compounding,
	}

	// Maturity scenario.
	times, cfs, err := schedule.Cashflows(p.Schedule, extract)
	if err != nil {
		return WorstResult{}, err
	}
	res, err := SolveYTM(p.DirtyPrice, times, cfs, p.Compounding)
	if err != nil {
		return WorstResult{}, fmt.Errorf("bond.YieldToWorst: maturity scenario: %w", err)
	}

	maturityDate := p.Schedule[len(p.Schedule)-1].Date
	worst := WorstResult{
		Yield:     res.Root,
		Kind:      WorstMaturity,
		Date:      maturityDate,
		Scenarios: map[time.Time]float64{maturityDate: res.Root},
	}

	for _, call := range futureCalls {
		truncated := extract
		truncated.LastDate = call.Date
		times, cfs, err := schedule.Cashflows(p.Schedule, truncated)
		if err != nil {
			return WorstResult{}, err
		}

		// Redeem the outstanding notional at the call price. Outstanding is
		// taken after any scheduled amortization on or before the call date,
		// which the truncated cashflows already pay out.
		outstanding := schedule.Outstanding(p.Schedule, notional, call.Date)
		redemption := call.Price / 100 * outstanding
		tCall, err := daycount.YearFraction(p.ValuationDate, call.Date, extract.DayBasis)
		if err != nil {
			return WorstResult{}, err
		}
		times = append(times, tCall)
		cfs = append(cfs, redemption)

		res, err := SolveYTM(p.DirtyPrice, times, cfs, p.Compounding)
		if err != nil {
			// A single non-bracketing call scenario should not sink the
			// whole calculation; skip it.
			continue
		}
		worst.Scenarios[call.Date] = res.Root
		if res.Root < worst.Yield {
			worst.Yield = res.Root
			worst.Kind = WorstCall
			worst.Date = call.Date
		}
	}
	return worst, nil
}
