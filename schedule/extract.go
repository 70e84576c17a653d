package schedule

import (
	"fmt"
	"time"

	"github.com/meenmo/bondlib/curve"
	"github.com/meenmo/bondlib/daycount"
	"github.com/meenmo/bondlib/pricing"
)

// ExtractParams controls cashflow extraction relative to a valuation date.
type ExtractParams struct {
	ValuationDate time.Time
	// Curve projects unfixed floating coupons; may be nil for fixed-only
	// schedules.
	Curve *curve.ZeroCurve
	// DayBasis converts event dates to year fractions on the time axis.
	DayBasis daycount.Convention
	// Compounding used for forward projection of floating coupons.
	Compounding pricing.Compounding
	// LastDate truncates the horizon (used by yield-to-call); zero means
	// no truncation.
	LastDate time.Time
}

// Cashflows projects a schedule into valuation-date-relative
// (timeYears, amount) pairs. Events at or before the valuation date are
// dropped, as are events after LastDate when set. Floating descriptors are
// projected as notional*(forward(reset, pay)+spread)*accrual off the curve.
func Cashflows(events []PaymentEvent, p ExtractParams) ([]float64, []float64, error) {
	if p.ValuationDate.IsZero() {
		return nil, nil, fmt.Errorf("schedule.Cashflows: ValuationDate is required")
	}
	if p.DayBasis == "" {
		p.DayBasis = daycount.Act365Fixed
	}
	if p.Compounding == "" {
		p.Compounding = pricing.Annual
	}

	var times, amounts []float64
	for _, ev := range events {
		if !ev.Date.After(p.ValuationDate) {
			continue
		}
		if !p.LastDate.IsZero() && ev.Date.After(p.LastDate) {
			continue
		}
		t, err := daycount.YearFraction(p.ValuationDate, ev.Date, p.DayBasis)
		if err != nil {
			return nil, nil, err
		}

		amount := ev.Amount()
		if ev.Floating != nil {
			coupon, err := projectFloating(ev, p, t)
			if err != nil {
				return nil, nil, err
			}
			amount = coupon + ev.Principal
		}

		times = append(times, t)
		amounts = append(amounts, amount)
	}
	return times, amounts, nil
}

func projectFloating(ev PaymentEvent, p ExtractParams, tPay float64) (float64, error) {
	if p.Curve == nil {
		return 0, fmt.Errorf("schedule.Cashflows: floating coupon on %s requires a projection curve",
			ev.Date.Format("2006-01-02"))
	}
	f := ev.Floating

	accrual, err := daycount.YearFraction(f.AccrualStart, f.AccrualEnd, p.DayBasis)
	if err != nil {
		return 0, err
	}

	tReset, err := daycount.YearFraction(p.ValuationDate, f.ResetDate, p.DayBasis)
	if err != nil {
		return 0, err
	}
	if tReset < 0 {
		tReset = 0
	}
	if tPay <= tReset {
		// Degenerate interval (reset at/after payment); fall back to the
		// spot rate at payment.
		return f.Notional * (p.Curve.Rate(tPay) + f.Spread) * accrual, nil
	}

	fwd, err := pricing.ForwardRate(p.Curve, tReset, tPay, p.Compounding)
	if err != nil {
		return 0, err
	}
	return f.Notional * (fwd + f.Spread) * accrual, nil
}
