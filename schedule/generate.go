package schedule

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/bondlib/daycount"
	"github.com/meenmo/bondlib/utils"
)

// irregularTolerance is the relative gap between a period's day-count
// accrual and the nominal 1/frequency beyond which the period coupon is
// computed from the actual accrual instead of rate/frequency.
const irregularTolerance = 0.01

// GenerateFixed builds the fixed-rate payment schedule for terms.
//
// Coupon dates walk from the first coupon date in 12/frequency month steps
// to maturity, business-day adjusted per period. Regular periods pay
// outstanding*rate/frequency; irregular stubs accrue on the day count.
// Amortization entries reduce outstanding notional for all subsequent
// coupons, and the terminal event pays whatever principal remains.
func GenerateFixed(terms BondTerms) ([]PaymentEvent, error) {
	periods, err := buildPeriods(&terms)
	if err != nil {
		return nil, err
	}

	notional := terms.notionalOrDefault()
	outstanding := notional
	amort := amortIndex(terms.Amortization, periods)

	events := make([]PaymentEvent, 0, len(periods))
	for i, p := range periods {
		accrual, err := accrualFraction(&terms, p)
		if err != nil {
			return nil, err
		}
		coupon := outstanding * terms.CouponRate / float64(terms.Frequency)
		if isIrregular(accrual, terms.Frequency) {
			coupon = outstanding * terms.CouponRate * accrual
		}

		principal := amort[i]
		last := i == len(periods)-1
		if last {
			// Terminal event redeems the remaining outstanding.
			principal = outstanding
		}

		ev := PaymentEvent{Date: p.payDate, Kind: Coupon, Coupon: coupon}
		if principal > 0 {
			ev.Principal = principal
			ev.Kind = Both
			if coupon == 0 {
				ev.Kind = Principal
			}
		}
		events = append(events, ev)
		outstanding -= principal
	}
	return events, nil
}

// GenerateFloating builds a floating-rate schedule. Coupons are emitted as
// descriptors (notional, spread, reset date) and projected off the curve at
// extraction time; principal events behave exactly as in GenerateFixed.
// BondTerms.CouponRate is interpreted as the spread over the reference rate.
func GenerateFloating(terms BondTerms) ([]PaymentEvent, error) {
	periods, err := buildPeriods(&terms)
	if err != nil {
		return nil, err
	}

	notional := terms.notionalOrDefault()
	outstanding := notional
	amort := amortIndex(terms.Amortization, periods)

	events := make([]PaymentEvent, 0, len(periods))
	for i, p := range periods {
		principal := amort[i]
		last := i == len(periods)-1
		if last {
			principal = outstanding
		}

		ev := PaymentEvent{
			Date: p.payDate,
			Kind: Coupon,
			Floating: &FloatingTerms{
				Notional:     outstanding,
				Spread:       terms.CouponRate,
				ResetDate:    p.start,
				AccrualStart: p.start,
				AccrualEnd:   p.end,
			},
		}
		if principal > 0 {
			ev.Principal = principal
			ev.Kind = Both
		}
		events = append(events, ev)
		outstanding -= principal
	}
	return events, nil
}

// period is one coupon accrual interval; dates are business-day adjusted.
type period struct {
	start   time.Time
	end     time.Time
	payDate time.Time
}

func buildPeriods(terms *BondTerms) ([]period, error) {
	if err := terms.validate(); err != nil {
		return nil, err
	}

	months := terms.monthsPerPeriod()
	first := terms.FirstCouponDate
	if first.IsZero() {
		first = utils.AddMonth(terms.IssueDate, months)
	}
	if first.After(terms.MaturityDate) {
		first = terms.MaturityDate
	}

	// Unadjusted coupon dates stepping from the first coupon anchor; each
	// step is taken from the anchor to avoid EDATE drift at month ends.
	unadjusted := []time.Time{first}
	for i := 1; ; i++ {
		next := utils.AddMonth(first, i*months)
		if next.After(terms.MaturityDate) {
			break
		}
		unadjusted = append(unadjusted, next)
	}
	// Final stub up to maturity when the walk does not land on it.
	if !unadjusted[len(unadjusted)-1].Equal(terms.MaturityDate) {
		unadjusted = append(unadjusted, terms.MaturityDate)
	}

	adjust := func(t time.Time) (time.Time, error) {
		return terms.Calendar.Adjust(t, terms.BusinessDay)
	}

	prev, err := adjust(terms.IssueDate)
	if err != nil {
		return nil, err
	}
	periods := make([]period, 0, len(unadjusted))
	for _, u := range unadjusted {
		end, err := adjust(u)
		if err != nil {
			return nil, fmt.Errorf("schedule: adjusting coupon date %s: %w", u.Format("2006-01-02"), err)
		}
		periods = append(periods, period{start: prev, end: end, payDate: end})
		prev = end
	}
	return periods, nil
}

func accrualFraction(terms *BondTerms, p period) (float64, error) {
	if terms.DayCount == daycount.ActActICMA {
		return daycount.ICMAYearFraction(p.start, p.end, p.start, p.end, terms.Frequency)
	}
	return daycount.YearFraction(p.start, p.end, terms.DayCount)
}

func isIrregular(accrual float64, frequency int) bool {
	nominal := 1.0 / float64(frequency)
	return math.Abs(accrual-nominal) > irregularTolerance*nominal
}

// amortIndex assigns each amortization entry to a period: an exact match on
// the period end (adjusted or contract date), otherwise the first period
// paying on or after the entry's date.
func amortIndex(entries []AmortizationEntry, periods []period) map[int]float64 {
	out := make(map[int]float64, len(entries))
	for _, a := range entries {
		assigned := false
		for i, p := range periods {
			if p.payDate.Equal(a.Date) || p.end.Equal(a.Date) || p.payDate.After(a.Date) {
				out[i] += a.Principal
				assigned = true
				break
			}
		}
		if !assigned && len(periods) > 0 {
			out[len(periods)-1] += a.Principal
		}
	}
	return out
}
