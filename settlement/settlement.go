// Package settlement computes T+N settlement dates, accrued interest and
// ex-dividend adjustments.
package settlement

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/bondlib/calendar"
	"github.com/meenmo/bondlib/daycount"
	"github.com/meenmo/bondlib/marketrules"
)

// Result carries the settlement computation for one trade.
type Result struct {
	TradeDate      time.Time
	SettlementDate time.Time
	// AccruedInterest is in currency units; negative inside an ex-dividend
	// window.
	AccruedInterest float64
	CleanPrice      float64
	DirtyPrice      float64
	// AccrualFraction is accrued/(full period) in [0, 1], or negative
	// when ex-dividend.
	AccrualFraction float64
	ExDividend      bool
}

// Date adds the market's T+N business days to the trade date, then applies
// Modified Following.
func Date(tradeDate time.Time, instrument marketrules.InstrumentType, market string, rules *marketrules.Rules) (time.Time, error) {
	if rules == nil {
		var err error
		rules, err = marketrules.Default()
		if err != nil {
			return time.Time{}, err
		}
	}
	conv, err := rules.Convention(market)
	if err != nil {
		return time.Time{}, err
	}
	lag, err := rules.SettlementLag(market, instrument)
	if err != nil {
		return time.Time{}, err
	}
	cal := calendar.Builtin(calendar.ID(conv.Calendar))
	settle := cal.AddBusinessDays(tradeDate, lag)
	return cal.Adjust(settle, calendar.ModifiedFollowing)
}

// TradeDateFor runs the settlement calculation backwards: the trade date
// whose T+N settlement is the given date.
func TradeDateFor(settlementDate time.Time, instrument marketrules.InstrumentType, market string, rules *marketrules.Rules) (time.Time, error) {
	if rules == nil {
		var err error
		rules, err = marketrules.Default()
		if err != nil {
			return time.Time{}, err
		}
	}
	conv, err := rules.Convention(market)
	if err != nil {
		return time.Time{}, err
	}
	lag, err := rules.SettlementLag(market, instrument)
	if err != nil {
		return time.Time{}, err
	}
	cal := calendar.Builtin(calendar.ID(conv.Calendar))
	return cal.AddBusinessDays(settlementDate, -lag), nil
}

// AccruedParams feeds AccruedInterest.
type AccruedParams struct {
	SettlementDate time.Time
	// CouponRate is a decimal annual rate.
	CouponRate float64
	Notional   float64
	PrevCoupon time.Time
	NextCoupon time.Time
	DayCount   daycount.Convention
	Frequency  int
	// IsFirst/IsLast flag potentially irregular stub periods.
	IsFirst bool
	IsLast  bool
}

// irregularTolerance mirrors the schedule generator's regular-period test.
const irregularTolerance = 0.01

// AccruedInterest prorates the period coupon by elapsed accrual:
//
//	accrued = periodCoupon · fraction(prev, settlement) / fraction(prev, next)
//
// The period coupon itself honors irregular stubs, accruing on the day
// count instead of rate/frequency when the period is not a regular one.
// Settlement at or before the previous coupon accrues zero.
func AccruedInterest(p AccruedParams) (float64, float64, error) {
	if p.Frequency <= 0 {
		return 0, 0, fmt.Errorf("settlement.AccruedInterest: frequency must be positive, got %d", p.Frequency)
	}
	if !p.SettlementDate.After(p.PrevCoupon) {
		return 0, 0, nil
	}
	if !p.NextCoupon.After(p.PrevCoupon) {
		return 0, 0, fmt.Errorf("settlement.AccruedInterest: NextCoupon %s must be after PrevCoupon %s",
			p.NextCoupon.Format("2006-01-02"), p.PrevCoupon.Format("2006-01-02"))
	}

	full, err := periodFraction(p.PrevCoupon, p.NextCoupon, p)
	if err != nil {
		return 0, 0, err
	}
	elapsed, err := periodFraction(p.PrevCoupon, p.SettlementDate, p)
	if err != nil {
		return 0, 0, err
	}
	if full == 0 {
		return 0, 0, fmt.Errorf("settlement.AccruedInterest: degenerate coupon period")
	}

	coupon, err := periodCoupon(p)
	if err != nil {
		return 0, 0, err
	}

	frac := elapsed / full
	if frac > 1 {
		frac = 1
	}
	return coupon * frac, frac, nil
}

// periodCoupon is the cash coupon of the current period: rate/frequency for
// a regular period, day-count accrual for an irregular stub.
func periodCoupon(p AccruedParams) (float64, error) {
	coupon := p.Notional * p.CouponRate / float64(p.Frequency)
	if !p.IsFirst && !p.IsLast {
		return coupon, nil
	}
	full, err := periodFraction(p.PrevCoupon, p.NextCoupon, p)
	if err != nil {
		return 0, err
	}
	nominal := 1.0 / float64(p.Frequency)
	if math.Abs(full-nominal) > irregularTolerance*nominal {
		coupon = p.Notional * p.CouponRate * full
	}
	return coupon, nil
}

func periodFraction(start, end time.Time, p AccruedParams) (float64, error) {
	if p.DayCount == daycount.ActActICMA {
		return daycount.ICMAYearFraction(start, end, p.PrevCoupon, p.NextCoupon, p.Frequency)
	}
	return daycount.YearFraction(start, end, p.DayCount)
}

// ExDividend reports whether settlement falls in the ex-dividend window of
// the next coupon. When the record date is zero it is derived from the
// market's ex-div business-day count before the payment date.
func ExDividend(settlement, recordDate, paymentDate time.Time, market string, rules *marketrules.Rules) (bool, error) {
	if rules == nil {
		var err error
		rules, err = marketrules.Default()
		if err != nil {
			return false, err
		}
	}
	conv, err := rules.Convention(market)
	if err != nil {
		return false, err
	}
	if conv.ExDividendBusinessDays == 0 && recordDate.IsZero() {
		return false, nil
	}
	if recordDate.IsZero() {
		cal := calendar.Builtin(calendar.ID(conv.Calendar))
		recordDate = cal.AddBusinessDays(paymentDate, -conv.ExDividendBusinessDays)
	}
	return !settlement.Before(recordDate) && settlement.Before(paymentDate), nil
}

// SettleParams feeds Settle, the full settlement computation.
type SettleParams struct {
	TradeDate  time.Time
	CleanPrice float64
	Market     string
	Instrument marketrules.InstrumentType
	Rules      *marketrules.Rules
	// RecordDate is optional; zero derives it from market rules.
	RecordDate time.Time
	Accrued    AccruedParams // SettlementDate is filled in by Settle
}

// Settle resolves the settlement date, accrued interest (with the
// ex-dividend sign flip and full-coupon adjustment when the trade settles
// ex-div) and the dirty price.
func Settle(p SettleParams) (Result, error) {
	settleDate, err := Date(p.TradeDate, p.Instrument, p.Market, p.Rules)
	if err != nil {
		return Result{}, err
	}

	ap := p.Accrued
	ap.SettlementDate = settleDate
	accrued, frac, err := AccruedInterest(ap)
	if err != nil {
		return Result{}, err
	}

	exDiv, err := ExDividend(settleDate, p.RecordDate, ap.NextCoupon, p.Market, p.Rules)
	if err != nil {
		return Result{}, err
	}
	if exDiv {
		// Buyer forgoes the next coupon: accrued flips to the rebate for
		// the remainder of the period.
		coupon, err := periodCoupon(ap)
		if err != nil {
			return Result{}, err
		}
		accrued -= coupon
		frac -= 1
	}

	return Result{
		TradeDate:       p.TradeDate,
		SettlementDate:  settleDate,
		AccruedInterest: accrued,
		CleanPrice:      p.CleanPrice,
		DirtyPrice:      p.CleanPrice + accrued,
		AccrualFraction: frac,
		ExDividend:      exDiv,
	}, nil
}
