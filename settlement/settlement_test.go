package settlement_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/bondlib/daycount"
	"github.com/meenmo/bondlib/marketrules"
	"github.com/meenmo/bondlib/settlement"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		trade      time.Time
		market     string
		instrument marketrules.InstrumentType
		want       time.Time
	}{
		{"US gov T+1 plain", d(2025, 8, 18), "US", marketrules.Government, d(2025, 8, 19)},
		{"US gov T+1 over weekend", d(2025, 8, 22), "US", marketrules.Government, d(2025, 8, 25)},
		{"US gov T+1 over holiday weekend", d(2025, 7, 3), "US", marketrules.Government, d(2025, 7, 7)},
		{"US corp T+2", d(2025, 8, 21), "US", marketrules.Corporate, d(2025, 8, 25)},
		{"US money market T+0", d(2025, 8, 18), "US", marketrules.MoneyMkt, d(2025, 8, 18)},
		{"EUR gov T+2", d(2025, 8, 18), "EUR", marketrules.Government, d(2025, 8, 20)},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := settlement.Date(tc.trade, tc.instrument, tc.market, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := settlement.Date(d(2025, 8, 18), marketrules.Government, "KR", nil)
	require.Error(t, err)
}

func TestTradeDateFor(t *testing.T) {
	t.Parallel()

	// Round trip: trade -> settlement -> trade.
	trade := d(2025, 8, 22) // Friday
	settle, err := settlement.Date(trade, marketrules.Government, "US", nil)
	require.NoError(t, err)
	back, err := settlement.TradeDateFor(settle, marketrules.Government, "US", nil)
	require.NoError(t, err)
	assert.Equal(t, trade, back)
}

func TestAccruedInterest(t *testing.T) {
	t.Parallel()

	// 5% semiannual on 100, regular 30/360 period Jan 15 - Jul 15.
	base := settlement.AccruedParams{
		CouponRate: 0.05,
		Notional:   100,
		PrevCoupon: d(2025, 1, 15),
		NextCoupon: d(2025, 7, 15),
		DayCount:   daycount.Thirty360,
		Frequency:  2,
	}

	// Exactly mid-period: half the coupon.
	p := base
	p.SettlementDate = d(2025, 4, 15)
	accrued, frac, err := settlement.AccruedInterest(p)
	require.NoError(t, err)
	assert.InDelta(t, 1.25, accrued, 1e-12)
	assert.InDelta(t, 0.5, frac, 1e-12)

	// On the previous coupon date: zero.
	p = base
	p.SettlementDate = d(2025, 1, 15)
	accrued, frac, err = settlement.AccruedInterest(p)
	require.NoError(t, err)
	assert.Zero(t, accrued)
	assert.Zero(t, frac)

	// One month in on 30/360: a sixth of the coupon.
	p = base
	p.SettlementDate = d(2025, 2, 15)
	accrued, _, err = settlement.AccruedInterest(p)
	require.NoError(t, err)
	assert.InDelta(t, 2.5/6, accrued, 1e-12)
}

func TestAccruedInterestIrregularStub(t *testing.T) {
	t.Parallel()

	// Short 3-month first period of a semiannual bond: the period coupon
	// accrues on the day count, not rate/frequency.
	p := settlement.AccruedParams{
		SettlementDate: d(2025, 2, 28),
		CouponRate:     0.06,
		Notional:       100,
		PrevCoupon:     d(2025, 1, 15),
		NextCoupon:     d(2025, 4, 15),
		DayCount:       daycount.Thirty360,
		Frequency:      2,
		IsFirst:        true,
	}
	accrued, _, err := settlement.AccruedInterest(p)
	require.NoError(t, err)
	// Full stub coupon is 100*6%*0.25 = 1.50; 43 of 90 days elapsed.
	assert.InDelta(t, 1.5*(43.0/90.0), accrued, 1e-12)
}

func TestAccruedInterestICMA(t *testing.T) {
	t.Parallel()

	p := settlement.AccruedParams{
		SettlementDate: d(2025, 6, 15),
		CouponRate:     0.04,
		Notional:       100,
		PrevCoupon:     d(2025, 3, 15),
		NextCoupon:     d(2025, 9, 15),
		DayCount:       daycount.ActActICMA,
		Frequency:      2,
	}
	accrued, frac, err := settlement.AccruedInterest(p)
	require.NoError(t, err)
	// 92 of 184 actual days elapsed.
	assert.InDelta(t, 0.5, frac, 1e-12)
	assert.InDelta(t, 1.0, accrued, 1e-12)
}

func TestAccruedInterestValidation(t *testing.T) {
	t.Parallel()

	p := settlement.AccruedParams{
		SettlementDate: d(2025, 6, 15),
		PrevCoupon:     d(2025, 3, 15),
		NextCoupon:     d(2025, 3, 15),
		DayCount:       daycount.Act360,
		Frequency:      2,
	}
	_, _, err := settlement.AccruedInterest(p)
	require.Error(t, err)

	p.NextCoupon = d(2025, 9, 15)
	p.Frequency = 0
	_, _, err = settlement.AccruedInterest(p)
	require.Error(t, err)
}

func TestExDividend(t *testing.T) {
	t.Parallel()

	payment := d(2025, 9, 15) // Monday

	// GB gilts: ex-div window is seven business days before payment.
	inWindow, err := settlement.ExDividend(d(2025, 9, 10), time.Time{}, payment, "GB", nil)
	require.NoError(t, err)
	assert.True(t, inWindow)

	before, err := settlement.ExDividend(d(2025, 8, 20), time.Time{}, payment, "GB", nil)
	require.NoError(t, err)
	assert.False(t, before)

	// US has no ex-dividend mechanism.
	us, err := settlement.ExDividend(d(2025, 9, 10), time.Time{}, payment, "US", nil)
	require.NoError(t, err)
	assert.False(t, us)

	// Explicit record date wins over the derived window.
	explicit, err := settlement.ExDividend(d(2025, 9, 10), d(2025, 9, 12), payment, "US", nil)
	require.NoError(t, err)
	assert.False(t, explicit)
	explicit, err = settlement.ExDividend(d(2025, 9, 12), d(2025, 9, 12), payment, "US", nil)
	require.NoError(t, err)
	assert.True(t, explicit)
}

func TestSettle(t *testing.T) {
	t.Parallel()

	res, err := settlement.Settle(settlement.SettleParams{
		TradeDate:  d(2025, 4, 14), // Monday; T+1 settles Apr 15
		CleanPrice: 99.50,
		Market:     "US",
		Instrument: marketrules.Government,
		Accrued: settlement.AccruedParams{
			CouponRate: 0.05,
			Notional:   100,
			PrevCoupon: d(2025, 1, 15),
			NextCoupon: d(2025, 7, 15),
			DayCount:   daycount.Thirty360,
			Frequency:  2,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, d(2025, 4, 15), res.SettlementDate)
	assert.False(t, res.ExDividend)
	assert.InDelta(t, 1.25, res.AccruedInterest, 1e-12)
	assert.InDelta(t, 100.75, res.DirtyPrice, 1e-12)
	assert.InDelta(t, 0.5, res.AccrualFraction, 1e-12)
}

func TestSettleExDividend(t *testing.T) {
	t.Parallel()

	// GB trade settling inside the gilt ex-div window: accrued flips
	// negative and the dirty price drops below clean.
	res, err := settlement.Settle(settlement.SettleParams{
		TradeDate:  d(2025, 9, 9), // Tuesday; T+1 settles Sep 10
		CleanPrice: 101,
		Market:     "GB",
		Instrument: marketrules.Government,
		Accrued: settlement.AccruedParams{
			CouponRate: 0.04,
			Notional:   100,
			PrevCoupon: d(2025, 3, 15),
			NextCoupon: d(2025, 9, 15),
			DayCount:   daycount.ActActICMA,
			Frequency:  2,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, d(2025, 9, 10), res.SettlementDate)
	assert.True(t, res.ExDividend)
	assert.Negative(t, res.AccruedInterest)
	assert.Less(t, res.DirtyPrice, res.CleanPrice)
	assert.Negative(t, res.AccrualFraction)
}

func TestSettleExDividendIrregularStub(t *testing.T) {
	t.Parallel()

	// Short 3-month final stub on a semiannual bond: the forgone coupon is
	// the stub coupon 100*4%*90/360 = 1.00, not the regular 2.00. The
	// rebate is the unaccrued remainder, 5/360*4 = 0.0556 on 30/360.
	res, err := settlement.Settle(settlement.SettleParams{
		TradeDate:  d(2025, 9, 9), // Tuesday; T+1 settles Sep 10
		CleanPrice: 101,
		Market:     "GB",
		Instrument: marketrules.Government,
		Accrued: settlement.AccruedParams{
			CouponRate: 0.04,
			Notional:   100,
			PrevCoupon: d(2025, 6, 15),
			NextCoupon: d(2025, 9, 15),
			DayCount:   daycount.Thirty360,
			Frequency:  2,
			IsLast:     true,
		},
	})
	require.NoError(t, err)
	assert.True(t, res.ExDividend)
	assert.InDelta(t, -5.0/360*4, res.AccruedInterest, 1e-12)
	assert.InDelta(t, -5.0/90, res.AccrualFraction, 1e-12)
	assert.InDelta(t, 101-5.0/360*4, res.DirtyPrice, 1e-12)
}
