package oas_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/bondlib/calendar"
	"github.com/meenmo/bondlib/curve"
	"github.com/meenmo/bondlib/daycount"
	"github.com/meenmo/bondlib/oas"
	"github.com/meenmo/bondlib/pricing"
	"github.com/meenmo/bondlib/schedule"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// callableSetup builds a 10y 4% semiannual bullet and a flat curve, priced
// exactly on-curve (z-spread zero).
func callableSetup(t *testing.T, curveRate float64) (events []schedule.PaymentEvent, zc *curve.ZeroCurve, dirty float64, valuation time.Time) {
	t.Helper()

	terms := schedule.BondTerms{
		IssueDate:    d(2025, 1, 15),
		MaturityDate: d(2035, 1, 15),
		CouponRate:   0.04,
		Frequency:    2,
		DayCount:     daycount.Thirty360,
		BusinessDay:  calendar.Unadjusted,
		Calendar:     calendar.Builtin(calendar.WeekendsOnly),
	}
	events, err := schedule.GenerateFixed(terms)
	require.NoError(t, err)

	zc, err = curve.New([]float64{0.5, 30}, []float64{curveRate, curveRate}, curve.Linear)
	require.NoError(t, err)

	valuation = d(2025, 1, 15)
	times, cfs, err := schedule.Cashflows(events, schedule.ExtractParams{
		ValuationDate: valuation,
		DayBasis:      daycount.Act365Fixed,
		Compounding:   pricing.Continuous,
	})
	require.NoError(t, err)
	dirty, err = pricing.PresentValue(times, cfs, zc, 0, pricing.Continuous)
	require.NoError(t, err)
	return events, zc, dirty, valuation
}

func TestComputeNoFutureCall(t *testing.T) {
	t.Parallel()

	events, zc, dirty, valuation := callableSetup(t, 0.05)

	res, err := oas.Compute(oas.Params{
		DirtyPrice:    dirty,
		Schedule:      events,
		Calls:         []schedule.CallEntry{{Date: d(2024, 1, 15), Price: 100}},
		ValuationDate: valuation,
		Curve:         zc,
	})
	require.NoError(t, err)
	assert.Nil(t, res, "past calls mean OAS is not applicable")
}

func TestComputeValidation(t *testing.T) {
	t.Parallel()

	events, zc, dirty, valuation := callableSetup(t, 0.05)
	calls := []schedule.CallEntry{{Date: d(2030, 1, 15), Price: 100}}

	_, err := oas.Compute(oas.Params{Schedule: events, Calls: calls, Curve: zc, DirtyPrice: dirty})
	require.Error(t, err) // missing valuation date

	_, err = oas.Compute(oas.Params{Schedule: events, Calls: calls, ValuationDate: valuation, DirtyPrice: dirty})
	require.Error(t, err) // missing curve

	_, err = oas.Compute(oas.Params{Schedule: events, Calls: calls, ValuationDate: valuation, Curve: zc})
	require.Error(t, err) // missing price
}

func TestOASExceedsZSpreadForCallable(t *testing.T) {
	t.Parallel()

	// 4% coupon against a flat 5% curve: the call at par is out of the
	// money, the option value is small but positive, and the OAS must sit
	// at or above the z-spread (zero here by construction).
	events, zc, dirty, valuation := callableSetup(t, 0.05)
	calls := []schedule.CallEntry{{Date: d(2030, 1, 15), Price: 100}}

	res, err := oas.Compute(oas.Params{
		DirtyPrice:    dirty,
		Schedule:      events,
		Calls:         calls,
		ValuationDate: valuation,
		Curve:         zc,
		Model:         oas.ModelBlack,
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, oas.ModelBlack, res.Model)
	assert.Greater(t, res.OptionValue, 0.0)
	assert.GreaterOrEqual(t, res.OAS, 0.0)
	assert.Greater(t, res.Volatility, 0.0)
}

func TestOASConvergesToZSpreadAsVolVanishes(t *testing.T) {
	t.Parallel()

	events, zc, dirty, valuation := callableSetup(t, 0.05)
	calls := []schedule.CallEntry{{Date: d(2030, 1, 15), Price: 100}}

	res, err := oas.Compute(oas.Params{
		DirtyPrice:    dirty,
		Schedule:      events,
		Calls:         calls,
		ValuationDate: valuation,
		Curve:         zc,
		Model:         oas.ModelBlack,
		Vol:           1e-8,
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	// Worthless option: the OAS collapses onto the z-spread (zero) within
	// a basis point.
	assert.InDelta(t, 0.0, res.OAS, 1e-4)
}

func TestComputeAutoModelSelection(t *testing.T) {
	t.Parallel()

	events, zc, dirty, valuation := callableSetup(t, 0.05)

	oneCall := []schedule.CallEntry{{Date: d(2030, 1, 15), Price: 100}}
	res, err := oas.Compute(oas.Params{
		DirtyPrice: dirty, Schedule: events, Calls: oneCall,
		ValuationDate: valuation, Curve: zc,
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, oas.ModelBlack, res.Model)

	manyCalls := []schedule.CallEntry{
		{Date: d(2030, 1, 15), Price: 102},
		{Date: d(2031, 1, 15), Price: 101},
		{Date: d(2032, 1, 15), Price: 100},
	}
	res, err = oas.Compute(oas.Params{
		DirtyPrice: dirty, Schedule: events, Calls: manyCalls,
		ValuationDate: valuation, Curve: zc,
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, oas.ModelHWBinomial, res.Model)
	assert.Equal(t, 100, res.Steps)
}

func TestComputeLattice(t *testing.T) {
	t.Parallel()

	events, zc, dirty, valuation := callableSetup(t, 0.05)
	calls := []schedule.CallEntry{
		{Date: d(2030, 1, 15), Price: 101},
		{Date: d(2032, 1, 15), Price: 100},
	}

	res, err := oas.Compute(oas.Params{
		DirtyPrice:    dirty,
		Schedule:      events,
		Calls:         calls,
		ValuationDate: valuation,
		Curve:         zc,
		Model:         oas.ModelHWBinomial,
		Steps:         200,
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 200, res.Steps)
	assert.GreaterOrEqual(t, res.OptionValue, 0.0)
	// Out-of-the-money calls: OAS stays within a plausible band of the
	// zero z-spread.
	assert.GreaterOrEqual(t, res.OAS, -1e-9)
	assert.Less(t, res.OAS, 0.02)
}

func TestComputeMonteCarloReproducible(t *testing.T) {
	t.Parallel()

	events, zc, dirty, valuation := callableSetup(t, 0.05)
	calls := []schedule.CallEntry{
		{Date: d(2030, 1, 15), Price: 101},
		{Date: d(2032, 1, 15), Price: 100},
	}
	params := oas.Params{
		DirtyPrice:    dirty,
		Schedule:      events,
		Calls:         calls,
		ValuationDate: valuation,
		Curve:         zc,
		Model:         oas.ModelHWMonteCarlo,
		Paths:         2048,
		Seed:          42,
	}

	first, err := oas.Compute(params)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, oas.ModelHWMonteCarlo, first.Model)
	assert.Equal(t, 2048, first.Paths)

	second, err := oas.Compute(params)
	require.NoError(t, err)
	require.NotNil(t, second)
	// Same seed, same draw sequence, same answer.
	assert.Equal(t, first.OAS, second.OAS)
	assert.Equal(t, first.OptionValue, second.OptionValue)
}

func TestOASMonotoneInPrice(t *testing.T) {
	t.Parallel()

	events, zc, dirty, valuation := callableSetup(t, 0.05)
	calls := []schedule.CallEntry{{Date: d(2030, 1, 15), Price: 100}}

	solve := func(price float64) float64 {
		res, err := oas.Compute(oas.Params{
			DirtyPrice: price, Schedule: events, Calls: calls,
			ValuationDate: valuation, Curve: zc, Model: oas.ModelBlack,
		})
		require.NoError(t, err)
		require.NotNil(t, res)
		return res.OAS
	}

	// Paying less for the same bond means earning more spread.
	cheap := solve(dirty * 0.97)
	rich := solve(dirty * 1.03)
	assert.Greater(t, cheap, solve(dirty))
	assert.Less(t, rich, solve(dirty))
}

func TestVolSurface(t *testing.T) {
	t.Parallel()

	s := oas.DefaultVolSurface

	// Term structure is non-decreasing in tenor at the money.
	assert.LessOrEqual(t, s.Vol(0.5, 1), s.Vol(4, 1))
	assert.LessOrEqual(t, s.Vol(4, 1), s.Vol(25, 1))
	// Smile: away-from-the-money strikes carry more vol.
	assert.Greater(t, s.Vol(5, 0.8), s.Vol(5, 1))
	assert.Greater(t, s.Vol(5, 1.25), s.Vol(5, 1))

	// Credit multiplier scales the whole surface.
	scaled := &oas.VolSurface{Bands: oas.DefaultVolBands, CreditMultiplier: 2}
	assert.InDelta(t, 2*s.Vol(5, 1), scaled.Vol(5, 1), 1e-12)
}
