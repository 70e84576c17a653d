package daycount_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/bondlib/daycount"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestYearFraction(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		conv  daycount.Convention
		start time.Time
		end   time.Time
		want  float64
		tol   float64
	}{
		{"act360 half year", daycount.Act360, d(2025, 1, 15), d(2025, 7, 15), 181.0 / 360, 1e-12},
		{"act365f full year", daycount.Act365Fixed, d(2025, 1, 1), d(2026, 1, 1), 1.0, 1e-12},
		{"act365f leap year", daycount.Act365Fixed, d(2024, 1, 1), d(2025, 1, 1), 366.0 / 365, 1e-12},
		{"30/360 regular semiannual", daycount.Thirty360, d(2025, 3, 15), d(2025, 9, 15), 0.5, 1e-12},
		{"30/360 d1=31 clamp", daycount.Thirty360, d(2025, 1, 31), d(2025, 7, 31), 0.5, 1e-12},
		{"30/360 d2=31 kept when d1<30", daycount.Thirty360, d(2025, 1, 15), d(2025, 1, 31), 16.0 / 360, 1e-12},
		{"30E/360 clamps both ends", daycount.ThirtyE360, d(2025, 1, 15), d(2025, 1, 31), 15.0 / 360, 1e-12},
		{"30/360 US feb end to feb end", daycount.Thirty360US, d(2025, 2, 28), d(2026, 2, 28), 1.0, 1e-12},
		{"act/act isda within year", daycount.ActActISDA, d(2025, 1, 1), d(2025, 7, 1), 181.0 / 365, 1e-12},
		{"act/act isda across leap boundary", daycount.ActActISDA, d(2023, 7, 1), d(2024, 7, 1), 184.0/365 + 182.0/366, 1e-12},
		{"nl/365 skips feb 29", daycount.NL365, d(2024, 1, 1), d(2025, 1, 1), 365.0 / 365, 1e-12},
		{"nl/365 without leap day", daycount.NL365, d(2025, 1, 1), d(2025, 7, 1), 181.0 / 365, 1e-12},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := daycount.YearFraction(tc.start, tc.end, tc.conv)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, tc.tol)
		})
	}
}

func TestYearFractionSameDateIsZero(t *testing.T) {
	t.Parallel()

	convs := []daycount.Convention{
		daycount.Thirty360, daycount.Thirty360US, daycount.ThirtyE360,
		daycount.Act360, daycount.Act365Fixed, daycount.ActActISDA,
		daycount.ActActICMA, daycount.NL365,
	}
	date := d(2025, 6, 30)
	for _, conv := range convs {
		got, err := daycount.YearFraction(date, date, conv)
		require.NoError(t, err, conv)
		assert.Zero(t, got, conv)
	}
}

func TestYearFractionNegativeSpan(t *testing.T) {
	t.Parallel()

	fwd, err := daycount.YearFraction(d(2025, 1, 1), d(2025, 7, 1), daycount.Act360)
	require.NoError(t, err)
	rev, err := daycount.YearFraction(d(2025, 7, 1), d(2025, 1, 1), daycount.Act360)
	require.NoError(t, err)
	assert.Equal(t, fwd, -rev)
}

func TestYearFractionUnsupported(t *testing.T) {
	t.Parallel()

	_, err := daycount.YearFraction(d(2025, 1, 1), d(2025, 7, 1), daycount.Convention("ACT/364"))
	require.ErrorIs(t, err, daycount.ErrUnsupportedConvention)
}

func TestICMAYearFraction(t *testing.T) {
	t.Parallel()

	// Regular semiannual period: full period accrues exactly 1/frequency.
	start := d(2025, 3, 15)
	end := d(2025, 9, 15)
	full, err := daycount.ICMAYearFraction(start, end, start, end, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, full, 1e-12)

	// Mid-period accrual scales by elapsed days.
	mid := d(2025, 6, 15)
	half, err := daycount.ICMAYearFraction(start, mid, start, end, 2)
	require.NoError(t, err)
	assert.InDelta(t, (92.0/184.0)*0.5, half, 1e-12)

	_, err = daycount.ICMAYearFraction(start, end, start, start, 2)
	require.Error(t, err)
}

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want daycount.Convention
	}{
		{"ACT/360", daycount.Act360},
		{"act/360", daycount.Act360},
		{"  Bond Basis  ", daycount.Thirty360},
		{"30E/360 ISDA", daycount.ThirtyE360},
		{"EUROBOND BASIS", daycount.ThirtyE360},
		{"ACT/ACT-ISDA", daycount.ActActISDA},
		{"ACT/ACT ISMA", daycount.ActActICMA},
		{"NL365", daycount.NL365},
	}
	for _, tc := range cases {
		got, err := daycount.Parse(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := daycount.Parse("BUS/252")
	require.ErrorIs(t, err, daycount.ErrUnsupportedConvention)
}
