// Package daycount implements ISDA day-count conventions as a closed enum.
//
// Free-text day-count strings from upstream feeds must go through Parse,
// which maps known aliases onto the enum and rejects everything else.
// There is no silent default: an unmapped string is the caller's problem.
package daycount

import (
	"errors"
	"fmt"
	"time"

	"github.com/meenmo/bondlib/utils"
)

// Convention is a closed day-count enum. Adding a member requires updating
// YearFraction and the alias table together.
type Convention string

const (
	Thirty360   Convention = "30/360"
	Thirty360US Convention = "30/360 US"
	ThirtyE360  Convention = "30E/360"
	Act360      Convention = "ACT/360"
	Act365Fixed Convention = "ACT/365F"
	ActActISDA  Convention = "ACT/ACT ISDA"
	ActActICMA  Convention = "ACT/ACT ICMA"
	NL365       Convention = "NL/365"
)

// ErrUnsupportedConvention is returned for strings the alias table does not
// cover and for enum values YearFraction does not recognize.
var ErrUnsupportedConvention = errors.New("unsupported day count convention")

// YearFraction computes the accrual fraction from start to end.
//
// For every convention YearFraction(d, d) == 0 and the result is monotone
// non-decreasing in end. ActActICMA has no reference period here, so it is
// evaluated with the ISDA per-calendar-year split; period-aware accrual
// should use ICMAYearFraction.
func YearFraction(start, end time.Time, conv Convention) (float64, error) {
	if end.Before(start) {
		yf, err := YearFraction(end, start, conv)
		return -yf, err
	}
	switch conv {
	case Act360:
		return utils.Days(start, end) / 360.0, nil
	case Act365Fixed:
		return utils.Days(start, end) / 365.0, nil
	case NL365:
		return (utils.Days(start, end) - leapDays(start, end)) / 365.0, nil
	case Thirty360:
		d1, d2 := start.Day(), end.Day()
		if d1 == 31 {
			d1 = 30
		}
		if d2 == 31 && d1 == 30 {
			d2 = 30
		}
		return thirty360(start, end, d1, d2), nil
	case Thirty360US:
		d1, d2 := start.Day(), end.Day()
		if isEndOfFebruary(start) {
			if isEndOfFebruary(end) {
				d2 = 30
			}
			d1 = 30
		}
		if d1 == 31 {
			d1 = 30
		}
		if d2 == 31 && d1 == 30 {
			d2 = 30
		}
		return thirty360(start, end, d1, d2), nil
	case ThirtyE360:
		d1, d2 := start.Day(), end.Day()
		if d1 == 31 {
			d1 = 30
		}
		if d2 == 31 {
			d2 = 30
		}
		return thirty360(start, end, d1, d2), nil
	case ActActISDA, ActActICMA:
		return actActISDA(start, end), nil
	default:
		return 0, fmt.Errorf("daycount.YearFraction: %w: %q", ErrUnsupportedConvention, conv)
	}
}

// ICMAYearFraction computes the ACT/ACT ICMA accrual from start to end
// within the coupon period [periodStart, periodEnd] paying frequency times
// per year.
func ICMAYearFraction(start, end, periodStart, periodEnd time.Time, frequency int) (float64, error) {
	if frequency <= 0 {
		return 0, fmt.Errorf("daycount.ICMAYearFraction: frequency must be positive, got %d", frequency)
	}
	period := utils.Days(periodStart, periodEnd)
	if period == 0 {
		return 0, fmt.Errorf("daycount.ICMAYearFraction: degenerate reference period %s",
			periodStart.Format("2006-01-02"))
	}
	return utils.Days(start, end) / (float64(frequency) * period), nil
}

func thirty360(start, end time.Time, d1, d2 int) float64 {
	y1, m1 := start.Year(), int(start.Month())
	y2, m2 := end.Year(), int(end.Month())
	return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
}

// actActISDA splits the span at calendar year boundaries and accrues each
// piece over its own year length (365 or 366).
func actActISDA(start, end time.Time) float64 {
	if start.Year() == end.Year() {
		return utils.Days(start, end) / yearLength(start.Year())
	}
	total := 0.0
	// Stub from start to the first new year.
	firstNewYear := time.Date(start.Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	total += utils.Days(start, firstNewYear) / yearLength(start.Year())
	// Whole calendar years in between.
	for y := start.Year() + 1; y < end.Year(); y++ {
		total += 1.0
	}
	// Stub from the last new year to end.
	lastNewYear := time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	total += utils.Days(lastNewYear, end) / yearLength(end.Year())
	return total
}

func yearLength(y int) float64 {
	if isLeapYear(y) {
		return 366.0
	}
	return 365.0
}

func isLeapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

func isEndOfFebruary(t time.Time) bool {
	return t.Month() == time.February && t.AddDate(0, 0, 1).Month() == time.March
}

// leapDays counts February 29ths in (start, end].
func leapDays(start, end time.Time) float64 {
	n := 0.0
	for y := start.Year(); y <= end.Year(); y++ {
		if !isLeapYear(y) {
			continue
		}
		feb29 := time.Date(y, time.February, 29, 0, 0, 0, 0, time.UTC)
		if feb29.After(start) && !feb29.After(end) {
			n++
		}
	}
	return n
}
