// Package utils holds small date helpers shared by the day-count and
// schedule packages.
package utils

import (
	"time"
)

// AddMonth behaves like Excel's EDATE, avoiding Go's month normalization
// surprises: Jan 31 + 1 month is Feb 28/29, not Mar 2/3.
func AddMonth(t time.Time, months int) time.Time {
	target := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	if target.Month() == t.AddDate(0, months, 0).Month() {
		return t.AddDate(0, months, 0)
	}

	d := t.AddDate(0, months, 0)
	origMonth := int(d.Month())
	for int(d.Month()) == origMonth {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// Days returns the day count in days between two dates.
func Days(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}
