// Package calendar provides holiday calendars and business-day adjustment
// for schedule generation and settlement.
package calendar

import (
	"fmt"
	"time"
)

// ID identifies a holiday calendar.
type ID string

const (
	US     ID = "US"
	TARGET ID = "TARGET"
	GB     ID = "GB"
	JP     ID = "JP"
	// WeekendsOnly has no holidays; weekends are still non-business days.
	WeekendsOnly ID = "WEEKENDS"
)

// BusinessDayConvention selects how a date falling on a non-business day
// is rolled.
type BusinessDayConvention string

const (
	None              BusinessDayConvention = "NONE"
	Unadjusted        BusinessDayConvention = "UNADJUSTED"
	Following         BusinessDayConvention = "FOLLOWING"
	ModifiedFollowing BusinessDayConvention = "MODIFIED_FOLLOWING"
	Preceding         BusinessDayConvention = "PRECEDING"
	ModifiedPreceding BusinessDayConvention = "MODIFIED_PRECEDING"
)

// Calendar owns an immutable set of holiday dates plus the weekend rule.
// Construct via ForCurrency, Builtin or New; never mutate afterwards.
type Calendar struct {
	id       ID
	holidays map[string]struct{}
}

// New builds a calendar from explicit holiday dates.
func New(id ID, holidays []time.Time) *Calendar {
	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		set[h.Format("2006-01-02")] = struct{}{}
	}
	return &Calendar{id: id, holidays: set}
}

// ForCurrency maps an ISO currency code to its market calendar.
// Unmapped currencies are a hard error; callers own the fallback decision.
func ForCurrency(ccy string) (*Calendar, error) {
	switch ccy {
	case "USD":
		return Builtin(US), nil
	case "EUR":
		return Builtin(TARGET), nil
	case "GBP":
		return Builtin(GB), nil
	case "JPY":
		return Builtin(JP), nil
	default:
		return nil, fmt.Errorf("calendar.ForCurrency: no calendar for currency %q", ccy)
	}
}

// ID returns the calendar identifier.
func (c *Calendar) ID() ID {
	return c.id
}

// IsBusinessDay checks weekends and the holiday set.
func (c *Calendar) IsBusinessDay(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	_, holiday := c.holidays[t.Format("2006-01-02")]
	return !holiday
}

// Adjust rolls t onto a business day per the convention.
// ModifiedFollowing/ModifiedPreceding roll back (forward) into the original
// month if the roll would cross a month boundary. None and Unadjusted
// return t unchanged.
func (c *Calendar) Adjust(t time.Time, conv BusinessDayConvention) (time.Time, error) {
	switch conv {
	case None, Unadjusted:
		return t, nil
	case Following:
		return c.rollForward(t), nil
	case Preceding:
		return c.rollBackward(t), nil
	case ModifiedFollowing:
		adj := c.rollForward(t)
		if adj.Month() != t.Month() {
			return c.rollBackward(t), nil
		}
		return adj, nil
	case ModifiedPreceding:
		adj := c.rollBackward(t)
		if adj.Month() != t.Month() {
			return c.rollForward(t), nil
		}
		return adj, nil
	default:
		return time.Time{}, fmt.Errorf("calendar.Adjust: unsupported convention %q", conv)
	}
}

func (c *Calendar) rollForward(t time.Time) time.Time {
	for !c.IsBusinessDay(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func (c *Calendar) rollBackward(t time.Time) time.Time {
	for !c.IsBusinessDay(t) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

// AddBusinessDays advances n business days (n can be negative, used to
// recover a trade date from a settlement date).
func (c *Calendar) AddBusinessDays(t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if c.IsBusinessDay(t) {
			n -= step
		}
	}
	return t
}

// LastBusinessDayOfMonth returns the last business day of the month containing t.
func (c *Calendar) LastBusinessDayOfMonth(t time.Time) time.Time {
	nextMonth := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return c.AddBusinessDays(nextMonth, -1)
}

// IsEndOfMonth checks if t is the last business day of its month.
func (c *Calendar) IsEndOfMonth(t time.Time) bool {
	return t.Equal(c.LastBusinessDayOfMonth(t))
}
