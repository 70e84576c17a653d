package calendar

import (
	"sync"
	"time"
)

// Builtin returns the bundled calendar for id. Holiday sets are generated
// once per process and shared; calendars are immutable so this is safe.
func Builtin(id ID) *Calendar {
	builtinOnce.Do(buildBuiltins)
	if c, ok := builtins[id]; ok {
		return c
	}
	return builtins[WeekendsOnly]
}

var (
	builtinOnce sync.Once
	builtins    map[ID]*Calendar
)

const (
	builtinFirstYear = 2000
	builtinLastYear  = 2060
)

func buildBuiltins() {
	builtins = map[ID]*Calendar{
		US:           New(US, generate(usHolidays)),
		TARGET:       New(TARGET, generate(targetHolidays)),
		GB:           New(GB, generate(gbHolidays)),
		JP:           New(JP, jpHolidayList()),
		WeekendsOnly: New(WeekendsOnly, nil),
	}
}

func generate(perYear func(year int) []time.Time) []time.Time {
	var out []time.Time
	for y := builtinFirstYear; y <= builtinLastYear; y++ {
		out = append(out, perYear(y)...)
	}
	return out
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// nthWeekday returns the n-th (1-based) weekday of the month; n = -1 means last.
func nthWeekday(y int, m time.Month, wd time.Weekday, n int) time.Time {
	if n > 0 {
		t := date(y, m, 1)
		offset := (int(wd) - int(t.Weekday()) + 7) % 7
		return t.AddDate(0, 0, offset+(n-1)*7)
	}
	t := date(y, m+1, 1).AddDate(0, 0, -1)
	offset := (int(t.Weekday()) - int(wd) + 7) % 7
	return t.AddDate(0, 0, -offset)
}

// observedUS shifts Saturday holidays to Friday and Sunday holidays to Monday.
func observedUS(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, -1)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	}
	return t
}

// easterSunday uses the Anonymous Gregorian algorithm.
func easterSunday(y int) time.Time {
	a := y % 19
	b := y / 100
	c := y % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return date(y, time.Month(month), day)
}

// usHolidays lists US bond-market holidays (SIFMA set without early closes).
func usHolidays(y int) []time.Time {
	hs := []time.Time{
		observedUS(date(y, time.January, 1)),
		nthWeekday(y, time.January, time.Monday, 3),  // MLK Day
		nthWeekday(y, time.February, time.Monday, 3), // Presidents' Day
		easterSunday(y).AddDate(0, 0, -2),            // Good Friday
		nthWeekday(y, time.May, time.Monday, -1),     // Memorial Day
		observedUS(date(y, time.July, 4)),
		nthWeekday(y, time.September, time.Monday, 1), // Labor Day
		nthWeekday(y, time.October, time.Monday, 2),   // Columbus Day
		observedUS(date(y, time.November, 11)),        // Veterans Day
		nthWeekday(y, time.November, time.Thursday, 4),
		observedUS(date(y, time.December, 25)),
	}
	if y >= 2022 {
		hs = append(hs, observedUS(date(y, time.June, 19))) // Juneteenth
	}
	return hs
}

// targetHolidays lists TARGET2 closing days.
func targetHolidays(y int) []time.Time {
	easter := easterSunday(y)
	return []time.Time{
		date(y, time.January, 1),
		easter.AddDate(0, 0, -2), // Good Friday
		easter.AddDate(0, 0, 1),  // Easter Monday
		date(y, time.May, 1),
		date(y, time.December, 25),
		date(y, time.December, 26),
	}
}

// gbHolidays lists England & Wales bank holidays (regular set; one-off
// royal/jubilee days are not modelled).
func gbHolidays(y int) []time.Time {
	easter := easterSunday(y)
	hs := []time.Time{
		observedUS(date(y, time.January, 1)),
		easter.AddDate(0, 0, -2),                    // Good Friday
		easter.AddDate(0, 0, 1),                     // Easter Monday
		nthWeekday(y, time.May, time.Monday, 1),     // Early May
		nthWeekday(y, time.May, time.Monday, -1),    // Spring
		nthWeekday(y, time.August, time.Monday, -1), // Summer
	}
	// Christmas and Boxing Day roll onto the next free weekday together.
	xmas := date(y, time.December, 25)
	boxing := date(y, time.December, 26)
	switch xmas.Weekday() {
	case time.Friday:
		boxing = boxing.AddDate(0, 0, 2)
	case time.Saturday:
		xmas = xmas.AddDate(0, 0, 2)
		boxing = boxing.AddDate(0, 0, 2)
	case time.Sunday:
		xmas = xmas.AddDate(0, 0, 1)
		boxing = boxing.AddDate(0, 0, 1)
	}
	return append(hs, xmas, boxing)
}

// jpHolidayList mirrors the bundled-list approach used for markets whose
// holidays do not reduce to simple rules (equinox days, Golden Week
// substitutions). Fixed-date and happy-monday holidays are generated; the
// equinox days use the standard astronomical approximation.
func jpHolidayList() []time.Time {
	var out []time.Time
	for y := builtinFirstYear; y <= builtinLastYear; y++ {
		hs := []time.Time{
			date(y, time.January, 1),
			date(y, time.January, 2), // bank holiday
			date(y, time.January, 3), // bank holiday
			nthWeekday(y, time.January, time.Monday, 2), // Coming of Age
			date(y, time.February, 11),                  // Foundation Day
			date(y, time.February, 23),                  // Emperor's Birthday (from 2020)
			vernalEquinox(y),
			date(y, time.April, 29), // Showa Day
			date(y, time.May, 3),
			date(y, time.May, 4),
			date(y, time.May, 5),
			nthWeekday(y, time.July, time.Monday, 3),      // Marine Day
			date(y, time.August, 11),                      // Mountain Day
			nthWeekday(y, time.September, time.Monday, 3), // Respect for the Aged
			autumnalEquinox(y),
			nthWeekday(y, time.October, time.Monday, 2), // Sports Day
			date(y, time.November, 3),                   // Culture Day
			date(y, time.November, 23),                  // Labour Thanksgiving
			date(y, time.December, 31),                  // bank holiday
		}
		for _, h := range hs {
			out = append(out, h)
			// Substitute holiday: Sunday holidays observe on Monday.
			if h.Weekday() == time.Sunday {
				out = append(out, h.AddDate(0, 0, 1))
			}
		}
	}
	return out
}

func vernalEquinox(y int) time.Time {
	d := int(20.8431 + 0.242194*float64(y-1980) - float64((y-1980)/4))
	return date(y, time.March, d)
}

func autumnalEquinox(y int) time.Time {
	d := int(23.2488 + 0.242194*float64(y-1980) - float64((y-1980)/4))
	return date(y, time.September, d)
}
