// Package schedule generates bond payment schedules from bond terms and
// extracts valuation-date-relative cashflows, projecting floating coupons
// off the curve.
package schedule

import (
	"fmt"
	"time"

	"github.com/meenmo/bondlib/calendar"
	"github.com/meenmo/bondlib/daycount"
)

// EventKind classifies what a payment event delivers.
type EventKind string

const (
	Coupon    EventKind = "COUPON"
	Principal EventKind = "PRINCIPAL"
	Both      EventKind = "BOTH"
)

// AmortizationEntry is a scheduled principal repayment.
type AmortizationEntry struct {
	Date      time.Time
	Principal float64
}

// CallEntry is one exercise date of a call schedule with its strike,
// quoted per 100 of outstanding notional.
type CallEntry struct {
	Date  time.Time
	Price float64
}

// BondTerms describes a bond's contractual cashflow terms. Amortization
// and call schedules must be ordered by date.
type BondTerms struct {
	IssueDate time.Time
	// FirstCouponDate is optional; when zero it is derived as one coupon
	// period after issue.
	FirstCouponDate time.Time
	MaturityDate    time.Time

	// CouponRate is a decimal (0.05 == 5%). For floating bonds it is the
	// spread over the reference rate.
	CouponRate float64
	// Frequency is coupons per year: 1, 2, 4 or 12.
	Frequency int

	DayCount    daycount.Convention
	BusinessDay calendar.BusinessDayConvention
	Calendar    *calendar.Calendar

	// Notional defaults to 100 when zero.
	Notional float64

	Amortization []AmortizationEntry
	CallSchedule []CallEntry

	Currency string
}

// FloatingTerms describes a coupon whose amount is unknown until its reset;
// the projection happens at extraction time against the supplied curve.
type FloatingTerms struct {
	Notional     float64
	Spread       float64
	ResetDate    time.Time
	AccrualStart time.Time
	AccrualEnd   time.Time
}

// PaymentEvent is one dated payment. A schedule is an ordered sequence of
// events, immutable once generated. Floating coupons carry a descriptor
// instead of a coupon amount; the amount is projected at extraction time.
type PaymentEvent struct {
	Date      time.Time
	Kind      EventKind
	Coupon    float64
	Principal float64
	// Floating is non-nil for unfixed floating coupons.
	Floating *FloatingTerms
}

// Amount is the total cash delivered by the event.
func (e PaymentEvent) Amount() float64 {
	return e.Coupon + e.Principal
}

func (t *BondTerms) validate() error {
	if t.IssueDate.IsZero() {
		return fmt.Errorf("schedule: IssueDate is required")
	}
	if t.MaturityDate.IsZero() {
		return fmt.Errorf("schedule: MaturityDate is required")
	}
	if !t.MaturityDate.After(t.IssueDate) {
		return fmt.Errorf("schedule: MaturityDate %s must be after IssueDate %s",
			t.MaturityDate.Format("2006-01-02"), t.IssueDate.Format("2006-01-02"))
	}
	switch t.Frequency {
	case 1, 2, 4, 12:
	default:
		return fmt.Errorf("schedule: unsupported coupon frequency %d (want 1, 2, 4 or 12)", t.Frequency)
	}
	if t.Calendar == nil {
		return fmt.Errorf("schedule: Calendar is required")
	}
	return nil
}

func (t *BondTerms) notionalOrDefault() float64 {
	if t.Notional == 0 {
		return 100
	}
	return t.Notional
}

func (t *BondTerms) monthsPerPeriod() int {
	return 12 / t.Frequency
}

// Outstanding returns the notional still outstanding immediately after all
// principal payments dated on or before d.
func Outstanding(events []PaymentEvent, notional float64, d time.Time) float64 {
	out := notional
	for _, ev := range events {
		if ev.Date.After(d) {
			break
		}
		out -= ev.Principal
	}
	if out < 0 {
		return 0
	}
	return out
}
