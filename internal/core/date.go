package core

import (
	"fmt"
	"time"
)

type (
	// Date is a calendar date without a time component, wire format YYYY-MM-DD.
	Date struct {
		time.Time
	}

	// Period is a calendar month, wire format YYYY-MM. It is the unit of
	// dashboard aggregation.
	Period struct {
		Year  int
		Month time.Month
	}
)

const (
	dateLayout   = "2006-01-02"
	periodLayout = "2006-01"
)

// NewDate creates a Date from year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses the ISO YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Period returns the month the date falls in.
func (d Date) Period() Period {
	return Period{Year: d.Time.Year(), Month: d.Time.Month()}
}

// After reports whether d is strictly after other, comparing dates only.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// ParsePeriod parses the YYYY-MM form.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse(periodLayout, s)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q: expected YYYY-MM", s)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// PeriodOf returns the period a point in time falls in.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// MonthName returns the human-readable month name, e.g. "May".
func (p Period) MonthName() string {
	return p.Month.String()
}

// Days returns the exact number of calendar days in the month, accounting for
// leap years.
func (p Period) Days() int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Contains reports whether d falls within the period. This is the typed
// equivalent of a YYYY-MM prefix match on the wire form.
func (p Period) Contains(d Date) bool {
	return d.Time.Year() == p.Year && d.Time.Month() == p.Month
}

// Start returns the first day of the period.
func (p Period) Start() Date {
	return NewDate(p.Year, p.Month, 1)
}

// BeforePeriod reports whether the date falls strictly before p.
func (d Date) BeforePeriod(p Period) bool {
	return d.Time.Before(p.Start().Time)
}
