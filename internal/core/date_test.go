package core

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-05-02")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.String() != "2024-05-02" {
		t.Fatalf("round trip failed: %q", d.String())
	}

	for _, bad := range []string{"", "2024-5-2", "02/05/2024", "2024-13-01", "not-a-date"} {
		if _, err := ParseDate(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}

func TestPeriodDays(t *testing.T) {
	cases := []struct {
		period string
		days   int
	}{
		{"2024-01", 31},
		{"2024-02", 29}, // leap year
		{"2023-02", 28},
		{"2100-02", 28}, // century rule
		{"2000-02", 29}, // 400-year rule
		{"2024-04", 30},
		{"2024-12", 31},
	}
	for _, tc := range cases {
		p, err := ParsePeriod(tc.period)
		if err != nil {
			t.Fatalf("%q: %v", tc.period, err)
		}
		if got := p.Days(); got != tc.days {
			t.Fatalf("%q expected %d days, got %d", tc.period, tc.days, got)
		}
	}
}

func TestPeriodContains(t *testing.T) {
	p, _ := ParsePeriod("2024-05")
	in, _ := ParseDate("2024-05-31")
	before, _ := ParseDate("2024-04-30")
	after, _ := ParseDate("2024-06-01")

	if !p.Contains(in) {
		t.Fatalf("expected %v in %v", in, p)
	}
	if p.Contains(before) || p.Contains(after) {
		t.Fatalf("adjacent months must not match")
	}
	if !before.BeforePeriod(p) {
		t.Fatalf("expected %v before %v", before, p)
	}
	if in.BeforePeriod(p) || after.BeforePeriod(p) {
		t.Fatalf("in-period and later dates are not before the period")
	}
}

func TestPeriodOf(t *testing.T) {
	p := PeriodOf(time.Date(2024, time.May, 17, 13, 45, 0, 0, time.UTC))
	if p.String() != "2024-05" {
		t.Fatalf("expected 2024-05, got %q", p.String())
	}
	if p.MonthName() != "May" {
		t.Fatalf("expected May, got %q", p.MonthName())
	}
}
