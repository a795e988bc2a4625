package enrich

import (
	"testing"
	"time"
)

func TestCustomerSegmentThresholds(t *testing.T) {
	cases := []struct {
		age  int
		want string
	}{
		{18, "Gen Z"},
		{24, "Gen Z"},
		{25, "Millennial"},
		{39, "Millennial"},
		{40, "Gen X"},
		{54, "Gen X"},
		{55, "Boomer"},
		{69, "Boomer"},
		{70, "Silent"},
		{85, "Silent"},
	}
	for _, tc := range cases {
		if got := CustomerSegment(tc.age); got != tc.want {
			t.Errorf("CustomerSegment(%d) = %q, want %q", tc.age, got, tc.want)
		}
	}
}

func TestOrderSizeCategoryThresholds(t *testing.T) {
	cases := []struct {
		total float64
		want  string
	}{
		{10, "Small"},
		{49.99, "Small"},
		{50, "Medium"},
		{199.99, "Medium"},
		{200, "Large"},
		{499.99, "Large"},
		{500, "Extra Large"},
		{2500, "Extra Large"},
	}
	for _, tc := range cases {
		if got := OrderSizeCategory(tc.total); got != tc.want {
			t.Errorf("OrderSizeCategory(%v) = %q, want %q", tc.total, got, tc.want)
		}
	}
}

func TestIsHighValueBoundary(t *testing.T) {
	if IsHighValue(499.99) {
		t.Error("499.99 must not be high value")
	}
	if !IsHighValue(500) {
		t.Error("500 must be high value")
	}
}

func TestDayPartBuckets(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{0, "Night"},
		{5, "Night"},
		{6, "Morning"},
		{11, "Morning"},
		{12, "Afternoon"},
		{17, "Afternoon"},
		{18, "Evening"},
		{23, "Evening"},
	}
	for _, tc := range cases {
		if got := DayPart(tc.hour); got != tc.want {
			t.Errorf("DayPart(%d) = %q, want %q", tc.hour, got, tc.want)
		}
	}
}

func TestFeatures(t *testing.T) {
	// Saturday, 2026-08-22 19:45 UTC.
	f := Features(time.Date(2026, 8, 22, 19, 45, 0, 0, time.UTC))
	if f.Year != 2026 || f.Month != 8 || f.Day != 22 || f.Hour != 19 || f.Minute != 45 {
		t.Errorf("unexpected calendar fields: %+v", f)
	}
	if f.Weekday != int(time.Saturday) {
		t.Errorf("expected Saturday (%d), got %d", int(time.Saturday), f.Weekday)
	}
	if !f.IsWeekend {
		t.Error("Saturday must be weekend")
	}
	if f.Quarter != 3 {
		t.Errorf("expected quarter 3, got %d", f.Quarter)
	}

	// Monday is not weekend.
	mon := Features(time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC))
	if mon.IsWeekend {
		t.Error("Monday must not be weekend")
	}
	if mon.Weekday != int(time.Monday) {
		t.Errorf("expected Monday, got %d", mon.Weekday)
	}
}

func TestParseOrderDateLayouts(t *testing.T) {
	inputs := []string{
		"2026-08-22T19:45:00Z",
		"2026-08-22T19:45:00.123456789Z",
		"2026-08-22T19:45:00+02:00",
		"2026-08-22T19:45:00.123456",
		"2026-08-22T19:45:00",
		"2026-08-22 19:45:00",
	}
	for _, in := range inputs {
		ts, err := ParseOrderDate(in)
		if err != nil {
			t.Errorf("ParseOrderDate(%q): %v", in, err)
			continue
		}
		if ts.Year() != 2026 || ts.Month() != 8 || ts.Day() != 22 {
			t.Errorf("ParseOrderDate(%q) = %v, wrong date", in, ts)
		}
	}

	for _, in := range []string{"", "  ", "yesterday", "2026/08/22"} {
		if _, err := ParseOrderDate(in); err == nil {
			t.Errorf("ParseOrderDate(%q) should fail", in)
		}
	}
}

func TestNormalizeDiscount(t *testing.T) {
	explicit := 42.0
	if got := NormalizeDiscount(800, 10, &explicit); got != 42 {
		t.Errorf("explicit amount must win, got %f", got)
	}
	if got := NormalizeDiscount(800, 10, nil); got != 80 {
		t.Errorf("expected derived discount 80, got %f", got)
	}
	if got := NormalizeDiscount(800, 0, nil); got != 0 {
		t.Errorf("expected zero discount, got %f", got)
	}
}

func TestRevenuePerItem(t *testing.T) {
	if got := RevenuePerItem(300, 3); got != 100 {
		t.Errorf("expected 100, got %f", got)
	}
	if got := RevenuePerItem(300, 0); got != 0 {
		t.Errorf("zero quantity must yield 0, got %f", got)
	}
}
