// Package enrich holds the derivation rules shared by the stream and batch
// paths. Both paths must produce identical derived fields for the same
// input record, so every rule lives here and nowhere else.
package enrich

import (
	"fmt"
	"strings"
	"time"
)

// TimeFeatures are the calendar fields derived from an order timestamp.
// Weekday follows time.Weekday numbering (Sunday = 0); the weekend set is
// Saturday and Sunday.
type TimeFeatures struct {
	Year      int
	Month     int
	Day       int
	Hour      int
	Minute    int
	Weekday   int
	Week      int
	Quarter   int
	IsWeekend bool
}

// Timestamp layouts accepted for order_date, tried in order. The generator
// emits RFC 3339; upstream producers have been seen sending bare ISO 8601
// without an offset.
var orderDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseOrderDate parses an order_date string. A trailing "Z" is normalised
// to an explicit UTC offset before matching, mirroring how the stream path
// has always treated producer timestamps.
func ParseOrderDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty order date")
	}
	for _, layout := range orderDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable order date %q", s)
}

// Features derives the calendar fields for t.
func Features(t time.Time) TimeFeatures {
	_, week := t.ISOWeek()
	wd := t.Weekday()
	return TimeFeatures{
		Year:      t.Year(),
		Month:     int(t.Month()),
		Day:       t.Day(),
		Hour:      t.Hour(),
		Minute:    t.Minute(),
		Weekday:   int(wd),
		Week:      week,
		Quarter:   (int(t.Month())-1)/3 + 1,
		IsWeekend: wd == time.Saturday || wd == time.Sunday,
	}
}

// DayPart buckets an hour of day: Night before 6, Morning before 12,
// Afternoon before 18, Evening otherwise.
func DayPart(hour int) string {
	switch {
	case hour < 6:
		return "Night"
	case hour < 12:
		return "Morning"
	case hour < 18:
		return "Afternoon"
	default:
		return "Evening"
	}
}

// CustomerSegment buckets a customer solely by age.
func CustomerSegment(age int) string {
	switch {
	case age < 25:
		return "Gen Z"
	case age < 40:
		return "Millennial"
	case age < 55:
		return "Gen X"
	case age < 70:
		return "Boomer"
	default:
		return "Silent"
	}
}

// OrderSizeCategory buckets an order by total amount.
func OrderSizeCategory(total float64) string {
	switch {
	case total < 50:
		return "Small"
	case total < 200:
		return "Medium"
	case total < 500:
		return "Large"
	default:
		return "Extra Large"
	}
}

// IsHighValue reports whether an order total crosses the high-value line.
func IsHighValue(total float64) bool {
	return total >= 500
}

// IsDiscounted reports whether any discount applied.
func IsDiscounted(discountPercentage float64) bool {
	return discountPercentage > 0
}

// RevenuePerItem is total amount divided by quantity. Quantity is strictly
// positive in every cleaned record; zero returns zero rather than Inf for
// callers that run before validation.
func RevenuePerItem(total float64, quantity int) float64 {
	if quantity == 0 {
		return 0
	}
	return total / float64(quantity)
}

// NormalizeDiscount resolves the effective discount amount: an explicit
// discount_amount wins, otherwise it is derived from the subtotal and
// percentage.
func NormalizeDiscount(subtotal, discountPercentage float64, explicit *float64) float64 {
	if explicit != nil {
		return *explicit
	}
	return subtotal * discountPercentage / 100
}
