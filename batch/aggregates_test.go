package batch

import (
	"math"
	"testing"
)

func rec(orderID, customerID, product, category string, total float64, hour int32) CanonicalRecord {
	return CanonicalRecord{
		OrderID:         orderID,
		CustomerID:      customerID,
		ProductName:     product,
		Category:        category,
		Quantity:        1,
		Price:           total,
		TotalAmount:     total,
		OrderYear:       2026,
		OrderMonth:      8,
		OrderDay:        20,
		OrderHour:       hour,
		OrderWeekday:    4,
		DayPart:         "Morning",
		CustomerSegment: "Millennial",
		PaymentMethod:   "Credit Card",
		DeviceType:      "Mobile",
		RevenuePerItem:  total,
	}
}

func TestBuildDailySummary(t *testing.T) {
	rows := []CanonicalRecord{
		rec("o1", "c1", "Laptop", "Electronics", 100, 10),
		rec("o2", "c1", "Mouse", "Accessories", 600, 11),
		rec("o3", "c2", "Laptop", "Electronics", 50, 10),
	}
	rows[1].IsHighValue = true
	rows[1].IsDiscounted = true
	rows[1].DiscountPercentage = 15
	rows[2].IsPrimeMember = true

	out := buildDailySummary(rows)
	if len(out) != 1 {
		t.Fatalf("expected 1 day, got %d", len(out))
	}
	d := out[0]
	if d.TotalOrders != 3 || d.UniqueCustomers != 2 {
		t.Errorf("unexpected counts: %+v", d)
	}
	if d.TotalRevenue != 750 {
		t.Errorf("expected revenue 750, got %f", d.TotalRevenue)
	}
	if d.MaxOrderValue != 600 || d.MinOrderValue != 50 {
		t.Errorf("unexpected min/max: %+v", d)
	}
	if d.DiscountedOrders != 1 || d.HighValueOrders != 1 || d.PrimeOrders != 1 {
		t.Errorf("unexpected flag counts: %+v", d)
	}
	if d.ConversionRate != 1.5 {
		t.Errorf("expected conversion rate 1.5, got %f", d.ConversionRate)
	}
	if math.Abs(d.AvgDiscountRate-5) > 1e-9 {
		t.Errorf("expected avg discount 5, got %f", d.AvgDiscountRate)
	}
}

func TestBuildDailySummaryOrdering(t *testing.T) {
	early := rec("o1", "c1", "Laptop", "Electronics", 100, 10)
	late := rec("o2", "c2", "Laptop", "Electronics", 100, 10)
	late.OrderDay = 25

	out := buildDailySummary([]CanonicalRecord{late, early})
	if len(out) != 2 {
		t.Fatalf("expected 2 days, got %d", len(out))
	}
	if out[0].OrderDay != 20 || out[1].OrderDay != 25 {
		t.Errorf("days not chronological: %d, %d", out[0].OrderDay, out[1].OrderDay)
	}
}

func TestBuildProductPerformanceDenseRank(t *testing.T) {
	rows := []CanonicalRecord{
		rec("o1", "c1", "Laptop", "Electronics", 300, 10),
		rec("o2", "c2", "Monitor", "Electronics", 300, 10),
		rec("o3", "c3", "Mouse", "Accessories", 100, 10),
	}
	out := buildProductPerformance(rows)
	if len(out) != 3 {
		t.Fatalf("expected 3 products, got %d", len(out))
	}
	if out[0].RevenueRank != 1 || out[1].RevenueRank != 1 {
		t.Errorf("tied revenues must share rank 1, got %d and %d", out[0].RevenueRank, out[1].RevenueRank)
	}
	if out[2].RevenueRank != 2 {
		t.Errorf("dense rank must not skip, got %d", out[2].RevenueRank)
	}
	if out[2].ProductName != "Mouse" {
		t.Errorf("expected Mouse last, got %q", out[2].ProductName)
	}
}

func TestBuildCustomerSegments(t *testing.T) {
	a := rec("o1", "c1", "Laptop", "Electronics", 200, 10)
	a.CustomerLocation = "NY"
	b := rec("o2", "c1", "Mouse", "Accessories", 100, 11)
	b.CustomerLocation = "NY"
	c := rec("o3", "c2", "Laptop", "Electronics", 400, 10)
	c.CustomerLocation = "CA"
	c.IsPrimeMember = true

	out := buildCustomerSegments([]CanonicalRecord{a, b, c})
	if len(out) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(out))
	}
	if out[0].TotalRevenue < out[1].TotalRevenue {
		t.Error("buckets not ordered by revenue descending")
	}
	for _, row := range out {
		if row.CustomerLocation == "NY" {
			if row.UniqueCustomers != 1 || row.TotalOrders != 2 {
				t.Errorf("unexpected NY bucket: %+v", row)
			}
			if row.OrdersPerCustomer != 2 {
				t.Errorf("expected 2 orders per customer, got %f", row.OrdersPerCustomer)
			}
		}
	}
}

func TestBuildPaymentDeviceAnalysis(t *testing.T) {
	a := rec("o1", "c1", "Laptop", "Electronics", 100, 10)
	b := rec("o2", "c2", "Mouse", "Accessories", 200, 11)
	c := rec("o3", "c1", "Monitor", "Electronics", 300, 12)
	c.PaymentMethod = "PayPal"

	out := buildPaymentDeviceAnalysis([]CanonicalRecord{a, b, c})
	if len(out) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(out))
	}
	if out[0].PaymentMethod != "Credit Card" || out[0].TransactionCount != 2 {
		t.Errorf("expected Credit Card pair first, got %+v", out[0])
	}
	if out[0].UniqueUsers != 2 {
		t.Errorf("expected 2 unique users, got %d", out[0].UniqueUsers)
	}
}

func TestBuildHourlyPatterns(t *testing.T) {
	rows := []CanonicalRecord{
		rec("o1", "c1", "Laptop", "Electronics", 100, 14),
		rec("o2", "c2", "Mouse", "Accessories", 200, 9),
		rec("o3", "c3", "Monitor", "Electronics", 300, 14),
	}
	rows[0].DayPart = "Afternoon"
	rows[2].DayPart = "Afternoon"

	out := buildHourlyPatterns(rows)
	if len(out) != 2 {
		t.Fatalf("expected 2 hours, got %d", len(out))
	}
	if out[0].OrderHour != 9 || out[1].OrderHour != 14 {
		t.Errorf("hours not ordered: %+v", out)
	}
	if out[1].OrderCount != 2 || out[1].TotalRevenue != 400 {
		t.Errorf("unexpected hour-14 bucket: %+v", out[1])
	}
}

func TestAggregatesAreDeterministic(t *testing.T) {
	rows := []CanonicalRecord{
		rec("o1", "c1", "Laptop", "Electronics", 300, 10),
		rec("o2", "c2", "Monitor", "Electronics", 300, 11),
		rec("o3", "c3", "Mouse", "Accessories", 100, 12),
	}
	first := buildProductPerformance(rows)
	for i := 0; i < 10; i++ {
		again := buildProductPerformance(rows)
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("run %d row %d differs: %+v vs %+v", i, j, first[j], again[j])
			}
		}
	}
}
