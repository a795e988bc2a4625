package batch

import (
	"sort"
)

// DailySummaryRow aggregates one calendar day of orders.
type DailySummaryRow struct {
	OrderYear        int32   `parquet:"name=order_year, type=INT32"`
	OrderMonth       int32   `parquet:"name=order_month, type=INT32"`
	OrderDay         int32   `parquet:"name=order_day, type=INT32"`
	OrderWeekday     int32   `parquet:"name=order_weekday, type=INT32"`
	IsWeekend        bool    `parquet:"name=is_weekend, type=BOOLEAN"`
	TotalOrders      int64   `parquet:"name=total_orders, type=INT64"`
	UniqueCustomers  int64   `parquet:"name=unique_customers, type=INT64"`
	TotalRevenue     float64 `parquet:"name=total_revenue, type=DOUBLE"`
	AvgOrderValue    float64 `parquet:"name=avg_order_value, type=DOUBLE"`
	MaxOrderValue    float64 `parquet:"name=max_order_value, type=DOUBLE"`
	MinOrderValue    float64 `parquet:"name=min_order_value, type=DOUBLE"`
	TotalItemsSold   int64   `parquet:"name=total_items_sold, type=INT64"`
	AvgDiscountRate  float64 `parquet:"name=avg_discount_rate, type=DOUBLE"`
	DiscountedOrders int64   `parquet:"name=discounted_orders, type=INT64"`
	HighValueOrders  int64   `parquet:"name=high_value_orders, type=INT64"`
	PrimeOrders      int64   `parquet:"name=prime_orders, type=INT64"`
	ConversionRate   float64 `parquet:"name=conversion_rate, type=DOUBLE"`
}

// ProductPerformanceRow aggregates one (product, category) pair.
type ProductPerformanceRow struct {
	ProductName   string  `parquet:"name=product_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Category      string  `parquet:"name=category, type=BYTE_ARRAY, convertedtype=UTF8"`
	OrderCount    int64   `parquet:"name=order_count, type=INT64"`
	TotalQuantity int64   `parquet:"name=total_quantity, type=INT64"`
	TotalRevenue  float64 `parquet:"name=total_revenue, type=DOUBLE"`
	AvgOrderValue float64 `parquet:"name=avg_order_value, type=DOUBLE"`
	AvgDiscount   float64 `parquet:"name=avg_discount, type=DOUBLE"`
	UniqueBuyers  int64   `parquet:"name=unique_buyers, type=INT64"`
	AvgItemPrice  float64 `parquet:"name=avg_item_price, type=DOUBLE"`
	RevenueRank   int32   `parquet:"name=revenue_rank, type=INT32"`
}

// CustomerSegmentRow aggregates one (segment, location, prime) bucket.
type CustomerSegmentRow struct {
	CustomerSegment    string  `parquet:"name=customer_segment, type=BYTE_ARRAY, convertedtype=UTF8"`
	CustomerLocation   string  `parquet:"name=customer_location, type=BYTE_ARRAY, convertedtype=UTF8"`
	IsPrimeMember      bool    `parquet:"name=is_prime_member, type=BOOLEAN"`
	UniqueCustomers    int64   `parquet:"name=unique_customers, type=INT64"`
	TotalOrders        int64   `parquet:"name=total_orders, type=INT64"`
	TotalRevenue       float64 `parquet:"name=total_revenue, type=DOUBLE"`
	AvgOrderValue      float64 `parquet:"name=avg_order_value, type=DOUBLE"`
	AvgAge             float64 `parquet:"name=avg_age, type=DOUBLE"`
	TotalItems         int64   `parquet:"name=total_items, type=INT64"`
	AvgItemsViewed     float64 `parquet:"name=avg_items_viewed, type=DOUBLE"`
	AvgSessionDuration float64 `parquet:"name=avg_session_duration, type=DOUBLE"`
	OrdersPerCustomer  float64 `parquet:"name=orders_per_customer, type=DOUBLE"`
}

// PaymentDeviceRow aggregates one (payment method, device type) pair.
type PaymentDeviceRow struct {
	PaymentMethod       string  `parquet:"name=payment_method, type=BYTE_ARRAY, convertedtype=UTF8"`
	DeviceType          string  `parquet:"name=device_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	TransactionCount    int64   `parquet:"name=transaction_count, type=INT64"`
	TotalRevenue        float64 `parquet:"name=total_revenue, type=DOUBLE"`
	AvgTransactionValue float64 `parquet:"name=avg_transaction_value, type=DOUBLE"`
	UniqueUsers         int64   `parquet:"name=unique_users, type=INT64"`
}

// HourlyPatternRow aggregates one (hour of day, day part) bucket.
type HourlyPatternRow struct {
	OrderHour       int32   `parquet:"name=order_hour, type=INT32"`
	DayPart         string  `parquet:"name=day_part, type=BYTE_ARRAY, convertedtype=UTF8"`
	OrderCount      int64   `parquet:"name=order_count, type=INT64"`
	TotalRevenue    float64 `parquet:"name=total_revenue, type=DOUBLE"`
	AvgOrderValue   float64 `parquet:"name=avg_order_value, type=DOUBLE"`
	UniqueCustomers int64   `parquet:"name=unique_customers, type=INT64"`
}

type dailyAcc struct {
	weekday          int32
	weekend          bool
	orders           int64
	customers        map[string]bool
	revenue          float64
	maxValue         float64
	minValue         float64
	items            int64
	discountSum      float64
	discountedOrders int64
	highValueOrders  int64
	primeOrders      int64
}

// buildDailySummary groups by calendar day, ordered chronologically.
// conversion_rate is orders per distinct customer, matching the historical
// report definition.
func buildDailySummary(rows []CanonicalRecord) []DailySummaryRow {
	type key struct{ y, m, d int32 }
	acc := make(map[key]*dailyAcc)

	for _, r := range rows {
		k := key{r.OrderYear, r.OrderMonth, r.OrderDay}
		a, ok := acc[k]
		if !ok {
			a = &dailyAcc{
				weekday:   r.OrderWeekday,
				weekend:   r.IsWeekend,
				customers: make(map[string]bool),
				minValue:  r.TotalAmount,
				maxValue:  r.TotalAmount,
			}
			acc[k] = a
		}
		a.orders++
		a.customers[r.CustomerID] = true
		a.revenue += r.TotalAmount
		if r.TotalAmount > a.maxValue {
			a.maxValue = r.TotalAmount
		}
		if r.TotalAmount < a.minValue {
			a.minValue = r.TotalAmount
		}
		a.items += int64(r.Quantity)
		a.discountSum += r.DiscountPercentage
		if r.IsDiscounted {
			a.discountedOrders++
		}
		if r.IsHighValue {
			a.highValueOrders++
		}
		if r.IsPrimeMember {
			a.primeOrders++
		}
	}

	out := make([]DailySummaryRow, 0, len(acc))
	for k, a := range acc {
		row := DailySummaryRow{
			OrderYear:        k.y,
			OrderMonth:       k.m,
			OrderDay:         k.d,
			OrderWeekday:     a.weekday,
			IsWeekend:        a.weekend,
			TotalOrders:      a.orders,
			UniqueCustomers:  int64(len(a.customers)),
			TotalRevenue:     a.revenue,
			AvgOrderValue:    a.revenue / float64(a.orders),
			MaxOrderValue:    a.maxValue,
			MinOrderValue:    a.minValue,
			TotalItemsSold:   a.items,
			AvgDiscountRate:  a.discountSum / float64(a.orders),
			DiscountedOrders: a.discountedOrders,
			HighValueOrders:  a.highValueOrders,
			PrimeOrders:      a.primeOrders,
		}
		row.ConversionRate = float64(row.TotalOrders) / float64(row.UniqueCustomers)
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderYear != out[j].OrderYear {
			return out[i].OrderYear < out[j].OrderYear
		}
		if out[i].OrderMonth != out[j].OrderMonth {
			return out[i].OrderMonth < out[j].OrderMonth
		}
		return out[i].OrderDay < out[j].OrderDay
	})
	return out
}

type productAcc struct {
	orders      int64
	quantity    int64
	revenue     float64
	discountSum float64
	buyers      map[string]bool
	itemPrice   float64
}

// buildProductPerformance groups by (product, category), ranked by revenue
// descending. Rank is dense; ties share a rank and the next rank is not
// skipped.
func buildProductPerformance(rows []CanonicalRecord) []ProductPerformanceRow {
	type key struct{ product, category string }
	acc := make(map[key]*productAcc)

	for _, r := range rows {
		k := key{r.ProductName, r.Category}
		a, ok := acc[k]
		if !ok {
			a = &productAcc{buyers: make(map[string]bool)}
			acc[k] = a
		}
		a.orders++
		a.quantity += int64(r.Quantity)
		a.revenue += r.TotalAmount
		a.discountSum += r.DiscountPercentage
		a.buyers[r.CustomerID] = true
		a.itemPrice += r.RevenuePerItem
	}

	out := make([]ProductPerformanceRow, 0, len(acc))
	for k, a := range acc {
		out = append(out, ProductPerformanceRow{
			ProductName:   k.product,
			Category:      k.category,
			OrderCount:    a.orders,
			TotalQuantity: a.quantity,
			TotalRevenue:  a.revenue,
			AvgOrderValue: a.revenue / float64(a.orders),
			AvgDiscount:   a.discountSum / float64(a.orders),
			UniqueBuyers:  int64(len(a.buyers)),
			AvgItemPrice:  a.itemPrice / float64(a.orders),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalRevenue != out[j].TotalRevenue {
			return out[i].TotalRevenue > out[j].TotalRevenue
		}
		if out[i].ProductName != out[j].ProductName {
			return out[i].ProductName < out[j].ProductName
		}
		return out[i].Category < out[j].Category
	})

	rank := int32(0)
	prevRevenue := 0.0
	for i := range out {
		if i == 0 || out[i].TotalRevenue != prevRevenue {
			rank++
		}
		out[i].RevenueRank = rank
		prevRevenue = out[i].TotalRevenue
	}
	return out
}

type segmentAcc struct {
	customers   map[string]bool
	orders      int64
	revenue     float64
	ageSum      float64
	items       int64
	viewedSum   float64
	durationSum float64
}

// buildCustomerSegments groups by (segment, location, prime membership),
// ordered by revenue descending.
func buildCustomerSegments(rows []CanonicalRecord) []CustomerSegmentRow {
	type key struct {
		segment, location string
		prime             bool
	}
	acc := make(map[key]*segmentAcc)

	for _, r := range rows {
		k := key{r.CustomerSegment, r.CustomerLocation, r.IsPrimeMember}
		a, ok := acc[k]
		if !ok {
			a = &segmentAcc{customers: make(map[string]bool)}
			acc[k] = a
		}
		a.customers[r.CustomerID] = true
		a.orders++
		a.revenue += r.TotalAmount
		a.ageSum += float64(r.CustomerAge)
		a.items += int64(r.Quantity)
		a.viewedSum += float64(r.ItemsViewed)
		a.durationSum += float64(r.SessionDurationSeconds)
	}

	out := make([]CustomerSegmentRow, 0, len(acc))
	for k, a := range acc {
		row := CustomerSegmentRow{
			CustomerSegment:    k.segment,
			CustomerLocation:   k.location,
			IsPrimeMember:      k.prime,
			UniqueCustomers:    int64(len(a.customers)),
			TotalOrders:        a.orders,
			TotalRevenue:       a.revenue,
			AvgOrderValue:      a.revenue / float64(a.orders),
			AvgAge:             a.ageSum / float64(a.orders),
			TotalItems:         a.items,
			AvgItemsViewed:     a.viewedSum / float64(a.orders),
			AvgSessionDuration: a.durationSum / float64(a.orders),
		}
		row.OrdersPerCustomer = float64(row.TotalOrders) / float64(row.UniqueCustomers)
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalRevenue != out[j].TotalRevenue {
			return out[i].TotalRevenue > out[j].TotalRevenue
		}
		if out[i].CustomerSegment != out[j].CustomerSegment {
			return out[i].CustomerSegment < out[j].CustomerSegment
		}
		return out[i].CustomerLocation < out[j].CustomerLocation
	})
	return out
}

type paymentAcc struct {
	count   int64
	revenue float64
	users   map[string]bool
}

// buildPaymentDeviceAnalysis groups by (payment method, device type),
// ordered by transaction count descending.
func buildPaymentDeviceAnalysis(rows []CanonicalRecord) []PaymentDeviceRow {
	type key struct{ payment, device string }
	acc := make(map[key]*paymentAcc)

	for _, r := range rows {
		k := key{r.PaymentMethod, r.DeviceType}
		a, ok := acc[k]
		if !ok {
			a = &paymentAcc{users: make(map[string]bool)}
			acc[k] = a
		}
		a.count++
		a.revenue += r.TotalAmount
		a.users[r.CustomerID] = true
	}

	out := make([]PaymentDeviceRow, 0, len(acc))
	for k, a := range acc {
		out = append(out, PaymentDeviceRow{
			PaymentMethod:       k.payment,
			DeviceType:          k.device,
			TransactionCount:    a.count,
			TotalRevenue:        a.revenue,
			AvgTransactionValue: a.revenue / float64(a.count),
			UniqueUsers:         int64(len(a.users)),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TransactionCount != out[j].TransactionCount {
			return out[i].TransactionCount > out[j].TransactionCount
		}
		if out[i].PaymentMethod != out[j].PaymentMethod {
			return out[i].PaymentMethod < out[j].PaymentMethod
		}
		return out[i].DeviceType < out[j].DeviceType
	})
	return out
}

type hourlyAcc struct {
	dayPart   string
	count     int64
	revenue   float64
	customers map[string]bool
}

// buildHourlyPatterns groups by hour of day, ordered chronologically.
func buildHourlyPatterns(rows []CanonicalRecord) []HourlyPatternRow {
	acc := make(map[int32]*hourlyAcc)

	for _, r := range rows {
		a, ok := acc[r.OrderHour]
		if !ok {
			a = &hourlyAcc{dayPart: r.DayPart, customers: make(map[string]bool)}
			acc[r.OrderHour] = a
		}
		a.count++
		a.revenue += r.TotalAmount
		a.customers[r.CustomerID] = true
	}

	out := make([]HourlyPatternRow, 0, len(acc))
	for hour, a := range acc {
		out = append(out, HourlyPatternRow{
			OrderHour:       hour,
			DayPart:         a.dayPart,
			OrderCount:      a.count,
			TotalRevenue:    a.revenue,
			AvgOrderValue:   a.revenue / float64(a.count),
			UniqueCustomers: int64(len(a.customers)),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].OrderHour < out[j].OrderHour })
	return out
}
