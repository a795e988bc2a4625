package models

// OrderEvent is a single synthetic e-commerce order as published onto the
// stream. Financial fields are computed by the generator so that
// subtotal = price * quantity and total_amount = subtotal - discount_amount.
type OrderEvent struct {
	OrderID                string  `json:"order_id"`
	CustomerID             string  `json:"customer_id"`
	ProductName            string  `json:"product_name"`
	Category               string  `json:"category"`
	Quantity               int     `json:"quantity"`
	Price                  float64 `json:"price"`
	Subtotal               float64 `json:"subtotal"`
	DiscountPercentage     float64 `json:"discount_percentage"`
	DiscountAmount         float64 `json:"discount_amount"`
	TotalAmount            float64 `json:"total_amount"`
	OrderDate              string  `json:"order_date"`
	CustomerAge            int     `json:"customer_age"`
	CustomerLocation       string  `json:"customer_location"`
	PaymentMethod          string  `json:"payment_method"`
	ShippingMethod         string  `json:"shipping_method"`
	IsPrimeMember          bool    `json:"is_prime_member"`
	DeviceType             string  `json:"device_type"`
	SessionDurationSeconds int     `json:"session_duration_seconds"`
	ItemsViewed            int     `json:"items_viewed"`
	IsReturningCustomer    bool    `json:"is_returning_customer"`
	ReferralSource         string  `json:"referral_source"`
	PromoCodeUsed          *string `json:"promo_code_used"`
	EstimatedDeliveryDays  int     `json:"estimated_delivery_days"`
}

// EnrichedOrder is an OrderEvent plus the derived fields and channel
// provenance attached on the stream path. Original fields are carried
// through unmodified.
type EnrichedOrder struct {
	OrderEvent

	ProcessedTimestamp string `json:"processed_timestamp"`
	SequenceNumber     string `json:"sequence_number,omitempty"`
	PartitionKey       string `json:"partition_key,omitempty"`

	CustomerSegment string `json:"customer_segment"`
	OrderYear       int    `json:"order_year"`
	OrderMonth      int    `json:"order_month"`
	OrderDay        int    `json:"order_day"`
	OrderHour       int    `json:"order_hour"`
	OrderWeekday    int    `json:"order_weekday"`
	IsWeekend       bool   `json:"is_weekend"`
	IsHighValue     bool   `json:"is_high_value"`
	OrderSize       string `json:"order_size"`
}

// RawOrder is the schema-flexible shape read back from the raw landing zone
// by the batch transformer. Every field the validity filter inspects is a
// pointer so that absent and null values are distinguishable from zeros.
// Quantities and ages arrive as JSON numbers and are cast to integers only
// after validation.
type RawOrder struct {
	OrderID                *string  `json:"order_id"`
	CustomerID             *string  `json:"customer_id"`
	ProductName            *string  `json:"product_name"`
	Category               *string  `json:"category"`
	Quantity               *float64 `json:"quantity"`
	Price                  *float64 `json:"price"`
	Subtotal               *float64 `json:"subtotal"`
	DiscountPercentage     *float64 `json:"discount_percentage"`
	DiscountAmount         *float64 `json:"discount_amount"`
	TotalAmount            *float64 `json:"total_amount"`
	OrderDate              *string  `json:"order_date"`
	CustomerAge            *float64 `json:"customer_age"`
	CustomerLocation       *string  `json:"customer_location"`
	PaymentMethod          *string  `json:"payment_method"`
	ShippingMethod         *string  `json:"shipping_method"`
	IsPrimeMember          *bool    `json:"is_prime_member"`
	DeviceType             *string  `json:"device_type"`
	SessionDurationSeconds *float64 `json:"session_duration_seconds"`
	ItemsViewed            *float64 `json:"items_viewed"`
	IsReturningCustomer    *bool    `json:"is_returning_customer"`
	ReferralSource         *string  `json:"referral_source"`
	PromoCodeUsed          *string  `json:"promo_code_used"`
	EstimatedDeliveryDays  *float64 `json:"estimated_delivery_days"`

	// Set by the stream path; used as the deterministic dedup tie-break.
	ProcessedTimestamp *string `json:"processed_timestamp"`
}

// CustomerProfile is the lightweight customer record the generator upserts
// into the point-lookup store alongside each order.
type CustomerProfile struct {
	CustomerID       string  `json:"customer_id"`
	Age              int     `json:"age"`
	Location         string  `json:"location"`
	CreatedDate      string  `json:"created_date"`
	LoyaltyTier      string  `json:"loyalty_tier"`
	Email            string  `json:"email"`
	TotalPurchases   float64 `json:"total_purchases"`
	LastPurchaseDate string  `json:"last_purchase_date"`
}
