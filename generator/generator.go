// Package generator produces synthetic e-commerce order events and
// publishes them onto the streaming channel keyed by customer id.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	appconfig "orderflow/config"
	"orderflow/internal/platform"
	"orderflow/logger"
	"orderflow/models"
)

var products = []string{
	"Laptop", "Smartphone", "Tablet", "Headphones", "Smartwatch",
	"Camera", "Keyboard", "Mouse", "Monitor", "Speaker",
	"USB Drive", "External HDD", "Webcam", "Microphone", "Router",
	"Printer", "Scanner", "Desk Lamp", "Power Bank", "Cable Set",
}

var categories = []string{
	"Electronics", "Computers", "Accessories", "Audio", "Networking",
	"Storage", "Mobile", "Gaming", "Office", "Smart Home",
}

var locations = []string{"NY", "CA", "TX", "FL", "IL", "PA", "OH", "GA", "NC", "MI"}

var paymentMethods = []string{"Credit Card", "Debit Card", "PayPal", "Apple Pay", "Google Pay", "Amazon Pay"}
var shippingMethods = []string{"Standard", "Express", "Next Day", "Two Day", "Economy"}
var deviceTypes = []string{"Mobile", "Desktop", "Tablet", "App iOS", "App Android"}
var referralSources = []string{"Direct", "Google", "Facebook", "Email", "Instagram"}
var loyaltyTiers = []string{"Bronze", "Silver", "Gold", "Platinum"}
var promoCodes = []string{"SAVE10", "FREESHIP", "WELCOME20"}
var discountChoices = []float64{0, 5, 10, 15, 20, 25}

const maxReportedErrors = 10

// Generator publishes randomized but schema-valid order events. Each
// invocation is a bounded sequential loop; per-record failures are
// collected and reported, never aborting the batch.
type Generator struct {
	config  *appconfig.Config
	channel platform.ChannelWriter
	points  platform.PointStore
	limiter *rate.Limiter
	rng     *rand.Rand
	log     *logger.Log
	now     func() time.Time
}

// New builds a generator. The point store is optional; a nil store skips
// the customer profile upserts.
func New(cfg *appconfig.Config, channel platform.ChannelWriter, points platform.PointStore) *Generator {
	return &Generator{
		config:  cfg,
		channel: channel,
		points:  points,
		limiter: rate.NewLimiter(rate.Limit(cfg.Generator.RecordsPerSecond), 1),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		log:     logger.GetLogger(),
		now:     time.Now,
	}
}

// Generate produces and publishes numRecords order events, clamped to the
// configured maximum. The response always carries explicit counts and the
// first few error messages even on partial failure.
func (g *Generator) Generate(ctx context.Context, numRecords int) models.GeneratorResponse {
	if numRecords <= 0 {
		numRecords = g.config.Generator.DefaultRecords
	}
	if numRecords > g.config.Generator.MaxRecords {
		numRecords = g.config.Generator.MaxRecords
	}

	log := g.log.WithComponent("generator").WithFields(logger.Fields{
		"requested": numRecords,
		"stream":    g.config.Stream.Name,
	})
	log.Info("generating order events")

	generated := 0
	var errs []string
	start := g.now()

	for i := 0; i < numRecords; i++ {
		if err := g.limiter.Wait(ctx); err != nil {
			errs = append(errs, fmt.Sprintf("record %d: %v", i, err))
			break
		}
		if err := g.publishOne(ctx, i); err != nil {
			log.WithError(err).WithFields(logger.Fields{"record": i}).Warn("failed to generate record")
			errs = append(errs, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		generated++
	}

	logger.LogPerformanceEntry(g.log.WithComponent("generator"), "generator", "generate", g.now().Sub(start), logger.Fields{
		"records_generated": generated,
		"records_failed":    len(errs),
	})
	g.log.LogMetric("generator", "records_generated", generated, "counter", logger.Fields{
		"stream": g.config.Stream.Name,
	})

	status := 200
	if generated == 0 {
		status = 500
	}
	if len(errs) > maxReportedErrors {
		errs = errs[:maxReportedErrors]
	}

	return models.GeneratorResponse{
		StatusCode:       status,
		RecordsGenerated: generated,
		StreamName:       g.config.Stream.Name,
		Timestamp:        g.now().Format(time.RFC3339),
		Errors:           errs,
	}
}

func (g *Generator) publishOne(ctx context.Context, i int) error {
	customerID := fmt.Sprintf("cust_%d", 1000+g.rng.Intn(9000))
	customerAge := 18 + g.rng.Intn(53)
	customerLocation := locations[g.rng.Intn(len(locations))]

	// Best-effort profile upsert alongside the order.
	if g.points != nil {
		profile := &models.CustomerProfile{
			CustomerID:       customerID,
			Age:              customerAge,
			Location:         customerLocation,
			CreatedDate:      g.now().Format(time.RFC3339),
			LoyaltyTier:      loyaltyTiers[g.rng.Intn(len(loyaltyTiers))],
			Email:            fmt.Sprintf("%s@example.com", customerID),
			TotalPurchases:   0,
			LastPurchaseDate: g.now().Format(time.RFC3339),
		}
		if err := g.points.UpsertCustomer(ctx, profile); err != nil {
			g.log.WithComponent("generator").WithError(err).Warn("failed to store customer profile")
		}
	}

	order := g.newOrder(customerID, customerAge, customerLocation)
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	shardID, err := g.channel.Publish(ctx, order.CustomerID, payload)
	if err != nil {
		return fmt.Errorf("publish order %s: %w", order.OrderID, err)
	}

	g.log.WithComponent("generator").WithFields(logger.Fields{
		"order_id": order.OrderID,
		"shard_id": shardID,
		"record":   i,
	}).Debug("published order event")
	return nil
}

// newOrder randomizes one order. Subtotal, discount and total are computed
// deterministically from price, quantity and discount percentage.
func (g *Generator) newOrder(customerID string, customerAge int, customerLocation string) models.OrderEvent {
	quantity := 1 + g.rng.Intn(5)
	price := round2(10 + g.rng.Float64()*1990)
	discountPct := discountChoices[g.rng.Intn(len(discountChoices))]

	subtotal := round2(price * float64(quantity))
	discountAmount := round2(subtotal * discountPct / 100)
	totalAmount := round2(subtotal - discountAmount)

	orderDate := g.now().Add(-time.Duration(g.rng.Intn(8)) * 24 * time.Hour).
		Add(-time.Duration(g.rng.Intn(24)) * time.Hour).
		Add(-time.Duration(g.rng.Intn(60)) * time.Minute)

	var promo *string
	if g.rng.Intn(len(promoCodes)+1) != 0 {
		code := promoCodes[g.rng.Intn(len(promoCodes))]
		promo = &code
	}

	return models.OrderEvent{
		OrderID:                uuid.NewString(),
		CustomerID:             customerID,
		ProductName:            products[g.rng.Intn(len(products))],
		Category:               categories[g.rng.Intn(len(categories))],
		Quantity:               quantity,
		Price:                  price,
		Subtotal:               subtotal,
		DiscountPercentage:     discountPct,
		DiscountAmount:         discountAmount,
		TotalAmount:            totalAmount,
		OrderDate:              orderDate.Format(time.RFC3339),
		CustomerAge:            customerAge,
		CustomerLocation:       customerLocation,
		PaymentMethod:          paymentMethods[g.rng.Intn(len(paymentMethods))],
		ShippingMethod:         shippingMethods[g.rng.Intn(len(shippingMethods))],
		IsPrimeMember:          g.rng.Intn(2) == 0,
		DeviceType:             deviceTypes[g.rng.Intn(len(deviceTypes))],
		SessionDurationSeconds: 30 + g.rng.Intn(1771),
		ItemsViewed:            1 + g.rng.Intn(20),
		IsReturningCustomer:    g.rng.Intn(2) == 0,
		ReferralSource:         referralSources[g.rng.Intn(len(referralSources))],
		PromoCodeUsed:          promo,
		EstimatedDeliveryDays:  2 + g.rng.Intn(6),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
