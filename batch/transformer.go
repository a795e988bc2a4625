// Package batch reads the raw landing zone, cleans and enriches every
// order, and writes the partitioned canonical dataset, analytics reports,
// catalog entries and run metrics.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	appconfig "orderflow/config"
	"orderflow/internal/catalog"
	"orderflow/internal/enrich"
	"orderflow/internal/platform"
	"orderflow/logger"
	"orderflow/models"
)

const (
	rawPrefix       = "raw-data/orders/"
	processedPrefix = "processed-data/"
	analyticsPrefix = "analytics-results/"
	errorLogPrefix  = "error-logs/corrupt-records/"
	metricsPrefix   = "job-metrics/"
	canonicalTable  = "processed_orders"
)

// Transformer runs the periodic batch job. One Run processes every raw
// landing object not yet in the manifest; the canonical dataset is
// append-only, the analytics reports are rebuilt in place.
type Transformer struct {
	config   *appconfig.Config
	objects  platform.ObjectStore
	metrics  platform.MetricsSink
	registry *catalog.Registrar
	log      *logger.Log
	now      func() time.Time
}

// New builds a transformer. The metrics sink is optional.
func New(cfg *appconfig.Config, objects platform.ObjectStore, metrics platform.MetricsSink) *Transformer {
	return &Transformer{
		config:   cfg,
		objects:  objects,
		metrics:  metrics,
		registry: catalog.NewRegistrar(objects, cfg.Batch.DatabaseName),
		log:      logger.GetLogger(),
		now:      time.Now,
	}
}

// Run executes one batch transformation and returns its run metrics.
// An empty landing zone is a successful no-op. Only a total failure to
// read the landing zone or to write the canonical dataset aborts the run.
func (t *Transformer) Run(ctx context.Context) (models.RunMetrics, error) {
	start := t.now()
	batchID := fmt.Sprintf("%s_%s", t.config.Batch.JobName, start.Format("20060102_150405"))
	metrics := models.RunMetrics{
		JobName:   t.config.Batch.JobName,
		BatchID:   batchID,
		StartTime: start,
	}

	log := t.log.WithComponent("batch").WithFields(logger.Fields{
		"job_name": t.config.Batch.JobName,
		"batch_id": batchID,
	})
	log.Info("starting batch transformation")

	keys, err := t.objects.List(ctx, rawPrefix)
	if err != nil {
		return metrics, fmt.Errorf("list raw landing zone: %w", err)
	}

	var man *manifest
	if t.config.Batch.Manifest {
		man = loadManifest(ctx, t.objects)
		unprocessed := keys[:0]
		for _, k := range keys {
			if !man.processed(k) {
				unprocessed = append(unprocessed, k)
			}
		}
		keys = unprocessed
	}

	// Empty input is a pure no-op: nothing is written, not even metrics.
	if len(keys) == 0 {
		log.Info("no raw data to process")
		metrics.ProcessingDate = t.now().Format(time.RFC3339)
		return metrics, nil
	}

	// From here on the run record and metrics emission happen even when the
	// run fails partway; the metrics then describe the partial progress.
	defer func() {
		metrics.ProcessingDate = t.now().Format(time.RFC3339)
		t.commitMetrics(ctx, metrics)
	}()

	raw, corrupt := t.extract(ctx, keys)
	metrics.RawRecords = len(raw) + len(corrupt)
	metrics.CorruptRecords = len(corrupt)
	if len(corrupt) > 0 {
		t.writeCorruptRecords(ctx, batchID, corrupt)
	}

	deduped, duplicates := dedupe(raw)
	metrics.DuplicateRecords = duplicates

	cleaned := make([]models.RawOrder, 0, len(deduped))
	for _, r := range deduped {
		if isValid(r) {
			cleaned = append(cleaned, r)
		}
	}
	metrics.FilteredRecords = len(deduped) - len(cleaned)

	canonical := make([]CanonicalRecord, 0, len(cleaned))
	for _, r := range cleaned {
		rec, err := t.toCanonical(r, batchID)
		if err != nil {
			metrics.FilteredRecords++
			log.WithError(err).WithFields(logger.Fields{
				"order_id": *r.OrderID,
			}).Warn("dropping record with unusable order date")
			continue
		}
		canonical = append(canonical, rec)
	}
	metrics.ProcessedRecords = len(canonical)

	customers := make(map[string]bool)
	products := make(map[string]bool)
	for _, rec := range canonical {
		customers[rec.CustomerID] = true
		products[rec.ProductName] = true
		metrics.TotalRevenue += rec.TotalAmount
	}
	metrics.UniqueCustomers = len(customers)
	metrics.UniqueProducts = len(products)

	if len(canonical) > 0 {
		if err := t.writeCanonical(ctx, canonical); err != nil {
			return metrics, err
		}
		t.writeAnalytics(ctx, canonical)
		if err := t.registerCatalog(ctx, batchID); err != nil {
			log.WithError(err).Warn("failed to update catalog")
		}
	}

	if man != nil {
		man.add(keys)
		if err := man.save(ctx); err != nil {
			log.WithError(err).Warn("failed to save manifest")
		}
	}

	logger.LogPerformanceEntry(t.log.WithComponent("batch"), "batch", "run", t.now().Sub(start), logger.Fields{
		"raw_records":       metrics.RawRecords,
		"processed_records": metrics.ProcessedRecords,
		"corrupt_records":   metrics.CorruptRecords,
		"duplicate_records": metrics.DuplicateRecords,
		"filtered_records":  metrics.FilteredRecords,
	})
	log.WithFields(logger.Fields{
		"processed_records": metrics.ProcessedRecords,
		"total_revenue":     metrics.TotalRevenue,
	}).Info("batch transformation complete")
	return metrics, nil
}

// extract reads every landing object permissively. An unreadable or
// undecodable file contributes one corrupt record; an undecodable row
// within an otherwise valid file contributes one corrupt record without
// poisoning its siblings.
func (t *Transformer) extract(ctx context.Context, keys []string) ([]models.RawOrder, []string) {
	var raw []models.RawOrder
	var corrupt []string

	for _, key := range keys {
		body, err := t.objects.Get(ctx, key)
		if err != nil {
			t.log.WithComponent("batch").WithError(err).WithFields(logger.Fields{
				"key": key,
			}).Warn("failed to read landing object")
			corrupt = append(corrupt, fmt.Sprintf("%s: unreadable", key))
			continue
		}

		var rows []json.RawMessage
		if err := json.Unmarshal(body, &rows); err != nil {
			corrupt = append(corrupt, strings.TrimSpace(string(body)))
			continue
		}
		for _, row := range rows {
			var order models.RawOrder
			if err := json.Unmarshal(row, &order); err != nil {
				corrupt = append(corrupt, strings.TrimSpace(string(row)))
				continue
			}
			raw = append(raw, order)
		}
	}
	return raw, corrupt
}

// dedupe keeps one record per order id. Records without an order id pass
// through untouched; the validity filter rejects them later. Ties are
// broken by the greatest processed_timestamp, then by first appearance.
func dedupe(raw []models.RawOrder) ([]models.RawOrder, int) {
	out := make([]models.RawOrder, 0, len(raw))
	index := make(map[string]int)
	duplicates := 0

	for _, r := range raw {
		if r.OrderID == nil {
			out = append(out, r)
			continue
		}
		i, seen := index[*r.OrderID]
		if !seen {
			index[*r.OrderID] = len(out)
			out = append(out, r)
			continue
		}
		duplicates++
		if processedAfter(r, out[i]) {
			out[i] = r
		}
	}
	return out, duplicates
}

func processedAfter(a, b models.RawOrder) bool {
	if a.ProcessedTimestamp == nil {
		return false
	}
	if b.ProcessedTimestamp == nil {
		return true
	}
	return *a.ProcessedTimestamp > *b.ProcessedTimestamp
}

// isValid applies the data quality filter: the identifying and financial
// core of the record must be present and strictly positive.
func isValid(r models.RawOrder) bool {
	if r.OrderID == nil || *r.OrderID == "" {
		return false
	}
	if r.CustomerID == nil || *r.CustomerID == "" {
		return false
	}
	if r.Price == nil || *r.Price <= 0 {
		return false
	}
	if r.Quantity == nil || *r.Quantity <= 0 {
		return false
	}
	if r.TotalAmount == nil || *r.TotalAmount <= 0 {
		return false
	}
	return true
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func num(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func boolean(p *bool) bool {
	if p == nil {
		return false
	}
	return *p
}

// toCanonical enriches one cleaned record. The order date must parse; a
// record that survived cleaning but has no usable timestamp is dropped and
// counted as filtered.
func (t *Transformer) toCanonical(r models.RawOrder, batchID string) (CanonicalRecord, error) {
	orderTime, err := enrich.ParseOrderDate(str(r.OrderDate))
	if err != nil {
		return CanonicalRecord{}, err
	}
	features := enrich.Features(orderTime)

	quantity := int32(*r.Quantity)
	totalAmount := *r.TotalAmount
	subtotal := num(r.Subtotal)
	discountPct := num(r.DiscountPercentage)

	return CanonicalRecord{
		OrderID:                *r.OrderID,
		CustomerID:             *r.CustomerID,
		ProductName:            str(r.ProductName),
		Category:               str(r.Category),
		Quantity:               quantity,
		Price:                  *r.Price,
		Subtotal:               subtotal,
		DiscountPercentage:     discountPct,
		DiscountAmount:         num(r.DiscountAmount),
		TotalAmount:            totalAmount,
		OrderDate:              str(r.OrderDate),
		CustomerAge:            int32(num(r.CustomerAge)),
		CustomerLocation:       str(r.CustomerLocation),
		PaymentMethod:          str(r.PaymentMethod),
		ShippingMethod:         str(r.ShippingMethod),
		IsPrimeMember:          boolean(r.IsPrimeMember),
		DeviceType:             str(r.DeviceType),
		SessionDurationSeconds: int32(num(r.SessionDurationSeconds)),
		ItemsViewed:            int32(num(r.ItemsViewed)),
		IsReturningCustomer:    boolean(r.IsReturningCustomer),
		ReferralSource:         str(r.ReferralSource),
		PromoCodeUsed:          r.PromoCodeUsed,
		EstimatedDeliveryDays:  int32(num(r.EstimatedDeliveryDays)),

		OrderTimestamp:       orderTime.UnixMilli(),
		OrderYear:            int32(features.Year),
		OrderMonth:           int32(features.Month),
		OrderDay:             int32(features.Day),
		OrderHour:            int32(features.Hour),
		OrderMinute:          int32(features.Minute),
		OrderWeekday:         int32(features.Weekday),
		OrderWeek:            int32(features.Week),
		OrderQuarter:         int32(features.Quarter),
		IsWeekend:            features.IsWeekend,
		DayPart:              enrich.DayPart(features.Hour),
		CustomerSegment:      enrich.CustomerSegment(int(num(r.CustomerAge))),
		OrderSizeCategory:    enrich.OrderSizeCategory(totalAmount),
		IsHighValue:          enrich.IsHighValue(totalAmount),
		DiscountRate:         discountPct,
		ActualDiscountAmount: enrich.NormalizeDiscount(subtotal, discountPct, r.DiscountAmount),
		RevenuePerItem:       enrich.RevenuePerItem(totalAmount, int(quantity)),
		IsDiscounted:         enrich.IsDiscounted(discountPct),
		ProcessingTimestamp:  t.now().UTC().Format(time.RFC3339),
		EtlBatchID:           batchID,
	}, nil
}

// writeCanonical appends one parquet file per (year, month, day) partition.
func (t *Transformer) writeCanonical(ctx context.Context, rows []CanonicalRecord) error {
	type partition struct{ y, m, d int32 }
	groups := make(map[partition][]CanonicalRecord)
	for _, r := range rows {
		p := partition{r.OrderYear, r.OrderMonth, r.OrderDay}
		groups[p] = append(groups[p], r)
	}

	partitions := make([]partition, 0, len(groups))
	for p := range groups {
		partitions = append(partitions, p)
	}
	sort.Slice(partitions, func(i, j int) bool {
		a, b := partitions[i], partitions[j]
		if a.y != b.y {
			return a.y < b.y
		}
		if a.m != b.m {
			return a.m < b.m
		}
		return a.d < b.d
	})

	stamp := t.now().UTC().Format("20060102T150405")
	for _, p := range partitions {
		group := groups[p]
		data, err := encodeParquet(group, t.config.Batch.Compression)
		if err != nil {
			return fmt.Errorf("encode partition %d-%02d-%02d: %w", p.y, p.m, p.d, err)
		}
		key := fmt.Sprintf("%sorder_year=%d/order_month=%d/order_day=%d/part_%s_%s.parquet",
			processedPrefix, p.y, p.m, p.d, stamp, uuid.NewString()[:8])
		if err := t.objects.Put(ctx, key, data, "application/octet-stream"); err != nil {
			return fmt.Errorf("write partition %s: %w", key, err)
		}
		logger.LogDataFlowEntry(t.log.WithComponent("batch"), "landing-zone", "canonical-dataset", len(group), "orders")
	}
	return nil
}

// writeAnalytics rebuilds the five reports. Each lives at a fixed key so a
// rewrite replaces the previous run's output. Report failures degrade the
// run instead of aborting it.
func (t *Transformer) writeAnalytics(ctx context.Context, rows []CanonicalRecord) {
	reports := []struct {
		name   string
		encode func() ([]byte, error)
	}{
		{"daily_summary", func() ([]byte, error) { return encodeParquet(buildDailySummary(rows), t.config.Batch.Compression) }},
		{"product_performance", func() ([]byte, error) {
			return encodeParquet(buildProductPerformance(rows), t.config.Batch.Compression)
		}},
		{"customer_segments", func() ([]byte, error) {
			return encodeParquet(buildCustomerSegments(rows), t.config.Batch.Compression)
		}},
		{"payment_device_analysis", func() ([]byte, error) {
			return encodeParquet(buildPaymentDeviceAnalysis(rows), t.config.Batch.Compression)
		}},
		{"hourly_patterns", func() ([]byte, error) { return encodeParquet(buildHourlyPatterns(rows), t.config.Batch.Compression) }},
	}

	for _, report := range reports {
		data, err := report.encode()
		if err != nil {
			t.log.WithComponent("batch").WithError(err).WithFields(logger.Fields{
				"report": report.name,
			}).Error("failed to build analytics report")
			continue
		}
		key := fmt.Sprintf("%s%s/%s.parquet", analyticsPrefix, report.name, report.name)
		if err := t.objects.Put(ctx, key, data, "application/octet-stream"); err != nil {
			t.log.WithComponent("batch").WithError(err).WithFields(logger.Fields{
				"report": report.name,
			}).Error("failed to write analytics report")
		}
	}
}

func (t *Transformer) writeCorruptRecords(ctx context.Context, batchID string, corrupt []string) {
	key := fmt.Sprintf("%s%s.txt", errorLogPrefix, batchID)
	body := strings.Join(corrupt, "\n") + "\n"
	if err := t.objects.Put(ctx, key, []byte(body), "text/plain"); err != nil {
		t.log.WithComponent("batch").WithError(err).WithFields(logger.Fields{
			"key": key,
		}).Error("failed to write corrupt record log")
	}
}

func (t *Transformer) registerCatalog(ctx context.Context, batchID string) error {
	columns := canonicalColumns()
	location := fmt.Sprintf("s3://%s/%s", t.config.Stores.S3.Bucket, processedPrefix)
	return t.registry.Register(ctx, canonicalTable, location, "parquet", columns,
		[]string{"order_year", "order_month", "order_day"}, batchID)
}

// commitMetrics writes the durable run record and emits it to the metrics
// sink. Both are best-effort.
func (t *Transformer) commitMetrics(ctx context.Context, metrics models.RunMetrics) {
	body, err := json.MarshalIndent(metrics, "", "  ")
	if err == nil {
		key := fmt.Sprintf("%smetrics_%s.json", metricsPrefix, t.now().UTC().Format("20060102T150405"))
		if err := t.objects.Put(ctx, key, body, "application/json"); err != nil {
			t.log.WithComponent("batch").WithError(err).Warn("failed to write run metrics record")
		}
	}

	if t.metrics != nil {
		if err := t.metrics.EmitRunMetrics(ctx, metrics); err != nil {
			t.log.WithComponent("batch").WithError(err).Warn("failed to emit run metrics")
		}
	}
}

// canonicalColumns is the registered schema of the canonical dataset, in
// file column order.
func canonicalColumns() []catalog.Column {
	return []catalog.Column{
		{Name: "order_id", Type: "string"},
		{Name: "customer_id", Type: "string"},
		{Name: "product_name", Type: "string"},
		{Name: "category", Type: "string"},
		{Name: "quantity", Type: "int"},
		{Name: "price", Type: "double"},
		{Name: "subtotal", Type: "double"},
		{Name: "discount_percentage", Type: "double"},
		{Name: "discount_amount", Type: "double"},
		{Name: "total_amount", Type: "double"},
		{Name: "order_date", Type: "string"},
		{Name: "customer_age", Type: "int"},
		{Name: "customer_location", Type: "string"},
		{Name: "payment_method", Type: "string"},
		{Name: "shipping_method", Type: "string"},
		{Name: "is_prime_member", Type: "boolean"},
		{Name: "device_type", Type: "string"},
		{Name: "session_duration_seconds", Type: "int"},
		{Name: "items_viewed", Type: "int"},
		{Name: "is_returning_customer", Type: "boolean"},
		{Name: "referral_source", Type: "string"},
		{Name: "promo_code_used", Type: "string"},
		{Name: "estimated_delivery_days", Type: "int"},
		{Name: "order_timestamp", Type: "timestamp"},
		{Name: "order_year", Type: "int"},
		{Name: "order_month", Type: "int"},
		{Name: "order_day", Type: "int"},
		{Name: "order_hour", Type: "int"},
		{Name: "order_minute", Type: "int"},
		{Name: "order_weekday", Type: "int"},
		{Name: "order_week", Type: "int"},
		{Name: "order_quarter", Type: "int"},
		{Name: "is_weekend", Type: "boolean"},
		{Name: "day_part", Type: "string"},
		{Name: "customer_segment", Type: "string"},
		{Name: "order_size_category", Type: "string"},
		{Name: "is_high_value", Type: "boolean"},
		{Name: "discount_rate", Type: "double"},
		{Name: "actual_discount_amount", Type: "double"},
		{Name: "revenue_per_item", Type: "double"},
		{Name: "is_discounted", Type: "boolean"},
		{Name: "processing_timestamp", Type: "timestamp"},
		{Name: "etl_batch_id", Type: "string"},
	}
}
