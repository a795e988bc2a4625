// Package enricher consumes order events from the streaming channel,
// attaches derived fields, and fans the results out to the point store
// and the object store landing zones.
package enricher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	appconfig "orderflow/config"
	"orderflow/internal/enrich"
	"orderflow/internal/platform"
	"orderflow/logger"
	"orderflow/models"
)

// Enricher processes channel batches. Point-store and object-store writes
// are best-effort; only an undecodable payload marks a record as failed so
// the channel redelivers it.
type Enricher struct {
	config  *appconfig.Config
	points  platform.PointStore
	objects platform.ObjectStore
	log     *logger.Log
	now     func() time.Time
}

// New builds an enricher. Either store may be nil, which disables the
// corresponding fan-out.
func New(cfg *appconfig.Config, points platform.PointStore, objects platform.ObjectStore) *Enricher {
	return &Enricher{
		config:  cfg,
		points:  points,
		objects: objects,
		log:     logger.GetLogger(),
		now:     time.Now,
	}
}

// ProcessBatch enriches one channel batch. Records that cannot be decoded
// are reported as item failures keyed by sequence number; everything else
// counts as processed even when a downstream write is degraded.
func (e *Enricher) ProcessBatch(ctx context.Context, records []models.StreamRecord) models.EnricherResponse {
	log := e.log.WithComponent("enricher").WithFields(logger.Fields{
		"batch_size": len(records),
	})
	log.Info("processing channel batch")
	start := e.now()

	var enriched []models.EnrichedOrder
	var failures []models.ItemFailure

	for _, rec := range records {
		order, err := e.enrichRecord(ctx, rec)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{
				"sequence_number": rec.SequenceNumber,
			}).Error("failed to process record")
			failures = append(failures, models.ItemFailure{ItemIdentifier: rec.SequenceNumber})
			continue
		}
		enriched = append(enriched, *order)
	}

	if len(enriched) > 0 {
		e.writeLandingZones(ctx, enriched)
	}

	logger.LogPerformanceEntry(e.log.WithComponent("enricher"), "enricher", "process_batch", e.now().Sub(start), logger.Fields{
		"processed": len(enriched),
		"failed":    len(failures),
	})
	e.log.LogMetric("enricher", "records_processed", len(enriched), "counter", nil)

	// Status follows the invocation convention: 500 whenever nothing was
	// processed, including an empty batch.
	status := 200
	if len(enriched) == 0 {
		status = 500
	}

	return models.EnricherResponse{
		StatusCode: status,
		Result: models.EnricherResult{
			ProcessedRecords: len(enriched),
			FailedRecords:    len(failures),
			TotalRecords:     len(records),
			Timestamp:        e.now().Format(time.RFC3339),
		},
		BatchItemFailures: failures,
	}
}

// enrichRecord decodes, derives, and upserts a single record. A decode
// error is the only fatal outcome.
func (e *Enricher) enrichRecord(ctx context.Context, rec models.StreamRecord) (*models.EnrichedOrder, error) {
	var event models.OrderEvent
	if err := json.Unmarshal(rec.Payload, &event); err != nil {
		return nil, fmt.Errorf("decode order payload: %w", err)
	}

	processedAt := e.now().UTC()
	orderTime, err := enrich.ParseOrderDate(event.OrderDate)
	if err != nil {
		// Keep the record; derive calendar fields from processing time.
		e.log.WithComponent("enricher").WithFields(logger.Fields{
			"order_id":   event.OrderID,
			"order_date": event.OrderDate,
		}).Warn("unparseable order date, using processing time")
		orderTime = processedAt
	}
	features := enrich.Features(orderTime)

	order := &models.EnrichedOrder{
		OrderEvent:         event,
		ProcessedTimestamp: processedAt.Format(time.RFC3339),
		SequenceNumber:     rec.SequenceNumber,
		PartitionKey:       rec.PartitionKey,
		CustomerSegment:    enrich.CustomerSegment(event.CustomerAge),
		OrderYear:          features.Year,
		OrderMonth:         features.Month,
		OrderDay:           features.Day,
		OrderHour:          features.Hour,
		OrderWeekday:       features.Weekday,
		IsWeekend:          features.IsWeekend,
		IsHighValue:        enrich.IsHighValue(event.TotalAmount),
		OrderSize:          enrich.OrderSizeCategory(event.TotalAmount),
	}

	if e.points != nil {
		if err := e.points.UpsertOrder(ctx, order); err != nil {
			e.log.WithComponent("enricher").WithError(err).WithFields(logger.Fields{
				"order_id": order.OrderID,
			}).Warn("failed to upsert order into point store")
		}
	}

	return order, nil
}

// writeLandingZones groups enriched orders by order date and writes one raw
// JSON array plus one processed JSON-lines object per date. Keys carry a
// microsecond timestamp plus a random suffix so concurrent batches within
// the same second never overwrite each other.
func (e *Enricher) writeLandingZones(ctx context.Context, orders []models.EnrichedOrder) {
	if e.objects == nil {
		return
	}

	type dateKey struct{ year, month, day int }
	groups := make(map[dateKey][]models.EnrichedOrder)
	for _, o := range orders {
		k := dateKey{o.OrderYear, o.OrderMonth, o.OrderDay}
		groups[k] = append(groups[k], o)
	}

	for k, group := range groups {
		stamp := fmt.Sprintf("%s_%s", e.now().UTC().Format("20060102T150405.000000"), uuid.NewString()[:8])
		rawKey := fmt.Sprintf("raw-data/orders/%d/%02d/%02d/batch_%s.json", k.year, k.month, k.day, stamp)
		rawBody, err := json.Marshal(group)
		if err == nil {
			err = e.objects.Put(ctx, rawKey, rawBody, "application/json")
		}
		if err != nil {
			e.log.WithComponent("enricher").WithError(err).WithFields(logger.Fields{
				"key": rawKey,
			}).Error("failed to write raw landing object")
		}

		processedKey := fmt.Sprintf("processed-data/orders/%d/%02d/%02d/batch_%s.jsonl", k.year, k.month, k.day, stamp)
		var lines []byte
		for _, o := range group {
			line, err := json.Marshal(o)
			if err != nil {
				continue
			}
			lines = append(lines, line...)
			lines = append(lines, '\n')
		}
		if err := e.objects.Put(ctx, processedKey, lines, "application/x-ndjson"); err != nil {
			e.log.WithComponent("enricher").WithError(err).WithFields(logger.Fields{
				"key": processedKey,
			}).Error("failed to write processed landing object")
		}

		logger.LogDataFlowEntry(e.log.WithComponent("enricher"), "channel", "object-store", len(group), "enriched_orders")
	}
}
