package enricher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	appconfig "orderflow/config"
	"orderflow/internal/platform"
	"orderflow/models"
)

func testConfig() *appconfig.Config {
	cfg := &appconfig.Config{}
	cfg.Stream.Name = "test-orders"
	cfg.Stream.BatchSize = 100
	cfg.Stream.PollInterval = 10 * time.Millisecond
	return cfg
}

func testOrder(id string, age int, total float64, orderDate string) models.OrderEvent {
	return models.OrderEvent{
		OrderID:          id,
		CustomerID:       "cust_1234",
		ProductName:      "Laptop",
		Category:         "Electronics",
		Quantity:         2,
		Price:            total / 2,
		Subtotal:         total,
		TotalAmount:      total,
		OrderDate:        orderDate,
		CustomerAge:      age,
		CustomerLocation: "NY",
		PaymentMethod:    "Credit Card",
		DeviceType:       "Mobile",
	}
}

func record(t *testing.T, seq string, order models.OrderEvent) models.StreamRecord {
	t.Helper()
	payload, err := json.Marshal(order)
	if err != nil {
		t.Fatalf("marshal order: %v", err)
	}
	return models.StreamRecord{Payload: payload, SequenceNumber: seq, PartitionKey: order.CustomerID}
}

func TestProcessBatchEnriches(t *testing.T) {
	points := platform.NewMemoryPointStore()
	objects := platform.NewMemoryObjectStore()
	e := New(testConfig(), points, objects)

	// Saturday evening order.
	batch := []models.StreamRecord{
		record(t, "seq-1", testOrder("order-1", 30, 750, "2026-08-22T19:30:00Z")),
	}
	resp := e.ProcessBatch(context.Background(), batch)

	if resp.StatusCode != 200 {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if resp.Result.ProcessedRecords != 1 || resp.Result.FailedRecords != 0 {
		t.Fatalf("unexpected result: %+v", resp.Result)
	}

	stored, ok := points.Orders["order-1"]
	if !ok {
		t.Fatal("order not upserted into point store")
	}
	if stored.CustomerSegment != "Millennial" {
		t.Errorf("expected Millennial, got %q", stored.CustomerSegment)
	}
	if stored.OrderYear != 2026 || stored.OrderMonth != 8 || stored.OrderDay != 22 || stored.OrderHour != 19 {
		t.Errorf("unexpected calendar fields: %+v", stored)
	}
	if !stored.IsWeekend {
		t.Error("expected weekend order")
	}
	if !stored.IsHighValue {
		t.Error("expected high value order")
	}
	if stored.OrderSize != "Extra Large" {
		t.Errorf("expected Extra Large, got %q", stored.OrderSize)
	}
	if stored.SequenceNumber != "seq-1" {
		t.Errorf("expected sequence number carried through, got %q", stored.SequenceNumber)
	}
	if stored.ProcessedTimestamp == "" {
		t.Error("expected processed timestamp to be set")
	}
}

func TestProcessBatchReportsDecodeFailures(t *testing.T) {
	points := platform.NewMemoryPointStore()
	objects := platform.NewMemoryObjectStore()
	e := New(testConfig(), points, objects)

	batch := []models.StreamRecord{
		record(t, "seq-1", testOrder("order-1", 22, 40, "2026-08-20T08:00:00Z")),
		record(t, "seq-2", testOrder("order-2", 45, 120, "2026-08-20T13:00:00Z")),
		{Payload: []byte("{not json"), SequenceNumber: "seq-3", PartitionKey: "cust_9"},
		record(t, "seq-4", testOrder("order-4", 60, 300, "2026-08-20T22:00:00Z")),
		record(t, "seq-5", testOrder("order-5", 71, 600, "2026-08-20T02:00:00Z")),
	}
	resp := e.ProcessBatch(context.Background(), batch)

	if resp.StatusCode != 200 {
		t.Fatalf("expected status 200 for partial success, got %d", resp.StatusCode)
	}
	if resp.Result.ProcessedRecords != 4 {
		t.Errorf("expected 4 processed, got %d", resp.Result.ProcessedRecords)
	}
	if resp.Result.FailedRecords != 1 {
		t.Errorf("expected 1 failed, got %d", resp.Result.FailedRecords)
	}
	if len(resp.BatchItemFailures) != 1 || resp.BatchItemFailures[0].ItemIdentifier != "seq-3" {
		t.Errorf("expected failure for seq-3, got %+v", resp.BatchItemFailures)
	}
	if len(points.Orders) != 4 {
		t.Errorf("expected 4 orders stored, got %d", len(points.Orders))
	}
	if points.Orders["order-5"].CustomerSegment != "Silent" {
		t.Errorf("expected Silent segment for age 71, got %q", points.Orders["order-5"].CustomerSegment)
	}
}

func TestProcessBatchAllFailed(t *testing.T) {
	e := New(testConfig(), nil, nil)
	batch := []models.StreamRecord{
		{Payload: []byte("oops"), SequenceNumber: "seq-1"},
	}
	resp := e.ProcessBatch(context.Background(), batch)
	if resp.StatusCode != 500 {
		t.Errorf("expected status 500 when nothing processed, got %d", resp.StatusCode)
	}

	resp = e.ProcessBatch(context.Background(), nil)
	if resp.StatusCode != 500 {
		t.Errorf("expected status 500 for empty batch, got %d", resp.StatusCode)
	}
	if resp.Result.TotalRecords != 0 || len(resp.BatchItemFailures) != 0 {
		t.Errorf("empty batch must not report failures: %+v", resp)
	}
}

func TestLandingKeysUniqueWithinSameSecond(t *testing.T) {
	objects := platform.NewMemoryObjectStore()
	e := New(testConfig(), nil, objects)
	e.now = func() time.Time { return time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC) }

	for i := 0; i < 2; i++ {
		batch := []models.StreamRecord{
			record(t, fmt.Sprintf("seq-%d", i), testOrder(fmt.Sprintf("order-%d", i), 30, 100, "2026-08-20T10:00:00Z")),
		}
		resp := e.ProcessBatch(context.Background(), batch)
		if resp.Result.ProcessedRecords != 1 {
			t.Fatalf("batch %d: %+v", i, resp.Result)
		}
	}

	rawKeys, _ := objects.List(context.Background(), "raw-data/orders/")
	if len(rawKeys) != 2 {
		t.Fatalf("expected 2 raw landing objects, got %v", rawKeys)
	}
	jsonlKeys, _ := objects.List(context.Background(), "processed-data/orders/")
	if len(jsonlKeys) != 2 {
		t.Fatalf("expected 2 processed landing objects, got %v", jsonlKeys)
	}
}

func TestProcessBatchPointStoreFailureIsNonFatal(t *testing.T) {
	points := platform.NewMemoryPointStore()
	points.FailOrders = true
	e := New(testConfig(), points, nil)

	batch := []models.StreamRecord{
		record(t, "seq-1", testOrder("order-1", 30, 100, "2026-08-20T10:00:00Z")),
	}
	resp := e.ProcessBatch(context.Background(), batch)

	if resp.Result.ProcessedRecords != 1 || resp.Result.FailedRecords != 0 {
		t.Errorf("point store failure must not fail the record: %+v", resp.Result)
	}
}

func TestProcessBatchUnparseableDateFallsBack(t *testing.T) {
	points := platform.NewMemoryPointStore()
	e := New(testConfig(), points, nil)
	e.now = func() time.Time { return time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC) }

	batch := []models.StreamRecord{
		record(t, "seq-1", testOrder("order-1", 30, 100, "not-a-date")),
	}
	resp := e.ProcessBatch(context.Background(), batch)

	if resp.Result.ProcessedRecords != 1 {
		t.Fatalf("expected record kept, got %+v", resp.Result)
	}
	stored := points.Orders["order-1"]
	if stored.OrderYear != 2026 || stored.OrderMonth != 8 || stored.OrderDay != 28 {
		t.Errorf("expected processing-time calendar fields, got %+v", stored)
	}
}

func TestWriteLandingZonesGroupsByDate(t *testing.T) {
	objects := platform.NewMemoryObjectStore()
	e := New(testConfig(), nil, objects)
	e.now = func() time.Time { return time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC) }

	batch := []models.StreamRecord{
		record(t, "seq-1", testOrder("order-1", 30, 100, "2026-08-20T10:00:00Z")),
		record(t, "seq-2", testOrder("order-2", 30, 100, "2026-08-20T11:00:00Z")),
		record(t, "seq-3", testOrder("order-3", 30, 100, "2026-08-21T10:00:00Z")),
	}
	e.ProcessBatch(context.Background(), batch)

	rawKeys, _ := objects.List(context.Background(), "raw-data/orders/")
	if len(rawKeys) != 2 {
		t.Fatalf("expected 2 raw objects, got %v", rawKeys)
	}
	for _, k := range rawKeys {
		if !strings.HasPrefix(k, "raw-data/orders/2026/08/") {
			t.Errorf("unexpected raw key %q", k)
		}
	}

	body, err := objects.Get(context.Background(), rawKeys[0])
	if err != nil {
		t.Fatalf("get raw object: %v", err)
	}
	var stored []models.EnrichedOrder
	if err := json.Unmarshal(body, &stored); err != nil {
		t.Fatalf("raw object is not a JSON array: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("expected 2 orders in day-20 object, got %d", len(stored))
	}

	jsonlKeys, _ := objects.List(context.Background(), "processed-data/orders/")
	if len(jsonlKeys) != 2 {
		t.Fatalf("expected 2 processed objects, got %v", jsonlKeys)
	}
	body, _ = objects.Get(context.Background(), jsonlKeys[0])
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if len(lines) != 2 {
		t.Errorf("expected 2 JSON lines, got %d", len(lines))
	}
	for _, line := range lines {
		var o models.EnrichedOrder
		if err := json.Unmarshal([]byte(line), &o); err != nil {
			t.Errorf("bad JSON line %q: %v", line, err)
		}
	}
}

func TestConsumerDrainsChannel(t *testing.T) {
	channel := platform.NewMemoryChannel()
	points := platform.NewMemoryPointStore()
	e := New(testConfig(), points, nil)

	for i := 0; i < 5; i++ {
		order := testOrder(fmt.Sprintf("order-%d", i), 30, 100, "2026-08-20T10:00:00Z")
		payload, _ := json.Marshal(order)
		if _, err := channel.Publish(context.Background(), order.CustomerID, payload); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	c := NewConsumer(testConfig(), channel, e)
	c.Start(context.Background())

	deadline := time.After(2 * time.Second)
	for channel.Len() > 0 {
		select {
		case <-deadline:
			c.Stop()
			t.Fatalf("channel not drained, %d records left", channel.Len())
		case <-time.After(20 * time.Millisecond):
		}
	}
	c.Stop()

	if len(points.Orders) != 5 {
		t.Errorf("expected 5 orders stored, got %d", len(points.Orders))
	}
}
