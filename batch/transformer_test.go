package batch

import (
	"context"
	"strings"
	"testing"
	"time"

	appconfig "orderflow/config"
	"orderflow/internal/platform"
	"orderflow/models"
)

func testConfig() *appconfig.Config {
	cfg := &appconfig.Config{}
	cfg.Batch.JobName = "orders-etl"
	cfg.Batch.DatabaseName = "test_analytics"
	cfg.Batch.Compression = "snappy"
	cfg.Batch.Manifest = true
	cfg.Stores.S3.Bucket = "test-bucket"
	return cfg
}

func putRaw(t *testing.T, store *platform.MemoryObjectStore, key, body string) {
	t.Helper()
	if err := store.Put(context.Background(), key, []byte(body), "application/json"); err != nil {
		t.Fatalf("put %s: %v", key, err)
	}
}

const validOrder = `{
	"order_id": "order-1", "customer_id": "cust_1001",
	"product_name": "Laptop", "category": "Electronics",
	"quantity": 2, "price": 400.0, "subtotal": 800.0,
	"discount_percentage": 10.0, "discount_amount": 80.0, "total_amount": 720.0,
	"order_date": "2026-08-20T10:30:00Z", "customer_age": 35,
	"customer_location": "NY", "payment_method": "Credit Card",
	"device_type": "Mobile", "is_prime_member": true,
	"processed_timestamp": "2026-08-20T10:31:00Z"
}`

func TestRunEmptyLandingZone(t *testing.T) {
	store := platform.NewMemoryObjectStore()
	sink := platform.NewMemoryMetricsSink()
	tr := New(testConfig(), store, sink)

	metrics, err := tr.Run(context.Background())
	if err != nil {
		t.Fatalf("empty landing zone must not fail: %v", err)
	}
	if metrics.RawRecords != 0 || metrics.ProcessedRecords != 0 {
		t.Errorf("expected zero counts, got %+v", metrics)
	}

	keys, _ := store.List(context.Background(), "")
	if len(keys) != 0 {
		t.Errorf("expected no objects written on empty input, got %v", keys)
	}
	if len(sink.Runs) != 0 {
		t.Errorf("expected no metrics emitted on empty input, got %d", len(sink.Runs))
	}
}

func TestRunEndToEnd(t *testing.T) {
	store := platform.NewMemoryObjectStore()
	sink := platform.NewMemoryMetricsSink()

	duplicate := strings.Replace(validOrder, `"2026-08-20T10:31:00Z"`, `"2026-08-20T11:00:00Z"`, 1)
	second := strings.NewReplacer(
		"order-1", "order-2",
		"cust_1001", "cust_1002",
		"Laptop", "Monitor",
		`"2026-08-20T10:30:00Z"`, `"2026-08-22T19:00:00Z"`,
	).Replace(validOrder)
	invalid := strings.Replace(second, "order-2", "order-3", 1)
	invalid = strings.Replace(invalid, `"price": 400.0`, `"price": 0`, 1)

	putRaw(t, store, "raw-data/orders/2026/08/20/batch_a.json",
		"["+validOrder+",\n"+duplicate+",\n\"not-a-json-object\",\n"+invalid+"]")
	putRaw(t, store, "raw-data/orders/2026/08/22/batch_b.json", "["+second+"]")

	tr := New(testConfig(), store, sink)
	metrics, err := tr.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if metrics.RawRecords != 5 {
		t.Errorf("expected 5 raw records, got %d", metrics.RawRecords)
	}
	if metrics.CorruptRecords != 1 {
		t.Errorf("expected 1 corrupt record, got %d", metrics.CorruptRecords)
	}
	if metrics.DuplicateRecords != 1 {
		t.Errorf("expected 1 duplicate, got %d", metrics.DuplicateRecords)
	}
	if metrics.FilteredRecords != 1 {
		t.Errorf("expected 1 filtered record, got %d", metrics.FilteredRecords)
	}
	if metrics.ProcessedRecords != 2 {
		t.Errorf("expected 2 processed records, got %d", metrics.ProcessedRecords)
	}
	if metrics.UniqueCustomers != 2 || metrics.UniqueProducts != 2 {
		t.Errorf("expected 2 customers and 2 products, got %+v", metrics)
	}
	if metrics.TotalRevenue != 1440 {
		t.Errorf("expected revenue 1440, got %f", metrics.TotalRevenue)
	}

	parts, _ := store.List(context.Background(), "processed-data/order_year=2026/")
	if len(parts) != 2 {
		t.Errorf("expected 2 partition files, got %v", parts)
	}
	for _, k := range parts {
		if !strings.HasSuffix(k, ".parquet") {
			t.Errorf("unexpected partition key %q", k)
		}
	}

	for _, report := range []string{"daily_summary", "product_performance", "customer_segments", "payment_device_analysis", "hourly_patterns"} {
		key := "analytics-results/" + report + "/" + report + ".parquet"
		if _, err := store.Get(context.Background(), key); err != nil {
			t.Errorf("missing report %s: %v", key, err)
		}
	}

	errLogs, _ := store.List(context.Background(), "error-logs/corrupt-records/")
	if len(errLogs) != 1 {
		t.Fatalf("expected 1 corrupt-record log, got %v", errLogs)
	}
	body, _ := store.Get(context.Background(), errLogs[0])
	if !strings.Contains(string(body), "not-a-json-object") {
		t.Errorf("corrupt log missing source text: %q", body)
	}

	catalogs, _ := store.List(context.Background(), "catalog/test_analytics/")
	if len(catalogs) != 1 {
		t.Errorf("expected 1 catalog entry, got %v", catalogs)
	}

	runRecords, _ := store.List(context.Background(), "job-metrics/metrics_")
	if len(runRecords) != 1 {
		t.Errorf("expected 1 run metrics record, got %v", runRecords)
	}
	if len(sink.Runs) != 1 {
		t.Fatalf("expected 1 metrics emission, got %d", len(sink.Runs))
	}
	if sink.Runs[0].ProcessedRecords != 2 {
		t.Errorf("emitted metrics disagree with return value: %+v", sink.Runs[0])
	}
}

func TestRunManifestMakesRerunsIdempotent(t *testing.T) {
	store := platform.NewMemoryObjectStore()
	putRaw(t, store, "raw-data/orders/2026/08/20/batch_a.json", "["+validOrder+"]")

	tr := New(testConfig(), store, nil)
	first, err := tr.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.ProcessedRecords != 1 {
		t.Fatalf("expected 1 processed, got %d", first.ProcessedRecords)
	}

	partsAfterFirst, _ := store.List(context.Background(), "processed-data/order_year=")
	allAfterFirst, _ := store.List(context.Background(), "")

	second, err := tr.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.RawRecords != 0 || second.ProcessedRecords != 0 {
		t.Errorf("rerun must skip processed keys, got %+v", second)
	}

	partsAfterSecond, _ := store.List(context.Background(), "processed-data/order_year=")
	if len(partsAfterSecond) != len(partsAfterFirst) {
		t.Errorf("rerun duplicated canonical data: %d -> %d files", len(partsAfterFirst), len(partsAfterSecond))
	}
	allAfterSecond, _ := store.List(context.Background(), "")
	if len(allAfterSecond) != len(allAfterFirst) {
		t.Errorf("idle rerun wrote new objects: %d -> %d", len(allAfterFirst), len(allAfterSecond))
	}
}

func TestRunWithoutManifestReprocesses(t *testing.T) {
	cfg := testConfig()
	cfg.Batch.Manifest = false
	store := platform.NewMemoryObjectStore()
	putRaw(t, store, "raw-data/orders/2026/08/20/batch_a.json", "["+validOrder+"]")

	tr := New(cfg, store, nil)
	tr.now = func() time.Time { return time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC) }
	if _, err := tr.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	metrics, err := tr.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if metrics.ProcessedRecords != 1 {
		t.Errorf("expected reprocessing without manifest, got %+v", metrics)
	}
}

func TestDedupeKeepsLatestProcessed(t *testing.T) {
	older := "2026-08-20T10:00:00Z"
	newer := "2026-08-20T12:00:00Z"
	id := "order-9"
	loc1 := "NY"
	loc2 := "CA"

	raw := []models.RawOrder{
		{OrderID: &id, CustomerLocation: &loc1, ProcessedTimestamp: &older},
		{OrderID: &id, CustomerLocation: &loc2, ProcessedTimestamp: &newer},
	}
	out, duplicates := dedupe(raw)
	if duplicates != 1 {
		t.Fatalf("expected 1 duplicate, got %d", duplicates)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(out))
	}
	if *out[0].CustomerLocation != loc2 {
		t.Errorf("expected the later record to win, got location %q", *out[0].CustomerLocation)
	}

	// Reversed order must pick the same winner.
	raw[0], raw[1] = raw[1], raw[0]
	out, _ = dedupe(raw)
	if *out[0].CustomerLocation != loc2 {
		t.Errorf("tie-break is order dependent, got location %q", *out[0].CustomerLocation)
	}
}

func TestIsValidRejectsMissingCore(t *testing.T) {
	id := "order-1"
	cust := "cust_1"
	price := 10.0
	qty := 1.0
	total := 10.0
	zero := 0.0

	base := models.RawOrder{OrderID: &id, CustomerID: &cust, Price: &price, Quantity: &qty, TotalAmount: &total}
	if !isValid(base) {
		t.Fatal("base record must be valid")
	}

	broken := base
	broken.OrderID = nil
	if isValid(broken) {
		t.Error("nil order_id accepted")
	}
	broken = base
	broken.Price = &zero
	if isValid(broken) {
		t.Error("zero price accepted")
	}
	broken = base
	broken.Quantity = nil
	if isValid(broken) {
		t.Error("nil quantity accepted")
	}
	broken = base
	broken.TotalAmount = &zero
	if isValid(broken) {
		t.Error("zero total accepted")
	}
}
