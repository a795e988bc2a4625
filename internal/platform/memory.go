package platform

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"orderflow/models"
)

// MemoryChannel is an in-memory stand-in for the streaming channel. It
// assigns monotonically increasing sequence numbers and preserves publish
// order, which is a stronger guarantee than the real channel gives per
// partition. FailPublish makes every publish fail.
type MemoryChannel struct {
	mu          sync.Mutex
	seq         int64
	records     []models.StreamRecord
	FailPublish bool
}

func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{}
}

func (m *MemoryChannel) Publish(_ context.Context, partitionKey string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPublish {
		return "", fmt.Errorf("channel unavailable")
	}
	m.seq++
	m.records = append(m.records, models.StreamRecord{
		Payload:        payload,
		SequenceNumber: fmt.Sprintf("%020d", m.seq),
		PartitionKey:   partitionKey,
	})
	return "shardId-000000000000", nil
}

func (m *MemoryChannel) ReadBatch(_ context.Context, max int) ([]models.StreamRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		return nil, nil
	}
	n := max
	if n > len(m.records) {
		n = len(m.records)
	}
	batch := m.records[:n]
	m.records = m.records[n:]
	return batch, nil
}

// Len reports how many records are waiting to be read.
func (m *MemoryChannel) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// MemoryPointStore is an in-memory PointStore with upsert semantics.
// FailOrders makes every order upsert fail, for exercising the
// best-effort write path.
type MemoryPointStore struct {
	mu         sync.Mutex
	Orders     map[string]models.EnrichedOrder
	Customers  map[string]models.CustomerProfile
	FailOrders bool
}

func NewMemoryPointStore() *MemoryPointStore {
	return &MemoryPointStore{
		Orders:    make(map[string]models.EnrichedOrder),
		Customers: make(map[string]models.CustomerProfile),
	}
}

func (m *MemoryPointStore) UpsertOrder(_ context.Context, order *models.EnrichedOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailOrders {
		return fmt.Errorf("point store unavailable")
	}
	m.Orders[order.OrderID] = *order
	return nil
}

func (m *MemoryPointStore) UpsertCustomer(_ context.Context, customer *models.CustomerProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Customers[customer.CustomerID] = *customer
	return nil
}

// MemoryObjectStore is an in-memory ObjectStore. List returns keys in
// lexical order to match S3 listing behaviour.
type MemoryObjectStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
}

func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{Objects: make(map[string][]byte)}
}

func (m *MemoryObjectStore) Put(_ context.Context, key string, body []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(body))
	copy(buf, body)
	m.Objects[key] = buf
	return nil
}

func (m *MemoryObjectStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.Objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return body, nil
}

func (m *MemoryObjectStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.Objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// MemoryMetricsSink records every run-metrics emission.
type MemoryMetricsSink struct {
	mu   sync.Mutex
	Runs []models.RunMetrics
}

func NewMemoryMetricsSink() *MemoryMetricsSink {
	return &MemoryMetricsSink{}
}

func (m *MemoryMetricsSink) EmitRunMetrics(_ context.Context, metrics models.RunMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Runs = append(m.Runs, metrics)
	return nil
}
