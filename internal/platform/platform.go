// Package platform defines the interfaces to the managed services the
// pipeline delegates to (streaming channel, point-lookup store, object
// store, metrics sink), their AWS implementations, and in-memory fakes
// for tests and local runs.
package platform

import (
	"context"

	"orderflow/models"
)

// ChannelWriter publishes one event onto the streaming channel, keyed so
// that all events for one partition key land on the same shard.
type ChannelWriter interface {
	Publish(ctx context.Context, partitionKey string, payload []byte) (shardID string, err error)
}

// ChannelReader delivers a bounded batch of records from the channel.
// Delivery is at-least-once; callers report failed records back to the
// platform for selective redelivery.
type ChannelReader interface {
	ReadBatch(ctx context.Context, max int) ([]models.StreamRecord, error)
}

// PointStore is the low-latency key-value store for per-order lookups.
// Both operations are single-key upserts with last-write-wins semantics.
type PointStore interface {
	UpsertOrder(ctx context.Context, order *models.EnrichedOrder) error
	UpsertCustomer(ctx context.Context, customer *models.CustomerProfile) error
}

// ObjectStore is durable blob storage addressed by hierarchical keys.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// MetricsSink receives the run-level summary of a batch transformation.
type MetricsSink interface {
	EmitRunMetrics(ctx context.Context, m models.RunMetrics) error
}
