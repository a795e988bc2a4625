package models

import "time"

// StreamRecord is one raw record delivered from the streaming channel: an
// opaque payload plus the channel metadata used for provenance and
// selective redelivery.
type StreamRecord struct {
	Payload        []byte
	SequenceNumber string
	PartitionKey   string
}

// GeneratorResponse summarises a generator invocation. StatusCode follows
// the HTTP convention: 200 when at least one record was published, 500
// otherwise. Errors holds at most the first ten per-record failures.
type GeneratorResponse struct {
	StatusCode       int      `json:"statusCode"`
	RecordsGenerated int      `json:"records_generated"`
	StreamName       string   `json:"stream_name"`
	Timestamp        string   `json:"timestamp"`
	Errors           []string `json:"errors,omitempty"`
}

// ItemFailure identifies a single stream record that failed processing so
// the channel can redeliver only that record.
type ItemFailure struct {
	ItemIdentifier string `json:"itemIdentifier"`
}

// EnricherResult carries the per-invocation processing counts.
type EnricherResult struct {
	ProcessedRecords int    `json:"processed_records"`
	FailedRecords    int    `json:"failed_records"`
	TotalRecords     int    `json:"total_records"`
	Timestamp        string `json:"timestamp"`
}

// EnricherResponse is the envelope returned from one stream-batch
// invocation, including the failure list for partial retry.
type EnricherResponse struct {
	StatusCode        int            `json:"statusCode"`
	Result            EnricherResult `json:"result"`
	BatchItemFailures []ItemFailure  `json:"batchItemFailures,omitempty"`
}

// RunMetrics is the run-level summary emitted by the batch transformer to
// the metrics sink and appended to the job-metrics prefix.
type RunMetrics struct {
	JobName          string    `json:"job_name"`
	BatchID          string    `json:"batch_id"`
	StartTime        time.Time `json:"start_time"`
	RawRecords       int       `json:"raw_records"`
	ProcessedRecords int       `json:"processed_records"`
	CorruptRecords   int       `json:"corrupt_records"`
	DuplicateRecords int       `json:"duplicate_records"`
	FilteredRecords  int       `json:"filtered_records"`
	UniqueCustomers  int       `json:"unique_customers"`
	UniqueProducts   int       `json:"unique_products"`
	TotalRevenue     float64   `json:"total_revenue"`
	ProcessingDate   string    `json:"processing_date"`
}
