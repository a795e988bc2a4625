// Package metrics publishes batch run summaries to CloudWatch.
package metrics

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"orderflow/logger"
	"orderflow/models"
)

// CloudWatchSink implements platform.MetricsSink by publishing one datum
// per run counter, dimensioned by job name.
type CloudWatchSink struct {
	client    *cloudwatch.Client
	namespace string
	log       *logger.Log
}

// NewCloudWatchSink builds a sink publishing under the given namespace.
func NewCloudWatchSink(awsConfig aws.Config, namespace string) *CloudWatchSink {
	if namespace == "" {
		namespace = "OrderFlow"
	}
	return &CloudWatchSink{
		client:    cloudwatch.NewFromConfig(awsConfig),
		namespace: namespace,
		log:       logger.GetLogger(),
	}
}

// EmitRunMetrics publishes the run counters. The caller treats failures as
// non-fatal; the run record in the object store is the durable copy.
func (s *CloudWatchSink) EmitRunMetrics(ctx context.Context, m models.RunMetrics) error {
	dims := []cwtypes.Dimension{{Name: aws.String("job_name"), Value: aws.String(m.JobName)}}

	counters := []struct {
		name  string
		value float64
	}{
		{"RawRecords", float64(m.RawRecords)},
		{"ProcessedRecords", float64(m.ProcessedRecords)},
		{"CorruptRecords", float64(m.CorruptRecords)},
		{"DuplicateRecords", float64(m.DuplicateRecords)},
		{"FilteredRecords", float64(m.FilteredRecords)},
		{"UniqueCustomers", float64(m.UniqueCustomers)},
		{"UniqueProducts", float64(m.UniqueProducts)},
		{"TotalRevenue", m.TotalRevenue},
	}

	data := make([]cwtypes.MetricDatum, 0, len(counters))
	for _, c := range counters {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String(c.name),
			Dimensions: dims,
			Unit:       cwtypes.StandardUnitCount,
			Value:      aws.Float64(c.value),
		})
	}

	if _, err := s.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(s.namespace),
		MetricData: data,
	}); err != nil {
		return fmt.Errorf("publish run metrics for %s: %w", m.JobName, err)
	}

	s.log.WithComponent("metrics").WithFields(logger.Fields{
		"job_name": m.JobName,
		"batch_id": m.BatchID,
		"metrics":  len(data),
	}).Debug("published run metrics")
	return nil
}
