package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	kintypes "github.com/aws/aws-sdk-go-v2/service/kinesis/types"

	appconfig "orderflow/config"
	"orderflow/logger"
	"orderflow/models"
)

// KinesisChannel implements ChannelWriter and ChannelReader over one
// Kinesis stream. The reader keeps a shard iterator per shard and drains
// shards round-robin up to the requested batch size.
type KinesisChannel struct {
	client     *kinesis.Client
	streamName string
	position   string
	log        *logger.Log

	mu        sync.Mutex
	iterators map[string]string
}

// NewKinesisChannel builds a channel backed by the configured stream.
func NewKinesisChannel(cfg *appconfig.Config, awsConfig aws.Config) *KinesisChannel {
	return &KinesisChannel{
		client:     kinesis.NewFromConfig(awsConfig, func(o *kinesis.Options) {
			if cfg.Stream.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Stream.Endpoint)
			}
		}),
		streamName: cfg.Stream.Name,
		position:   cfg.Stream.StartPosition,
		log:        logger.GetLogger(),
	}
}

// Publish puts one record onto the stream keyed by partitionKey and returns
// the shard it landed on.
func (k *KinesisChannel) Publish(ctx context.Context, partitionKey string, payload []byte) (string, error) {
	out, err := k.client.PutRecord(ctx, &kinesis.PutRecordInput{
		StreamName:   aws.String(k.streamName),
		PartitionKey: aws.String(partitionKey),
		Data:         payload,
	})
	if err != nil {
		return "", fmt.Errorf("put record to stream %s: %w", k.streamName, err)
	}
	return aws.ToString(out.ShardId), nil
}

// ReadBatch returns up to max records across all shards. An exhausted shard
// iterator is refreshed on the next call.
func (k *KinesisChannel) ReadBatch(ctx context.Context, max int) ([]models.StreamRecord, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.iterators == nil {
		if err := k.initIterators(ctx); err != nil {
			return nil, err
		}
	}

	var records []models.StreamRecord
	for shardID, iterator := range k.iterators {
		if len(records) >= max {
			break
		}
		if iterator == "" {
			continue
		}

		limit := int32(max - len(records))
		out, err := k.client.GetRecords(ctx, &kinesis.GetRecordsInput{
			ShardIterator: aws.String(iterator),
			Limit:         aws.Int32(limit),
		})
		if err != nil {
			var expired *kintypes.ExpiredIteratorException
			if errors.As(err, &expired) {
				k.iterators = nil
				return records, nil
			}
			return records, fmt.Errorf("get records from shard %s: %w", shardID, err)
		}

		for _, r := range out.Records {
			records = append(records, models.StreamRecord{
				Payload:        r.Data,
				SequenceNumber: aws.ToString(r.SequenceNumber),
				PartitionKey:   aws.ToString(r.PartitionKey),
			})
		}
		k.iterators[shardID] = aws.ToString(out.NextShardIterator)
	}

	if len(records) > 0 {
		logger.IncrementStreamRead(len(records))
	}
	return records, nil
}

func (k *KinesisChannel) initIterators(ctx context.Context) error {
	shards, err := k.client.ListShards(ctx, &kinesis.ListShardsInput{
		StreamName: aws.String(k.streamName),
	})
	if err != nil {
		return fmt.Errorf("list shards for stream %s: %w", k.streamName, err)
	}

	iteratorType := kintypes.ShardIteratorTypeLatest
	if strings.EqualFold(k.position, "trim_horizon") {
		iteratorType = kintypes.ShardIteratorTypeTrimHorizon
	}

	k.iterators = make(map[string]string, len(shards.Shards))
	for _, shard := range shards.Shards {
		out, err := k.client.GetShardIterator(ctx, &kinesis.GetShardIteratorInput{
			StreamName:        aws.String(k.streamName),
			ShardId:           shard.ShardId,
			ShardIteratorType: iteratorType,
		})
		if err != nil {
			return fmt.Errorf("get shard iterator for %s: %w", aws.ToString(shard.ShardId), err)
		}
		k.iterators[aws.ToString(shard.ShardId)] = aws.ToString(out.ShardIterator)
	}

	k.log.WithComponent("kinesis_channel").WithFields(logger.Fields{
		"stream": k.streamName,
		"shards": len(k.iterators),
	}).Debug("initialized shard iterators")
	return nil
}
