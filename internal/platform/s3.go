package platform

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "orderflow/config"
	"orderflow/logger"
)

// S3ObjectStore implements ObjectStore on one S3 bucket.
type S3ObjectStore struct {
	client *s3.Client
	bucket string
	log    *logger.Log
}

// NewS3ObjectStore builds an object store over the configured bucket.
func NewS3ObjectStore(cfg *appconfig.Config, awsConfig aws.Config) *S3ObjectStore {
	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Stores.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Stores.S3.Endpoint)
		}
		o.UsePathStyle = cfg.Stores.S3.PathStyle
	})
	return &S3ObjectStore{
		client: client,
		bucket: cfg.Stores.S3.Bucket,
		log:    logger.GetLogger(),
	}
}

// Put uploads body under key, replacing any existing object.
func (s *S3ObjectStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	}); err != nil {
		return fmt.Errorf("put object s3://%s/%s: %w", s.bucket, key, err)
	}
	logger.IncrementObjectWrite(int64(len(body)))
	return nil
}

// Get downloads the object at key.
func (s *S3ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object s3://%s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}

// List returns every key under prefix, following pagination.
func (s *S3ObjectStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects s3://%s/%s: %w", s.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}
