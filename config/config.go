package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Orderflow OrderflowConfig `yaml:"orderflow"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Stream    StreamConfig    `yaml:"stream"`
	Generator GeneratorConfig `yaml:"generator"`
	Stores    StoresConfig    `yaml:"stores"`
	Batch     BatchConfig     `yaml:"batch"`
}

type OrderflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
	Dashboard string `yaml:"dashboard"`
	Region    string `yaml:"region"`
}

type StreamConfig struct {
	Name          string        `yaml:"name"`
	Endpoint      string        `yaml:"endpoint"`
	BatchSize     int           `yaml:"batch_size"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	StartPosition string        `yaml:"start_position"`
}

type GeneratorConfig struct {
	DefaultRecords   int     `yaml:"default_records"`
	MaxRecords       int     `yaml:"max_records"`
	RecordsPerSecond float64 `yaml:"records_per_second"`
}

type StoresConfig struct {
	Region   string         `yaml:"region"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
	S3       S3Config       `yaml:"s3"`
}

type DynamoDBConfig struct {
	Enabled        bool   `yaml:"enabled"`
	OrdersTable    string `yaml:"orders_table"`
	CustomersTable string `yaml:"customers_table"`
	Endpoint       string `yaml:"endpoint"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type BatchConfig struct {
	JobName      string `yaml:"job_name"`
	DatabaseName string `yaml:"database_name"`
	Compression  string `yaml:"compression"`
	Manifest     bool   `yaml:"manifest"`
}

func LoadConfig(path string) (*Config, error) {
	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Stream: StreamConfig{
			BatchSize:     100,
			PollInterval:  time.Second,
			StartPosition: "latest",
		},
		Generator: GeneratorConfig{
			DefaultRecords:   10,
			MaxRecords:       100,
			RecordsPerSecond: 50,
		},
		Batch: BatchConfig{
			Compression: "snappy",
			Manifest:    true,
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override platform settings from environment variables if available
	if v := os.Getenv("KINESIS_STREAM_NAME"); v != "" {
		config.Stream.Name = strings.TrimSpace(v)
	}
	if v := os.Getenv("DYNAMODB_ORDERS_TABLE"); v != "" {
		config.Stores.DynamoDB.OrdersTable = strings.TrimSpace(v)
	}
	if v := os.Getenv("DYNAMODB_CUSTOMERS_TABLE"); v != "" {
		config.Stores.DynamoDB.CustomersTable = strings.TrimSpace(v)
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		config.Stores.Region = strings.TrimSpace(v)
	}
	if config.Stores.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Stores.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Stores.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Stores.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Stores.S3.Bucket = strings.TrimSpace(config.Stores.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Orderflow.Name == "" {
		return fmt.Errorf("orderflow.name is required")
	}

	if cfg.Orderflow.Version == "" {
		return fmt.Errorf("orderflow.version is required")
	}

	if cfg.Stream.BatchSize <= 0 {
		return fmt.Errorf("stream.batch_size must be greater than 0")
	}
	if cfg.Stream.PollInterval <= 0 {
		return fmt.Errorf("stream.poll_interval must be greater than 0")
	}
	switch strings.ToLower(cfg.Stream.StartPosition) {
	case "latest", "trim_horizon":
	default:
		return fmt.Errorf("stream.start_position must be latest or trim_horizon")
	}

	if cfg.Generator.MaxRecords <= 0 {
		return fmt.Errorf("generator.max_records must be greater than 0")
	}
	if cfg.Generator.DefaultRecords <= 0 || cfg.Generator.DefaultRecords > cfg.Generator.MaxRecords {
		return fmt.Errorf("generator.default_records must be in 1..max_records")
	}
	if cfg.Generator.RecordsPerSecond <= 0 {
		return fmt.Errorf("generator.records_per_second must be greater than 0")
	}

	if cfg.Batch.JobName == "" {
		return fmt.Errorf("batch.job_name is required")
	}
	if cfg.Batch.DatabaseName == "" {
		return fmt.Errorf("batch.database_name is required")
	}
	switch cfg.Batch.Compression {
	case "snappy", "gzip", "uncompressed":
	default:
		return fmt.Errorf("batch.compression must be snappy, gzip or uncompressed")
	}

	if cfg.Stores.DynamoDB.Enabled && cfg.Stores.DynamoDB.OrdersTable == "" {
		return fmt.Errorf("stores.dynamodb.orders_table is required when DynamoDB is enabled")
	}

	if cfg.Stores.S3.Enabled {
		if cfg.Stores.S3.Bucket == "" {
			return fmt.Errorf("stores.s3.bucket is required when S3 is enabled")
		}
		if cfg.Stores.Region == "" {
			return fmt.Errorf("stores.region is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Stores.S3.Bucket) {
			return fmt.Errorf("stores.s3.bucket '%s' is invalid", cfg.Stores.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
