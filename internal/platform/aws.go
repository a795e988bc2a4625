package platform

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	appconfig "orderflow/config"
	"orderflow/logger"
)

// NewAWSConfig loads the shared AWS configuration used by every platform
// client. Static credentials from the config file take precedence over the
// default chain.
func NewAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	log := logger.GetLogger()

	loadOpts := []func(*config.LoadOptions) error{}
	if cfg.Stores.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Stores.Region))
	}
	if cfg.Stores.S3.AccessKeyID != "" && cfg.Stores.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Stores.S3.AccessKeyID,
				cfg.Stores.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.WithComponent("platform").WithError(err).Warn("failed to load AWS configuration")
		return aws.Config{}, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsConfig.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return aws.Config{}, fmt.Errorf("aws credentials not found")
	}

	return awsConfig, nil
}
