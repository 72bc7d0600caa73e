package objstore

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config carries the process-wide object store credentials. They are loaded
// once at startup; the resulting client is injected into the endpoints and
// never reconstructed per request.
type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// PathStyle forces path-style addressing, required by most
	// S3-compatible providers.
	PathStyle bool
}

// Environment variables holding the object store credentials.
const (
	EnvEndpoint        = "B2_S3_ENDPOINT"
	EnvRegion          = "B2_S3_REGION"
	EnvAccessKeyID     = "B2_ACCESS_KEY_ID"
	EnvSecretAccessKey = "B2_SECRET_ACCESS_KEY"
	EnvBucket          = "B2_BUCKET_NAME"
)

// ConfigFromEnv reads the object store configuration from the environment.
// It fails when any required variable is absent so that a misconfigured
// process dies at startup instead of on the first upload.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Endpoint:        os.Getenv(EnvEndpoint),
		Region:          os.Getenv(EnvRegion),
		AccessKeyID:     os.Getenv(EnvAccessKeyID),
		SecretAccessKey: os.Getenv(EnvSecretAccessKey),
		Bucket:          os.Getenv(EnvBucket),
		PathStyle:       true,
	}
	return cfg, cfg.Validate()
}

// Validate reports all missing configuration values at once.
func (cfg Config) Validate() error {
	var missing []string
	if cfg.Endpoint == "" {
		missing = append(missing, EnvEndpoint)
	}
	if cfg.Region == "" {
		missing = append(missing, EnvRegion)
	}
	if cfg.AccessKeyID == "" {
		missing = append(missing, EnvAccessKeyID)
	}
	if cfg.SecretAccessKey == "" {
		missing = append(missing, EnvSecretAccessKey)
	}
	if cfg.Bucket == "" {
		missing = append(missing, EnvBucket)
	}
	if len(missing) > 0 {
		return fmt.Errorf("objstore: missing object store configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// NewClient builds an S3 client for the configured endpoint.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("objstore: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = cfg.PathStyle
		// Some S3-compatible providers (B2 among them) reject requests
		// carrying flexible checksum headers that browsers cannot attach
		// to a presigned PUT.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return client, nil
}

// NewStore builds the client, presign client and Store in one step.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(cfg.Bucket, client, s3.NewPresignClient(client)), nil
}
