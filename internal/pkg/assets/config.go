package assets

import (
	"strings"

	"github.com/localhub-app/LocalHub/internal/pkg/env"
)

// Config holds the S3 connection settings for the receipt asset store.
type Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	EndpointURL     string
	KeyPrefix       string
}

// NewConfigFromEnv reads the asset store configuration from the process
// environment.
func NewConfigFromEnv() *Config {
	return &Config{
		Region:          strings.TrimSpace(env.GetEnv("ASSETS_S3_REGION", "us-east-1")),
		Bucket:          strings.TrimSpace(env.GetEnv("ASSETS_S3_BUCKET", "localhub-receipts")),
		AccessKeyID:     strings.TrimSpace(env.GetEnv("ASSETS_S3_ACCESS_KEY_ID", "")),
		SecretAccessKey: strings.TrimSpace(env.GetEnv("ASSETS_S3_SECRET_ACCESS_KEY", "")),
		EndpointURL:     strings.TrimSpace(env.GetEnv("ASSETS_S3_ENDPOINT_URL", "")),
		KeyPrefix:       strings.Trim(env.GetEnv("ASSETS_S3_KEY_PREFIX", "receipts"), "/"),
	}
}

// IsConfigured reports whether credentials are present.
func (c *Config) IsConfigured() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != "" && c.Bucket != ""
}
