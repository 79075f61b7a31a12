package assets

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Store keeps manual-payment receipt images in an S3-compatible bucket and
// addresses them by an opaque reference string. Billing only ever stores a
// reference and later deletes by it; nothing in this app interprets the
// image itself.
type Store struct {
	s3Client *s3.Client
	config   *Config
}

// NewStore creates an asset store from the given configuration.
func NewStore(cfg *Config) (*Store, error) {
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("asset store is not configured")
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// S3-compatible stores (MinIO, B2) need path-style URLs.
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	return &Store{s3Client: s3Client, config: cfg}, nil
}

// Put uploads a receipt and returns its opaque reference.
func (s *Store) Put(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	ext := ""
	if i := strings.LastIndex(filename, "."); i >= 0 {
		ext = strings.ToLower(filename[i:])
	}
	ref := fmt.Sprintf("%s/%s%s", s.config.KeyPrefix, uuid.NewString(), ext)

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(ref),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store receipt: %w", err)
	}
	return ref, nil
}

// Delete removes a receipt by its reference. Deleting a reference that no
// longer exists is not an error.
func (s *Store) Delete(ctx context.Context, ref string) error {
	if strings.TrimSpace(ref) == "" {
		return nil
	}
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return fmt.Errorf("failed to delete receipt %s: %w", ref, err)
	}
	return nil
}
