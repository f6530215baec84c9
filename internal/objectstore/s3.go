// Package objectstore provides the S3-compatible bucket that snapshots are
// uploaded to and listed from.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNotConfigured is returned when the bucket or endpoint is missing.
var ErrNotConfigured = errors.New("object storage is not configured")

// Config holds the connection settings for an S3-compatible store.
type Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// Store is a single bucket on an S3-compatible service.
type Store struct {
	client *s3.Client
	bucket string
	logger *slog.Logger
}

// New creates a Store. MinIO style endpoints without a scheme are accepted.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket name is empty", ErrNotConfigured)
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is empty", ErrNotConfigured)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(EndpointURL(cfg.Endpoint, cfg.UseSSL))
		o.UsePathStyle = true
	})

	return &Store{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// EndpointURL adds a scheme to host:port style endpoints.
func EndpointURL(endpoint string, useSSL bool) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// URI returns the s3:// address of key, as read by the catalog engine.
func (s *Store) URI(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, key)
}

// Put uploads body under key.
func (s *Store) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	s.logger.Info("uploaded object", "bucket", s.bucket, "key", key, "bytes", len(body))
	return nil
}

// List returns the sorted keys at the bucket root that end in suffix.
func (s *Store) List(ctx context.Context, suffix string) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Delimiter: aws.String("/"),
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", s.bucket, err)
		}
		for _, obj := range output.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, suffix) {
				keys = append(keys, key)
			}
		}
	}

	sort.Strings(keys)
	s.logger.Debug("listed objects", "bucket", s.bucket, "count", len(keys))
	return keys, nil
}
