// Package s3 provides an Amazon S3 implementation of the storage adapter interfaces.
package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/processtracker/pkg/tracker/adapter/storage"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

// ProviderType is the location type served by this adapter.
const ProviderType = "s3"

// S3API is the subset of the S3 client used by the adapter.
type S3API interface {
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Option configures an s3Adapter.
type Option func(*s3Adapter)

// WithS3Client makes the adapter use client instead of one built from the
// default AWS configuration chain.
func WithS3Client(client S3API) Option {
	return func(a *s3Adapter) { a.client = client }
}

// s3Adapter implements storage.StorageConnection for S3 buckets.
type s3Adapter struct {
	mu     sync.Mutex
	client S3API
}

var _ storageAdapter.StorageConnection = (*s3Adapter)(nil)

// NewS3Adapter creates an S3 adapter. Without WithS3Client the client is
// created on first use from the default AWS configuration chain.
func NewS3Adapter(opts ...Option) storageAdapter.StorageConnection {
	a := &s3Adapter{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// getClient returns the S3 client, creating it on first use.
func (a *s3Adapter) getClient(ctx context.Context) (S3API, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return a.client, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	a.client = s3.NewFromConfig(cfg)
	logger.Debugf("S3 client created (region: %s).", cfg.Region)
	return a.client, nil
}

// Type returns "s3".
func (a *s3Adapter) Type() string {
	return ProviderType
}

// Close does nothing; the S3 client holds no connections that need releasing.
func (a *s3Adapter) Close() error {
	return nil
}

// ListObjects lists every object under the key prefix in bucket. Names passed
// to fn are relative to prefix; folder placeholder keys are skipped.
func (a *s3Adapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	client, err := a.getClient(ctx)
	if err != nil {
		return err
	}

	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	count := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects in bucket '%s' with prefix '%s': %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" || strings.HasSuffix(name, "/") {
				continue
			}
			if err := fn(name); err != nil {
				return err
			}
			count++
		}
	}
	logger.Debugf("Listed %d objects in bucket '%s' with prefix '%s'.", count, bucket, prefix)
	return nil
}

// Exists reports whether objectName exists in bucket.
func (a *s3Adapter) Exists(ctx context.Context, bucket, objectName string) (bool, error) {
	client, err := a.getClient(ctx)
	if err != nil {
		return false, err
	}
	_, err = client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(strings.TrimPrefix(objectName, "/")),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return false, nil
	}
	return false, fmt.Errorf("failed to head object '%s' in bucket '%s': %w", objectName, bucket, err)
}

// Module is the Fx module for the S3 storage adapter.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		func() storageAdapter.StorageConnection { return NewS3Adapter() },
		fx.ResultTags(`group:"storage_connections"`),
	)),
)
