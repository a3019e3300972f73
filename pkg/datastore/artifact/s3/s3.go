// Package s3 implements artifact storage on Amazon S3 or S3-compatible
// object stores.
//
// Key Design:
//   - Artifact paths map directly to object keys under an optional prefix
//   - Format: "<prefix><run>/<dataset type>/<file>"
//   - No leading "/" in keys
//   - The bucket mirrors the datastore layout and stays human-inspectable
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/catalogadmin/pkg/datastore/artifact"
)

// S3ArtifactStore implements artifact.Store on S3.
//
// Thread Safety:
// Safe for concurrent use. Concurrent writes to the same path are
// last-write-wins.
type S3ArtifactStore struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	metrics   S3Metrics
}

// S3ArtifactStoreConfig contains configuration for the S3 artifact store.
type S3ArtifactStoreConfig struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is an optional prefix for all object keys.
	// Example: "repo/" results in keys like "repo/run/1/calexp/x.fits"
	KeyPrefix string

	// Metrics receives operation observations (nil disables collection)
	Metrics S3Metrics
}

// NewS3ArtifactStore creates a new S3-backed artifact store.
//
// The bucket must already exist; access is verified with HeadBucket.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: S3 configuration
//
// Returns:
//   - *S3ArtifactStore: Initialized store
//   - error: Returns error if bucket access fails or context is cancelled
func NewS3ArtifactStore(ctx context.Context, cfg S3ArtifactStoreConfig) (*S3ArtifactStore, error) {
	// ========================================================================
	// Step 1: Validate configuration
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	// ========================================================================
	// Step 2: Verify bucket access
	// ========================================================================

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3ArtifactStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		metrics:   metrics,
	}, nil
}

// objectKey returns the S3 key for an artifact path.
func (s *S3ArtifactStore) objectKey(p string) string {
	return s.keyPrefix + strings.TrimPrefix(p, "/")
}

// pathFromKey strips the key prefix.
func (s *S3ArtifactStore) pathFromKey(key string) string {
	return strings.TrimPrefix(key, s.keyPrefix)
}

// isNotFound reports whether err is S3's "object missing" response. HEAD
// requests carry no body, so they surface as NotFound rather than NoSuchKey.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}

// Read downloads the object and streams its body.
func (s *S3ArtifactStore) Read(ctx context.Context, p string) (rc io.ReadCloser, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("GetObject", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(p)),
	})
	if err != nil {
		if isNotFound(err) {
			err = fmt.Errorf("artifact %s: %w", p, artifact.ErrArtifactNotFound)
			return nil, err
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}

	return &metricsReadCloser{
		ReadCloser: result.Body,
		metrics:    s.metrics,
		direction:  "read",
	}, nil
}

// Write uploads r with a single PutObject. The body is buffered so the
// request can be signed and retried.
func (s *S3ArtifactStore) Write(ctx context.Context, p string, r io.Reader) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("PutObject", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read artifact data: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(p)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to upload artifact %s: %w", p, err)
	}

	s.metrics.RecordBytes("write", int64(len(data)))
	return nil
}

// Size issues a HEAD request for the object.
func (s *S3ArtifactStore) Size(ctx context.Context, p string) (size int64, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("HeadObject", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return 0, err
	}

	result, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(p)),
	})
	if err != nil {
		if isNotFound(err) {
			err = fmt.Errorf("artifact %s: %w", p, artifact.ErrArtifactNotFound)
			return 0, err
		}
		return 0, fmt.Errorf("failed to head object: %w", err)
	}

	if result.ContentLength == nil {
		return 0, fmt.Errorf("content length not available for %s", p)
	}
	return *result.ContentLength, nil
}

// Exists reports whether the object exists.
func (s *S3ArtifactStore) Exists(ctx context.Context, p string) (bool, error) {
	_, err := s.Size(ctx, p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, artifact.ErrArtifactNotFound) {
		return false, nil
	}
	return false, err
}

// Delete removes the object. S3 treats deleting a missing key as success.
func (s *S3ArtifactStore) Delete(ctx context.Context, p string) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("DeleteObject", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(p)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// URI returns s3://bucket/key.
func (s *S3ArtifactStore) URI(p string) string {
	return "s3://" + s.bucket + "/" + s.objectKey(p)
}

// Path parses an s3:// URI from this bucket and prefix back to a path.
func (s *S3ArtifactStore) Path(uri string) (string, error) {
	key, ok := strings.CutPrefix(uri, "s3://"+s.bucket+"/")
	if !ok {
		return "", fmt.Errorf("uri %q is not in bucket %s", uri, s.bucket)
	}
	p, ok := strings.CutPrefix(key, s.keyPrefix)
	if !ok || p == "" {
		return "", fmt.Errorf("uri %q is outside prefix %q", uri, s.keyPrefix)
	}
	return p, nil
}

// Close is a no-op; the SDK client needs no explicit shutdown.
func (s *S3ArtifactStore) Close() error {
	return nil
}

var _ artifact.Store = (*S3ArtifactStore)(nil)
