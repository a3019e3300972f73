//go:build integration

package s3

import (
	"context"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/marmos91/catalogadmin/pkg/datastore/artifact"
	artifacttesting "github.com/marmos91/catalogadmin/pkg/datastore/artifact/testing"
	"github.com/stretchr/testify/require"
)

// TestS3ArtifactStore_Integration runs the artifact store suite against a real
// S3-compatible service.
//
// Prerequisites:
//   - Localstack running on localhost:4566 (or LOCALSTACK_ENDPOINT)
//   - Run with: go test -tags=integration ./pkg/datastore/artifact/s3/...
//
// To start Localstack:
//
//	docker run --rm -p 4566:4566 localstack/localstack
func TestS3ArtifactStore_Integration(t *testing.T) {
	ctx := context.Background()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	client, err := NewClient(ctx, ClientConfig{
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		MaxRetries:      2,
	})
	require.NoError(t, err)

	bucket := "catalog-admin-test"
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err)

	t.Cleanup(func() {
		store, err := NewS3ArtifactStore(ctx, S3ArtifactStoreConfig{Client: client, Bucket: bucket})
		if err == nil {
			if paths, err := store.List(ctx); err == nil {
				_, _ = store.DeleteBatch(ctx, paths)
			}
		}
		_, _ = client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)})
	})

	suite := &artifacttesting.StoreTestSuite{
		NewStore: func(t *testing.T) artifact.Store {
			// A fresh prefix per test keeps List results isolated.
			store, err := NewS3ArtifactStore(ctx, S3ArtifactStoreConfig{
				Client:    client,
				Bucket:    bucket,
				KeyPrefix: uuid.NewString() + "/",
			})
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}
