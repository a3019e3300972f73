package s3

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// maxDeleteBatch is the S3 limit on keys per DeleteObjects request.
const maxDeleteBatch = 1000

// List pages through every object under the key prefix.
//
// Returns:
//   - []string: Artifact paths (prefix stripped), sorted
//   - error: Returns error for S3 failures or context cancellation
func (s *S3ArtifactStore) List(ctx context.Context) (paths []string, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveOperation("ListObjectsV2", time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})

	for paginator.HasMorePages() {
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		page, perr := paginator.NextPage(ctx)
		if perr != nil {
			err = fmt.Errorf("failed to list objects: %w", perr)
			return nil, err
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			paths = append(paths, s.pathFromKey(*obj.Key))
		}
	}

	sort.Strings(paths)
	return paths, nil
}

// DeleteBatch removes artifacts with DeleteObjects, chunked to the S3 limit.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - paths: Artifact paths to delete
//
// Returns:
//   - map[string]error: Failed deletions keyed by path (empty = all succeeded)
//   - error: Returns error only for context cancellation
func (s *S3ArtifactStore) DeleteBatch(ctx context.Context, paths []string) (map[string]error, error) {
	failures := make(map[string]error)

	for i := 0; i < len(paths); i += maxDeleteBatch {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(paths); j++ {
				failures[paths[j]] = err
			}
			return failures, err
		}

		end := min(i+maxDeleteBatch, len(paths))
		batch := paths[i:end]

		objects := make([]types.ObjectIdentifier, len(batch))
		for j, p := range batch {
			objects[j] = types.ObjectIdentifier{Key: aws.String(s.objectKey(p))}
		}

		start := time.Now()
		result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		s.metrics.ObserveOperation("DeleteObjects", time.Since(start), err)
		if err != nil {
			for _, p := range batch {
				failures[p] = err
			}
			continue
		}

		for _, deleteErr := range result.Errors {
			if deleteErr.Key == nil {
				continue
			}

			msg := "unknown error"
			if deleteErr.Code != nil && deleteErr.Message != nil {
				msg = fmt.Sprintf("%s: %s", *deleteErr.Code, *deleteErr.Message)
			}
			failures[s.pathFromKey(*deleteErr.Key)] = errors.New(msg)
		}
	}

	return failures, nil
}
