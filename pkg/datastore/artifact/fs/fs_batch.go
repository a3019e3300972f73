package fs

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// ============================================================================
// Listing and batch deletion
// ============================================================================

// List walks the root directory and returns every artifact path, sorted.
//
// Context Cancellation:
// The context is checked every 100 entries during the walk.
func (s *FSArtifactStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var paths []string
	visited := 0

	err := filepath.WalkDir(s.basePath, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		visited++
		if visited%100 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}

		rel, err := filepath.Rel(s.basePath, fp)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	return sortedPaths(paths), nil
}

// DeleteBatch removes artifacts sequentially. The operation is best-effort;
// partial failures are returned in the map.
//
// Context Cancellation:
// The context is checked every 10 deletions. On cancellation the remaining
// paths are reported as failed with the context error.
func (s *FSArtifactStore) DeleteBatch(ctx context.Context, paths []string) (map[string]error, error) {
	failures := make(map[string]error)

	for i, p := range paths {
		if i%10 == 0 {
			if err := ctx.Err(); err != nil {
				for j := i; j < len(paths); j++ {
					failures[paths[j]] = err
				}
				return failures, err
			}
		}

		if err := s.Delete(ctx, p); err != nil {
			failures[p] = err
		}
	}

	return failures, nil
}
