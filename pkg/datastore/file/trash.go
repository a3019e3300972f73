package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/marmos91/catalogadmin/internal/logger"
	"github.com/marmos91/catalogadmin/pkg/datastore"
)

// TrashStats contains statistics from one trash emptying run.
type TrashStats struct {
	StartTime       time.Time // When the run started
	EndTime         time.Time // When the run ended
	TrashedCount    int       // Trash ledger entries examined
	ReferencedCount int       // Entries whose artifact is still used by a live record
	MissingCount    int       // Entries whose artifact no longer exists
	OrphanedCount   int       // Distinct artifacts eligible for deletion
	DeletedCount    int       // Artifacts successfully deleted
	FailedCount     int       // Artifacts that failed to delete
}

// Duration returns the total run duration.
func (s *TrashStats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the run.
func (s *TrashStats) Summary() string {
	return fmt.Sprintf("trashed=%d referenced=%d missing=%d orphaned=%d deleted=%d failed=%d duration=%s",
		s.TrashedCount, s.ReferencedCount, s.MissingCount, s.OrphanedCount,
		s.DeletedCount, s.FailedCount, s.Duration())
}

// EmptyTrash implements datastore.TrashEmptier.
func (d *FileDatastore) EmptyTrash(ctx context.Context, dryRun bool) ([]string, error) {
	removed, stats, err := d.emptyTrash(ctx, dryRun)
	if err != nil {
		return nil, err
	}
	logger.Debug("%s: trash run completed: %s", d.name, stats.Summary())
	return removed, nil
}

// emptyTrash is the trash reconciliation algorithm:
//  1. List trash ledger entries
//  2. Collect artifact paths referenced by live records
//  3. Orphaned = trashed paths that are unreferenced and still exist
//  4. Dry run: report orphaned URIs and stop
//  5. Batch delete orphaned artifacts
//  6. Drop ledger entries for deleted, missing and still-referenced artifacts
//
// Entries whose artifact failed to delete stay in the ledger for the next run.
func (d *FileDatastore) emptyTrash(ctx context.Context, dryRun bool) ([]string, *TrashStats, error) {
	stats := &TrashStats{StartTime: time.Now()}

	// ========================================================================
	// Phase 1: Load the trash ledger
	// ========================================================================

	entries, err := d.records.ListTrash(ctx)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to list trash: %w", err)
	}
	stats.TrashedCount = len(entries)

	if len(entries) == 0 {
		logger.Info("%s: trash is empty", d.name)
		stats.EndTime = time.Now()
		return nil, stats, nil
	}

	// ========================================================================
	// Phase 2: Collect paths still referenced by live records
	// ========================================================================

	referenced, err := d.records.ReferencedPaths(ctx)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to get referenced artifacts: %w", err)
	}

	// ========================================================================
	// Phase 3: Classify trash entries
	// ========================================================================

	var drop []datastore.StoredFileInfo
	byPath := make(map[string][]datastore.StoredFileInfo)

	for _, e := range entries {
		if _, ok := referenced[e.Path]; ok {
			stats.ReferencedCount++
			drop = append(drop, e)
			continue
		}
		byPath[e.Path] = append(byPath[e.Path], e)
	}

	exists, err := d.existingPaths(ctx, byPath)
	if err != nil {
		return nil, stats, err
	}

	orphaned := make([]string, 0, len(byPath))
	for p := range byPath {
		if !exists(p) {
			stats.MissingCount += len(byPath[p])
			drop = append(drop, byPath[p]...)
			continue
		}
		orphaned = append(orphaned, p)
	}
	sort.Strings(orphaned)
	stats.OrphanedCount = len(orphaned)

	// ========================================================================
	// Phase 4: Dry run stops here
	// ========================================================================

	if dryRun {
		logger.Info("Would have removed %d files from trash", len(orphaned))
		stats.EndTime = time.Now()
		return d.uris(orphaned), stats, nil
	}

	// ========================================================================
	// Phase 5: Batch delete orphaned artifacts
	// ========================================================================

	var deleted []string
	for i := 0; i < len(orphaned); i += d.trashBatchSize {
		if err := ctx.Err(); err != nil {
			stats.EndTime = time.Now()
			return nil, stats, err
		}

		end := min(i+d.trashBatchSize, len(orphaned))
		batch := orphaned[i:end]

		failures, err := d.artifacts.DeleteBatch(ctx, batch)
		if err != nil && len(failures) == 0 {
			logger.Warn("%s: batch delete failed: %v", d.name, err)
			stats.FailedCount += len(batch)
			continue
		}

		for _, p := range batch {
			if ferr, failed := failures[p]; failed {
				logger.Debug("%s: failed to delete %s: %v", d.name, p, ferr)
				stats.FailedCount++
				continue
			}
			deleted = append(deleted, p)
			drop = append(drop, byPath[p]...)
		}

		if err != nil {
			stats.EndTime = time.Now()
			if derr := d.records.DropTrash(ctx, drop); derr != nil {
				logger.Warn("%s: failed to drop trash entries: %v", d.name, derr)
			}
			return nil, stats, err
		}
	}
	stats.DeletedCount = len(deleted)

	// ========================================================================
	// Phase 6: Clear processed ledger entries
	// ========================================================================

	if err := d.records.DropTrash(ctx, drop); err != nil {
		return nil, stats, fmt.Errorf("failed to drop trash entries: %w", err)
	}

	stats.EndTime = time.Now()
	logger.Info("Removed %d files from trash", len(deleted))
	if stats.FailedCount > 0 {
		logger.Warn("%s: %d trashed artifacts could not be deleted and remain in trash", d.name, stats.FailedCount)
	}

	return d.uris(deleted), stats, nil
}

// listThreshold is the number of trashed paths above which one List call
// replaces per-path Exists checks.
const listThreshold = 16

// existingPaths returns a lookup reporting which of the trashed paths still
// exist in the artifact store. Small sets are checked one by one; larger
// ones compare against a single listing of the store.
func (d *FileDatastore) existingPaths(ctx context.Context, byPath map[string][]datastore.StoredFileInfo) (func(string) bool, error) {
	existing := make(map[string]struct{}, len(byPath))

	if len(byPath) > listThreshold {
		all, err := d.artifacts.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list artifacts: %w", err)
		}
		for _, p := range all {
			if _, trashed := byPath[p]; trashed {
				existing[p] = struct{}{}
			}
		}
	} else {
		for p := range byPath {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			ok, err := d.artifacts.Exists(ctx, p)
			if err != nil {
				return nil, fmt.Errorf("failed to check artifact %s: %w", p, err)
			}
			if ok {
				existing[p] = struct{}{}
			}
		}
	}

	return func(p string) bool {
		_, ok := existing[p]
		return ok
	}, nil
}

func (d *FileDatastore) uris(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = d.artifacts.URI(p)
	}
	return out
}
