package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/marmos91/catalogadmin/internal/logger"
	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/marmos91/catalogadmin/pkg/datastore"
	"github.com/marmos91/catalogadmin/pkg/datastore/artifact"
)

// ChecksumOptions selects the datasets whose checksums are backfilled.
type ChecksumOptions struct {
	// DatasetTypes are dataset type names or glob patterns. Empty means every
	// dataset type.
	DatasetTypes []string

	// Collections is the collection search path. Empty means all collections.
	Collections []string

	// Where is an optional CEL expression over data_id, run and dataset_type.
	Where string

	// FindFirst keeps only the first match per data ID along Collections.
	FindFirst bool

	// Limit caps the datasets per pattern. Zero is unlimited; a negative value
	// is a soft cap of |Limit| that logs a warning when more datasets match.
	Limit int

	// Workers is the number of concurrent hash computations (default: NumCPU).
	Workers int

	// Algorithm is the digest to compute (default: md5).
	Algorithm string

	// Out receives the operator summary line (nil discards it).
	Out io.Writer

	// Metrics receives observations (nil disables collection).
	Metrics Metrics
}

// RefFailure records a dataset whose checksum could not be computed.
type RefFailure struct {
	Ref catalog.DatasetRef
	Err error
}

// ChecksumReport summarises a backfill run.
type ChecksumReport struct {
	Updated  int
	Skipped  int
	Failures []RefFailure
}

// Failed returns the number of datasets that could not be updated.
func (r *ChecksumReport) Failed() int {
	return len(r.Failures)
}

// checksumResult is the outcome of one worker job.
type checksumResult struct {
	info    datastore.StoredFileInfo
	updated bool
	err     error
}

// UpdateDatastoreChecksums computes and stores checksums for datasets whose
// stored record has none.
//
// Steps:
//  1. Query datasets matching each pattern, honouring find-first and the limit
//  2. Resolve artifact URIs
//  3. Hash every dataset lacking a checksum on a bounded worker pool
//  4. Write all updated records with a single replace
//
// Existing checksums are never recomputed. A dataset whose artifact cannot
// be resolved is reported in the failures and omitted from the write; it
// does not affect the rest of the batch. Collaborator errors abort the run.
func UpdateDatastoreChecksums(ctx context.Context, repo Repository, opts ChecksumOptions) (report *ChecksumReport, err error) {
	m := metricsOrNoop(opts.Metrics)
	start := time.Now()
	defer func() {
		m.ObserveOperation("update-datastore-checksums", time.Since(start), err)
	}()

	// ========================================================================
	// Step 1: Validate inputs before touching the repository
	// ========================================================================

	algorithm := opts.Algorithm
	if algorithm == "" {
		algorithm = datastore.DefaultChecksumAlgorithm
	}
	if _, err = datastore.NewHash(algorithm); err != nil {
		return nil, err
	}

	if _, err = catalog.CompileWhere(opts.Where); err != nil {
		return nil, err
	}

	patterns := opts.DatasetTypes
	if len(patterns) == 0 {
		patterns = []string{catalog.Everything}
	}

	reg := repo.Registry()
	ds := repo.Datastore()
	report = &ChecksumReport{}

	// ========================================================================
	// Step 2: Collect datasets of every pattern
	// ========================================================================

	// A dataset matched by several patterns is processed once.
	var refs []catalog.DatasetRef
	seen := make(map[catalog.DatasetID]struct{})
	for _, pattern := range patterns {
		matched, err := queryWithCap(ctx, reg, catalog.DatasetQuery{
			DatasetType: pattern,
			Collections: opts.Collections,
			Where:       opts.Where,
			FindFirst:   opts.FindFirst,
		}, opts.Limit)
		if err != nil {
			return report, fmt.Errorf("failed to query datasets of type %q: %w", pattern, err)
		}
		if len(matched) == 0 {
			logger.Debug("No datasets found for dataset type %q", pattern)
			continue
		}
		for _, ref := range matched {
			if _, dup := seen[ref.ID]; dup {
				continue
			}
			seen[ref.ID] = struct{}{}
			refs = append(refs, ref)
		}
	}

	// ========================================================================
	// Step 3: Hash on the worker pool
	// ========================================================================

	var updated []datastore.StoredFileInfo
	if len(refs) > 0 {
		uris, err := ds.GetManyURIs(ctx, refs)
		if err != nil {
			return report, fmt.Errorf("failed to resolve artifact URIs: %w", err)
		}

		results := runPool(ctx, opts.Workers, refs, func(ctx context.Context, ref catalog.DatasetRef) checksumResult {
			return computeChecksum(ctx, ds, uris, ref, algorithm)
		})

		for i, res := range results {
			switch {
			case res.err != nil:
				// Cancellation is a run failure, not a per-dataset one.
				if errors.Is(res.err, context.Canceled) || errors.Is(res.err, context.DeadlineExceeded) {
					return report, res.err
				}
				logger.Warn("Cannot compute checksum for %s: %v", refs[i], res.err)
				report.Failures = append(report.Failures, RefFailure{Ref: refs[i], Err: res.err})
			case res.updated:
				updated = append(updated, res.info)
			default:
				report.Skipped++
			}
		}
	}

	// ========================================================================
	// Step 4: Single bulk replace for the whole run
	// ========================================================================

	if len(updated) > 0 {
		if err := ds.AddStoredItemInfo(ctx, updated, datastore.InsertModeReplace); err != nil {
			return report, err
		}
		report.Updated = len(updated)
		logger.Info("Updated checksum for %d datasets.", len(updated))
	}

	m.RecordChecksums(report.Updated, report.Skipped, report.Failed())

	_, _ = fmt.Fprintf(outOrDiscard(opts.Out),
		"Updated checksum for %d dataset%s (%d already had one, %d failed).\n",
		report.Updated, plural(report.Updated), report.Skipped, report.Failed())

	return report, nil
}

// computeChecksum is the worker body. It reads only its own dataset's state
// and returns the updated record without writing it.
func computeChecksum(ctx context.Context, ds datastore.Datastore, uris map[catalog.DatasetID]datastore.DatasetURIs, ref catalog.DatasetRef, algorithm string) checksumResult {
	infos, err := ds.GetStoredItemsInfo(ctx, ref)
	if err != nil {
		if errors.Is(err, datastore.ErrRecordNotFound) {
			return checksumResult{err: fmt.Errorf("%w: %v", ErrUnresolvedArtifact, err)}
		}
		return checksumResult{err: err}
	}

	info := infos[0]
	if info.Checksum != "" {
		return checksumResult{}
	}

	primary := uris[ref.ID].Primary
	if primary == "" {
		return checksumResult{err: fmt.Errorf("%w: no URI found for dataset %s", ErrUnresolvedArtifact, ref.ID)}
	}

	sum, err := ds.ComputeChecksum(ctx, primary, algorithm)
	if err != nil {
		if errors.Is(err, artifact.ErrArtifactNotFound) {
			return checksumResult{err: fmt.Errorf("%w: %v", ErrUnresolvedArtifact, err)}
		}
		return checksumResult{err: err}
	}

	return checksumResult{info: info.Update(sum), updated: true}
}

// queryWithCap runs q with limit semantics: zero unlimited, positive a hard
// cap, negative a soft cap that warns when exceeded.
func queryWithCap(ctx context.Context, reg catalog.Registry, q catalog.DatasetQuery, limit int) ([]catalog.DatasetRef, error) {
	if limit >= 0 {
		q.Limit = limit
		return reg.QueryDatasets(ctx, q)
	}

	// Leave room for the extra row that detects overflow.
	softCap := math.MaxInt - 1
	if limit > -softCap {
		softCap = -limit
	}
	q.Limit = softCap + 1

	refs, err := reg.QueryDatasets(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(refs) > softCap {
		logger.Warn("More than %d datasets of type %q match; only the first %d are processed", softCap, q.DatasetType, softCap)
		refs = refs[:softCap]
	}
	return refs, nil
}
