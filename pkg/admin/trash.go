package admin

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/marmos91/catalogadmin/internal/logger"
	"github.com/marmos91/catalogadmin/pkg/datastore"
)

// TrashOptions controls EmptyTrash.
type TrashOptions struct {
	// DryRun reports what would be removed without deleting anything.
	DryRun bool

	// Verbose lists every removed artifact URI.
	Verbose bool

	// Out receives the report (nil discards it).
	Out io.Writer

	// Metrics receives observations (nil disables collection).
	Metrics Metrics
}

// TrashReport is the outcome of EmptyTrash.
type TrashReport struct {
	// Supported is false when the datastore cannot empty its trash.
	Supported bool

	// Removed holds the removed (or, in dry-run mode, removable) URIs, sorted.
	Removed []string
}

// EmptyTrash asks the datastore to delete trashed artifacts that nothing
// references any more.
//
// A datastore without trash support is reported on Out and is not an error.
func EmptyTrash(ctx context.Context, repo Repository, opts TrashOptions) (report *TrashReport, err error) {
	m := metricsOrNoop(opts.Metrics)
	start := time.Now()
	defer func() {
		m.ObserveOperation("empty-trash", time.Since(start), err)
	}()

	out := outOrDiscard(opts.Out)
	report = &TrashReport{}

	emptier, ok := repo.Datastore().(datastore.TrashEmptier)
	if !ok {
		logger.Debug("Skipping trash: %v", ErrUnsupportedTrashCapability)
		_, _ = fmt.Fprintln(out, "Repository does not have a datastore that can support trash emptying")
		return report, nil
	}
	report.Supported = true

	removed, err := emptier.EmptyTrash(ctx, opts.DryRun)
	if err != nil {
		return report, fmt.Errorf("failed to empty trash: %w", err)
	}

	sort.Strings(removed)
	report.Removed = removed
	m.RecordTrash(len(removed), opts.DryRun)

	if opts.Verbose && len(removed) > 0 {
		_, _ = fmt.Fprintln(out, "Removed the following:")
		for _, uri := range removed {
			_, _ = fmt.Fprintln(out, uri)
		}
	}

	return report, nil
}
