// Package admin implements the repository maintenance operations:
//
//   - UpdateDatastoreChecksums backfills missing artifact checksums
//   - UpdateStorageClass migrates dataset types between storage classes
//   - RefreshCollectionSummary audits or rebuilds collection summaries
//   - EmptyTrash processes the datastore's pending deletions
//
// Operations are independent. Each receives an open Repository, performs
// its work and returns a report; status lines meant for the operator are
// written to the Out writer of the operation's options, diagnostics go to
// the logger.
package admin

import (
	"io"
	"time"

	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/marmos91/catalogadmin/pkg/datastore"
	"github.com/marmos91/catalogadmin/pkg/storageclass"
)

// Repository is the set of collaborators an operation works against.
type Repository interface {
	Registry() catalog.Registry
	Datastore() datastore.Datastore
	StorageClasses() SchemaCatalog
}

// SchemaCatalog resolves storage classes and checks that their bindings
// can be loaded. *storageclass.Factory implements it.
type SchemaCatalog interface {
	Get(name string) (storageclass.StorageClass, error)
	ResolveBinding(sc storageclass.StorageClass) error
}

// Metrics receives operation observations.
//
// A nil Metrics is replaced by a no-op implementation.
type Metrics interface {
	// ObserveOperation records the duration and outcome of one operation.
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordChecksums records backfill outcomes.
	RecordChecksums(updated, skipped, failed int)

	// RecordStorageClassUpdates records dataset type rows rebound.
	RecordStorageClassUpdates(rows int)

	// RecordSummaryAudit records audited collections by outcome.
	RecordSummaryAudit(consistent, drifted int)

	// RecordTrash records artifacts removed (or that would be removed).
	RecordTrash(artifacts int, dryRun bool)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, time.Duration, error) {}
func (noopMetrics) RecordChecksums(int, int, int)                 {}
func (noopMetrics) RecordStorageClassUpdates(int)                 {}
func (noopMetrics) RecordSummaryAudit(int, int)                   {}
func (noopMetrics) RecordTrash(int, bool)                         {}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

func outOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// plural returns "s" unless n is one.
func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
