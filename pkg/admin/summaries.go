package admin

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/marmos91/catalogadmin/internal/logger"
	"github.com/marmos91/catalogadmin/pkg/catalog"
)

// SummaryDrift compares one collection's cached summary with its contents.
type SummaryDrift struct {
	Collection catalog.Collection

	// Extra are dataset types in the summary but absent from the collection.
	Extra []string

	// Missing are dataset types present in the collection but not summarised.
	Missing []string

	// Actual is the number of dataset types present in the collection.
	Actual int
}

// Consistent reports whether summary and contents agree.
func (d SummaryDrift) Consistent() bool {
	return len(d.Extra) == 0 && len(d.Missing) == 0
}

// SummaryAuditor computes the drift of a collection's summary.
type SummaryAuditor interface {
	Audit(ctx context.Context, reg catalog.Registry, collection catalog.Collection) (SummaryDrift, error)
}

// ScanAuditor audits a summary by querying every dataset in the collection.
//
// This is a brute-force scan. It is read-only and not transactional, so
// datasets ingested while it runs can show up as drift in either direction.
type ScanAuditor struct{}

// Audit implements SummaryAuditor.
func (ScanAuditor) Audit(ctx context.Context, reg catalog.Registry, collection catalog.Collection) (SummaryDrift, error) {
	summary, err := reg.GetCollectionSummary(ctx, collection.Name)
	if err != nil {
		return SummaryDrift{}, fmt.Errorf("failed to get summary of %s: %w", collection.Name, err)
	}

	refs, err := reg.QueryDatasets(ctx, catalog.DatasetQuery{
		DatasetType: catalog.Everything,
		Collections: []string{collection.Name},
	})
	if err != nil {
		return SummaryDrift{}, fmt.Errorf("failed to scan %s: %w", collection.Name, err)
	}

	actual := make(map[string]struct{})
	for _, ref := range refs {
		actual[ref.DatasetType] = struct{}{}
	}

	drift := SummaryDrift{Collection: collection, Actual: len(actual)}
	for _, name := range summary.Names() {
		if _, ok := actual[name]; !ok {
			drift.Extra = append(drift.Extra, name)
		}
	}
	for name := range actual {
		if !summary.Has(name) {
			drift.Missing = append(drift.Missing, name)
		}
	}
	sort.Strings(drift.Missing)

	return drift, nil
}

// SummaryOptions controls RefreshCollectionSummary.
type SummaryOptions struct {
	// Update recomputes every summary in the registry instead of auditing.
	Update bool

	// Tagged restricts the audit to TAGGED collections. Ignored with Update.
	Tagged bool

	// Auditor computes drift (default: ScanAuditor).
	Auditor SummaryAuditor

	// Out receives one line per audited collection (nil discards them).
	Out io.Writer

	// Metrics receives observations (nil disables collection).
	Metrics Metrics
}

// RefreshCollectionSummary rebuilds collection summaries or reports drift.
//
// In update mode the registry recomputes every summary itself and no local
// comparison is made. Otherwise each selected collection is audited in name
// order and one line per finding is printed. Chained collections are
// audited as a whole, not expanded into their children.
func RefreshCollectionSummary(ctx context.Context, repo Repository, opts SummaryOptions) (drifts []SummaryDrift, err error) {
	m := metricsOrNoop(opts.Metrics)
	start := time.Now()
	defer func() {
		m.ObserveOperation("refresh-collection-summary", time.Since(start), err)
	}()

	reg := repo.Registry()
	out := outOrDiscard(opts.Out)

	if opts.Update {
		if err := reg.RefreshCollectionSummaries(ctx); err != nil {
			return nil, fmt.Errorf("failed to refresh collection summaries: %w", err)
		}
		logger.Info("Collection summaries refreshed")
		_, _ = fmt.Fprintln(out, "Collection summaries were refreshed.")
		return nil, nil
	}

	types := catalog.AllCollectionTypes()
	if opts.Tagged {
		types = []catalog.CollectionType{catalog.CollectionTagged}
	}

	collections, err := reg.QueryCollections(ctx, types, false)
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	sort.Slice(collections, func(i, j int) bool { return collections[i].Name < collections[j].Name })

	auditor := opts.Auditor
	if auditor == nil {
		auditor = ScanAuditor{}
	}

	consistent := 0
	for _, c := range collections {
		drift, err := auditor.Audit(ctx, reg, c)
		if err != nil {
			return drifts, err
		}
		drifts = append(drifts, drift)

		if len(drift.Extra) > 0 {
			_, _ = fmt.Fprintf(out, "Summary for %s collection %s contains %d extra dataset types.\n",
				c.Type, c.Name, len(drift.Extra))
			logger.Debug("Extra dataset types in %s: %v", c.Name, drift.Extra)
		}
		if len(drift.Missing) > 0 {
			_, _ = fmt.Fprintf(out, "Summary for %s collection %s contains %d missing dataset types.\n",
				c.Type, c.Name, len(drift.Missing))
			logger.Debug("Missing dataset types in %s: %v", c.Name, drift.Missing)
		}
		if drift.Consistent() {
			consistent++
			_, _ = fmt.Fprintf(out, "Summary for %s collection %s is consistent with %d dataset types.\n",
				c.Type, c.Name, drift.Actual)
		}
	}

	m.RecordSummaryAudit(consistent, len(drifts)-consistent)
	return drifts, nil
}
