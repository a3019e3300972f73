package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/marmos91/catalogadmin/internal/logger"
	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/marmos91/catalogadmin/pkg/storageclass"
)

// StorageClassOptions describes a storage class migration.
type StorageClassOptions struct {
	// DatasetType is a dataset type name or glob pattern.
	DatasetType string

	// From is the storage class the dataset types are currently bound to.
	From string

	// To is the storage class to bind them to.
	To string

	// Update applies the change. When false only a preview is printed.
	Update bool

	// Out receives the preview or the update count (nil discards it).
	Out io.Writer

	// Metrics receives observations (nil disables collection).
	Metrics Metrics
}

// StorageClassReport lists the dataset types selected for migration and the
// number of rows changed (zero in preview mode).
type StorageClassReport struct {
	Candidates []catalog.DatasetType
	Updated    int

	// Converter produces the target binding from the source one. Empty when
	// both classes share a binding.
	Converter string
}

// UpdateStorageClass rebinds dataset types from one storage class to another.
//
// Every precondition is checked before the registry is modified:
//  1. Both storage classes exist
//  2. Both bindings can be loaded
//  3. The target class can convert from the source class
//
// The update itself is a single registry write covering every candidate.
// Preview is the default; nothing is written unless opts.Update is set.
func UpdateStorageClass(ctx context.Context, repo Repository, opts StorageClassOptions) (report *StorageClassReport, err error) {
	m := metricsOrNoop(opts.Metrics)
	start := time.Now()
	defer func() {
		m.ObserveOperation("update-storage-class", time.Since(start), err)
	}()

	out := outOrDiscard(opts.Out)
	classes := repo.StorageClasses()

	// ========================================================================
	// Step 1: Resolve storage classes
	// ========================================================================

	from, err := lookupStorageClass(classes, opts.From)
	if err != nil {
		return nil, err
	}
	to, err := lookupStorageClass(classes, opts.To)
	if err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 2: Check that both bindings load
	// ========================================================================

	for _, sc := range []storageclass.StorageClass{from, to} {
		if err := classes.ResolveBinding(sc); err != nil {
			return nil, fmt.Errorf("%w: binding %q of storage class %s is not available, make sure the corresponding plugin is registered: %v",
				ErrUnloadableBinding, sc.Binding, sc.Name, err)
		}
	}

	// ========================================================================
	// Step 3: Conversion safety gate
	// ========================================================================

	if !to.CanConvert(from) {
		accepts := "no other bindings"
		if sources := to.SourceBindings(); len(sources) > 0 {
			accepts = "bindings " + strings.Join(sources, ", ")
		}
		return nil, fmt.Errorf("%w: storage class %s cannot convert from %s (it accepts %s)",
			ErrIncompatibleConversion, to.Name, from.Name, accepts)
	}
	converter, _ := to.ConverterFrom(from)

	// ========================================================================
	// Step 4: Select candidates
	// ========================================================================

	reg := repo.Registry()
	matching, err := reg.QueryDatasetTypes(ctx, opts.DatasetType)
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset types: %w", err)
	}

	report = &StorageClassReport{Converter: converter}
	for _, dt := range matching {
		if dt.StorageClass == from.Name {
			report.Candidates = append(report.Candidates, dt)
		}
	}

	if len(report.Candidates) == 0 {
		_, _ = fmt.Fprintln(out, "No matching dataset types were found.")
		return report, nil
	}

	// ========================================================================
	// Step 5: Preview or apply
	// ========================================================================

	if !opts.Update {
		_, _ = fmt.Fprintln(out, "Will update storage class for following dataset types:")
		for _, dt := range report.Candidates {
			_, _ = fmt.Fprintln(out, dt.String())
		}
		if converter != "" {
			_, _ = fmt.Fprintf(out, "Payloads will be read through converter %s.\n", converter)
		}
		_, _ = fmt.Fprintln(out, "\nDatabase was not updated - use --update option to apply these changes.")
		return report, nil
	}

	names := make([]string, len(report.Candidates))
	for i, dt := range report.Candidates {
		names[i] = dt.Name
	}

	count, err := reg.UpdateDatasetTypeStorageClass(ctx, names, from.Name, to.Name)
	if err != nil {
		return report, fmt.Errorf("failed to update dataset types: %w", err)
	}
	report.Updated = count
	m.RecordStorageClassUpdates(count)

	logger.Info("Rebound %d dataset types from %s to %s (converter %q)", count, from.Name, to.Name, converter)
	_, _ = fmt.Fprintf(out, "Updated %d dataset type record%s in database.\n", count, plural(count))

	return report, nil
}

func lookupStorageClass(classes SchemaCatalog, name string) (storageclass.StorageClass, error) {
	sc, err := classes.Get(name)
	if err != nil {
		if errors.Is(err, storageclass.ErrNotFound) {
			return storageclass.StorageClass{}, fmt.Errorf("%w: storage class %s does not exist", ErrUnknownStorageClass, name)
		}
		return storageclass.StorageClass{}, err
	}
	return sc, nil
}
