package admin

import "errors"

var (
	// ErrUnknownStorageClass is returned when a storage class name is not
	// defined in the repository's schema catalog.
	ErrUnknownStorageClass = errors.New("unknown storage class")

	// ErrUnloadableBinding is returned when a storage class's native binding
	// is not available in this build.
	ErrUnloadableBinding = errors.New("storage class binding cannot be loaded")

	// ErrIncompatibleConversion is returned when the target storage class is
	// not declared convertible from the source.
	ErrIncompatibleConversion = errors.New("incompatible storage class conversion")

	// ErrUnresolvedArtifact marks a dataset whose artifact could not be
	// located. It fails only that dataset.
	ErrUnresolvedArtifact = errors.New("unresolved artifact")

	// ErrUnsupportedTrashCapability is reported when the datastore cannot
	// empty its trash. Operations report it and return cleanly.
	ErrUnsupportedTrashCapability = errors.New("datastore does not support trash emptying")
)
