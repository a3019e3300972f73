package catalog

import "errors"

// StoreError represents a domain error from registry operations.
//
// These are business logic errors (unknown collection, duplicate dataset
// type, ...) as opposed to infrastructure errors (connection loss, disk
// error), which registries return wrapped but otherwise unmodified.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Name is the collection, dataset type or dataset the error refers to
	Name string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Name != "" {
		return e.Message + ": " + e.Name
	}
	return e.Message
}

// ErrorCode represents the category of a registry error.
type ErrorCode int

const (
	// ErrNotFound indicates the requested record doesn't exist
	ErrNotFound ErrorCode = iota

	// ErrAlreadyExists indicates a record with the same key already exists
	ErrAlreadyExists

	// ErrInvalidArgument indicates invalid parameters were provided
	// Examples: malformed where expression, bad collection type
	ErrInvalidArgument

	// ErrConflict indicates the write would break a registry invariant
	// Examples: dataset type re-registered with a different storage class
	ErrConflict

	// ErrNotSupported indicates the operation is not available on this registry
	ErrNotSupported
)

// IsNotFound reports whether err is a StoreError with code ErrNotFound.
func IsNotFound(err error) bool {
	return hasCode(err, ErrNotFound)
}

// IsAlreadyExists reports whether err is a StoreError with code ErrAlreadyExists.
func IsAlreadyExists(err error) bool {
	return hasCode(err, ErrAlreadyExists)
}

// IsInvalidArgument reports whether err is a StoreError with code ErrInvalidArgument.
func IsInvalidArgument(err error) bool {
	return hasCode(err, ErrInvalidArgument)
}

func hasCode(err error, code ErrorCode) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr) && storeErr.Code == code
}

// NotFound builds an ErrNotFound StoreError.
func NotFound(what, name string) error {
	return &StoreError{Code: ErrNotFound, Message: what + " not found", Name: name}
}
