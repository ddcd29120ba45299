package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDataSource is returned when a report references a data
	// source name that no resolver is registered for.
	ErrUnknownDataSource = errors.New("unknown data source")

	// ErrMissingFilter is returned when a resolver requires a filter
	// that the request did not carry.
	ErrMissingFilter = errors.New("missing required filter")

	// ErrInvalidArgument is returned for request payloads that fail
	// validation before touching the database.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
)

// MissingFilter wraps ErrMissingFilter with the filter name.
func MissingFilter(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingFilter, name)
}

// InvalidArgument wraps ErrInvalidArgument with a reason.
func InvalidArgument(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, reason)
}

// NotFound wraps ErrNotFound with the entity description.
func NotFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// IsDomainError reports whether err belongs to this taxonomy, as
// opposed to a data-layer failure that must propagate unchanged.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrUnknownDataSource) ||
		errors.Is(err, ErrMissingFilter) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrNotFound)
}
