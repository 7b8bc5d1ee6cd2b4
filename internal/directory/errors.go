package directory

import "errors"

var (
	// ErrNotFound is returned when a location is absent or soft-deleted.
	ErrNotFound = errors.New("location not found")

	// ErrMissingRequiredField rejects a RawRecord before any geocoding.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrInvalidRecord covers malformed values in an otherwise complete record.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrDuplicateIdentity means another live location already holds the
	// same (data_source, external_id) pair.
	ErrDuplicateIdentity = errors.New("duplicate data source identity")
)
