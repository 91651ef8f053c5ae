package storage

import "errors"

var (
	// ErrNotFound is returned by backends when a key does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrDomainsMismatch is reported when the stored domain list differs from the requested one.
	ErrDomainsMismatch = errors.New("stored domains do not match requested domains")

	// ErrIncomplete is returned when a certificate config exists without its private key.
	ErrIncomplete = errors.New("incomplete certificate record")

	// ErrSyncFailed wraps an observer failure after the primary write succeeded.
	ErrSyncFailed = errors.New("secondary storage sync failed")

	// ErrInvalidPath is returned when a validation path is empty.
	ErrInvalidPath = errors.New("invalid validation path")
)
