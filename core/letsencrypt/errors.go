package letsencrypt

import "errors"

var (
	// ErrCertificateNotFound is returned when revoking a certificate that is not stored.
	ErrCertificateNotFound = errors.New("certificate not found")

	// ErrAlreadyRevoked is returned when the CA reports the certificate as already revoked.
	// The local copy is removed regardless.
	ErrAlreadyRevoked = errors.New("certificate already revoked")

	// ErrGenerationFailed is returned when a certificate order fails.
	ErrGenerationFailed = errors.New("certificate generation failed")

	// ErrSaveFailed is returned when the CA issued a certificate but it could
	// not be written to storage. The issued certificate is still returned.
	ErrSaveFailed = errors.New("issued certificate not stored")

	// ErrAllFailed is returned when every item of a non-empty batch failed.
	ErrAllFailed = errors.New("all operations failed")

	// ErrEmailRequired is returned when email is not provided in config.
	ErrEmailRequired = errors.New("email is required for the ACME account")

	// ErrStorageRequired is returned when no storage is given.
	ErrStorageRequired = errors.New("storage is required")

	// ErrDialerRequired is returned when no ACME dialer is given.
	ErrDialerRequired = errors.New("acme dialer is required")

	// ErrNoAuthenticators is returned when an order is attempted without authenticators.
	ErrNoAuthenticators = errors.New("at least one authenticator is required")

	ErrInvalidEvent  = errors.New("invalid event")
	ErrUnknownAction = errors.New("unknown event action")
)
