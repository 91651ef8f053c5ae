package certificate

import "errors"

var (
	// ErrNotReady is returned when leaf or chain is read before the full chain is set.
	ErrNotReady = errors.New("certificate not ready")

	// ErrMalformedChain is returned when the full chain has no certificate end marker.
	ErrMalformedChain = errors.New("malformed certificate chain")

	// ErrNoDomains is returned when a certificate is built without any domain.
	ErrNoDomains = errors.New("at least one domain is required")

	// ErrNoPrivateKey is returned when a certificate is built without a private key.
	ErrNoPrivateKey = errors.New("private key is required")

	// ErrInvalidPrivateKey is returned when the private key cannot be parsed.
	ErrInvalidPrivateKey = errors.New("invalid private key")
)
