package authenticator

import "errors"

var (
	// ErrNoAuthenticator is returned when no authenticator supports any challenge offered for a domain.
	ErrNoAuthenticator = errors.New("no authenticator supports the offered challenges")

	// ErrPublisherRequired is returned when an HTTP-01 authenticator is built without a publisher.
	ErrPublisherRequired = errors.New("publisher is required")

	// ErrInvalidRoot is returned when the webroot directory is empty.
	ErrInvalidRoot = errors.New("webroot directory is required")
)
