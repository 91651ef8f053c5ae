package acme

import (
	"errors"
	"net"
)

var (
	// ErrAlreadyRevoked is returned by Client.Revoke when the CA reports the certificate as revoked.
	ErrAlreadyRevoked = errors.New("certificate already revoked")

	// ErrInvalidAccountKey is returned when the stored account key is not a signing key.
	ErrInvalidAccountKey = errors.New("invalid account key")
)

// classifiedError carries an explicit retry decision for the error it wraps.
type classifiedError struct {
	err       error
	temporary bool
}

func (e *classifiedError) Error() string   { return e.err.Error() }
func (e *classifiedError) Unwrap() error   { return e.err }
func (e *classifiedError) Temporary() bool { return e.temporary }
func (e *classifiedError) Permanent() bool { return !e.temporary }

// Transient marks err as a failure that may pass when the operation is
// repeated, such as CA rate limiting or API throttling.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, temporary: true}
}

// Permanent marks err as final. Repeating the operation cannot help, even
// when a transient cause is wrapped inside.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err}
}

// IsTemporary reports whether err may pass on retry. The outermost error
// marked with Transient or Permanent decides; otherwise only network
// failures count as temporary. Unmarked errors are final.
func IsTemporary(err error) bool {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.temporary
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
