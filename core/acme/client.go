package acme

import "context"

// Client is the ACME protocol engine. Implementations talk to the CA and own
// polling and backoff.
type Client interface {
	// Register creates the account on the CA and returns its registration.
	Register(ctx context.Context, email string) (*Registration, error)

	// NewOrder creates an order for every name in the DER encoded CSR and
	// fetches its authorizations.
	NewOrder(ctx context.Context, csr []byte) (*Order, error)

	// AnswerChallenge tells the CA the challenge is ready to be validated.
	AnswerChallenge(ctx context.Context, ch Challenge) error

	// PollAndFinalize waits for the order to become ready, finalizes it with
	// the order CSR and returns the PEM full chain.
	PollAndFinalize(ctx context.Context, order *Order) ([]byte, error)

	// Revoke revokes a PEM certificate. A certificate already revoked is
	// reported as ErrAlreadyRevoked.
	Revoke(ctx context.Context, certPEM []byte, reason uint) error
}

// Dialer fetches the CA directory and returns a client bound to the account key.
type Dialer func(ctx context.Context, directoryURL string, account *Account) (Client, error)
