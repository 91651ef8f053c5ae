package authenticator

import (
	"context"
	"crypto"

	"github.com/dmitrymomot/acmekit/core/acme"
)

// DomainChallenge pairs a challenge with the domain it validates.
// Wildcard domains keep their "*." label.
type DomainChallenge struct {
	Domain    string
	Challenge acme.Challenge
}

// Authenticator proves control of domains by answering ACME challenges.
type Authenticator interface {
	// Name identifies the authenticator in logs and metrics.
	Name() string
	// Supports reports whether the authenticator can satisfy ch for domain.
	Supports(domain string, ch acme.Challenge) bool
	// Perform provisions the validation material for every challenge.
	Perform(ctx context.Context, challenges []DomainChallenge, accountKey crypto.Signer) error
	// Cleanup removes what Perform provisioned.
	Cleanup(ctx context.Context, challenges []DomainChallenge, accountKey crypto.Signer) error
}

// Publisher stores a validation value so that it is served over HTTP at
// /.well-known/acme-challenge/{token}.
type Publisher interface {
	Publish(ctx context.Context, path string, value []byte) error
	Unpublish(ctx context.Context, path string) error
}
