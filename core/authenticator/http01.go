package authenticator

import (
	"context"
	"crypto"
	"fmt"
	"slices"
	"strings"

	"github.com/go-acme/lego/v4/challenge/http01"
	"github.com/hashicorp/go-multierror"

	"github.com/dmitrymomot/acmekit/core/acme"
)

// HTTP01 answers http-01 challenges by publishing key authorizations
// through a Publisher.
type HTTP01 struct {
	name      string
	publisher Publisher
	domains   []string
}

// HTTP01Option configures HTTP01.
type HTTP01Option func(*HTTP01)

// WithName overrides the authenticator name.
func WithName(name string) HTTP01Option {
	return func(a *HTTP01) {
		a.name = name
	}
}

// WithDomains restricts the authenticator to the given domains.
// An empty list accepts any domain.
func WithDomains(domains ...string) HTTP01Option {
	return func(a *HTTP01) {
		for _, d := range domains {
			if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
				a.domains = append(a.domains, d)
			}
		}
	}
}

// NewHTTP01 builds an http-01 authenticator over publisher.
func NewHTTP01(publisher Publisher, opts ...HTTP01Option) (*HTTP01, error) {
	if publisher == nil {
		return nil, ErrPublisherRequired
	}
	a := &HTTP01{name: "http-01", publisher: publisher}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// NewDelegated builds an http-01 authenticator that publishes validation
// values straight into the certificate storage, for deployments where the
// storage bucket is served under /.well-known/acme-challenge/.
func NewDelegated(store Publisher, domains ...string) (*HTTP01, error) {
	return NewHTTP01(store, WithName("storage"), WithDomains(domains...))
}

func (a *HTTP01) Name() string {
	return a.name
}

func (a *HTTP01) Supports(domain string, ch acme.Challenge) bool {
	if ch.Type != acme.ChallengeHTTP01 {
		return false
	}
	return len(a.domains) == 0 || slices.Contains(a.domains, strings.ToLower(domain))
}

func (a *HTTP01) Perform(ctx context.Context, challenges []DomainChallenge, accountKey crypto.Signer) error {
	for _, dc := range challenges {
		keyAuth, err := acme.KeyAuthorization(accountKey, dc.Challenge.Token)
		if err != nil {
			return fmt.Errorf("key authorization for %s: %w", dc.Domain, err)
		}
		if err := a.publisher.Publish(ctx, http01.ChallengePath(dc.Challenge.Token), []byte(keyAuth)); err != nil {
			return fmt.Errorf("publish http-01 token for %s: %w", dc.Domain, err)
		}
	}
	return nil
}

// Cleanup unpublishes every token and reports all failures together.
func (a *HTTP01) Cleanup(ctx context.Context, challenges []DomainChallenge, _ crypto.Signer) error {
	var result *multierror.Error
	for _, dc := range challenges {
		if err := a.publisher.Unpublish(ctx, http01.ChallengePath(dc.Challenge.Token)); err != nil {
			result = multierror.Append(result, fmt.Errorf("unpublish http-01 token for %s: %w", dc.Domain, err))
		}
	}
	return result.ErrorOrNil()
}
