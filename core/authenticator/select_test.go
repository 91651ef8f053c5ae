package authenticator_test

import (
	"context"
	"crypto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/acmekit/core/acme"
	"github.com/dmitrymomot/acmekit/core/authenticator"
)

// fakeAuthenticator supports one challenge type, optionally for a domain suffix.
type fakeAuthenticator struct {
	name      string
	kind      acme.ChallengeType
	suffix    string
	performed int
}

func (f *fakeAuthenticator) Name() string { return f.name }

func (f *fakeAuthenticator) Supports(domain string, ch acme.Challenge) bool {
	return ch.Type == f.kind && strings.HasSuffix(domain, f.suffix)
}

func (f *fakeAuthenticator) Perform(context.Context, []authenticator.DomainChallenge, crypto.Signer) error {
	f.performed++
	return nil
}

func (f *fakeAuthenticator) Cleanup(context.Context, []authenticator.DomainChallenge, crypto.Signer) error {
	return nil
}

func authz(identifier string, wildcard bool, kinds ...acme.ChallengeType) acme.Authorization {
	a := acme.Authorization{Identifier: identifier, Wildcard: wildcard, Status: acme.StatusPending}
	for _, k := range kinds {
		a.Challenges = append(a.Challenges, acme.Challenge{Type: k, Token: string(k) + "-" + identifier})
	}
	return a
}

func TestSelectPriority(t *testing.T) {
	t.Parallel()

	first := &fakeAuthenticator{name: "first", kind: acme.ChallengeHTTP01}
	second := &fakeAuthenticator{name: "second", kind: acme.ChallengeHTTP01}

	for range 10 {
		groups, err := authenticator.Select(
			[]acme.Authorization{authz("example.com", false, acme.ChallengeHTTP01)},
			[]authenticator.Authenticator{first, second},
		)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Same(t, first, groups[0].Authenticator)
	}
}

func TestSelectGroupsByAuthenticator(t *testing.T) {
	t.Parallel()

	dns := &fakeAuthenticator{name: "dns", kind: acme.ChallengeDNS01, suffix: "example.com"}
	http := &fakeAuthenticator{name: "http", kind: acme.ChallengeHTTP01}

	groups, err := authenticator.Select([]acme.Authorization{
		authz("example.com", true, acme.ChallengeDNS01),
		authz("fake.com", false, acme.ChallengeHTTP01, acme.ChallengeDNS01),
		authz("www.example.com", false, acme.ChallengeHTTP01, acme.ChallengeDNS01),
	}, []authenticator.Authenticator{http, dns})
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Same(t, http, groups[0].Authenticator)
	require.Len(t, groups[0].Challenges, 2)
	assert.Equal(t, "fake.com", groups[0].Challenges[0].Domain)
	assert.Equal(t, acme.ChallengeHTTP01, groups[0].Challenges[0].Challenge.Type)
	assert.Equal(t, "www.example.com", groups[0].Challenges[1].Domain)

	assert.Same(t, dns, groups[1].Authenticator)
	require.Len(t, groups[1].Challenges, 1)
	assert.Equal(t, "*.example.com", groups[1].Challenges[0].Domain)
}

func TestSelectSkipsValidAuthorizations(t *testing.T) {
	t.Parallel()

	http := &fakeAuthenticator{name: "http", kind: acme.ChallengeHTTP01}
	valid := authz("cached.com", false, acme.ChallengeDNS01)
	valid.Status = acme.StatusValid

	groups, err := authenticator.Select(
		[]acme.Authorization{valid, authz("fresh.com", false, acme.ChallengeHTTP01)},
		[]authenticator.Authenticator{http},
	)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Challenges, 1)
	assert.Equal(t, "fresh.com", groups[0].Challenges[0].Domain)
}

func TestSelectNoAuthenticator(t *testing.T) {
	t.Parallel()

	http := &fakeAuthenticator{name: "http", kind: acme.ChallengeHTTP01}

	groups, err := authenticator.Select([]acme.Authorization{
		authz("fine.com", false, acme.ChallengeHTTP01),
		authz("dns-only.com", false, acme.ChallengeDNS01),
	}, []authenticator.Authenticator{http})

	require.ErrorIs(t, err, authenticator.ErrNoAuthenticator)
	assert.ErrorContains(t, err, "dns-only.com")
	assert.Nil(t, groups)
	assert.Zero(t, http.performed)
}

func TestSelectEmpty(t *testing.T) {
	t.Parallel()

	groups, err := authenticator.Select(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, groups)
}
