package authenticator_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/acmekit/core/acme"
	"github.com/dmitrymomot/acmekit/core/authenticator"
	"github.com/dmitrymomot/acmekit/core/storage"
)

type failingPublisher struct {
	err error
}

func (f failingPublisher) Publish(context.Context, string, []byte) error { return f.err }
func (f failingPublisher) Unpublish(context.Context, string) error { return f.err }

func accountKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func httpChallenge(domain, token string) authenticator.DomainChallenge {
	return authenticator.DomainChallenge{
		Domain:    domain,
		Challenge: acme.Challenge{Type: acme.ChallengeHTTP01, Token: token},
	}
}

func TestNewHTTP01RequiresPublisher(t *testing.T) {
	t.Parallel()
	_, err := authenticator.NewHTTP01(nil)
	assert.ErrorIs(t, err, authenticator.ErrPublisherRequired)
}

func TestHTTP01Supports(t *testing.T) {
	t.Parallel()

	open, err := authenticator.NewHTTP01(failingPublisher{})
	require.NoError(t, err)
	delegated, err := authenticator.NewDelegated(failingPublisher{}, "Fake.com")
	require.NoError(t, err)

	httpCh := acme.Challenge{Type: acme.ChallengeHTTP01}
	dnsCh := acme.Challenge{Type: acme.ChallengeDNS01}

	assert.True(t, open.Supports("example.com", httpCh))
	assert.False(t, open.Supports("example.com", dnsCh))
	assert.True(t, delegated.Supports("fake.com", httpCh))
	assert.False(t, delegated.Supports("other.com", httpCh))
	assert.Equal(t, "storage", delegated.Name())
	assert.Equal(t, "http-01", open.Name())
}

func TestHTTP01PerformAndCleanup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	backend := storage.NewMemoryBackend(nil)
	store := storage.New(backend)
	key := accountKey(t)

	auth, err := authenticator.NewDelegated(store)
	require.NoError(t, err)

	challenges := []authenticator.DomainChallenge{
		httpChallenge("a.com", "tok-a"),
		httpChallenge("b.com", "tok-b"),
	}
	require.NoError(t, auth.Perform(ctx, challenges, key))

	want, err := acme.KeyAuthorization(key, "tok-a")
	require.NoError(t, err)
	got, err := backend.Get(ctx, ".well-known/acme-challenge/tok-a")
	require.NoError(t, err)
	assert.Equal(t, want, string(got))
	assert.Equal(t, 2, backend.Len())

	require.NoError(t, auth.Cleanup(ctx, challenges, key))
	assert.Zero(t, backend.Len())
}

func TestHTTP01CleanupAggregatesErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	auth, err := authenticator.NewHTTP01(failingPublisher{err: boom})
	require.NoError(t, err)

	err = auth.Cleanup(context.Background(), []authenticator.DomainChallenge{
		httpChallenge("a.com", "1"),
		httpChallenge("b.com", "2"),
	}, accountKey(t))
	require.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "a.com")
	assert.ErrorContains(t, err, "b.com")
}

func TestWebroot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	root := t.TempDir()

	_, err := authenticator.NewWebroot(" ")
	require.ErrorIs(t, err, authenticator.ErrInvalidRoot)

	webroot, err := authenticator.NewWebroot(root)
	require.NoError(t, err)
	auth, err := authenticator.NewHTTP01(webroot)
	require.NoError(t, err)

	key := accountKey(t)
	challenges := []authenticator.DomainChallenge{httpChallenge("a.com", "token")}
	require.NoError(t, auth.Perform(ctx, challenges, key))

	file := filepath.Join(root, ".well-known", "acme-challenge", "token")
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	want, err := acme.KeyAuthorization(key, "token")
	require.NoError(t, err)
	assert.Equal(t, want, string(data))

	require.NoError(t, auth.Cleanup(ctx, challenges, key))
	_, err = os.Stat(file)
	assert.True(t, os.IsNotExist(err))

	// cleanup of a missing file is fine
	require.NoError(t, auth.Cleanup(ctx, challenges, key))
}

func TestWebrootStaysInsideRoot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	root := t.TempDir()

	webroot, err := authenticator.NewWebroot(root)
	require.NoError(t, err)

	require.NoError(t, webroot.Publish(ctx, "../../escape", []byte("x")))
	_, err = os.Stat(filepath.Join(root, "escape"))
	assert.NoError(t, err)
}
