package letsencrypt_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/acmekit/core/acme"
	"github.com/dmitrymomot/acmekit/core/authenticator"
	"github.com/dmitrymomot/acmekit/core/letsencrypt"
	"github.com/dmitrymomot/acmekit/core/storage"
	"github.com/dmitrymomot/acmekit/integration/aws/route53"
)

func writeTimeout() error {
	return &net.OpError{Op: "write", Net: "tcp", Err: os.ErrDeadlineExceeded}
}

func TestIssueDoesNotRetryFinalErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		domains    []string
		performErr error
		wantErr    error
	}{
		{
			name:    "uncovered wildcard named like a timeout",
			domains: []string{"timeout.example.com", "*.timeout.example.com"},
			wantErr: authenticator.ErrNoAuthenticator,
		},
		{
			name:    "uncovered wildcard named like a status code",
			domains: []string{"shop503.com", "*.shop503.com"},
			wantErr: authenticator.ErrNoAuthenticator,
		},
		{
			name:       "unmarked error mentioning rate limits",
			domains:    []string{"a.com"},
			performErr: errors.New("429 rate limit timeout"),
		},
		{
			name:       "permanent error wrapping a network failure",
			domains:    []string{"a.com"},
			performErr: acme.Permanent(fmt.Errorf("records not in sync: %w", writeTimeout())),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, letsencrypt.WithRetryConfig(3, time.Second))
			web := &mockAuthenticator{name: "http", kind: acme.ChallengeHTTP01, performErr: tt.performErr}

			_, err := env.manager.Issue(context.Background(), tt.domains, []authenticator.Authenticator{web})
			require.ErrorIs(t, err, letsencrypt.ErrGenerationFailed)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, 1, env.client.OrderCount())
		})
	}
}

func TestIssueRetriesMarkedTransientErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		failures   int
		wantErr    bool
		wantOrders int
	}{
		{name: "network error", err: writeTimeout(), failures: 1, wantOrders: 2},
		{name: "ca rate limit", err: acme.Transient(errors.New("too many new orders")), failures: 2, wantOrders: 3},
		{name: "budget spent", err: acme.Transient(errors.New("too many new orders")), failures: 5, wantErr: true, wantOrders: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, letsencrypt.WithRetryConfig(3, time.Second))

			calls := 0
			env.client.newOrderFunc = func(_ context.Context, csr []byte) (*acme.Order, error) {
				calls++
				if calls <= tt.failures {
					return nil, tt.err
				}
				return orderFromCSR(csr)
			}

			web := &mockAuthenticator{name: "http", kind: acme.ChallengeHTTP01}
			_, err := env.manager.Issue(context.Background(), []string{"a.com"}, []authenticator.Authenticator{web})
			if tt.wantErr {
				assert.ErrorIs(t, err, letsencrypt.ErrGenerationFailed)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantOrders, env.client.OrderCount())
		})
	}
}

func TestIssueStopsOnRoute53PropagationTimeout(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, letsencrypt.WithRetryConfig(3, time.Second))

	api := &mockRoute53{changeID: "/change/C0503XYZ", status: types.ChangeStatusPending}
	dns, err := route53.New(api, map[string]string{"example.com": "ZEXAMPLE"},
		route53.WithClock(env.clock),
		route53.WithPropagationPolling(time.Second, 4),
	)
	require.NoError(t, err)

	_, err = env.manager.Issue(context.Background(), []string{"example.com", "*.example.com"}, []authenticator.Authenticator{dns})
	require.ErrorIs(t, err, route53.ErrPropagationTimeout)
	assert.Equal(t, 1, env.client.OrderCount())
	assert.Equal(t, 4, api.GetChangeCount())

	changes := api.Changes()
	require.Len(t, changes, 2)
	assert.Equal(t, types.ChangeActionUpsert, changes[0].ChangeBatch.Changes[0].Action)
	assert.Equal(t, types.ChangeActionDelete, changes[1].ChangeBatch.Changes[0].Action)
}

func TestIssueRetriesOnlyTheSaveAfterIssuance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var flaky *flakyBackend
	env := newTestEnvWithBackend(t, func(b *storage.MemoryBackend) storage.Backend {
		flaky = &flakyBackend{Backend: b, prefix: storage.PrefixCertificates, failures: 1, err: writeTimeout()}
		return flaky
	}, letsencrypt.WithRetryConfig(3, time.Second))

	web := &mockAuthenticator{name: "http", kind: acme.ChallengeHTTP01}
	cert, err := env.manager.Issue(ctx, []string{"a.com"}, []authenticator.Authenticator{web})
	require.NoError(t, err)
	require.True(t, cert.IsReady())

	assert.Equal(t, 1, env.client.OrderCount())
	assert.Equal(t, 2, flaky.Puts())
	assert.Equal(t, []string{"a.com"}, web.Cleaned())

	stored, err := env.store.GetCertificate(ctx, []string{"a.com"})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, cert.PrivateKey(), stored.PrivateKey())
}

func TestIssueSaveFailureKeepsIssuedCertificate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantPuts int
	}{
		{name: "final backend error", err: errors.New("bucket policy denies writes"), wantPuts: 1},
		{name: "network error every time", err: writeTimeout(), wantPuts: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var flaky *flakyBackend
			env := newTestEnvWithBackend(t, func(b *storage.MemoryBackend) storage.Backend {
				flaky = &flakyBackend{Backend: b, prefix: storage.PrefixCertificates, failures: -1, err: tt.err}
				return flaky
			}, letsencrypt.WithRetryConfig(3, time.Second))

			web := &mockAuthenticator{name: "http", kind: acme.ChallengeHTTP01}
			cert, err := env.manager.Issue(context.Background(), []string{"a.com"}, []authenticator.Authenticator{web})
			require.ErrorIs(t, err, letsencrypt.ErrSaveFailed)
			assert.NotErrorIs(t, err, letsencrypt.ErrGenerationFailed)
			require.NotNil(t, cert)
			assert.True(t, cert.IsReady())

			assert.Equal(t, 1, env.client.OrderCount())
			assert.Equal(t, tt.wantPuts, flaky.Puts())
		})
	}
}

func TestIssueWithRoute53Authenticator(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	api := &mockRoute53{changeID: "/change/C1"}
	dns, err := route53.New(api, map[string]string{"example.com": "ZEXAMPLE"},
		route53.WithClock(env.clock),
		route53.WithPropagationPolling(time.Second, 3),
	)
	require.NoError(t, err)

	changesAtFinalize := -1
	env.client.finalizeFunc = func(_ context.Context, order *acme.Order) ([]byte, error) {
		changesAtFinalize = len(api.Changes())
		return signCSR(order.CSR)
	}

	auths := []authenticator.Authenticator{dns, httpAuth(t, env)}
	cert, err := env.manager.Issue(ctx, []string{"*.example.com", "example.com", "fake.com"}, auths)
	require.NoError(t, err)
	require.True(t, cert.IsReady())

	// records are in place while the order finalizes and removed afterwards
	assert.Equal(t, 1, changesAtFinalize)

	changes := api.Changes()
	require.Len(t, changes, 2)
	for i, action := range []types.ChangeAction{types.ChangeActionUpsert, types.ChangeActionDelete} {
		change := changes[i]
		assert.Equal(t, "ZEXAMPLE", aws.ToString(change.HostedZoneId))
		require.Len(t, change.ChangeBatch.Changes, 1)

		record := change.ChangeBatch.Changes[0]
		assert.Equal(t, action, record.Action)
		assert.Equal(t, "_acme-challenge.example.com.", aws.ToString(record.ResourceRecordSet.Name))
		assert.Len(t, record.ResourceRecordSet.ResourceRecords, 2)
	}

	answered := env.client.Answered()
	require.Len(t, answered, 3)
	assert.Equal(t, acme.ChallengeDNS01, answered[0].Type)
	assert.Equal(t, acme.ChallengeDNS01, answered[1].Type)
	assert.Equal(t, acme.ChallengeHTTP01, answered[2].Type)
}
