package letsencrypt_test

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsroute53 "github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"

	"github.com/dmitrymomot/acmekit/core/acme"
	"github.com/dmitrymomot/acmekit/core/authenticator"
	"github.com/dmitrymomot/acmekit/core/storage"
)

// mockACMEClient is a test implementation of acme.Client that issues
// certificates signed by an in-memory CA.
type mockACMEClient struct {
	mu sync.Mutex

	registerFunc func(ctx context.Context, email string) (*acme.Registration, error)
	newOrderFunc func(ctx context.Context, csr []byte) (*acme.Order, error)
	finalizeFunc func(ctx context.Context, order *acme.Order) ([]byte, error)
	revokeFunc   func(ctx context.Context, certPEM []byte, reason uint) error

	registerCount int
	orderCount    int
	answered      []acme.Challenge
	revoked       [][]byte
}

func (m *mockACMEClient) Register(ctx context.Context, email string) (*acme.Registration, error) {
	m.mu.Lock()
	m.registerCount++
	m.mu.Unlock()

	if m.registerFunc != nil {
		return m.registerFunc(ctx, email)
	}
	return &acme.Registration{URI: "https://ca.test/acct/" + email}, nil
}

func (m *mockACMEClient) NewOrder(ctx context.Context, csr []byte) (*acme.Order, error) {
	m.mu.Lock()
	m.orderCount++
	m.mu.Unlock()

	if m.newOrderFunc != nil {
		return m.newOrderFunc(ctx, csr)
	}
	return orderFromCSR(csr)
}

func (m *mockACMEClient) AnswerChallenge(_ context.Context, ch acme.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answered = append(m.answered, ch)
	return nil
}

func (m *mockACMEClient) PollAndFinalize(ctx context.Context, order *acme.Order) ([]byte, error) {
	if m.finalizeFunc != nil {
		return m.finalizeFunc(ctx, order)
	}
	return signCSR(order.CSR)
}

func (m *mockACMEClient) Revoke(ctx context.Context, certPEM []byte, reason uint) error {
	m.mu.Lock()
	m.revoked = append(m.revoked, certPEM)
	m.mu.Unlock()

	if m.revokeFunc != nil {
		return m.revokeFunc(ctx, certPEM, reason)
	}
	return nil
}

func (m *mockACMEClient) RegisterCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registerCount
}

func (m *mockACMEClient) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orderCount
}

func (m *mockACMEClient) Answered() []acme.Challenge {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]acme.Challenge(nil), m.answered...)
}

func (m *mockACMEClient) RevokedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.revoked)
}

// dialer returns an acme.Dialer handing out client and counting dials.
func (m *mockACMEClient) dialer(dials *int) acme.Dialer {
	return func(_ context.Context, _ string, account *acme.Account) (acme.Client, error) {
		if dials != nil {
			*dials++
		}
		if _, err := account.PrivateKey(); err != nil {
			return nil, err
		}
		return m, nil
	}
}

// orderFromCSR builds a pending order with one authorization per CSR name.
// Wildcards only get a dns-01 challenge.
func orderFromCSR(der []byte) (*acme.Order, error) {
	csr, err := x509.ParseCertificateRequest(der)
	if err != nil {
		return nil, err
	}

	order := &acme.Order{URL: "https://ca.test/order/1", Status: acme.StatusPending, CSR: der, Identifiers: csr.DNSNames}
	for _, name := range csr.DNSNames {
		authz := acme.Authorization{Identifier: name, Status: acme.StatusPending}
		if strings.HasPrefix(name, "*.") {
			authz.Identifier = strings.TrimPrefix(name, "*.")
			authz.Wildcard = true
		} else {
			authz.Challenges = append(authz.Challenges, acme.Challenge{
				Type:  acme.ChallengeHTTP01,
				Token: "http-" + name,
				URL:   "https://ca.test/chall/http-" + name,
			})
		}
		authz.Challenges = append(authz.Challenges, acme.Challenge{
			Type:  acme.ChallengeDNS01,
			Token: "dns-" + name,
			URL:   "https://ca.test/chall/dns-" + name,
		})
		order.Authorizations = append(order.Authorizations, authz)
	}
	return order, nil
}

// signCSR issues a leaf for the CSR and returns it followed by the CA certificate.
func signCSR(der []byte) ([]byte, error) {
	csr, err := x509.ParseCertificateRequest(der)
	if err != nil {
		return nil, err
	}

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	caTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTemplate, caTemplate, &caKey.PublicKey, caKey)
	if err != nil {
		return nil, err
	}

	leafTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: csr.Subject.CommonName},
		DNSNames:     csr.DNSNames,
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTemplate, caTemplate, csr.PublicKey, caKey)
	if err != nil {
		return nil, err
	}

	out := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: leafDER})
	return append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: caDER})...), nil
}

// mockAuthenticator supports one challenge type for domains with a suffix
// and records what it performed and cleaned up.
type mockAuthenticator struct {
	mu sync.Mutex

	name       string
	kind       acme.ChallengeType
	suffix     string
	performErr error
	cleanupErr error

	performed []string
	cleaned   []string
}

func (m *mockAuthenticator) Name() string { return m.name }

func (m *mockAuthenticator) Supports(domain string, ch acme.Challenge) bool {
	return ch.Type == m.kind && strings.HasSuffix(domain, m.suffix)
}

func (m *mockAuthenticator) Perform(_ context.Context, challenges []authenticator.DomainChallenge, _ crypto.Signer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, dc := range challenges {
		m.performed = append(m.performed, dc.Domain)
	}
	return m.performErr
}

func (m *mockAuthenticator) Cleanup(_ context.Context, challenges []authenticator.DomainChallenge, _ crypto.Signer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, dc := range challenges {
		m.cleaned = append(m.cleaned, dc.Domain)
	}
	return m.cleanupErr
}

func (m *mockAuthenticator) Performed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.performed...)
}

func (m *mockAuthenticator) Cleaned() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cleaned...)
}

// mockRoute53 is an in-memory Route53 API. Every change gets changeID and
// reports status on GetChange.
type mockRoute53 struct {
	mu sync.Mutex

	changeID string
	status   types.ChangeStatus

	changes    []*awsroute53.ChangeResourceRecordSetsInput
	getChanges int
}

func (m *mockRoute53) ChangeResourceRecordSets(_ context.Context, in *awsroute53.ChangeResourceRecordSetsInput, _ ...func(*awsroute53.Options)) (*awsroute53.ChangeResourceRecordSetsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, in)
	return &awsroute53.ChangeResourceRecordSetsOutput{
		ChangeInfo: &types.ChangeInfo{Id: aws.String(m.changeID), Status: types.ChangeStatusPending},
	}, nil
}

func (m *mockRoute53) GetChange(_ context.Context, in *awsroute53.GetChangeInput, _ ...func(*awsroute53.Options)) (*awsroute53.GetChangeOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getChanges++
	status := m.status
	if status == "" {
		status = types.ChangeStatusInsync
	}
	return &awsroute53.GetChangeOutput{ChangeInfo: &types.ChangeInfo{Id: in.Id, Status: status}}, nil
}

func (m *mockRoute53) Changes() []*awsroute53.ChangeResourceRecordSetsInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*awsroute53.ChangeResourceRecordSetsInput(nil), m.changes...)
}

func (m *mockRoute53) GetChangeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getChanges
}

// flakyBackend fails the first failures Put calls for keys under prefix.
// A negative failures count fails every call.
type flakyBackend struct {
	storage.Backend

	mu       sync.Mutex
	prefix   string
	failures int
	err      error
	puts     int
}

func (f *flakyBackend) Put(ctx context.Context, key string, data []byte) error {
	f.mu.Lock()
	if strings.HasPrefix(key, f.prefix) {
		f.puts++
		if f.failures != 0 {
			f.failures--
			f.mu.Unlock()
			return f.err
		}
	}
	f.mu.Unlock()
	return f.Backend.Put(ctx, key, data)
}

func (f *flakyBackend) Puts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

var errMock = errors.New("mock failure")
