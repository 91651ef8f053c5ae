package letsencrypt

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-acme/lego/v4/lego"
	"github.com/jmhodges/clock"

	"github.com/dmitrymomot/acmekit/core/acme"
	"github.com/dmitrymomot/acmekit/core/authenticator"
	"github.com/dmitrymomot/acmekit/core/certificate"
	"github.com/dmitrymomot/acmekit/core/logger"
	"github.com/dmitrymomot/acmekit/core/storage"
	"github.com/dmitrymomot/acmekit/pkg/metrics"
)

const (
	// DefaultFreshnessWindow is how long a certificate is considered fresh after issuance.
	DefaultFreshnessWindow = 60 * 24 * time.Hour

	defaultMaxRetries   = 3
	defaultRetryBackoff = 5 * time.Second
)

// Manager drives certificate issuance, renewal and revocation.
// Operations run one at a time; each call runs to completion or failure.
type Manager struct {
	mu sync.Mutex

	cfg     Config
	storage *storage.Storage
	dial    acme.Dialer

	clock        clock.Clock
	logger       *slog.Logger
	maxRetries   int
	retryBackoff time.Duration
	newRunID     func() string

	client  acme.Client
	account *acme.Account
}

// Config holds configuration for the certificate manager.
type Config struct {
	// Email is the contact email for the ACME account.
	Email string

	// DirectoryURL is the ACME directory. Defaults to Let's Encrypt production.
	DirectoryURL string

	// FreshnessWindow is the age after which a certificate is due for renewal.
	// Defaults to 60 days.
	FreshnessWindow time.Duration
}

// NewManager creates a new certificate manager.
func NewManager(cfg Config, store *storage.Storage, dial acme.Dialer, opts ...ManagerOption) (*Manager, error) {
	cfg.Email = strings.TrimSpace(cfg.Email)
	if cfg.Email == "" {
		return nil, ErrEmailRequired
	}
	if store == nil {
		return nil, ErrStorageRequired
	}
	if dial == nil {
		return nil, ErrDialerRequired
	}
	if cfg.DirectoryURL == "" {
		cfg.DirectoryURL = lego.LEDirectoryProduction
	}
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = DefaultFreshnessWindow
	}

	m := &Manager{
		cfg:          cfg,
		storage:      store,
		dial:         dial,
		clock:        clock.New(),
		logger:       slog.Default(),
		maxRetries:   defaultMaxRetries,
		retryBackoff: defaultRetryBackoff,
		newRunID:     defaultRunID,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.maxRetries < 1 {
		m.maxRetries = 1
	}

	return m, nil
}

// Issue obtains a new certificate with a fresh private key for domains.
// The first domain is the canonical name.
func (m *Manager) Issue(ctx context.Context, domains []string, auths []authenticator.Authenticator) (*certificate.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	cert, err := certificate.Generate(domains)
	if err == nil {
		err = m.obtain(ctx, cert, auths)
	}
	metrics.ObserveOperation("issue", start, err)
	return cert, err
}

// Renew obtains a new certificate for the same domains and private key as cert.
// cert itself is left untouched; the renewed certificate is returned.
func (m *Manager) Renew(ctx context.Context, cert *certificate.Certificate, auths []authenticator.Authenticator) (*certificate.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	renewed := cert.Clone()
	err := m.obtain(ctx, renewed, auths)
	metrics.ObserveOperation("renew", start, err)
	return renewed, err
}

// Revoke revokes a stored certificate and removes it from storage. The stored
// copy is removed whatever the CA answers; a CA conflict is reported as
// ErrAlreadyRevoked.
func (m *Manager) Revoke(ctx context.Context, cert *certificate.Certificate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	err := m.revoke(ctx, cert.Domains())
	metrics.ObserveOperation("revoke", start, err)
	return err
}

// RevokeByName revokes the certificate stored under its canonical name.
func (m *Manager) RevokeByName(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	err := m.revokeByName(ctx, name)
	metrics.ObserveOperation("revoke", start, err)
	return err
}

func (m *Manager) revokeByName(ctx context.Context, name string) error {
	record, err := m.storage.Record(ctx, normalizeName(name))
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrCertificateNotFound, name)
	}
	if err != nil {
		return err
	}
	return m.revoke(ctx, record.Domains)
}

func (m *Manager) revoke(ctx context.Context, domains []string) error {
	stored, err := m.storage.GetCertificate(ctx, domains)
	if err != nil {
		return fmt.Errorf("load certificate: %w", err)
	}
	if stored == nil || !stored.IsReady() {
		return fmt.Errorf("%w: %s", ErrCertificateNotFound, strings.Join(domains, ","))
	}

	leaf, err := stored.Leaf()
	if err != nil {
		return err
	}

	log := m.logger.With(logger.Certificate(stored.Name()))
	revokeErr := m.revokeAtCA(ctx, stored.Name(), leaf)

	if err := m.storage.RemoveCertificate(ctx, stored); err != nil {
		log.ErrorContext(ctx, "failed to remove revoked certificate", logger.Errors(revokeErr, err))
		return errors.Join(revokeErr, err)
	}

	if revokeErr != nil {
		log.WarnContext(ctx, "certificate revocation failed", logger.Error(revokeErr))
		return revokeErr
	}

	log.InfoContext(ctx, "certificate revoked")
	return nil
}

func (m *Manager) revokeAtCA(ctx context.Context, name string, leaf []byte) error {
	client, _, err := m.ensureClient(ctx)
	if err != nil {
		return err
	}

	err = client.Revoke(ctx, leaf, acme.ReasonUnspecified)
	switch {
	case errors.Is(err, acme.ErrAlreadyRevoked):
		return fmt.Errorf("%w: %s", ErrAlreadyRevoked, name)
	case err != nil:
		return fmt.Errorf("revoke %s: %w", name, err)
	}
	return nil
}

// obtain runs an order for cert, retrying transient failures with
// exponential backoff, and stores the issued certificate. Once the CA has
// issued, only the save is repeated; the certificate is never ordered twice.
func (m *Manager) obtain(ctx context.Context, cert *certificate.Certificate, auths []authenticator.Authenticator) error {
	if len(auths) == 0 {
		return ErrNoAuthenticators
	}

	log := m.logger.With(logger.Certificate(cert.Name()), logger.Domains(cert.Domains()))

	attempts, err := m.retry(ctx, log, "certificate order", func() error {
		return m.performOrder(ctx, cert, auths)
	})
	if err != nil {
		log.ErrorContext(ctx, "certificate order failed", logger.Error(err))
		return fmt.Errorf("%w for %s: %w", ErrGenerationFailed, cert.Name(), err)
	}
	log.InfoContext(ctx, "certificate obtained", logger.RetryCount(attempts-1))

	_, err = m.retry(ctx, log, "certificate save", func() error {
		return m.storage.SaveCertificate(ctx, cert)
	})
	switch {
	case errors.Is(err, storage.ErrSyncFailed):
		return err
	case err != nil:
		log.ErrorContext(ctx, "issued certificate not stored", logger.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrSaveFailed, cert.Name(), err)
	}
	return nil
}

// retry runs fn until it succeeds, fails for good or the attempt budget is
// spent. It returns the number of attempts made and the last error.
func (m *Manager) retry(ctx context.Context, log *slog.Logger, what string, fn func() error) (int, error) {
	backoff := m.retryBackoff
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return attempt, nil
		}
		if attempt >= m.maxRetries || !isRetryableError(err) {
			return attempt, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt, fmt.Errorf("%s canceled: %w", what, errors.Join(ctxErr, err))
		}

		log.WarnContext(ctx, what+" failed, retrying",
			logger.RetryCount(attempt),
			logger.Duration(backoff),
			logger.Error(err),
		)
		m.clock.Sleep(backoff)
		backoff *= 2
	}
}

// performOrder creates an order, proves control of every domain and
// finalizes into cert. Challenge material is cleaned up for every
// authenticator that was started, whatever the outcome.
func (m *Manager) performOrder(ctx context.Context, cert *certificate.Certificate, auths []authenticator.Authenticator) error {
	client, accountKey, err := m.ensureClient(ctx)
	if err != nil {
		return err
	}

	csr, err := cert.CSR()
	if err != nil {
		return err
	}

	order, err := client.NewOrder(ctx, csr)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	groups, err := authenticator.Select(order.Authorizations, auths)
	if err != nil {
		return err
	}

	var performed []authenticator.Group
	defer func() {
		m.cleanup(context.WithoutCancel(ctx), performed, accountKey)
	}()

	for _, group := range groups {
		performed = append(performed, group)

		name := group.Authenticator.Name()
		if err := group.Authenticator.Perform(ctx, group.Challenges, accountKey); err != nil {
			return fmt.Errorf("perform %s challenges: %w", name, err)
		}
		for _, dc := range group.Challenges {
			if err := client.AnswerChallenge(ctx, dc.Challenge); err != nil {
				return fmt.Errorf("answer %s challenge for %s: %w", dc.Challenge.Type, dc.Domain, err)
			}
			m.logger.DebugContext(ctx, "challenge answered",
				logger.Domain(dc.Domain),
				logger.Challenge(string(dc.Challenge.Type)),
				logger.Authenticator(name),
			)
		}
	}

	fullchain, err := client.PollAndFinalize(ctx, order)
	if err != nil {
		return fmt.Errorf("finalize order: %w", err)
	}
	return cert.SetFullchain(fullchain)
}

// cleanup runs every group's cleanup; failures are logged and never returned.
func (m *Manager) cleanup(ctx context.Context, groups []authenticator.Group, accountKey crypto.Signer) {
	for _, group := range groups {
		if err := group.Authenticator.Cleanup(ctx, group.Challenges, accountKey); err != nil {
			m.logger.WarnContext(ctx, "challenge cleanup failed",
				logger.Authenticator(group.Authenticator.Name()),
				logger.Error(err),
			)
		}
	}
}

// isRetryableError reports whether a failed order or save is worth another
// attempt. Coverage and chain errors are final whatever they wrap; the rest
// follows the transient markers set by the integrations and network errors.
func isRetryableError(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, ErrNoAuthenticators),
		errors.Is(err, authenticator.ErrNoAuthenticator),
		errors.Is(err, certificate.ErrNotReady),
		errors.Is(err, certificate.ErrMalformedChain),
		errors.Is(err, storage.ErrSyncFailed):
		return false
	}
	return acme.IsTemporary(err)
}
