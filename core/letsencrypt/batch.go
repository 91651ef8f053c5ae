package letsencrypt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/dmitrymomot/acmekit/core/authenticator"
	"github.com/dmitrymomot/acmekit/core/certificate"
	"github.com/dmitrymomot/acmekit/core/logger"
	"github.com/dmitrymomot/acmekit/core/storage"
	"github.com/dmitrymomot/acmekit/pkg/metrics"
)

// Failure is one failed item of a batch.
type Failure struct {
	Name string
	Err  error
}

// Result reports the outcome of a batch run.
type Result struct {
	RunID     string
	Action    string
	Succeeded []string
	Failed    []Failure
}

// FailedNames returns the names of the failed items in run order.
func (r *Result) FailedNames() []string {
	names := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		names = append(names, f.Name)
	}
	return names
}

// IssueAll issues one certificate per domain set.
func (m *Manager) IssueAll(ctx context.Context, domainSets [][]string, auths []authenticator.Authenticator) (*Result, error) {
	items := make([]batchItem, 0, len(domainSets))
	for _, domains := range domainSets {
		items = append(items, batchItem{
			name: firstDomain(domains),
			fn: func(ctx context.Context) error {
				_, err := m.Issue(ctx, domains, auths)
				return err
			},
		})
	}
	return m.runBatch(ctx, "issue", items)
}

// RenewDue renews every certificate returned by FindCertificatesToRenew.
func (m *Manager) RenewDue(ctx context.Context, auths []authenticator.Authenticator) (*Result, error) {
	due, err := m.FindCertificatesToRenew(ctx)
	if err != nil {
		return nil, fmt.Errorf("find certificates to renew: %w", err)
	}
	return m.RenewAll(ctx, due, auths)
}

// RenewAll renews the given certificates.
func (m *Manager) RenewAll(ctx context.Context, certs []*certificate.Certificate, auths []authenticator.Authenticator) (*Result, error) {
	items := make([]batchItem, 0, len(certs))
	for _, cert := range certs {
		items = append(items, batchItem{
			name: cert.Name(),
			fn: func(ctx context.Context) error {
				_, err := m.Renew(ctx, cert, auths)
				return err
			},
		})
	}
	return m.runBatch(ctx, "renew", items)
}

// RenewNames renews the certificates stored under the given names. Names
// with nothing stored fail with ErrCertificateNotFound.
func (m *Manager) RenewNames(ctx context.Context, names []string, auths []authenticator.Authenticator) (*Result, error) {
	items := make([]batchItem, 0, len(names))
	for _, name := range names {
		items = append(items, batchItem{
			name: name,
			fn: func(ctx context.Context) error {
				cert, err := m.storage.LoadCertificate(ctx, normalizeName(name))
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("%w: %s", ErrCertificateNotFound, name)
				}
				if err != nil {
					return err
				}
				_, err = m.Renew(ctx, cert, auths)
				return err
			},
		})
	}
	return m.runBatch(ctx, "renew", items)
}

// RevokeAll revokes the certificates stored under the given names.
func (m *Manager) RevokeAll(ctx context.Context, names []string) (*Result, error) {
	items := make([]batchItem, 0, len(names))
	for _, name := range names {
		items = append(items, batchItem{
			name: name,
			fn: func(ctx context.Context) error {
				return m.RevokeByName(ctx, name)
			},
		})
	}
	return m.runBatch(ctx, "revoke", items)
}

type batchItem struct {
	name string
	fn   func(ctx context.Context) error
}

// runBatch runs items one after another. A failing item does not stop the
// others. The batch fails with ErrAllFailed only when it is not empty and
// nothing succeeded.
func (m *Manager) runBatch(ctx context.Context, action string, items []batchItem) (*Result, error) {
	result := &Result{RunID: m.newRunID(), Action: action}
	log := m.logger.With(logger.RunID(result.RunID), logger.Action(action))
	start := time.Now()

	log.InfoContext(ctx, "batch started", logger.Count("items", len(items)))

	var errs *multierror.Error
	for _, item := range items {
		if err := item.fn(ctx); err != nil {
			log.ErrorContext(ctx, "batch item failed", logger.Certificate(item.name), logger.Error(err))
			result.Failed = append(result.Failed, Failure{Name: item.name, Err: err})
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", item.name, err))
			continue
		}
		result.Succeeded = append(result.Succeeded, item.name)
	}

	metrics.LastRunTimestamp.WithLabelValues(action).SetToCurrentTime()
	log.InfoContext(ctx, "batch finished",
		logger.Count("succeeded", len(result.Succeeded)),
		logger.Count("failed", len(result.Failed)),
		logger.Elapsed(start),
	)

	if len(items) > 0 && len(result.Succeeded) == 0 {
		return result, fmt.Errorf("%w: %w", ErrAllFailed, errs.ErrorOrNil())
	}
	return result, nil
}

func firstDomain(domains []string) string {
	if len(domains) == 0 {
		return ""
	}
	return domains[0]
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
