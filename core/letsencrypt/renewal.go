package letsencrypt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/acmekit/core/certificate"
	"github.com/dmitrymomot/acmekit/core/logger"
	"github.com/dmitrymomot/acmekit/core/storage"
)

// FindCertificatesToRenew returns the stored certificates whose issuance is
// older than the freshness window. Issuance time comes from the config record
// and falls back to the full chain's last write time for records without it.
// The window is a fixed heuristic; the certificate's own expiry is not read.
func (m *Manager) FindCertificatesToRenew(ctx context.Context) ([]*certificate.Certificate, error) {
	now := m.clock.Now()
	var due []*certificate.Certificate

	for info, err := range m.storage.ListCertificates(ctx) {
		if err != nil {
			return nil, err
		}

		issuedAt, err := m.issuedAt(ctx, info)
		if err != nil {
			return nil, err
		}
		if !isDue(now, issuedAt, m.cfg.FreshnessWindow) {
			continue
		}

		cert, err := m.storage.LoadCertificate(ctx, info.Name)
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrIncomplete) {
			m.logger.WarnContext(ctx, "skipping incomplete certificate record",
				logger.Certificate(info.Name),
				logger.Error(err),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load certificate %s: %w", info.Name, err)
		}
		due = append(due, cert)
	}

	return due, nil
}

func (m *Manager) issuedAt(ctx context.Context, info storage.Info) (time.Time, error) {
	record, err := m.storage.Record(ctx, info.Name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return info.LastModified, nil
	case err != nil:
		return time.Time{}, err
	case record.IssuedAt.IsZero():
		return info.LastModified, nil
	}
	return record.IssuedAt, nil
}

func isDue(now, issuedAt time.Time, window time.Duration) bool {
	return now.After(issuedAt.Add(window))
}
