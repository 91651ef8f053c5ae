package letsencrypt

import (
	"context"
	"crypto"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/acmekit/core/acme"
)

// ensureClient loads the stored account, registering and persisting a new
// one on first use, and dials the CA. The client is kept for the lifetime of
// the manager.
func (m *Manager) ensureClient(ctx context.Context) (acme.Client, crypto.Signer, error) {
	if m.client != nil {
		key, err := m.account.PrivateKey()
		return m.client, key, err
	}

	account, err := m.storage.GetAccount(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load account: %w", err)
	}
	if account == nil {
		account = acme.NewAccount()
	}

	key, err := account.PrivateKey()
	if err != nil {
		return nil, nil, err
	}

	client, err := m.dial(ctx, m.cfg.DirectoryURL, account)
	if err != nil {
		return nil, nil, fmt.Errorf("dial acme directory %s: %w", m.cfg.DirectoryURL, err)
	}

	if !account.Registered() {
		reg, err := client.Register(ctx, m.cfg.Email)
		if err != nil {
			return nil, nil, fmt.Errorf("register account: %w", err)
		}
		account.Registration = reg

		if err := m.storage.SetAccount(ctx, account); err != nil {
			return nil, nil, fmt.Errorf("save account: %w", err)
		}
		m.logger.InfoContext(ctx, "acme account registered", slog.String("account", reg.URI))
	}

	m.client = client
	m.account = account
	return client, key, nil
}
