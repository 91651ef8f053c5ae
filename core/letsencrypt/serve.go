package letsencrypt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-acme/lego/v4/challenge/http01"

	"github.com/dmitrymomot/acmekit/core/storage"
)

const challengePrefix = "/.well-known/acme-challenge/"

// GetCertificate serves a stored certificate during the TLS handshake.
// A wildcard certificate stored for the parent domain is used as fallback.
// It never issues: a host without a stored certificate is an error.
func (m *Manager) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	domain := strings.ToLower(strings.TrimSuffix(hello.ServerName, "."))
	if domain == "" {
		return nil, fmt.Errorf("no server name provided")
	}

	ctx := hello.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cert, err := m.storage.LoadCertificate(ctx, domain)
	if errors.Is(err, storage.ErrNotFound) {
		if _, parent, ok := strings.Cut(domain, "."); ok {
			cert, err = m.storage.LoadCertificate(ctx, "*."+parent)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrCertificateNotFound, domain, err)
	}

	fullchain, err := cert.Fullchain()
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrCertificateNotFound, domain, err)
	}

	pair, err := tls.X509KeyPair(fullchain, cert.PrivateKey())
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate for %s: %w", domain, err)
	}
	return &pair, nil
}

// HandleChallenge answers HTTP-01 requests from validation values published
// into storage. It returns false for any other path.
func (m *Manager) HandleChallenge(w http.ResponseWriter, r *http.Request) bool {
	if !strings.HasPrefix(r.URL.Path, challengePrefix) {
		return false
	}

	token := strings.TrimPrefix(r.URL.Path, challengePrefix)
	if token == "" || strings.Contains(token, "/") {
		http.NotFound(w, r)
		return true
	}

	key := strings.TrimPrefix(http01.ChallengePath(token), "/")
	value, err := m.storage.Backend().Get(r.Context(), key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.NotFound(w, r)
	case err != nil:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	default:
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write(value)
	}
	return true
}
