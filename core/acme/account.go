package acme

import (
	"bytes"
	"crypto"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-jose/go-jose/v4"
)

// Account is the CA account: a signing key and the registration record.
// The key is generated on first use when absent.
type Account struct {
	key          *jose.JSONWebKey
	Registration *Registration
}

type accountJSON struct {
	Key          *jose.JSONWebKey `json:"key"`
	Registration *Registration    `json:"regr,omitempty"`
}

// NewAccount returns an account without key or registration.
func NewAccount() *Account {
	return &Account{}
}

// NewAccountWithKey wraps an existing signing key.
func NewAccountWithKey(key crypto.Signer) *Account {
	return &Account{key: &jose.JSONWebKey{Key: key}}
}

// PrivateKey returns the account key, generating an RSA-2048 key if needed.
func (a *Account) PrivateKey() (crypto.Signer, error) {
	if a.key == nil {
		key, err := certcrypto.GeneratePrivateKey(certcrypto.RSA2048)
		if err != nil {
			return nil, fmt.Errorf("generate account key: %w", err)
		}
		a.key = &jose.JSONWebKey{Key: key}
	}

	signer, ok := a.key.Key.(crypto.Signer)
	if !ok {
		return nil, ErrInvalidAccountKey
	}
	return signer, nil
}

// Registered reports whether the account has a CA registration.
func (a *Account) Registered() bool {
	return a.Registration != nil && a.Registration.URI != ""
}

// MarshalJSON encodes the account as {"key": JWK, "regr": registration}.
func (a *Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(accountJSON{Key: a.key, Registration: a.Registration})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (a *Account) UnmarshalJSON(data []byte) error {
	var raw accountJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Key != nil {
		if _, ok := raw.Key.Key.(crypto.Signer); !ok {
			return ErrInvalidAccountKey
		}
	}
	a.key = raw.Key
	a.Registration = raw.Registration
	return nil
}

// Equal compares the serialized forms of both accounts.
func (a *Account) Equal(other *Account) bool {
	if a == nil || other == nil {
		return a == other
	}
	left, err := json.Marshal(a)
	if err != nil {
		return false
	}
	right, err := json.Marshal(other)
	if err != nil {
		return false
	}
	return bytes.Equal(left, right)
}

// KeyAuthorization returns token + "." + base64url(SHA-256 JWK thumbprint of the public key).
func KeyAuthorization(key crypto.Signer, token string) (string, error) {
	jwk := PublicJWK(key)
	thumbprint, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("compute jwk thumbprint: %w", err)
	}
	return token + "." + base64.RawURLEncoding.EncodeToString(thumbprint), nil
}

// DNS01Value returns the TXT record value for a dns-01 challenge:
// base64url(SHA-256(key authorization)).
func DNS01Value(key crypto.Signer, token string) (string, error) {
	keyAuth, err := KeyAuthorization(key, token)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(keyAuth))
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

// PublicJWK returns the public half of key as a JWK.
func PublicJWK(key crypto.Signer) jose.JSONWebKey {
	return jose.JSONWebKey{Key: key.Public()}
}
