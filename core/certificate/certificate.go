package certificate

import (
	"bytes"
	"crypto"
	"fmt"
	"slices"
	"strings"

	"github.com/go-acme/lego/v4/certcrypto"
)

// EndMarker terminates every PEM encoded certificate block.
const EndMarker = "-----END CERTIFICATE-----"

// Certificate is a set of domains with their private key and, once issued,
// the leaf certificate and its issuing chain.
//
// The first domain is the canonical name. It keys the certificate in storage
// and becomes the CSR common name. Leaf and chain are set together by
// SetFullchain and stay unset until then.
type Certificate struct {
	domains    []string
	privateKey []byte
	leaf       []byte
	chain      []byte
	ready      bool
}

// New builds a certificate from an existing PEM encoded private key.
func New(domains []string, privateKeyPEM []byte) (*Certificate, error) {
	domains = NormalizeDomains(domains)
	if len(domains) == 0 {
		return nil, ErrNoDomains
	}
	if len(privateKeyPEM) == 0 {
		return nil, ErrNoPrivateKey
	}

	return &Certificate{
		domains:    domains,
		privateKey: bytes.Clone(privateKeyPEM),
	}, nil
}

// Generate builds a certificate for the given domains with a fresh RSA-2048 key.
func Generate(domains []string) (*Certificate, error) {
	key, err := certcrypto.GeneratePrivateKey(certcrypto.RSA2048)
	if err != nil {
		return nil, fmt.Errorf("generate private key: %w", err)
	}

	return New(domains, certcrypto.PEMEncode(key))
}

// Name returns the canonical name, the first domain.
func (c *Certificate) Name() string {
	return c.domains[0]
}

// Domains returns a copy of the ordered domain list.
func (c *Certificate) Domains() []string {
	return slices.Clone(c.domains)
}

// PrivateKey returns the PEM encoded private key.
func (c *Certificate) PrivateKey() []byte {
	return bytes.Clone(c.privateKey)
}

// Signer parses the private key.
func (c *Certificate) Signer() (crypto.Signer, error) {
	key, err := certcrypto.ParsePEMPrivateKey(c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPrivateKey, err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, ErrInvalidPrivateKey
	}
	return signer, nil
}

// IsReady reports whether the full chain has been set.
func (c *Certificate) IsReady() bool {
	return c.ready
}

// Leaf returns the PEM encoded leaf certificate.
func (c *Certificate) Leaf() ([]byte, error) {
	if !c.ready {
		return nil, ErrNotReady
	}
	return bytes.Clone(c.leaf), nil
}

// Chain returns the PEM encoded issuing chain.
func (c *Certificate) Chain() ([]byte, error) {
	if !c.ready {
		return nil, ErrNotReady
	}
	return bytes.Clone(c.chain), nil
}

// Fullchain returns the leaf followed by the chain.
func (c *Certificate) Fullchain() ([]byte, error) {
	if !c.ready {
		return nil, ErrNotReady
	}
	out := make([]byte, 0, len(c.leaf)+len(c.chain))
	out = append(out, c.leaf...)
	return append(out, c.chain...), nil
}

// SetFullchain splits PEM bytes at the first certificate end marker.
// The leaf keeps the marker and its trailing newline, the chain gets the
// remainder with leading whitespace trimmed. The CA is trusted to emit the
// leaf first.
func (c *Certificate) SetFullchain(fullchain []byte) error {
	idx := bytes.Index(fullchain, []byte(EndMarker))
	if idx < 0 {
		return ErrMalformedChain
	}

	cut := idx + len(EndMarker)
	if cut < len(fullchain) && fullchain[cut] == '\n' {
		cut++
	}

	c.leaf = bytes.Clone(fullchain[:cut])
	c.chain = bytes.Clone(bytes.TrimLeft(fullchain[cut:], " \t\r\n"))
	c.ready = true
	return nil
}

// Clone returns an unissued copy with the same domains and private key.
func (c *Certificate) Clone() *Certificate {
	return &Certificate{
		domains:    slices.Clone(c.domains),
		privateKey: bytes.Clone(c.privateKey),
	}
}

// CSR builds a DER encoded certificate signing request. The canonical name is
// the common name and every domain is listed as a SAN.
func (c *Certificate) CSR() ([]byte, error) {
	signer, err := c.Signer()
	if err != nil {
		return nil, err
	}

	csr, err := certcrypto.GenerateCSR(signer, c.domains[0], c.domains, false)
	if err != nil {
		return nil, fmt.Errorf("generate csr: %w", err)
	}
	return csr, nil
}

// NormalizeDomains lowercases and trims domains and drops empty entries,
// keeping the order. New applies it to every certificate.
func NormalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}
