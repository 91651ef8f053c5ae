package acme

import (
	"encoding/json"

	"github.com/go-acme/lego/v4/challenge"
)

// ChallengeType identifies an ACME challenge kind.
type ChallengeType string

const (
	ChallengeHTTP01 = ChallengeType(challenge.HTTP01)
	ChallengeDNS01  = ChallengeType(challenge.DNS01)
)

// ACME object statuses.
const (
	StatusPending     = "pending"
	StatusProcessing  = "processing"
	StatusReady       = "ready"
	StatusValid       = "valid"
	StatusInvalid     = "invalid"
	StatusDeactivated = "deactivated"
	StatusExpired     = "expired"
	StatusRevoked     = "revoked"
)

// Revocation reason codes from RFC 5280.
const (
	ReasonUnspecified   uint = 0
	ReasonKeyCompromise uint = 1
	ReasonSuperseded    uint = 4
	ReasonCessation     uint = 5
)

// Registration is the CA account record. Body is kept opaque.
type Registration struct {
	URI  string          `json:"uri"`
	Body json.RawMessage `json:"body,omitempty"`
}

// Order is a pending certificate order.
type Order struct {
	URL            string
	FinalizeURL    string
	CertificateURL string
	Status         string
	CSR            []byte
	Identifiers    []string
	Authorizations []Authorization
}

// Authorization is the CA record of a single identifier validation.
type Authorization struct {
	URL        string
	Identifier string
	Status     string
	Wildcard   bool
	Challenges []Challenge
}

// Domain returns the identifier with the wildcard label restored.
func (a Authorization) Domain() string {
	if a.Wildcard {
		return "*." + a.Identifier
	}
	return a.Identifier
}

// Challenge is one way to prove control of an identifier.
type Challenge struct {
	Type   ChallengeType
	URL    string
	Token  string
	Status string
}
