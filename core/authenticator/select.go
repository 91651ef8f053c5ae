package authenticator

import (
	"fmt"

	"github.com/dmitrymomot/acmekit/core/acme"
)

// Group is the set of challenges routed to one authenticator.
type Group struct {
	Authenticator Authenticator
	Challenges    []DomainChallenge
}

// Select picks one challenge and one authenticator for every authorization
// that is not already valid. Authenticators are tried in the given order and
// the first one supporting any offered challenge wins. If a domain cannot be
// covered Select fails with ErrNoAuthenticator before anything is performed.
// Groups come back in authenticator order.
func Select(authorizations []acme.Authorization, authenticators []Authenticator) ([]Group, error) {
	challenges := make([][]DomainChallenge, len(authenticators))

	for _, authz := range authorizations {
		if authz.Status == acme.StatusValid {
			continue
		}

		domain := authz.Domain()
		idx, ch, ok := route(domain, authz.Challenges, authenticators)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoAuthenticator, domain)
		}
		challenges[idx] = append(challenges[idx], DomainChallenge{Domain: domain, Challenge: ch})
	}

	groups := make([]Group, 0, len(authenticators))
	for i, auth := range authenticators {
		if len(challenges[i]) > 0 {
			groups = append(groups, Group{Authenticator: auth, Challenges: challenges[i]})
		}
	}
	return groups, nil
}

func route(domain string, offered []acme.Challenge, authenticators []Authenticator) (int, acme.Challenge, bool) {
	for i, auth := range authenticators {
		for _, ch := range offered {
			if auth.Supports(domain, ch) {
				return i, ch, true
			}
		}
	}
	return 0, acme.Challenge{}, false
}
