// Package authenticator proves domain control for ACME orders.
//
// An Authenticator provisions validation material for a batch of challenges
// and removes it afterwards. HTTP01 publishes key authorizations through a
// Publisher: the certificate storage (NewDelegated), a Webroot directory, or
// anything else that ends up served at /.well-known/acme-challenge/{token}.
// The Route53 DNS-01 authenticator lives in integration/aws/route53.
//
// Select routes the authorizations of an order:
//
//	groups, err := authenticator.Select(order.Authorizations, []authenticator.Authenticator{
//		dnsAuth,  // preferred
//		httpAuth, // fallback
//	})
//	if errors.Is(err, authenticator.ErrNoAuthenticator) {
//		// some domain cannot be validated; nothing was provisioned
//	}
//
// Each domain goes to exactly one authenticator, the first in the list that
// supports any of its challenges. Authorizations that are already valid are
// skipped.
package authenticator
