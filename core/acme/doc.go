// Package acme defines the ACME account model and the client contract the
// certificate lifecycle is driven through.
//
// The protocol engine itself lives behind Client. Registration, orders,
// challenge answers, finalization and revocation are its business; this
// package only carries the data those calls exchange.
//
// Accounts serialize to a JSON document holding the private key as a JWK and
// the opaque CA registration:
//
//	{"key": {"kty": "RSA", ...}, "regr": {"uri": "https://ca/acct/1", "body": {...}}}
//
// KeyAuthorization computes the value a challenge responder must publish.
package acme
