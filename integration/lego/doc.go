// Package lego implements acme.Client on top of the protocol core of
// go-acme/lego.
//
// Only lego's low-level api.Core is used. Challenge routing, retries and
// persistence stay with core/letsencrypt, so a Client does nothing but
// translate calls to ACME requests:
//
//	manager, err := letsencrypt.NewManager(cfg, store, lego.Dial)
//
// Custom HTTP clients and polling limits go through NewDialer:
//
//	dial := lego.NewDialer(
//		lego.WithHTTPClient(httpClient),
//		lego.WithPolling(2*time.Second, 3*time.Minute),
//	)
//
// PollAndFinalize returns ErrOrderNotReady when authorizations or the order
// do not settle within the polling window, and ErrAuthorizationInvalid with
// the CA problem when a challenge was rejected. Revoke reports an already
// revoked certificate as acme.ErrAlreadyRevoked.
package lego
