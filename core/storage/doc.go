// Package storage persists certificates and the ACME account on a pluggable
// key/value Backend and mirrors certificate writes to observers.
//
// # Layout
//
//	account.json          ACME account (JWK + registration)
//	configs/{name}        {"domains": [...], "issued_at": "..."}
//	keys/{name}           PEM private key
//	certificates/{name}   PEM full chain
//
// {name} is the first domain of the certificate.
//
// # Lookups
//
// GetCertificate is a strict cache lookup: it returns nil unless the stored
// domain list equals the requested one, order included. LoadCertificate
// ignores the domain list and is meant for renewal and revocation, where the
// stored record is the source of truth.
//
// # Observers
//
//	s := storage.New(backend)
//	s.Subscribe(acmObserver)
//
//	// writes configs, keys, certificates, then calls acmObserver.SaveCertificate
//	err := s.SaveCertificate(ctx, cert)
//	if errors.Is(err, storage.ErrSyncFailed) {
//		// primary store is updated, the mirror is not
//	}
//
// Observers run synchronously in subscription order. The first failing
// observer stops dispatch and its error is returned wrapped in ErrSyncFailed.
//
// # Backends
//
// MemoryBackend ships with this package. S3 and Redis backends live under
// integration/storage.
package storage
