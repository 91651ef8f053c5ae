// Package letsencrypt drives the certificate lifecycle against an ACME CA
// with explicit control over every operation. No background jobs: issuance,
// renewal and revocation happen when called.
//
// # Types
//
//   - Manager: issue, renew and revoke certificates, select renewal candidates
//   - Config: account email, directory URL and freshness window
//   - Result: outcome of a batch run
//
// # Errors
//
//   - ErrCertificateNotFound: revoke target is not stored
//   - ErrAlreadyRevoked: the CA already revoked the certificate
//   - ErrGenerationFailed: an order failed after all retries
//   - ErrSaveFailed: the CA issued but the certificate could not be stored
//   - ErrAllFailed: every item of a batch failed
//
// # Basic Usage
//
//	store := storage.New(s3Backend)
//
//	manager, err := letsencrypt.NewManager(letsencrypt.Config{
//		Email:        "admin@example.com",
//		DirectoryURL: lego.LEDirectoryStaging,
//	}, store, legoacme.Dial)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	auths := []authenticator.Authenticator{dnsAuth, httpAuth}
//
//	cert, err := manager.Issue(ctx, []string{"*.example.com", "example.com"}, auths)
//	if err != nil {
//		log.Printf("issue failed: %v", err)
//	}
//
// # Orders
//
// Every order loads the stored ACME account (registering and persisting one
// on first use), submits a CSR, routes the authorizations with
// authenticator.Select, performs and answers the challenges, finalizes and
// saves the certificate. Challenge material is cleaned up for every
// authenticator that was started, on success and on failure. Cleanup errors
// are logged, never returned.
//
// Failures marked transient (network errors, CA rate limits, Route53
// throttling, see acme.Transient) are retried with exponential backoff, see
// WithRetryConfig. Missing authenticator coverage and propagation timeouts are
// final. After the CA issued, only the save is retried, so a storage hiccup
// never leads to a second order.
//
// # Renewal
//
// FindCertificatesToRenew returns certificates issued longer ago than the
// freshness window (60 days by default). RenewDue renews them in one batch:
//
//	result, err := manager.RenewDue(ctx, auths)
//	if errors.Is(err, letsencrypt.ErrAllFailed) {
//		// nothing could be renewed
//	}
//	log.Printf("renewed %v, failed %v", result.Succeeded, result.FailedNames())
//
// A failing item never stops the batch. Only a non-empty batch where every
// item failed returns ErrAllFailed.
//
// # Serving
//
// GetCertificate plugs into tls.Config to serve stored certificates and
// HandleChallenge answers HTTP-01 requests from storage:
//
//	srv := &http.Server{
//		TLSConfig: &tls.Config{GetCertificate: manager.GetCertificate},
//	}
package letsencrypt
