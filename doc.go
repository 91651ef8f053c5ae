// Package acmekit obtains, renews and revokes ACME certificates with explicit
// control over every step. Certificates and the ACME account live in an
// object store (S3 or Redis) and can be mirrored into AWS Certificate Manager.
//
// This file is an index of the packages in the module. Each entry gives the
// import path and a short description.
//
// # Getting Documentation
//
//	go doc github.com/dmitrymomot/acmekit/core/letsencrypt
//	go doc -all github.com/dmitrymomot/acmekit/core/storage
//
// # Core Packages
//
//	github.com/dmitrymomot/acmekit/core/acme          - ACME account model, client contract, key authorizations
//	github.com/dmitrymomot/acmekit/core/authenticator - Challenge authenticators (http-01, delegated, webroot) and routing
//	github.com/dmitrymomot/acmekit/core/certificate   - Certificate value object: domains, key, leaf and chain
//	github.com/dmitrymomot/acmekit/core/config        - Type-safe environment variable loading
//	github.com/dmitrymomot/acmekit/core/health        - Dependency readiness probes
//	github.com/dmitrymomot/acmekit/core/letsencrypt   - Issue, renew and revoke orchestration, batches and events
//	github.com/dmitrymomot/acmekit/core/logger        - Structured logging built on slog
//	github.com/dmitrymomot/acmekit/core/storage       - Certificate and account records over a key/value backend, observers
//
// # Integrations
//
//	github.com/dmitrymomot/acmekit/integration/aws/acm       - AWS Certificate Manager observer with name-to-ARN resolver
//	github.com/dmitrymomot/acmekit/integration/aws/awsconfig - Shared AWS configuration with optional role assumption
//	github.com/dmitrymomot/acmekit/integration/aws/route53   - dns-01 authenticator on Route53 hosted zones
//	github.com/dmitrymomot/acmekit/integration/lego          - ACME client on the lego protocol core
//	github.com/dmitrymomot/acmekit/integration/storage/redis - Redis storage backend
//	github.com/dmitrymomot/acmekit/integration/storage/s3    - S3 storage backend
//
// # Utility Packages
//
//	github.com/dmitrymomot/acmekit/pkg/metrics - Prometheus collectors and push gateway export
//	github.com/dmitrymomot/acmekit/pkg/webhook - JSON webhook delivery with retries and signatures
//
// # Command
//
//	github.com/dmitrymomot/acmekit/cmd/acmekit - CLI: issue, renew, revoke, run-event, check
//
// # Quick Start
//
//	store := storage.New(backend)
//
//	manager, err := letsencrypt.NewManager(letsencrypt.Config{
//		Email: "ops@example.com",
//	}, store, lego.Dial)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	delegated, _ := authenticator.NewDelegated(store)
//	result, err := manager.IssueAll(ctx, [][]string{{"example.com", "www.example.com"}},
//		[]authenticator.Authenticator{delegated})
//	if err != nil {
//		log.Printf("nothing issued: %v", err)
//	}
//	log.Printf("issued %v, failed %v", result.Succeeded, result.FailedNames())
package acmekit
