// Package acm keeps AWS Certificate Manager in sync with certificate
// storage.
//
// Observer implements storage.Observer. Subscribe it to the storage and
// every saved certificate is imported into ACM, every removed one deleted:
//
//	awsCfg, err := awsconfig.Load(ctx, awsconfig.Config{Region: "us-east-1"})
//	if err != nil {
//		return err
//	}
//	observer, err := acm.NewFromConfig(awsCfg)
//	if err != nil {
//		return err
//	}
//	store.Subscribe(observer)
//
// Certificates are matched by name (the first domain, which ACM reports as
// the certificate domain name). The first import of a name creates a new
// ACM certificate tagged managed-by=acmekit; later imports update it in
// place under the same ARN, so load balancers and distributions using it
// serve the renewed certificate without reconfiguration.
//
// The name to ARN mapping is held by a Resolver, filled from a single
// paginated listing on first use. Certificates created outside this process
// after that listing are not seen until the next run.
//
// Deleting a certificate that is still attached to a resource fails with
// ErrCertificateInUse; the error reaches the caller as storage.ErrSyncFailed.
package acm
