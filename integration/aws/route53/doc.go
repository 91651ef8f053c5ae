// Package route53 answers ACME dns-01 challenges with TXT records in Amazon
// Route53 hosted zones.
//
// The authenticator is configured with a map of zone apex to hosted zone ID.
// A domain belongs to the longest configured suffix, so with both
// "example.com" and "my.example.com" configured, "a.my.example.com" lands in
// the latter. Wildcard domains use the zone of their base name.
//
//	zones, err := route53.ParseZones("example.com:Z123,example.org:Z456")
//	if err != nil {
//		return err
//	}
//
//	awsCfg, err := awsconfig.Load(ctx, awsconfig.Config{Region: "us-east-1"})
//	if err != nil {
//		return err
//	}
//
//	dns, err := route53.NewFromConfig(awsCfg, zones)
//
// Perform submits one change batch per zone. Values for the same record name
// (example.com and *.example.com share _acme-challenge.example.com.) are
// merged into a single record set. It then polls GetChange every 5 seconds,
// up to 120 times, and fails with ErrPropagationTimeout when a change is
// still pending.
//
// Cleanup deletes the records. It never returns an error: failures are
// logged so a finished issuance is not reported as failed.
package route53
