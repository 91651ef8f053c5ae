// Package s3 provides a storage.Backend on Amazon S3 and S3-compatible
// services, using the AWS SDK v2.
//
// Basic usage:
//
//	backend, err := s3.New(ctx, s3.S3Config{
//		Bucket: "acme-certificates",
//		Region: "us-east-1",
//	})
//	if err != nil {
//		return err
//	}
//
//	store := storage.New(backend)
//
// Credentials are optional; without them the default AWS chain is used
// (environment, shared config, instance or task role).
//
// # S3-Compatible Services
//
// MinIO configuration:
//
//	cfg := s3.S3Config{
//		Bucket:         "certs",
//		Region:         "us-east-1",
//		AccessKeyID:    "minioadmin",
//		SecretKey:      "minioadmin",
//		Endpoint:       "http://localhost:9000",
//		ForcePathStyle: true,
//	}
//
// # Errors
//
// Missing keys are reported as storage.ErrNotFound. Other S3 failures are
// classified into ErrBucketNotFound, ErrAccessDenied, ErrServiceUnavailable,
// ErrOperationTimeout and ErrOperationCanceled, or returned wrapped with the
// failing operation.
//
// Every call is timed into metrics.AWSAPICallDuration under service "s3".
package s3
