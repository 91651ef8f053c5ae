// Package webhook delivers JSON notifications to HTTP endpoints with retries
// and optional HMAC signatures.
//
// # Basic Usage
//
//	sender := webhook.NewSender()
//
//	err := sender.Send(ctx, "https://hooks.example.com/certs", map[string]any{
//		"event": "certificates.renewed",
//	})
//	if err != nil {
//		log.Printf("webhook delivery failed: %v", err)
//	}
//
// # Batch Notifications
//
// Notify posts the outcome of a batch run. The static body is extended with
// success_domains and failure_domains:
//
//	_ = sender.Notify(ctx, url, map[string]any{"env": "prod"},
//		result.Succeeded, result.FailedNames())
//
// Notify logs failures itself; callers treat the returned error as
// informational.
//
// # Configuration Options
//
//	err := sender.Send(ctx, url, event,
//		webhook.WithTimeout(30*time.Second),
//		webhook.WithMaxRetries(5),
//		webhook.WithBackoff(webhook.ExponentialBackoff{
//			InitialInterval: time.Second,
//			MaxInterval:     time.Minute,
//			Multiplier:      2,
//			JitterFactor:    0.1,
//		}),
//		webhook.WithSignature("secret"),
//	)
//
// Network errors and 408, 429 and 5xx responses are retried. Any other
// non-2xx status fails at once with ErrPermanentFailure. When every attempt
// fails the error wraps ErrWebhookDeliveryFailed and the last cause.
//
// # Signatures
//
// With WithSignature each request carries X-Webhook-Signature
// ("sha256=<hex HMAC of timestamp.payload>") and X-Webhook-Timestamp.
// Receivers check them with VerifySignature:
//
//	sig, err := webhook.ExtractSignatureHeaders(map[string]string{
//		webhook.HeaderSignature: r.Header.Get(webhook.HeaderSignature),
//		webhook.HeaderTimestamp: r.Header.Get(webhook.HeaderTimestamp),
//	})
//	if err == nil {
//		err = webhook.VerifySignature("secret", body, sig, 5*time.Minute)
//	}
package webhook
