package webhook

import "errors"

var (
	ErrInvalidURL            = errors.New("webhook: invalid url")
	ErrInvalidPayload        = errors.New("webhook: invalid payload")
	ErrPermanentFailure      = errors.New("webhook: permanent delivery failure")
	ErrTemporaryFailure      = errors.New("webhook: temporary delivery failure")
	ErrWebhookDeliveryFailed = errors.New("webhook: delivery failed")
	ErrInvalidConfiguration  = errors.New("webhook: invalid configuration")
	ErrInvalidSignature      = errors.New("webhook: invalid signature")
)
