package route53

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/acmekit/core/acme"
)

var (
	ErrClientRequired     = errors.New("route53: client is required")
	ErrNoZones            = errors.New("route53: at least one hosted zone is required")
	ErrInvalidZone        = errors.New("route53: invalid hosted zone mapping")
	ErrZoneNotFound       = errors.New("route53: no hosted zone configured for domain")
	ErrPropagationTimeout = errors.New("route53: dns change was not propagated in time")
	ErrNoSuchHostedZone   = errors.New("route53: hosted zone does not exist")
	ErrInvalidChangeBatch = errors.New("route53: invalid change batch")
	ErrAccessDenied       = errors.New("route53: access denied")
	ErrThrottling         = errors.New("route53: rate limit exceeded")
)

// classifyRoute53Error maps Route53 API error codes to package errors,
// keeping the AWS message for context. Throttling is marked transient;
// the other API errors are final.
func classifyRoute53Error(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.ErrorMessage()
		switch apiErr.ErrorCode() {
		case "NoSuchHostedZone":
			return fmt.Errorf("%w: %s", ErrNoSuchHostedZone, msg)
		case "InvalidChangeBatch", "InvalidInput":
			return fmt.Errorf("%w: %s", ErrInvalidChangeBatch, msg)
		case "AccessDenied", "AccessDeniedException":
			return fmt.Errorf("%w: %s", ErrAccessDenied, msg)
		case "Throttling", "ThrottlingException", "PriorRequestNotComplete":
			return acme.Transient(fmt.Errorf("%w: %s", ErrThrottling, msg))
		}
	}

	return err
}
