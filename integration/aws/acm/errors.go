package acm

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/acm/types"
	"github.com/aws/smithy-go"
)

var (
	ErrClientRequired     = errors.New("acm: client is required")
	ErrCertificateInUse   = errors.New("acm: certificate is in use by another resource")
	ErrInvalidCertificate = errors.New("acm: certificate rejected")
	ErrAccessDenied       = errors.New("acm: access denied")
	ErrThrottling         = errors.New("acm: rate limit exceeded")
)

var errNotFound = errors.New("acm: certificate not found")

// classifyACMError maps ACM API errors to package errors, keeping the AWS
// message for context.
func classifyACMError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var inUse *types.ResourceInUseException
	if errors.As(err, &inUse) {
		return fmt.Errorf("%w: %s", ErrCertificateInUse, inUse.ErrorMessage())
	}
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s", errNotFound, notFound.ErrorMessage())
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.ErrorMessage()
		switch apiErr.ErrorCode() {
		case "ResourceInUseException":
			return fmt.Errorf("%w: %s", ErrCertificateInUse, msg)
		case "ResourceNotFoundException":
			return fmt.Errorf("%w: %s", errNotFound, msg)
		case "ValidationException", "InvalidParameterException", "InvalidArnException", "LimitExceededException":
			return fmt.Errorf("%w: %s", ErrInvalidCertificate, msg)
		case "AccessDeniedException":
			return fmt.Errorf("%w: %s", ErrAccessDenied, msg)
		case "ThrottlingException":
			return fmt.Errorf("%w: %s", ErrThrottling, msg)
		}
	}

	return err
}
