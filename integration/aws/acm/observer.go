package acm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	"github.com/aws/aws-sdk-go-v2/service/acm/types"

	"github.com/dmitrymomot/acmekit/core/certificate"
	"github.com/dmitrymomot/acmekit/core/logger"
	"github.com/dmitrymomot/acmekit/core/storage"
	"github.com/dmitrymomot/acmekit/pkg/metrics"
)

// Compile-time check that Observer implements storage.Observer interface
var _ storage.Observer = (*Observer)(nil)

// API defines the subset of the ACM SDK client we use.
type API interface {
	ImportCertificate(ctx context.Context, params *acm.ImportCertificateInput, optFns ...func(*acm.Options)) (*acm.ImportCertificateOutput, error)
	ListCertificates(ctx context.Context, params *acm.ListCertificatesInput, optFns ...func(*acm.Options)) (*acm.ListCertificatesOutput, error)
	DeleteCertificate(ctx context.Context, params *acm.DeleteCertificateInput, optFns ...func(*acm.Options)) (*acm.DeleteCertificateOutput, error)
}

// Observer mirrors saved and removed certificates into AWS Certificate
// Manager. A renewed certificate is re-imported under its existing ARN so
// resources using it pick up the new certificate.
type Observer struct {
	api      API
	resolver *Resolver
	tags     []types.Tag
	logger   *slog.Logger
}

// Option configures Observer.
type Option func(*Observer)

// WithTag adds a tag set on newly imported certificates.
func WithTag(key, value string) Option {
	return func(o *Observer) {
		o.tags = append(o.tags, types.Tag{Key: aws.String(key), Value: aws.String(value)})
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Observer) {
		o.logger = l
	}
}

// NewObserver returns an observer over api. New imports are tagged
// managed-by=acmekit.
func NewObserver(api API, opts ...Option) (*Observer, error) {
	if api == nil {
		return nil, ErrClientRequired
	}
	o := &Observer{
		api:      api,
		resolver: NewResolver(api),
		tags:     []types.Tag{{Key: aws.String("managed-by"), Value: aws.String("acmekit")}},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// NewFromConfig returns an observer on an ACM client for cfg.
func NewFromConfig(cfg aws.Config, opts ...Option) (*Observer, error) {
	return NewObserver(acm.NewFromConfig(cfg), opts...)
}

// SaveCertificate imports cert, updating the existing ACM certificate of
// the same name when there is one.
func (o *Observer) SaveCertificate(ctx context.Context, cert *certificate.Certificate) error {
	leaf, err := cert.Leaf()
	if err != nil {
		return err
	}
	chain, err := cert.Chain()
	if err != nil {
		return err
	}

	name := cert.Name()
	arn, exists, err := o.resolver.Get(ctx, name)
	if err != nil {
		return err
	}

	input := &acm.ImportCertificateInput{
		Certificate: leaf,
		PrivateKey:  cert.PrivateKey(),
	}
	if len(chain) > 0 {
		input.CertificateChain = chain
	}
	if exists {
		input.CertificateArn = aws.String(arn)
	} else {
		input.Tags = o.tags
	}

	start := time.Now()
	out, err := o.api.ImportCertificate(ctx, input)
	metrics.ObserveAWSCall("acm", "ImportCertificate", start)
	if err != nil {
		return fmt.Errorf("import %s into acm: %w", name, classifyACMError(err))
	}

	if !exists {
		arn = aws.ToString(out.CertificateArn)
		if err := o.resolver.Set(ctx, name, arn); err != nil {
			return err
		}
	}

	o.logger.InfoContext(ctx, "certificate imported into acm",
		logger.Certificate(name),
		logger.ARN(arn),
		slog.Bool("updated", exists),
	)
	return nil
}

// RemoveCertificate deletes the ACM certificate of cert's name. Deleting a
// certificate still attached to a resource fails with ErrCertificateInUse.
func (o *Observer) RemoveCertificate(ctx context.Context, cert *certificate.Certificate) error {
	name := cert.Name()
	arn, exists, err := o.resolver.Get(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	start := time.Now()
	_, err = o.api.DeleteCertificate(ctx, &acm.DeleteCertificateInput{CertificateArn: aws.String(arn)})
	metrics.ObserveAWSCall("acm", "DeleteCertificate", start)

	err = classifyACMError(err)
	switch {
	case errors.Is(err, errNotFound):
		o.logger.WarnContext(ctx, "acm certificate already gone", logger.Certificate(name), logger.ARN(arn))
	case err != nil:
		return fmt.Errorf("delete %s from acm: %w", name, err)
	default:
		o.logger.InfoContext(ctx, "certificate deleted from acm", logger.Certificate(name), logger.ARN(arn))
	}

	o.resolver.Forget(name)
	return nil
}
