package acm

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	"github.com/aws/aws-sdk-go-v2/service/acm/types"

	"github.com/dmitrymomot/acmekit/pkg/metrics"
)

// listedKeyTypes are the key algorithms included in listings. ACM lists
// RSA-2048 certificates only unless asked otherwise.
var listedKeyTypes = []types.KeyAlgorithm{
	types.KeyAlgorithmRsa1024,
	types.KeyAlgorithmRsa2048,
	types.KeyAlgorithmRsa3072,
	types.KeyAlgorithmRsa4096,
	types.KeyAlgorithmEcPrime256v1,
	types.KeyAlgorithmEcSecp384r1,
	types.KeyAlgorithmEcSecp521r1,
}

type cacheState uint8

const (
	cacheUnloaded cacheState = iota
	cacheLoaded
)

// Resolver maps certificate names to ACM certificate ARNs. The mapping is
// built from one full listing on first use and then kept up to date with
// Set and Forget. Certificates imported by other processes after the
// listing are not seen.
//
// A Resolver is not safe for concurrent use.
type Resolver struct {
	api   API
	state cacheState
	arns  map[string]string
}

// NewResolver returns an unloaded resolver over api.
func NewResolver(api API) *Resolver {
	return &Resolver{api: api}
}

// Get returns the ARN of the certificate whose domain name is name.
func (r *Resolver) Get(ctx context.Context, name string) (string, bool, error) {
	if err := r.load(ctx); err != nil {
		return "", false, err
	}
	arn, ok := r.arns[name]
	return arn, ok, nil
}

// Set records the ARN of name.
func (r *Resolver) Set(ctx context.Context, name, arn string) error {
	if err := r.load(ctx); err != nil {
		return err
	}
	r.arns[name] = arn
	return nil
}

// Forget drops name from a loaded mapping.
func (r *Resolver) Forget(name string) {
	if r.state == cacheLoaded {
		delete(r.arns, name)
	}
}

func (r *Resolver) load(ctx context.Context) error {
	if r.state == cacheLoaded {
		return nil
	}

	arns := make(map[string]string)
	paginator := acm.NewListCertificatesPaginator(r.api, &acm.ListCertificatesInput{
		Includes: &types.Filters{KeyTypes: listedKeyTypes},
	})
	for paginator.HasMorePages() {
		start := time.Now()
		page, err := paginator.NextPage(ctx)
		metrics.ObserveAWSCall("acm", "ListCertificates", start)
		if err != nil {
			return fmt.Errorf("list acm certificates: %w", classifyACMError(err))
		}
		for _, summary := range page.CertificateSummaryList {
			arns[aws.ToString(summary.DomainName)] = aws.ToString(summary.CertificateArn)
		}
	}

	r.arns = arns
	r.state = cacheLoaded
	return nil
}
