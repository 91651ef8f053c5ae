// Package awsconfig loads the AWS SDK configuration shared by the Route53
// and ACM integrations.
package awsconfig

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ErrLoadConfig is returned when the default AWS configuration cannot be loaded.
var ErrLoadConfig = errors.New("failed to load AWS config")

// Config selects region and credentials. Empty fields fall back to the
// default AWS chain (environment, shared config, instance or task role).
type Config struct {
	Region      string `env:"AWS_REGION"`
	AccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	SecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`
	// AssumeRoleARN switches to temporary credentials of another role,
	// e.g. for a hosted zone in a different account.
	AssumeRoleARN string `env:"AWS_ASSUME_ROLE_ARN"`
}

// Option customizes the loaded configuration.
type Option func(*options)

type options struct {
	httpClient    *http.Client
	configOptions []func(*config.LoadOptions) error
}

// WithHTTPClient sets a custom HTTP client for AWS requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithConfigOption adds a custom AWS config option.
func WithConfigOption(option func(*config.LoadOptions) error) Option {
	return func(o *options) {
		o.configOptions = append(o.configOptions, option)
	}
}

// Load resolves the AWS configuration for cfg.
func Load(ctx context.Context, cfg Config, opts ...Option) (aws.Config, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var loadOptions []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOptions = append(loadOptions, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		loadOptions = append(loadOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}
	if o.httpClient != nil {
		loadOptions = append(loadOptions, config.WithHTTPClient(o.httpClient))
	}
	loadOptions = append(loadOptions, o.configOptions...)

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if cfg.AssumeRoleARN != "" {
		provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(awsCfg), cfg.AssumeRoleARN)
		awsCfg = awsCfg.Copy()
		awsCfg.Credentials = aws.NewCredentialsCache(provider)
	}

	return awsCfg, nil
}
