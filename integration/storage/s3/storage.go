package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3aws "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrymomot/acmekit/core/storage"
	"github.com/dmitrymomot/acmekit/pkg/metrics"
)

// Compile-time check that Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)

// S3Client defines the interface for S3 operations used by Backend.
type S3Client interface {
	GetObject(ctx context.Context, params *s3aws.GetObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3aws.PutObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3aws.DeleteObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3aws.ListObjectsV2Input, optFns ...func(*s3aws.Options)) (*s3aws.ListObjectsV2Output, error)
}

// Backend stores certificate material as objects of a single bucket,
// optionally under a key prefix.
type Backend struct {
	client   S3Client
	bucket   string
	prefix   string
	pageSize int32
}

// S3Config contains configuration for the S3 backend.
type S3Config struct {
	Bucket         string
	Region         string
	Prefix         string // Optional key prefix, e.g. "acme/"
	AccessKeyID    string
	SecretKey      string
	Endpoint       string // For S3-compatible services like MinIO
	ForcePathStyle bool   // Required for MinIO and some S3-compatible services
}

// S3Option defines a function that configures Backend.
type S3Option func(*s3Options)

type s3Options struct {
	httpClient      *http.Client
	s3Client        S3Client
	s3ConfigOptions []func(*config.LoadOptions) error
	s3ClientOptions []func(*s3aws.Options)
	pageSize        int32
}

// WithS3Client sets a custom pre-configured S3 client.
// Primarily used for testing with mocks.
func WithS3Client(client S3Client) S3Option {
	return func(o *s3Options) {
		o.s3Client = client
	}
}

// WithHTTPClient sets a custom HTTP client for S3 requests.
func WithHTTPClient(client *http.Client) S3Option {
	return func(o *s3Options) {
		o.httpClient = client
	}
}

// WithS3ConfigOption adds a custom AWS config option.
func WithS3ConfigOption(option func(*config.LoadOptions) error) S3Option {
	return func(o *s3Options) {
		o.s3ConfigOptions = append(o.s3ConfigOptions, option)
	}
}

// WithS3ClientOption adds a custom S3 client option.
func WithS3ClientOption(option func(*s3aws.Options)) S3Option {
	return func(o *s3Options) {
		o.s3ClientOptions = append(o.s3ClientOptions, option)
	}
}

// WithPageSize sets the number of keys requested per list page.
func WithPageSize(n int32) S3Option {
	return func(o *s3Options) {
		o.pageSize = n
	}
}

// New creates an S3 backend. Credentials fall back to the default AWS chain
// (environment, shared config, instance role) when not set in cfg.
func New(ctx context.Context, cfg S3Config, opts ...S3Option) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, ErrInvalidConfig
	}

	options := &s3Options{}
	for _, opt := range opts {
		opt(options)
	}

	client := options.s3Client
	if client == nil {
		var awsOptions []func(*config.LoadOptions) error
		if cfg.Region != "" {
			awsOptions = append(awsOptions, config.WithRegion(cfg.Region))
		}

		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOptions = append(awsOptions,
				config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID,
					cfg.SecretKey,
					"",
				)),
			)
		}

		if options.httpClient != nil {
			awsOptions = append(awsOptions, config.WithHTTPClient(options.httpClient))
		}

		awsOptions = append(awsOptions, options.s3ConfigOptions...)

		awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		client = s3aws.NewFromConfig(awsConfig, func(o *s3aws.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.ForcePathStyle

			for _, opt := range options.s3ClientOptions {
				opt(o)
			}
		})
	}

	prefix := strings.TrimPrefix(cfg.Prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &Backend{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   prefix,
		pageSize: options.pageSize,
	}, nil
}

// Get returns the object stored under key or storage.ErrNotFound.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	defer metrics.ObserveAWSCall("s3", "GetObject", time.Now())

	out, err := b.client.GetObject(ctx, &s3aws.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(key)),
	})
	if err != nil {
		return nil, classifyS3Error(err, "get object")
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// Put writes data under key.
func (b *Backend) Put(ctx context.Context, key string, data []byte) error {
	defer metrics.ObserveAWSCall("s3", "PutObject", time.Now())

	_, err := b.client.PutObject(ctx, &s3aws.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.objectKey(key)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType(key)),
	})
	return classifyS3Error(err, "put object")
}

// Delete removes key. S3 reports success for missing keys.
func (b *Backend) Delete(ctx context.Context, key string) error {
	defer metrics.ObserveAWSCall("s3", "DeleteObject", time.Now())

	_, err := b.client.DeleteObject(ctx, &s3aws.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(key)),
	})
	return classifyS3Error(err, "delete object")
}

// List enumerates objects under prefix, requesting the next page only when
// the previous one has been consumed.
func (b *Backend) List(ctx context.Context, prefix string) iter.Seq2[storage.Object, error] {
	return func(yield func(storage.Object, error) bool) {
		input := &s3aws.ListObjectsV2Input{
			Bucket: aws.String(b.bucket),
			Prefix: aws.String(b.objectKey(prefix)),
		}
		if b.pageSize > 0 {
			input.MaxKeys = aws.Int32(b.pageSize)
		}

		paginator := s3aws.NewListObjectsV2Paginator(b.client, input)
		for paginator.HasMorePages() {
			start := time.Now()
			page, err := paginator.NextPage(ctx)
			metrics.ObserveAWSCall("s3", "ListObjectsV2", start)
			if err != nil {
				yield(storage.Object{}, classifyS3Error(err, "list objects"))
				return
			}

			for _, obj := range page.Contents {
				key := strings.TrimPrefix(aws.ToString(obj.Key), b.prefix)
				if !yield(storage.Object{Key: key, LastModified: aws.ToTime(obj.LastModified)}, nil) {
					return
				}
			}
		}
	}
}

// Healthcheck returns a probe that lists at most one object under the
// backend prefix.
func Healthcheck(b *Backend) func(context.Context) error {
	return func(ctx context.Context) error {
		defer metrics.ObserveAWSCall("s3", "ListObjectsV2", time.Now())

		_, err := b.client.ListObjectsV2(ctx, &s3aws.ListObjectsV2Input{
			Bucket:  aws.String(b.bucket),
			Prefix:  aws.String(b.prefix),
			MaxKeys: aws.Int32(1),
		})
		return classifyS3Error(err, "healthcheck")
	}
}

func (b *Backend) objectKey(key string) string {
	return b.prefix + strings.TrimPrefix(key, "/")
}

func contentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	case strings.HasSuffix(key, ".pem"):
		return "application/x-pem-file"
	default:
		return "application/octet-stream"
	}
}
