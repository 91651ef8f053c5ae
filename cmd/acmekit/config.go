package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrymomot/acmekit/core/config"
	"github.com/dmitrymomot/acmekit/integration/aws/awsconfig"
	"github.com/dmitrymomot/acmekit/integration/storage/redis"
)

const (
	backendS3    = "s3"
	backendRedis = "redis"
)

// Config is read from the environment, after an optional .env file.
type Config struct {
	DirectoryURL  string `env:"ACME_DIRECTORY_URL" envDefault:"https://acme-v02.api.letsencrypt.org/directory"`
	Email         string `env:"ACME_ACCOUNT_EMAIL,required"`
	FreshnessDays int    `env:"ACME_FRESHNESS_DAYS" envDefault:"60"`
	MaxRetries    int    `env:"ACME_MAX_RETRIES" envDefault:"3"`

	StorageBackend   string `env:"STORAGE_BACKEND" envDefault:"s3"`
	S3Bucket         string `env:"S3_BUCKET"`
	S3Prefix         string `env:"S3_PREFIX"`
	S3Endpoint       string `env:"S3_ENDPOINT"`
	S3ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE"`
	Redis            redis.Config
	AWS              awsconfig.Config

	// Route53Zones maps domains to hosted zones: "example.com:Z123,example.org:Z456".
	Route53Zones  string   `env:"ROUTE53_ZONES"`
	HTTP01        bool     `env:"HTTP01_ENABLED" envDefault:"true"`
	HTTP01Domains []string `env:"HTTP01_DOMAINS" envSeparator:","`
	HTTP01Webroot string   `env:"HTTP01_WEBROOT"`
	ACMSync       bool     `env:"ACM_SYNC"`

	WebhookURL     string `env:"WEBHOOK_URL"`
	WebhookSecret  string `env:"WEBHOOK_SECRET"`
	PushGatewayURL string `env:"PUSHGATEWAY_URL"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	switch c.StorageBackend {
	case backendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 storage backend")
		}
	case backendRedis:
	default:
		return fmt.Errorf("unsupported storage backend %q", c.StorageBackend)
	}
	if c.FreshnessDays <= 0 {
		return fmt.Errorf("ACME_FRESHNESS_DAYS must be positive")
	}
	return nil
}

func (c Config) freshnessWindow() time.Duration {
	return time.Duration(c.FreshnessDays) * 24 * time.Hour
}

func (c Config) needsAWS() bool {
	return c.ACMSync || strings.TrimSpace(c.Route53Zones) != ""
}
