package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/acmekit/core/authenticator"
	"github.com/dmitrymomot/acmekit/core/health"
	"github.com/dmitrymomot/acmekit/core/letsencrypt"
	"github.com/dmitrymomot/acmekit/core/logger"
	"github.com/dmitrymomot/acmekit/core/storage"
	"github.com/dmitrymomot/acmekit/integration/aws/acm"
	"github.com/dmitrymomot/acmekit/integration/aws/awsconfig"
	"github.com/dmitrymomot/acmekit/integration/aws/route53"
	"github.com/dmitrymomot/acmekit/integration/lego"
	"github.com/dmitrymomot/acmekit/integration/storage/redis"
	"github.com/dmitrymomot/acmekit/integration/storage/s3"
	"github.com/dmitrymomot/acmekit/pkg/metrics"
	"github.com/dmitrymomot/acmekit/pkg/webhook"
)

const retryBackoff = 5 * time.Second

type app struct {
	cfg     Config
	logger  *slog.Logger
	store   *storage.Storage
	manager *letsencrypt.Manager
	auths   []authenticator.Authenticator
	sender  *webhook.Sender
	probe   func(context.Context) error
	closers []func() error
}

func newLogger(cfg Config) *slog.Logger {
	opts := []logger.Option{
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithAttr(logger.Component("acmekit")),
	}
	if cfg.LogFormat == "json" {
		opts = append(opts, logger.WithJSONFormatter())
	}
	return logger.New(opts...)
}

func newApp(ctx context.Context, cfg Config, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: log, sender: webhook.NewSender(webhook.WithLogger(log))}

	backend, err := a.newBackend(ctx)
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}
	a.store = storage.New(backend, storage.WithLogger(log))

	if err := a.wireAWS(ctx); err != nil {
		return nil, errors.Join(err, a.Close())
	}
	if err := a.wireHTTP01(); err != nil {
		return nil, errors.Join(err, a.Close())
	}

	a.manager, err = letsencrypt.NewManager(letsencrypt.Config{
		Email:           cfg.Email,
		DirectoryURL:    cfg.DirectoryURL,
		FreshnessWindow: cfg.freshnessWindow(),
	}, a.store, lego.NewDialer(lego.WithLogger(log)),
		letsencrypt.WithLogger(log),
		letsencrypt.WithRetryConfig(cfg.MaxRetries, retryBackoff),
	)
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}
	return a, nil
}

func (a *app) newBackend(ctx context.Context) (storage.Backend, error) {
	switch a.cfg.StorageBackend {
	case backendRedis:
		client, err := redis.Connect(ctx, a.cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		a.probe = redis.Healthcheck(client)
		return redis.NewBackend(client, a.cfg.Redis), nil
	default:
		backend, err := s3.New(ctx, s3.S3Config{
			Bucket:         a.cfg.S3Bucket,
			Region:         a.cfg.AWS.Region,
			Prefix:         a.cfg.S3Prefix,
			AccessKeyID:    a.cfg.AWS.AccessKeyID,
			SecretKey:      a.cfg.AWS.SecretKey,
			Endpoint:       a.cfg.S3Endpoint,
			ForcePathStyle: a.cfg.S3ForcePathStyle,
		})
		if err != nil {
			return nil, err
		}
		a.probe = s3.Healthcheck(backend)
		return backend, nil
	}
}

// check probes the storage backend and the stored ACME account.
func (a *app) check(ctx context.Context) error {
	return health.Readiness(ctx, a.logger,
		health.Check{Name: "storage:" + a.cfg.StorageBackend, Probe: a.probe},
		health.Check{Name: "account", Probe: func(ctx context.Context) error {
			account, err := a.store.GetAccount(ctx)
			if err != nil {
				return err
			}
			if account == nil || !account.Registered() {
				a.logger.InfoContext(ctx, "no registered acme account yet, one is created on first order")
			}
			return nil
		}},
	)
}

// wireAWS subscribes the ACM observer and adds the Route53 authenticator.
// DNS-01 goes first so wildcard and apex names share one zone change.
func (a *app) wireAWS(ctx context.Context) error {
	if !a.cfg.needsAWS() {
		return nil
	}
	awsCfg, err := awsconfig.Load(ctx, a.cfg.AWS)
	if err != nil {
		return err
	}

	if a.cfg.ACMSync {
		observer, err := acm.NewFromConfig(awsCfg, acm.WithLogger(a.logger))
		if err != nil {
			return err
		}
		a.store.Subscribe(observer)
	}

	if a.cfg.Route53Zones != "" {
		zones, err := route53.ParseZones(a.cfg.Route53Zones)
		if err != nil {
			return err
		}
		dns, err := route53.NewFromConfig(awsCfg, zones, route53.WithLogger(a.logger))
		if err != nil {
			return err
		}
		a.auths = append(a.auths, dns)
	}
	return nil
}

func (a *app) wireHTTP01() error {
	switch {
	case a.cfg.HTTP01Webroot != "":
		root, err := authenticator.NewWebroot(a.cfg.HTTP01Webroot)
		if err != nil {
			return err
		}
		auth, err := authenticator.NewHTTP01(root, authenticator.WithDomains(a.cfg.HTTP01Domains...))
		if err != nil {
			return err
		}
		a.auths = append(a.auths, auth)
	case a.cfg.HTTP01:
		auth, err := authenticator.NewDelegated(a.store, a.cfg.HTTP01Domains...)
		if err != nil {
			return err
		}
		a.auths = append(a.auths, auth)
	}
	if len(a.auths) == 0 {
		return fmt.Errorf("no authenticator configured: set ROUTE53_ZONES, HTTP01_WEBROOT or HTTP01_ENABLED")
	}
	return nil
}

// handle runs ev and reports the outcome. Notification and metrics export
// are best effort; only the batch error is returned.
func (a *app) handle(ctx context.Context, ev *letsencrypt.Event) (*letsencrypt.Result, error) {
	result, err := a.manager.HandleEvent(ctx, ev, a.auths)
	if result != nil {
		a.notify(ctx, ev, result)
		a.push(ctx, result)
	}
	return result, err
}

func (a *app) notify(ctx context.Context, ev *letsencrypt.Event, result *letsencrypt.Result) {
	url, body := a.cfg.WebhookURL, map[string]any(nil)
	if ev.Webhook != nil {
		url, body = ev.Webhook.URL, ev.Webhook.Body
	}
	if url == "" {
		return
	}

	var opts []webhook.SendOption
	if a.cfg.WebhookSecret != "" {
		opts = append(opts, webhook.WithSignature(a.cfg.WebhookSecret))
	}
	_ = a.sender.Notify(ctx, url, body, result.Succeeded, result.FailedNames(), opts...)
}

func (a *app) push(ctx context.Context, result *letsencrypt.Result) {
	if a.cfg.PushGatewayURL == "" {
		return
	}
	err := metrics.Push(ctx, a.cfg.PushGatewayURL, "acmekit", map[string]string{"action": result.Action})
	if err != nil {
		a.logger.WarnContext(ctx, "metrics push failed", logger.Error(err))
	}
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
