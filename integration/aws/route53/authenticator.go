package route53

import (
	"context"
	"crypto"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/jmhodges/clock"

	"github.com/dmitrymomot/acmekit/core/acme"
	"github.com/dmitrymomot/acmekit/core/authenticator"
	"github.com/dmitrymomot/acmekit/core/logger"
	"github.com/dmitrymomot/acmekit/pkg/metrics"
)

// Compile-time check that Authenticator implements authenticator.Authenticator interface
var _ authenticator.Authenticator = (*Authenticator)(nil)

const (
	DefaultTTL          = 10
	DefaultPollInterval = 5 * time.Second
	DefaultPollAttempts = 120
)

// API defines the subset of the Route53 SDK client we use.
type API interface {
	ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
	GetChange(ctx context.Context, params *route53.GetChangeInput, optFns ...func(*route53.Options)) (*route53.GetChangeOutput, error)
}

// Authenticator answers dns-01 challenges with TXT records in Route53
// hosted zones.
type Authenticator struct {
	api   API
	zones map[string]string
	name  string

	ttl      int64
	interval time.Duration
	attempts int
	clock    clock.Clock
	logger   *slog.Logger
}

// Option configures Authenticator.
type Option func(*Authenticator)

// WithName overrides the authenticator name.
func WithName(name string) Option {
	return func(a *Authenticator) {
		a.name = name
	}
}

// WithTTL sets the TTL of the challenge records in seconds.
func WithTTL(ttl int64) Option {
	return func(a *Authenticator) {
		a.ttl = ttl
	}
}

// WithPropagationPolling sets how often and how many times a change status
// is polled before giving up.
func WithPropagationPolling(interval time.Duration, attempts int) Option {
	return func(a *Authenticator) {
		a.interval = interval
		a.attempts = attempts
	}
}

func WithClock(clk clock.Clock) Option {
	return func(a *Authenticator) {
		a.clock = clk
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Authenticator) {
		a.logger = l
	}
}

// New builds an authenticator for the given zone map of domain to hosted
// zone ID.
func New(api API, zones map[string]string, opts ...Option) (*Authenticator, error) {
	if api == nil {
		return nil, ErrClientRequired
	}
	if len(zones) == 0 {
		return nil, ErrNoZones
	}

	a := &Authenticator{
		api:      api,
		zones:    make(map[string]string, len(zones)),
		name:     "route53",
		ttl:      DefaultTTL,
		interval: DefaultPollInterval,
		attempts: DefaultPollAttempts,
		clock:    clock.New(),
		logger:   slog.Default(),
	}
	for name, id := range zones {
		name = normalizeDomain(name)
		if name == "" || id == "" {
			return nil, fmt.Errorf("%w: %q=%q", ErrInvalidZone, name, id)
		}
		a.zones[name] = id
	}
	for _, opt := range opts {
		opt(a)
	}
	a.attempts = max(a.attempts, 1)

	return a, nil
}

// NewFromConfig builds an authenticator on a Route53 client for cfg.
func NewFromConfig(cfg aws.Config, zones map[string]string, opts ...Option) (*Authenticator, error) {
	return New(route53.NewFromConfig(cfg), zones, opts...)
}

func (a *Authenticator) Name() string {
	return a.name
}

// Supports reports whether ch is a dns-01 challenge for a domain covered by
// a configured zone.
func (a *Authenticator) Supports(domain string, ch acme.Challenge) bool {
	if ch.Type != acme.ChallengeDNS01 {
		return false
	}
	_, ok := a.ZoneID(domain)
	return ok
}

// Perform upserts one change batch per hosted zone, then waits until every
// change is in sync.
func (a *Authenticator) Perform(ctx context.Context, challenges []authenticator.DomainChallenge, accountKey crypto.Signer) error {
	batches, err := a.batches(challenges, accountKey)
	if err != nil {
		return err
	}

	changeIDs := make([]string, 0, len(batches))
	for _, batch := range batches {
		id, err := a.submit(ctx, types.ChangeActionUpsert, batch)
		if err != nil {
			return fmt.Errorf("upsert records in zone %s: %w", batch.zoneID, err)
		}
		a.logger.DebugContext(ctx, "challenge records submitted",
			logger.Zone(batch.zoneID),
			logger.ChangeID(id),
			logger.Count("records", len(batch.records)),
		)
		changeIDs = append(changeIDs, id)
	}

	for _, id := range changeIDs {
		if err := a.wait(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Cleanup deletes the challenge records. Failures are logged and never
// returned.
func (a *Authenticator) Cleanup(ctx context.Context, challenges []authenticator.DomainChallenge, accountKey crypto.Signer) error {
	batches, err := a.batches(challenges, accountKey)
	if err != nil {
		a.logger.WarnContext(ctx, "challenge records cleanup skipped", logger.Error(err))
		return nil
	}

	for _, batch := range batches {
		if _, err := a.submit(ctx, types.ChangeActionDelete, batch); err != nil {
			a.logger.WarnContext(ctx, "challenge records cleanup failed",
				logger.Zone(batch.zoneID),
				logger.Error(err),
			)
		}
	}
	return nil
}

type txtRecord struct {
	name   string
	values []string
}

type changeBatch struct {
	zoneID  string
	records []*txtRecord
}

// batches groups challenges by hosted zone, then by record name, keeping
// the order in which zones and names first appear.
func (a *Authenticator) batches(challenges []authenticator.DomainChallenge, accountKey crypto.Signer) ([]*changeBatch, error) {
	var batches []*changeBatch
	byZone := make(map[string]*changeBatch)
	byName := make(map[string]*txtRecord)

	for _, dc := range challenges {
		zoneID, ok := a.ZoneID(dc.Domain)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrZoneNotFound, dc.Domain)
		}
		value, err := acme.DNS01Value(accountKey, dc.Challenge.Token)
		if err != nil {
			return nil, fmt.Errorf("dns-01 value for %s: %w", dc.Domain, err)
		}

		batch, ok := byZone[zoneID]
		if !ok {
			batch = &changeBatch{zoneID: zoneID}
			byZone[zoneID] = batch
			batches = append(batches, batch)
		}

		name := recordName(dc.Domain)
		record, ok := byName[zoneID+"/"+name]
		if !ok {
			record = &txtRecord{name: name}
			byName[zoneID+"/"+name] = record
			batch.records = append(batch.records, record)
		}
		record.values = append(record.values, `"`+value+`"`)
	}

	return batches, nil
}

func (a *Authenticator) submit(ctx context.Context, action types.ChangeAction, batch *changeBatch) (string, error) {
	changes := make([]types.Change, 0, len(batch.records))
	for _, record := range batch.records {
		values := make([]types.ResourceRecord, 0, len(record.values))
		for _, v := range record.values {
			values = append(values, types.ResourceRecord{Value: aws.String(v)})
		}
		changes = append(changes, types.Change{
			Action: action,
			ResourceRecordSet: &types.ResourceRecordSet{
				Name:            aws.String(record.name),
				Type:            types.RRTypeTxt,
				TTL:             aws.Int64(a.ttl),
				ResourceRecords: values,
			},
		})
	}

	start := time.Now()
	out, err := a.api.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(batch.zoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: changes,
			Comment: aws.String(fmt.Sprintf("acmekit certificate validation %s", action)),
		},
	})
	metrics.ObserveAWSCall("route53", "ChangeResourceRecordSets", start)
	if err != nil {
		return "", classifyRoute53Error(err)
	}

	if out.ChangeInfo == nil {
		return "", nil
	}
	return aws.ToString(out.ChangeInfo.Id), nil
}

// wait polls the change status until it is in sync or the attempts run out.
func (a *Authenticator) wait(ctx context.Context, changeID string) error {
	if changeID == "" {
		return nil
	}

	var status types.ChangeStatus
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		out, err := a.api.GetChange(ctx, &route53.GetChangeInput{Id: aws.String(changeID)})
		metrics.ObserveAWSCall("route53", "GetChange", start)
		if err != nil {
			return fmt.Errorf("get change %s: %w", changeID, classifyRoute53Error(err))
		}
		if out.ChangeInfo != nil {
			status = out.ChangeInfo.Status
		}

		if status == types.ChangeStatusInsync {
			a.logger.DebugContext(ctx, "challenge records in sync",
				logger.ChangeID(changeID),
				logger.RetryCount(attempt-1),
			)
			return nil
		}
		if attempt >= a.attempts {
			break
		}
		a.clock.Sleep(a.interval)
	}

	return acme.Permanent(fmt.Errorf("%w: change %s is %s after %d checks", ErrPropagationTimeout, changeID, status, a.attempts))
}
