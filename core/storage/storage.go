package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jmhodges/clock"

	"github.com/dmitrymomot/acmekit/core/acme"
	"github.com/dmitrymomot/acmekit/core/certificate"
	"github.com/dmitrymomot/acmekit/core/logger"
)

// Observer mirrors certificate writes into a secondary store.
// Pointer implementations are deduplicated by identity in Subscribe.
type Observer interface {
	SaveCertificate(ctx context.Context, cert *certificate.Certificate) error
	RemoveCertificate(ctx context.Context, cert *certificate.Certificate) error
}

// Record is the JSON document stored under configs/{name}.
type Record struct {
	Domains  []string  `json:"domains"`
	IssuedAt time.Time `json:"issued_at,omitzero"`
}

// Info describes a stored certificate.
type Info struct {
	Name         string
	LastModified time.Time
}

// Storage builds certificate and account records on top of a Backend and
// notifies observers after every certificate write.
type Storage struct {
	backend Backend
	clock   clock.Clock
	logger  *slog.Logger

	mu        sync.RWMutex
	observers []Observer
}

// Option configures Storage.
type Option func(*Storage)

// WithClock sets the clock used to stamp issued_at.
func WithClock(clk clock.Clock) Option {
	return func(s *Storage) {
		s.clock = clk
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Storage) {
		s.logger = l
	}
}

// New wraps backend.
func New(backend Backend, opts ...Option) *Storage {
	s := &Storage{
		backend: backend,
		clock:   clock.New(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the underlying backend.
func (s *Storage) Backend() Backend {
	return s.backend
}

// GetAccount returns the stored account or nil when none exists.
func (s *Storage) GetAccount(ctx context.Context) (*acme.Account, error) {
	data, err := s.backend.Get(ctx, AccountKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	var account acme.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return &account, nil
}

// SetAccount overwrites the stored account.
func (s *Storage) SetAccount(ctx context.Context, account *acme.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	if err := s.backend.Put(ctx, AccountKey, data); err != nil {
		return fmt.Errorf("put account: %w", err)
	}
	return nil
}

// GetCertificate returns the certificate stored for exactly this ordered
// domain list. Domains are normalized the way certificate.New does. It
// returns nil when nothing is stored under the canonical name or when the
// stored domain list differs in content or order.
func (s *Storage) GetCertificate(ctx context.Context, domains []string) (*certificate.Certificate, error) {
	domains = certificate.NormalizeDomains(domains)
	if len(domains) == 0 {
		return nil, certificate.ErrNoDomains
	}

	cert, err := s.LoadCertificate(ctx, domains[0])
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, nil
	case errors.Is(err, ErrIncomplete):
		s.logger.WarnContext(ctx, "certificate config without private key", logger.Certificate(domains[0]))
		return nil, nil
	case err != nil:
		return nil, err
	}

	if !slices.Equal(cert.Domains(), domains) {
		s.logger.DebugContext(ctx, "stored certificate covers different domains",
			logger.Certificate(domains[0]),
			logger.Domains(cert.Domains()),
			logger.Error(ErrDomainsMismatch),
		)
		return nil, nil
	}
	return cert, nil
}

// LoadCertificate returns the certificate stored under name regardless of its
// domain list. It returns ErrNotFound when there is no config record and
// ErrIncomplete when the private key is missing. A missing full chain yields
// an unready certificate.
func (s *Storage) LoadCertificate(ctx context.Context, name string) (*certificate.Certificate, error) {
	record, err := s.Record(ctx, name)
	if err != nil {
		return nil, err
	}

	key, err := s.backend.Get(ctx, PrefixKeys+name)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrIncomplete, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get private key %s: %w", name, err)
	}

	cert, err := certificate.New(record.Domains, key)
	if err != nil {
		return nil, fmt.Errorf("build certificate %s: %w", name, err)
	}

	fullchain, err := s.backend.Get(ctx, PrefixCertificates+name)
	switch {
	case errors.Is(err, ErrNotFound):
		return cert, nil
	case err != nil:
		return nil, fmt.Errorf("get fullchain %s: %w", name, err)
	}

	if err := cert.SetFullchain(fullchain); err != nil {
		return nil, fmt.Errorf("parse fullchain %s: %w", name, err)
	}
	return cert, nil
}

// Record returns the config record stored under name or ErrNotFound.
func (s *Storage) Record(ctx context.Context, name string) (*Record, error) {
	data, err := s.backend.Get(ctx, PrefixConfigs+name)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get config %s: %w", name, err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", name, err)
	}
	return &record, nil
}

// SaveCertificate writes the config, key and full chain of an issued
// certificate, in that order, then notifies observers. An observer failure is
// returned wrapped in ErrSyncFailed; the primary write is kept.
func (s *Storage) SaveCertificate(ctx context.Context, cert *certificate.Certificate) error {
	fullchain, err := cert.Fullchain()
	if err != nil {
		return err
	}

	name := cert.Name()
	record, err := json.Marshal(Record{Domains: cert.Domains(), IssuedAt: s.clock.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode config %s: %w", name, err)
	}

	if err := s.backend.Put(ctx, PrefixConfigs+name, record); err != nil {
		return fmt.Errorf("put config %s: %w", name, err)
	}
	if err := s.backend.Put(ctx, PrefixKeys+name, cert.PrivateKey()); err != nil {
		return fmt.Errorf("put private key %s: %w", name, err)
	}
	if err := s.backend.Put(ctx, PrefixCertificates+name, fullchain); err != nil {
		return fmt.Errorf("put fullchain %s: %w", name, err)
	}

	s.logger.DebugContext(ctx, "certificate saved", logger.Certificate(name), logger.Domains(cert.Domains()))

	return s.notify(ctx, func(o Observer) error {
		return o.SaveCertificate(ctx, cert)
	})
}

// RemoveCertificate deletes the full chain, key and config of a certificate,
// in that order, then notifies observers.
func (s *Storage) RemoveCertificate(ctx context.Context, cert *certificate.Certificate) error {
	name := cert.Name()
	for _, key := range []string{PrefixCertificates + name, PrefixKeys + name, PrefixConfigs + name} {
		if err := s.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}

	s.logger.DebugContext(ctx, "certificate removed", logger.Certificate(name))

	return s.notify(ctx, func(o Observer) error {
		return o.RemoveCertificate(ctx, cert)
	})
}

// ListCertificates lazily enumerates stored certificates with the last write
// time of their full chain.
func (s *Storage) ListCertificates(ctx context.Context) iter.Seq2[Info, error] {
	return func(yield func(Info, error) bool) {
		for obj, err := range s.backend.List(ctx, PrefixCertificates) {
			if err != nil {
				yield(Info{}, fmt.Errorf("list certificates: %w", err))
				return
			}
			name := strings.TrimPrefix(obj.Key, PrefixCertificates)
			if name == "" {
				continue
			}
			if !yield(Info{Name: name, LastModified: obj.LastModified}, nil) {
				return
			}
		}
	}
}

// Subscribe registers an observer. Subscribing the same observer twice has no
// effect when its type is comparable; values of non-comparable types (structs
// holding maps or slices) cannot be told apart and are always added. A nil
// observer is ignored.
func (s *Storage) Subscribe(o Observer) {
	if o == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if reflect.TypeOf(o).Comparable() && slices.Contains(s.observers, o) {
		return
	}
	s.observers = append(s.observers, o)
}

// Observers returns the registered observers in subscription order.
func (s *Storage) Observers() []Observer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.observers)
}

// Publish stores a domain validation value under path. A leading slash is ignored.
func (s *Storage) Publish(ctx context.Context, path string, value []byte) error {
	key, err := validationKey(path)
	if err != nil {
		return err
	}
	if err := s.backend.Put(ctx, key, value); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	s.logger.DebugContext(ctx, "validation value published", logger.Key(key))
	return nil
}

// Unpublish removes a domain validation value.
func (s *Storage) Unpublish(ctx context.Context, path string) error {
	key, err := validationKey(path)
	if err != nil {
		return err
	}
	if err := s.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("unpublish %s: %w", key, err)
	}
	return nil
}

// notify calls fn for every observer in subscription order and stops at the
// first failure.
func (s *Storage) notify(ctx context.Context, fn func(Observer) error) error {
	for _, o := range s.Observers() {
		if err := fn(o); err != nil {
			s.logger.ErrorContext(ctx, "observer failed", logger.Error(err))
			return fmt.Errorf("%w: %w", ErrSyncFailed, err)
		}
	}
	return nil
}

func validationKey(path string) (string, error) {
	key := strings.TrimLeft(path, "/")
	if key == "" {
		return "", ErrInvalidPath
	}
	return key, nil
}
