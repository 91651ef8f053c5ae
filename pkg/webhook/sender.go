package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/acmekit/core/logger"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	defaultUserAgent  = "acmekit-webhook/1.0"

	// MaxPayloadSize caps the encoded request body.
	MaxPayloadSize = 1 << 20

	maxErrorBody = 1 << 10
)

// DeliveryResult describes one delivery attempt.
type DeliveryResult struct {
	ID         string
	Attempt    int
	StatusCode int
	Duration   time.Duration
	Success    bool
	Error      error
}

// Sender posts JSON payloads to webhook endpoints.
type Sender struct {
	client *http.Client
	logger *slog.Logger
}

// SenderOption configures a Sender.
type SenderOption func(*Sender)

func WithHTTPClient(c *http.Client) SenderOption {
	return func(s *Sender) {
		s.client = c
	}
}

func WithLogger(l *slog.Logger) SenderOption {
	return func(s *Sender) {
		s.logger = l
	}
}

// NewSender creates a Sender with a pooled HTTP client.
func NewSender(opts ...SenderOption) *Sender {
	s := &Sender{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendOption configures a single Send call.
type SendOption func(*sendConfig)

type sendConfig struct {
	timeout    time.Duration
	maxRetries int
	backoff    BackoffStrategy
	secret     string
	headers    map[string]string
	onDelivery func(DeliveryResult)
}

// WithTimeout bounds every attempt.
func WithTimeout(d time.Duration) SendOption {
	return func(c *sendConfig) {
		c.timeout = d
	}
}

// WithMaxRetries sets how many times a temporary failure is retried.
func WithMaxRetries(n int) SendOption {
	return func(c *sendConfig) {
		c.maxRetries = n
	}
}

func WithBackoff(b BackoffStrategy) SendOption {
	return func(c *sendConfig) {
		c.backoff = b
	}
}

// WithSignature signs every request with secret, see SignPayload.
func WithSignature(secret string) SendOption {
	return func(c *sendConfig) {
		c.secret = secret
	}
}

func WithHeader(key, value string) SendOption {
	return func(c *sendConfig) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	}
}

// WithOnDelivery registers a callback invoked after every attempt.
func WithOnDelivery(fn func(DeliveryResult)) SendOption {
	return func(c *sendConfig) {
		c.onDelivery = fn
	}
}

// Send posts payload as JSON to endpoint. Payloads of type []byte or
// json.RawMessage are sent as is. Network errors, 5xx, 408 and 429 responses
// are retried; other non-2xx responses fail immediately.
func (s *Sender) Send(ctx context.Context, endpoint string, payload any, opts ...SendOption) error {
	cfg := sendConfig{
		timeout:    defaultTimeout,
		maxRetries: defaultMaxRetries,
		backoff:    DefaultBackoff,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxRetries < 0 || cfg.timeout <= 0 || cfg.backoff == nil {
		return ErrInvalidConfiguration
	}

	if err := validateURL(endpoint); err != nil {
		return err
	}
	body, err := encodePayload(payload)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	log := s.logger.With(slog.String("webhook_id", id), slog.String("url", endpoint))

	var lastErr error
	attempts := cfg.maxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		status, err := s.deliver(ctx, endpoint, id, body, cfg)

		if cfg.onDelivery != nil {
			cfg.onDelivery(DeliveryResult{
				ID:         id,
				Attempt:    attempt,
				StatusCode: status,
				Duration:   time.Since(start),
				Success:    err == nil,
				Error:      err,
			})
		}
		if err == nil {
			log.DebugContext(ctx, "webhook delivered", slog.Int("status", status), logger.RetryCount(attempt-1))
			return nil
		}
		lastErr = err

		if errors.Is(err, ErrPermanentFailure) || attempt == attempts {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			lastErr = errors.Join(ctxErr, err)
			break
		}

		wait := cfg.backoff.NextInterval(attempt)
		log.WarnContext(ctx, "webhook delivery failed, retrying",
			logger.RetryCount(attempt),
			logger.Duration(wait),
			logger.Error(err),
		)
		if err := sleep(ctx, wait); err != nil {
			lastErr = errors.Join(err, lastErr)
			break
		}
	}

	return fmt.Errorf("%w: %w", ErrWebhookDeliveryFailed, lastErr)
}

func (s *Sender) deliver(ctx context.Context, endpoint, id string, body []byte, cfg sendConfig) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set(HeaderID, id)
	for k, v := range cfg.headers {
		req.Header.Set(k, v)
	}
	if cfg.secret != "" {
		sig, err := SignPayload(cfg.secret, body)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrPermanentFailure, err)
		}
		for k, v := range sig.Headers() {
			req.Header.Set(k, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTemporaryFailure, err)
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp.StatusCode, nil
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return resp.StatusCode, fmt.Errorf("%w: status %d: %s", ErrTemporaryFailure, resp.StatusCode, bytes.TrimSpace(snippet))
	default:
		return resp.StatusCode, fmt.Errorf("%w: status %d: %s", ErrPermanentFailure, resp.StatusCode, bytes.TrimSpace(snippet))
	}
}

func validateURL(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, endpoint)
	}
	return nil
}

func encodePayload(payload any) ([]byte, error) {
	var body []byte
	switch p := payload.(type) {
	case nil:
		return nil, fmt.Errorf("%w: empty", ErrInvalidPayload)
	case []byte:
		body = p
	case json.RawMessage:
		body = p
	default:
		var err error
		if body, err = json.Marshal(p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPayload)
	}
	if len(body) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit", ErrInvalidPayload, len(body))
	}
	return body, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
