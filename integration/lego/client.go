package lego

import (
	"context"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	legoacme "github.com/go-acme/lego/v4/acme"
	"github.com/go-acme/lego/v4/acme/api"
	"github.com/jmhodges/clock"

	"github.com/dmitrymomot/acmekit/core/acme"
	"github.com/dmitrymomot/acmekit/core/logger"
)

// Compile-time check that Client implements acme.Client interface
var _ acme.Client = (*Client)(nil)

const (
	defaultUserAgent    = "acmekit"
	defaultPollInterval = 2 * time.Second
	defaultPollTimeout  = 3 * time.Minute

	problemAlreadyRevoked = "urn:ietf:params:acme:error:alreadyRevoked"
	problemRateLimited    = "urn:ietf:params:acme:error:rateLimited"
	problemServerInternal = "urn:ietf:params:acme:error:serverInternal"
)

// Client speaks ACME through lego's protocol core. Calls into lego are not
// cancellable; the context is checked between requests and polls.
type Client struct {
	core *api.Core

	pollInterval time.Duration
	pollTimeout  time.Duration
	clock        clock.Clock
	logger       *slog.Logger
}

// Option configures the client and its dialer.
type Option func(*options)

type options struct {
	httpClient   *http.Client
	userAgent    string
	pollInterval time.Duration
	pollTimeout  time.Duration
	clock        clock.Clock
	logger       *slog.Logger
}

// WithHTTPClient sets the HTTP client used to reach the CA.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithUserAgent sets the User-Agent prefix sent to the CA.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithPolling sets how often authorizations and orders are polled and for
// how long in total.
func WithPolling(interval, timeout time.Duration) Option {
	return func(o *options) {
		o.pollInterval = interval
		o.pollTimeout = timeout
	}
}

func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// NewDialer returns an acme.Dialer creating lego-backed clients.
func NewDialer(opts ...Option) acme.Dialer {
	o := &options{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		userAgent:    defaultUserAgent,
		pollInterval: defaultPollInterval,
		pollTimeout:  defaultPollTimeout,
		clock:        clock.New(),
	}
	for _, opt := range opts {
		opt(o)
	}

	return func(ctx context.Context, directoryURL string, account *acme.Account) (acme.Client, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key, err := account.PrivateKey()
		if err != nil {
			return nil, err
		}

		var kid string
		if account.Registration != nil {
			kid = account.Registration.URI
		}

		core, err := api.New(o.httpClient, o.userAgent, directoryURL, kid, key)
		if err != nil {
			return nil, fmt.Errorf("connect to acme directory %s: %w", directoryURL, err)
		}

		log := o.logger
		if log == nil {
			log = slog.Default()
		}

		return &Client{
			core:         core,
			pollInterval: o.pollInterval,
			pollTimeout:  o.pollTimeout,
			clock:        o.clock,
			logger:       log,
		}, nil
	}
}

// Dial is the dialer with default options.
var Dial = NewDialer()

// Register creates the account, agreeing to the CA terms of service.
func (c *Client) Register(ctx context.Context, email string) (*acme.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	account, err := c.core.Accounts.New(legoacme.Account{
		Contact:              []string{"mailto:" + email},
		TermsOfServiceAgreed: true,
	})
	if err != nil {
		return nil, classify(fmt.Errorf("register account: %w", err))
	}

	body, err := json.Marshal(account.Account)
	if err != nil {
		return nil, fmt.Errorf("encode registration: %w", err)
	}
	return &acme.Registration{URI: account.Location, Body: body}, nil
}

// NewOrder orders a certificate for the names of csr and fetches every
// authorization of the order.
func (c *Client) NewOrder(ctx context.Context, csr []byte) (*acme.Order, error) {
	req, err := x509.ParseCertificateRequest(csr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCSR, err)
	}
	domains := slices.Clone(req.DNSNames)
	if cn := req.Subject.CommonName; cn != "" && !slices.Contains(domains, cn) {
		domains = append([]string{cn}, domains...)
	}
	if len(domains) == 0 {
		return nil, fmt.Errorf("%w: no names", ErrInvalidCSR)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ext, err := c.core.Orders.New(domains)
	if err != nil {
		return nil, classify(fmt.Errorf("new order: %w", err))
	}

	order := &acme.Order{
		URL:            ext.Location,
		FinalizeURL:    ext.Finalize,
		CertificateURL: ext.Certificate,
		Status:         ext.Status,
		CSR:            csr,
		Identifiers:    domains,
	}
	for _, authzURL := range ext.Authorizations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		authz, err := c.core.Authorizations.Get(authzURL)
		if err != nil {
			return nil, classify(fmt.Errorf("get authorization %s: %w", authzURL, err))
		}
		order.Authorizations = append(order.Authorizations, convertAuthorization(authzURL, authz))
	}

	c.logger.DebugContext(ctx, "acme order created",
		slog.String("order", order.URL),
		logger.Domains(domains),
	)
	return order, nil
}

// AnswerChallenge asks the CA to validate ch.
func (c *Client) AnswerChallenge(ctx context.Context, ch acme.Challenge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.core.Challenges.New(ch.URL); err != nil {
		return classify(fmt.Errorf("answer %s challenge: %w", ch.Type, err))
	}
	return nil
}

// PollAndFinalize waits for every authorization to be valid, submits the
// CSR and waits for the certificate.
func (c *Client) PollAndFinalize(ctx context.Context, order *acme.Order) ([]byte, error) {
	deadline := c.clock.Now().Add(c.pollTimeout)

	for _, authz := range order.Authorizations {
		if authz.Status == acme.StatusValid {
			continue
		}
		if err := c.waitAuthorization(ctx, authz, deadline); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ext, err := c.core.Orders.UpdateForCSR(order.FinalizeURL, order.CSR)
	if err != nil {
		return nil, classify(fmt.Errorf("finalize order: %w", err))
	}

	certURL := ext.Certificate
	for ext.Status != legoacme.StatusValid || certURL == "" {
		if ext.Status == legoacme.StatusInvalid {
			return nil, fmt.Errorf("%w: %w", ErrOrderInvalid, problem(ext.Error))
		}
		if err := c.pause(ctx, deadline); err != nil {
			return nil, err
		}
		ext, err = c.core.Orders.Get(order.URL)
		if err != nil {
			return nil, classify(fmt.Errorf("get order: %w", err))
		}
		certURL = ext.Certificate
	}

	fullchain, _, err := c.core.Certificates.Get(certURL, true)
	if err != nil {
		return nil, classify(fmt.Errorf("download certificate: %w", err))
	}
	return fullchain, nil
}

func (c *Client) waitAuthorization(ctx context.Context, authz acme.Authorization, deadline time.Time) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		current, err := c.core.Authorizations.Get(authz.URL)
		if err != nil {
			return classify(fmt.Errorf("get authorization for %s: %w", authz.Domain(), err))
		}

		switch current.Status {
		case legoacme.StatusValid:
			return nil
		case legoacme.StatusPending, legoacme.StatusProcessing:
		default:
			return fmt.Errorf("%w for %s: %s: %w", ErrAuthorizationInvalid, authz.Domain(), current.Status, challengeProblem(current))
		}

		if err := c.pause(ctx, deadline); err != nil {
			return err
		}
	}
}

// pause sleeps one poll interval unless that would pass the deadline.
func (c *Client) pause(ctx context.Context, deadline time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.clock.Now().Add(c.pollInterval).Before(deadline) {
		return ErrOrderNotReady
	}
	c.clock.Sleep(c.pollInterval)
	return nil
}

// Revoke revokes the leaf certificate of certPEM.
func (c *Client) Revoke(ctx context.Context, certPEM []byte, reason uint) error {
	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return ErrInvalidCertificate
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := c.core.Certificates.Revoke(legoacme.RevokeCertMessage{
		Certificate: base64.RawURLEncoding.EncodeToString(block.Bytes),
		Reason:      &reason,
	})

	var details *legoacme.ProblemDetails
	if errors.As(err, &details) && (details.Type == problemAlreadyRevoked || details.HTTPStatus == http.StatusConflict) {
		return fmt.Errorf("%w: %s", acme.ErrAlreadyRevoked, details.Detail)
	}
	if err != nil {
		return classify(fmt.Errorf("revoke certificate: %w", err))
	}
	return nil
}

func convertAuthorization(url string, authz legoacme.Authorization) acme.Authorization {
	out := acme.Authorization{
		URL:        url,
		Identifier: authz.Identifier.Value,
		Status:     authz.Status,
		Wildcard:   authz.Wildcard,
	}
	for _, ch := range authz.Challenges {
		out.Challenges = append(out.Challenges, acme.Challenge{
			Type:   acme.ChallengeType(ch.Type),
			URL:    ch.URL,
			Token:  ch.Token,
			Status: ch.Status,
		})
	}
	return out
}

func challengeProblem(authz legoacme.Authorization) error {
	for _, ch := range authz.Challenges {
		if ch.Error != nil {
			return ch.Error
		}
	}
	return errors.New("no problem reported")
}

func problem(details *legoacme.ProblemDetails) error {
	if details == nil {
		return errors.New("no problem reported")
	}
	return details
}

// classify marks CA answers that may pass on a later order as transient:
// rate limiting and server-side failures. Other problems stay final.
func classify(err error) error {
	var details *legoacme.ProblemDetails
	if !errors.As(err, &details) {
		return err
	}
	switch {
	case details.Type == problemRateLimited,
		details.Type == problemServerInternal,
		details.HTTPStatus == http.StatusTooManyRequests,
		details.HTTPStatus >= http.StatusInternalServerError:
		return acme.Transient(err)
	}
	return err
}
