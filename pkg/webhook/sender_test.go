package webhook_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/acmekit/pkg/webhook"
)

type recorder struct {
	mu       sync.Mutex
	statuses []int
	calls    int
	bodies   [][]byte
	headers  []http.Header
}

func (r *recorder) handler(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)

	r.mu.Lock()
	i := r.calls
	r.calls++
	r.bodies = append(r.bodies, body)
	r.headers = append(r.headers, req.Header.Clone())
	status := http.StatusOK
	if i < len(r.statuses) {
		status = r.statuses[i]
	} else if len(r.statuses) > 0 {
		status = r.statuses[len(r.statuses)-1]
	}
	r.mu.Unlock()

	w.WriteHeader(status)
	_, _ = w.Write([]byte("response body"))
}

func (r *recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newServer(t *testing.T, statuses ...int) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{statuses: statuses}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	t.Cleanup(srv.Close)
	return srv, rec
}

var fast = webhook.WithBackoff(webhook.ConstantBackoff(time.Millisecond))

func TestSendDelivers(t *testing.T) {
	t.Parallel()
	srv, rec := newServer(t)

	err := webhook.NewSender().Send(context.Background(), srv.URL, map[string]any{"event": "issued"},
		webhook.WithSignature("secret"),
		webhook.WithHeader("X-Env", "test"),
	)
	require.NoError(t, err)

	require.Equal(t, 1, rec.Calls())
	assert.JSONEq(t, `{"event":"issued"}`, string(rec.bodies[0]))

	h := rec.headers[0]
	assert.Equal(t, "application/json", h.Get("Content-Type"))
	assert.Equal(t, "test", h.Get("X-Env"))
	assert.NotEmpty(t, h.Get(webhook.HeaderID))

	sig, err := webhook.ExtractSignatureHeaders(map[string]string{
		webhook.HeaderSignature: h.Get(webhook.HeaderSignature),
		webhook.HeaderTimestamp: h.Get(webhook.HeaderTimestamp),
	})
	require.NoError(t, err)
	assert.NoError(t, webhook.VerifySignature("secret", rec.bodies[0], sig, time.Minute))
}

func TestSendRawPayload(t *testing.T) {
	t.Parallel()
	srv, rec := newServer(t)

	raw := json.RawMessage(`{"a":1}`)
	require.NoError(t, webhook.NewSender().Send(context.Background(), srv.URL, raw))
	assert.Equal(t, `{"a":1}`, string(rec.bodies[0]))
}

func TestSendRetries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statuses   []int
		maxRetries int
		wantCalls  int
		wantErr    []error
	}{
		{
			name:       "recovers after server errors",
			statuses:   []int{http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusOK},
			maxRetries: 3,
			wantCalls:  3,
		},
		{
			name:       "rate limited then accepted",
			statuses:   []int{http.StatusTooManyRequests, http.StatusAccepted},
			maxRetries: 1,
			wantCalls:  2,
		},
		{
			name:       "client error is not retried",
			statuses:   []int{http.StatusBadRequest},
			maxRetries: 3,
			wantCalls:  1,
			wantErr:    []error{webhook.ErrWebhookDeliveryFailed, webhook.ErrPermanentFailure},
		},
		{
			name:       "retries exhausted",
			statuses:   []int{http.StatusInternalServerError},
			maxRetries: 2,
			wantCalls:  3,
			wantErr:    []error{webhook.ErrWebhookDeliveryFailed, webhook.ErrTemporaryFailure},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv, rec := newServer(t, tt.statuses...)

			var results []webhook.DeliveryResult
			err := webhook.NewSender().Send(context.Background(), srv.URL, map[string]string{"k": "v"},
				fast,
				webhook.WithMaxRetries(tt.maxRetries),
				webhook.WithOnDelivery(func(r webhook.DeliveryResult) { results = append(results, r) }),
			)

			if len(tt.wantErr) == 0 {
				require.NoError(t, err)
			}
			for _, want := range tt.wantErr {
				assert.ErrorIs(t, err, want)
			}
			assert.Equal(t, tt.wantCalls, rec.Calls())

			require.Len(t, results, tt.wantCalls)
			for i, r := range results {
				assert.Equal(t, i+1, r.Attempt)
				assert.Equal(t, tt.statuses[min(i, len(tt.statuses)-1)], r.StatusCode)
				assert.Equal(t, results[0].ID, r.ID)
			}
			assert.Equal(t, len(tt.wantErr) == 0, results[len(results)-1].Success)
		})
	}
}

func TestSendErrorIncludesResponseBody(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, http.StatusForbidden)

	err := webhook.NewSender().Send(context.Background(), srv.URL, map[string]string{"k": "v"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Contains(t, err.Error(), "response body")
}

func TestSendValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		payload any
		opts    []webhook.SendOption
		wantErr error
	}{
		{name: "empty url", url: "", payload: map[string]int{}, wantErr: webhook.ErrInvalidURL},
		{name: "unsupported scheme", url: "ftp://example.com", payload: map[string]int{}, wantErr: webhook.ErrInvalidURL},
		{name: "missing host", url: "https://", payload: map[string]int{}, wantErr: webhook.ErrInvalidURL},
		{name: "nil payload", url: "https://example.com", payload: nil, wantErr: webhook.ErrInvalidPayload},
		{name: "empty bytes", url: "https://example.com", payload: []byte{}, wantErr: webhook.ErrInvalidPayload},
		{name: "oversized", url: "https://example.com", payload: []byte(strings.Repeat("a", webhook.MaxPayloadSize+1)), wantErr: webhook.ErrInvalidPayload},
		{name: "unencodable", url: "https://example.com", payload: map[string]any{"ch": make(chan int)}, wantErr: webhook.ErrInvalidPayload},
		{name: "negative retries", url: "https://example.com", payload: []byte("{}"), opts: []webhook.SendOption{webhook.WithMaxRetries(-1)}, wantErr: webhook.ErrInvalidConfiguration},
		{name: "zero timeout", url: "https://example.com", payload: []byte("{}"), opts: []webhook.SendOption{webhook.WithTimeout(0)}, wantErr: webhook.ErrInvalidConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := webhook.NewSender().Send(context.Background(), tt.url, tt.payload, tt.opts...)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSendCanceledDuringBackoff(t *testing.T) {
	t.Parallel()
	srv, rec := newServer(t, http.StatusServiceUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	err := webhook.NewSender().Send(ctx, srv.URL, []byte("{}"),
		webhook.WithBackoff(webhook.ConstantBackoff(time.Hour)),
		webhook.WithOnDelivery(func(webhook.DeliveryResult) { cancel() }),
	)

	assert.ErrorIs(t, err, webhook.ErrWebhookDeliveryFailed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, rec.Calls())
}

func TestNotify(t *testing.T) {
	t.Parallel()
	srv, rec := newServer(t)

	err := webhook.NewSender().Notify(context.Background(), srv.URL,
		map[string]any{"env": "prod", "success_domains": "overridden"},
		[]string{"a.com"}, nil,
	)
	require.NoError(t, err)
	assert.JSONEq(t, `{"env":"prod","success_domains":["a.com"],"failure_domains":[]}`, string(rec.bodies[0]))
}

func TestNotifyReportsFailure(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, http.StatusNotFound)

	err := webhook.NewSender().Notify(context.Background(), srv.URL, nil, nil, []string{"b.com"})
	assert.ErrorIs(t, err, webhook.ErrPermanentFailure)
}

func TestBatchPayloadKeepsBody(t *testing.T) {
	t.Parallel()

	body := map[string]any{"team": "infra"}
	out := webhook.BatchPayload(body, nil, []string{"x.com"})

	assert.Equal(t, map[string]any{
		"team":            "infra",
		"success_domains": []string{},
		"failure_domains": []string{"x.com"},
	}, out)
	assert.Len(t, body, 1)
}
