package metrics_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/acmekit/pkg/metrics"
)

func TestObserveOperation(t *testing.T) {
	success := metrics.OperationsTotal.WithLabelValues("metrics-test", metrics.ResultSuccess)
	failure := metrics.OperationsTotal.WithLabelValues("metrics-test", metrics.ResultFailure)
	beforeSuccess := testutil.ToFloat64(success)
	beforeFailure := testutil.ToFloat64(failure)

	metrics.ObserveOperation("metrics-test", time.Now(), nil)
	metrics.ObserveOperation("metrics-test", time.Now(), errors.New("boom"))
	metrics.ObserveOperation("metrics-test", time.Now(), errors.New("boom"))

	assert.Equal(t, beforeSuccess+1, testutil.ToFloat64(success))
	assert.Equal(t, beforeFailure+2, testutil.ToFloat64(failure))
}

func TestObserveAWSCall(t *testing.T) {
	metrics.ObserveAWSCall("route53", "metrics-test", time.Now())
	assert.GreaterOrEqual(t, testutil.CollectAndCount(metrics.AWSAPICallDuration), 1)
}

func TestPush(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		body string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		path = r.URL.Path
		body = string(data)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	metrics.LastRunTimestamp.WithLabelValues("renew").SetToCurrentTime()

	err := metrics.Push(context.Background(), srv.URL, "acmekit", map[string]string{"instance": "test"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/metrics/job/acmekit/instance/test", path)
	assert.NotEmpty(t, body)
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := metrics.Push(context.Background(), srv.URL, "acmekit", nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "push metrics"))
}
