// Package metrics provides Prometheus metric definitions for certificate
// lifecycle runs and a push gateway export for short-lived processes.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "acmekit"

// Operation results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	// Registry holds every collector of this package.
	Registry = prometheus.NewRegistry()

	// OperationsTotal counts certificate operations by kind and result.
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of certificate operations by operation and result.",
		},
		[]string{"operation", "result"},
	)

	// OperationDuration tracks how long a single certificate operation takes,
	// including challenge propagation.
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of certificate operations in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"operation"},
	)

	// AWSAPICallDuration tracks the duration of AWS API calls.
	AWSAPICallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aws_api_call_duration_seconds",
			Help:      "Duration of AWS API calls in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	// LastRunTimestamp records the completion time of the last batch run.
	LastRunTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed batch run by action.",
		},
		[]string{"action"},
	)
)

func init() {
	Registry.MustRegister(
		OperationsTotal,
		OperationDuration,
		AWSAPICallDuration,
		LastRunTimestamp,
	)
}

// ObserveOperation records the outcome and duration of one certificate operation.
func ObserveOperation(operation string, start time.Time, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	OperationsTotal.WithLabelValues(operation, result).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveAWSCall records the latency of an AWS API call started at start.
func ObserveAWSCall(service, operation string, start time.Time) {
	AWSAPICallDuration.WithLabelValues(service, operation).Observe(time.Since(start).Seconds())
}

// Push sends the registry to a Prometheus push gateway under job, replacing
// previously pushed metrics of the same grouping.
func Push(ctx context.Context, gatewayURL, job string, grouping map[string]string) error {
	pusher := push.New(gatewayURL, job).Gatherer(Registry)
	for name, value := range grouping {
		pusher = pusher.Grouping(name, value)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
