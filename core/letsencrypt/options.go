package letsencrypt

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmhodges/clock"
)

// ManagerOption configures a Manager during initialization.
type ManagerOption func(*Manager)

// WithClock sets the clock used for renewal selection and retry backoff.
func WithClock(clk clock.Clock) ManagerOption {
	return func(m *Manager) {
		m.clock = clk
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithRetryConfig sets how many times an order is attempted on transient
// failures and the initial backoff between attempts.
func WithRetryConfig(maxRetries int, backoff time.Duration) ManagerOption {
	return func(m *Manager) {
		m.maxRetries = maxRetries
		m.retryBackoff = backoff
	}
}

// WithRunIDGenerator overrides how batch run IDs are generated.
func WithRunIDGenerator(fn func() string) ManagerOption {
	return func(m *Manager) {
		m.newRunID = fn
	}
}

func defaultRunID() string {
	return uuid.NewString()
}
