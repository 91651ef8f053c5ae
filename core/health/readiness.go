package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/acmekit/core/logger"
)

// ErrNotReady is returned when at least one probe failed.
var ErrNotReady = errors.New("dependencies not ready")

// Check is a named dependency probe.
type Check struct {
	Name  string
	Probe func(context.Context) error
}

// Readiness runs every probe, including those after a failure, and logs each
// outcome. The error wraps ErrNotReady and every probe failure.
func Readiness(ctx context.Context, log *slog.Logger, checks ...Check) error {
	var errs []error
	for _, c := range checks {
		start := time.Now()
		if err := c.Probe(ctx); err != nil {
			log.ErrorContext(ctx, "readiness check failed",
				logger.Component(c.Name),
				logger.Elapsed(start),
				logger.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
			continue
		}
		log.InfoContext(ctx, "readiness check passed", logger.Component(c.Name), logger.Elapsed(start))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrNotReady, errors.Join(errs...))
	}
	return nil
}
