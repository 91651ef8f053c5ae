package webhook

import (
	"context"
	"log/slog"
	"maps"

	"github.com/dmitrymomot/acmekit/core/logger"
)

// BatchPayload merges body with the outcome of a batch run. The result keys
// override keys of the same name in body; nil lists encode as [].
func BatchPayload(body map[string]any, succeeded, failed []string) map[string]any {
	out := make(map[string]any, len(body)+2)
	maps.Copy(out, body)
	out["success_domains"] = nonNil(succeeded)
	out["failure_domains"] = nonNil(failed)
	return out
}

// Notify delivers a batch payload and logs the outcome. Delivery failures
// are reported to the caller for inspection but must not fail the run.
func (s *Sender) Notify(ctx context.Context, endpoint string, body map[string]any, succeeded, failed []string, opts ...SendOption) error {
	err := s.Send(ctx, endpoint, BatchPayload(body, succeeded, failed), opts...)
	if err != nil {
		s.logger.ErrorContext(ctx, "webhook notification failed",
			slog.String("url", endpoint),
			logger.Error(err),
		)
		return err
	}
	s.logger.InfoContext(ctx, "webhook notification sent",
		slog.String("url", endpoint),
		logger.Group("batch",
			logger.Count("succeeded", len(succeeded)),
			logger.Count("failed", len(failed)),
		),
	)
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
