package health_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/acmekit/core/health"
)

func TestReadiness(t *testing.T) {
	t.Parallel()

	errDown := errors.New("connection refused")
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errDown }

	tests := []struct {
		name     string
		checks   []health.Check
		wantErr  bool
		wantLogs []string
	}{
		{name: "no checks"},
		{
			name:     "all pass",
			checks:   []health.Check{{Name: "storage", Probe: ok}, {Name: "account", Probe: ok}},
			wantLogs: []string{"component=storage", "component=account"},
		},
		{
			name:     "failure does not stop later checks",
			checks:   []health.Check{{Name: "storage", Probe: down}, {Name: "account", Probe: ok}},
			wantErr:  true,
			wantLogs: []string{"readiness check failed", "component=account"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			log := slog.New(slog.NewTextHandler(&buf, nil))

			err := health.Readiness(context.Background(), log, tt.checks...)
			if tt.wantErr {
				require.ErrorIs(t, err, health.ErrNotReady)
				assert.ErrorIs(t, err, errDown)
				assert.ErrorContains(t, err, "storage")
			} else {
				assert.NoError(t, err)
			}
			for _, want := range tt.wantLogs {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}
