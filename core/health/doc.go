// Package health runs dependency readiness probes.
//
// Probes follow the func(context.Context) error signature used by the
// storage integrations:
//
//	err := health.Readiness(ctx, logger,
//		health.Check{Name: "storage", Probe: redis.Healthcheck(client)},
//		health.Check{Name: "account", Probe: accountExists},
//	)
//	if errors.Is(err, health.ErrNotReady) {
//		os.Exit(1)
//	}
package health
