package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/acmekit/core/letsencrypt"
	"github.com/dmitrymomot/acmekit/core/logger"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "acmekit",
		Short:         "Issue, renew and revoke ACME certificates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		issueCommand(),
		renewCommand(),
		revokeCommand(),
		runEventCommand(),
		checkCommand(),
	)
	return root
}

func issueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "issue DOMAIN [DOMAIN...]",
		Short: "Issue one certificate for the given domains; the first is the canonical name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvent(cmd, &letsencrypt.Event{Action: letsencrypt.ActionIssue, Domains: args})
		},
	}
}

func renewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "renew [NAME...]",
		Short: "Renew the named certificates, or every certificate due for renewal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvent(cmd, &letsencrypt.Event{Action: letsencrypt.ActionRenew, Domains: args})
		},
	}
}

func revokeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke NAME [NAME...]",
		Short: "Revoke stored certificates and remove them from storage",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvent(cmd, &letsencrypt.Event{Action: letsencrypt.ActionRevoke, Domains: args})
		},
	}
}

func runEventCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run-event [FILE]",
		Short: "Handle a JSON event read from FILE or stdin",
		Long: `Handle a JSON event:

  {"action": "issue" | "renew" | "revoke",
   "domain": "example.com", "domains": ["example.com", "www.example.com"],
   "webhook": {"url": "https://hooks.example.com", "body": {"env": "prod"}}}`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := readEvent(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return runEvent(cmd, ev)
		},
	}
}

func checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that storage is reachable and the ACME account is readable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return a.check(ctx)
			})
		},
	}
}

func readEvent(stdin io.Reader, args []string) (*letsencrypt.Event, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return nil, fmt.Errorf("read event: %w", err)
	}
	return letsencrypt.ParseEvent(data)
}

func runEvent(cmd *cobra.Command, ev *letsencrypt.Event) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		result, err := a.handle(ctx, ev)
		if err != nil {
			a.logger.ErrorContext(ctx, "run failed", logger.Action(ev.Action), logger.Error(err))
			return err
		}
		outcome := "success"
		if len(result.Failed) > 0 {
			outcome = "partial"
		}
		a.logger.InfoContext(ctx, "run finished",
			logger.Result(outcome),
			logger.RunID(result.RunID),
			logger.Action(result.Action),
			logger.Count("succeeded", len(result.Succeeded)),
			logger.Count("failed", len(result.Failed)),
		)
		return nil
	})
}

// withApp loads the configuration, wires the app and closes it after fn.
func withApp(cmd *cobra.Command, fn func(context.Context, *app) error) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	log := newLogger(cfg)

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.ErrorContext(ctx, "startup failed", logger.Error(err))
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.WarnContext(ctx, "shutdown failed", logger.Error(err))
		}
	}()

	return fn(ctx, a)
}
