package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mmdesignweb/crm-notifier/internal/config"
	"github.com/mmdesignweb/crm-notifier/internal/expiration"
)

// commandContext is canceled on SIGINT/SIGTERM and after RUN_TIMEOUT.
func commandContext(cmd *cobra.Command, cfg *config.AppConfig) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	if cfg.RunTimeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// NewCheckCmd returns the "check" subcommand that runs one expiration check.
func NewCheckCmd(cfg *config.AppConfig) *cobra.Command {
	var dryRun, asJSON bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one expiration check now",
		Long: `Scan for services renewing within LOOKAHEAD_DAYS and email every client that
has not been notified within SUPPRESSION_WINDOW_DAYS. With --dry-run nothing is
sent or logged; the summary shows what a real run would do.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd, cfg)
			defer cancel()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var summary *expiration.RunSummary
			if dryRun {
				summary, err = a.svc.DryRun(ctx)
			} else {
				summary, err = a.svc.CheckExpirations(ctx)
			}
			if err != nil {
				return fmt.Errorf("expiration check: %w", err)
			}

			if asJSON {
				return writeJSONTo(cmd.OutOrStdout(), summary)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSummary(summary))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be sent without sending or logging")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run summary as JSON")
	return cmd
}
