package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmdesignweb/crm-notifier/internal/config"
)

// NewUpcomingCmd returns the "upcoming" subcommand listing renewals due soon.
func NewUpcomingCmd(cfg *config.AppConfig) *cobra.Command {
	var days int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List active services renewing soon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd, cfg)
			defer cancel()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			candidates, err := a.svc.UpcomingRenewals(ctx, days)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSONTo(cmd.OutOrStdout(), candidates)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderUpcoming(candidates))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", cfg.LookaheadDays, "Days ahead to include (defaults to LOOKAHEAD_DAYS)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
