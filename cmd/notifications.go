package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmdesignweb/crm-notifier/internal/config"
)

// NewNotificationsCmd returns the "notifications" subcommand that prints the
// most recent notification log entries.
func NewNotificationsCmd(cfg *config.AppConfig) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"log"},
		Short:   "Show recent notification log entries",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd, cfg)
			defer cancel()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			entries, err := a.svc.ListLog(ctx, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSONTo(cmd.OutOrStdout(), entries)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderLog(entries))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
