package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmdesignweb/crm-notifier/internal/config"
)

// NewTestEmailCmd returns the "test-email" subcommand that sends a sample
// reminder to verify mail delivery.
func NewTestEmailCmd(cfg *config.AppConfig) *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "test-email",
		Short: "Send a sample reminder to verify mail delivery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd, cfg)
			defer cancel()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.svc.SendTestEmail(ctx, to); err != nil {
				return err
			}
			recipient := to
			if recipient == "" {
				recipient = cfg.TestEmailTo
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okStyle.Render("Email enviado correctamente a"), recipient)
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Recipient (defaults to TEST_EMAIL_TO)")
	return cmd
}
