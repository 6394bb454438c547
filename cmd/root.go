package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/mmdesignweb/crm-notifier/internal/build"
	"github.com/mmdesignweb/crm-notifier/internal/config"
)

// NewRootCmd returns the top-level command with every subcommand attached.
func NewRootCmd(cfg *config.AppConfig) *cobra.Command {
	var noColor bool

	root := &cobra.Command{
		Use:   "crm-notifier",
		Short: "Service renewal reminders for the MM Design Web CRM",
		Long: `crm-notifier finds client services whose renewal date is approaching and
emails each client a reminder, at most once per suppression window.

Run it as an HTTP service triggered by an external scheduler (serve), on its
own cron schedule (serve --schedule), or once from the command line (check).`,
		Version:       build.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if noColor || os.Getenv("NO_COLOR") != "" {
				lipgloss.SetColorProfile(termenv.Ascii)
			}
		},
	}
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored terminal output")

	root.AddCommand(
		NewServeCmd(cfg),
		NewCheckCmd(cfg),
		NewUpcomingCmd(cfg),
		NewNotificationsCmd(cfg),
		NewTestEmailCmd(cfg),
		NewImportCmd(cfg),
		NewVersionCmd(),
		NewUpdateCmd(),
	)
	return root
}

// Execute loads configuration and runs the root command.
func Execute() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := NewRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
