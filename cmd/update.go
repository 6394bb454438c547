package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/mmdesignweb/crm-notifier/internal/build"
)

const releaseSlug = "mmdesignweb/crm-notifier"

// NewUpdateCmd returns the "update" subcommand that replaces the running
// binary with the latest GitHub release.
func NewUpdateCmd() *cobra.Command {
	var yes, checkOnly bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update crm-notifier to the latest release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdate(cmd, yes, checkOnly)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only report whether a newer release exists")
	return cmd
}

func runUpdate(cmd *cobra.Command, skipConfirm, checkOnly bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if !build.IsRelease() {
		return errors.New("development builds cannot self-update; install a tagged release first")
	}
	current := strings.TrimPrefix(build.Version, "v")

	updater, err := selfupdate.NewUpdater(selfupdate.Config{})
	if err != nil {
		return fmt.Errorf("creating updater: %w", err)
	}

	release, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(releaseSlug))
	if err != nil {
		return fmt.Errorf("checking %s releases: %w", releaseSlug, err)
	}
	if !found || !release.GreaterThan(current) {
		fmt.Fprintf(out, "crm-notifier %s is the latest release.\n", build.Version)
		return nil
	}

	fmt.Fprintf(out, "New release available: %s (running %s)\n", release.Version(), build.Version)
	if checkOnly {
		return nil
	}
	if !skipConfirm && !confirm(cmd.InOrStdin(), out, "Install it now?") {
		fmt.Fprintln(out, "Update canceled.")
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}
	if err := updater.UpdateTo(ctx, release, exe); err != nil {
		return fmt.Errorf("installing %s: %w", release.Version(), err)
	}

	fmt.Fprintf(out, "Installed %s. Restart running services to pick it up.\n", release.Version())
	return nil
}

func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, _ := bufio.NewReader(in).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
