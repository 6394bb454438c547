package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmdesignweb/crm-notifier/internal/config"
	"github.com/mmdesignweb/crm-notifier/internal/dataset"
	"github.com/mmdesignweb/crm-notifier/internal/storage"
)

// NewImportCmd returns the "import" subcommand that upserts clients and
// services from a YAML seed file.
func NewImportCmd(cfg *config.AppConfig) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upsert clients and services from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file) //nolint:gosec // path supplied by the operator
			if err != nil {
				return fmt.Errorf("opening %s: %w", file, err)
			}
			defer func() { _ = f.Close() }()

			ds, err := dataset.Load(f)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}

			ctx, cancel := commandContext(cmd, cfg)
			defer cancel()

			// Import only needs the store, so notifier settings are not validated.
			store, err := storage.Open(ctx, cfg.DBDriver, cfg.DatabaseDSN())
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer func() { _ = store.Close() }()

			res, err := dataset.Import(ctx, store, ds)
			if err != nil {
				return fmt.Errorf("importing %s (%d clients, %d services written): %w",
					file, res.Clients, res.Services, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d clients, %d services\n",
				okStyle.Render("Imported"), res.Clients, res.Services)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with clients and services")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
