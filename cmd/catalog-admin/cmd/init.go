package cmd

import (
	"fmt"

	"github.com/marmos91/catalogadmin/pkg/config"
	"github.com/spf13/cobra"
)

func newInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init REPO",
		Short: "Write a default repository configuration",
		Long: `Create REPO if needed and write a default catalog-admin.yaml into it.

The default repository keeps its registry in SQLite, its datastore records
in BadgerDB and its artifacts on the local filesystem, all inside REPO.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.InitConfig(args[0], force)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration")
	return cmd
}
