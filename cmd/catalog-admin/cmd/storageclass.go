package cmd

import (
	"context"

	"github.com/marmos91/catalogadmin/pkg/admin"
	"github.com/spf13/cobra"
)

func newStorageClassCommand(flags *globalFlags) *cobra.Command {
	var update bool

	cmd := &cobra.Command{
		Use:   "update-storage-class REPO DATASET_TYPE STORAGE_CLASS TO_STORAGE_CLASS",
		Short: "Update storage class definition for some dataset types",
		Long: `Rebind dataset types from STORAGE_CLASS to TO_STORAGE_CLASS.

DATASET_TYPE is the dataset type name or glob to match multiple dataset
types; only those currently using STORAGE_CLASS are changed. The change is
refused unless TO_STORAGE_CLASS can convert from STORAGE_CLASS. Without
--update the affected dataset types are only listed.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd, flags, args[0], func(ctx context.Context, s *session) error {
				_, err := admin.UpdateStorageClass(ctx, s.repo, admin.StorageClassOptions{
					DatasetType: args[1],
					From:        args[2],
					To:          args[3],
					Update:      update,
					Out:         cmd.OutOrStdout(),
					Metrics:     s.metrics.Admin,
				})
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&update, "update", false, "execute updates, by default only print actions taken")
	return cmd
}
