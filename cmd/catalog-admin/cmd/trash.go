package cmd

import (
	"context"

	"github.com/marmos91/catalogadmin/pkg/admin"
	"github.com/spf13/cobra"
)

func newTrashCommand(flags *globalFlags) *cobra.Command {
	var (
		opts     admin.TrashOptions
		noDryRun bool
	)

	cmd := &cobra.Command{
		Use:   "empty-trash REPO",
		Short: "Force the trash table to be emptied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd, flags, args[0], func(ctx context.Context, s *session) error {
				if noDryRun {
					opts.DryRun = false
				}
				opts.Out = cmd.OutOrStdout()
				opts.Metrics = s.metrics.Admin
				_, err := admin.EmptyTrash(ctx, s.repo, opts)
				return err
			})
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "report URIs of removed artifacts")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "enable dry run mode and do not delete any datasets")
	cmd.Flags().BoolVar(&noDryRun, "no-dry-run", false, "disable dry run mode")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "no-dry-run")
	return cmd
}
