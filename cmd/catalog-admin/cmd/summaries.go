package cmd

import (
	"context"

	"github.com/marmos91/catalogadmin/pkg/admin"
	"github.com/spf13/cobra"
)

func newSummaryCommand(flags *globalFlags) *cobra.Command {
	var opts admin.SummaryOptions

	cmd := &cobra.Command{
		Use:   "refresh-collection-summary REPO",
		Short: "Refresh contents of the collection summary tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd, flags, args[0], func(ctx context.Context, s *session) error {
				opts.Out = cmd.OutOrStdout()
				opts.Metrics = s.metrics.Admin
				_, err := admin.RefreshCollectionSummary(ctx, s.repo, opts)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "execute updates, by default only print statistics")
	cmd.Flags().BoolVar(&opts.Tagged, "tagged", false, "only check tagged collections, ignored if --update is specified")
	return cmd
}
