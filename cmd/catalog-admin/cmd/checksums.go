package cmd

import (
	"context"

	"github.com/marmos91/catalogadmin/pkg/admin"
	"github.com/spf13/cobra"
)

func newChecksumsCommand(flags *globalFlags) *cobra.Command {
	var opts admin.ChecksumOptions

	cmd := &cobra.Command{
		Use:   "update-datastore-checksums REPO [DATASET_TYPE...]",
		Short: "Compute missing artifact checksums",
		Long: `Compute and store checksums for datasets whose datastore record has none.

Each DATASET_TYPE is a name or glob and is processed as its own batch; with
none given, every dataset type is processed. Existing checksums are never
recomputed, so the command can be re-run safely.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd, flags, args[0], func(ctx context.Context, s *session) error {
				opts.DatasetTypes = args[1:]
				opts.Out = cmd.OutOrStdout()
				opts.Metrics = s.metrics.Admin
				if !cmd.Flags().Changed("workers") {
					opts.Workers = s.cfg.Checksums.Workers
				}
				if !cmd.Flags().Changed("algorithm") {
					opts.Algorithm = s.cfg.Checksums.Algorithm
				}

				_, err := admin.UpdateDatastoreChecksums(ctx, s.repo, opts)
				return err
			})
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&opts.Collections, "collections", nil, "collections to search, in order (default: all)")
	f.StringVar(&opts.Where, "where", "", `CEL expression over data_id, run and dataset_type, e.g. 'data_id.visit > 100'`)
	f.BoolVar(&opts.FindFirst, "find-first", false, "only process the first dataset found per data ID along --collections")
	f.IntVar(&opts.Limit, "limit", 0, "maximum datasets per dataset type; negative warns instead of silently truncating")
	f.IntVar(&opts.Workers, "workers", 0, "concurrent checksum computations (default: configuration, then one per CPU)")
	f.StringVar(&opts.Algorithm, "algorithm", "", "digest algorithm: md5 or sha256 (default: configuration)")

	return cmd
}
