// Package cmd implements the catalog-admin command tree.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/marmos91/catalogadmin/internal/logger"
	"github.com/marmos91/catalogadmin/pkg/config"
	"github.com/marmos91/catalogadmin/pkg/repository"
	"github.com/spf13/cobra"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	logLevel  string
	logFormat string
}

// Execute runs the root command and exits non-zero on failure.
func Execute(version, commit string) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := NewRootCommand()
	root.Version = fmt.Sprintf("%s (%s)", version, commit)

	err := root.ExecuteContext(ctx)
	_ = logger.Close()
	if err != nil {
		os.Exit(1)
	}
}

// NewRootCommand builds a fresh command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "catalog-admin",
		Short: "Catalog repository maintenance",
		Long: `catalog-admin runs maintenance operations against a catalog repository:
backfilling artifact checksums, migrating dataset types between storage
classes, auditing collection summaries and emptying the datastore trash.

REPO is a repository directory holding catalog-admin.yaml, or the path of a
configuration file.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override the configured log level (DEBUG, INFO, WARN, ERROR)")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "override the configured log format (text, json)")

	root.AddCommand(
		newChecksumsCommand(flags),
		newStorageClassCommand(flags),
		newSummaryCommand(flags),
		newTrashCommand(flags),
		newInitCommand(),
	)
	return root
}

// session is an open repository plus the metrics to flush when done.
type session struct {
	cfg     *config.Config
	repo    *repository.Repository
	metrics *config.MetricsResult
}

// withRepository opens the repository at location, runs fn and closes it.
//
// The sequence is:
//  1. Load REPO/.env, if present, without overriding the environment
//  2. Load and validate the configuration
//  3. Configure logging and metrics
//  4. Open the repository, run fn, flush metrics
func withRepository(cmd *cobra.Command, flags *globalFlags, location string, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()

	if err := loadEnvFile(location); err != nil {
		return err
	}

	cfg, err := config.Load(location)
	if err != nil {
		return err
	}

	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}
	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return err
	}

	m := config.InitializeMetrics(cfg)

	repo, err := repository.Open(ctx, cfg, m)
	if err != nil {
		return err
	}

	runErr := fn(ctx, &session{cfg: cfg, repo: repo, metrics: m})

	if err := repo.Close(); err != nil {
		logger.Warn("Failed to close repository: %v", err)
	}
	if err := m.Flush(); err != nil {
		logger.Warn("Failed to write metrics: %v", err)
	}
	return runErr
}

// loadEnvFile loads the .env file next to the repository configuration.
func loadEnvFile(location string) error {
	_, root, err := config.ResolvePath(location)
	if err != nil {
		return err
	}
	err = godotenv.Load(filepath.Join(root, ".env"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}
