package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/conorfennell/notetaker/internal/app"
	"github.com/conorfennell/notetaker/internal/config"
	"github.com/conorfennell/notetaker/internal/logger"
	"github.com/conorfennell/notetaker/internal/metrics"
	"github.com/conorfennell/notetaker/internal/storage"
)

var (
	cfg *config.Config
	log *logger.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "notetaker",
	Short: "A small note-taking widget backed by a local database",
	Long: `notetaker stores titled notes in a local SQLite or bbolt database and
serves a browser widget to create, edit and delete them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A .env file is optional.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		log, err = logger.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fatal("notetaker", err)
	}
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
}

// opener opens the configured notes database.
func opener(c *config.Config) app.Opener {
	return func(ctx context.Context) (storage.Gateway, error) {
		return storage.Open(ctx, storage.Options{
			Backend:      c.Storage.Backend,
			Dir:          c.Storage.Dir,
			Name:         c.Storage.Name,
			Version:      c.Storage.Version,
			UniqueTitles: c.Storage.UniqueTitles,
		})
	}
}

func newApp(ctx context.Context, m *metrics.Metrics) (*app.App, error) {
	opts := []app.Option{app.WithLogger(log)}
	if m != nil {
		opts = append(opts, app.WithMetrics(m))
	}
	a, err := app.New(ctx, opener(cfg), opts...)
	if err != nil {
		return nil, fmt.Errorf("start notes app: %w", err)
	}
	return a, nil
}
