// Package cli implements the maintenance commands: roster and lesson
// inspection, account fixes, and session cleanup. Commands open the
// datastore directly, so they work even when the server is down.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/me/madrasa/internal/config"
	"github.com/me/madrasa/internal/logging"
	"github.com/me/madrasa/internal/store"
)

var (
	flagStoreDriver string
	flagDataDir     string
	flagDBPath      string
	flagDebug       bool
	flagLogLevel    string
	flagLogFormat   string

	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the madrasa CLI.
func NewRootCmd() *cobra.Command {
	cfg := config.FromEnv(config.Default())

	root := &cobra.Command{
		Use:   "madrasa",
		Short: "Course platform maintenance CLI",
		Long:  "Inspect and repair the course platform datastore: accounts, lessons, sessions.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.New(logging.ParseLevel(flagLogLevel), flagLogFormat)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagStoreDriver, "store", cfg.StoreDriver, "Store driver (jsonfile, sqlite)")
	root.PersistentFlags().StringVar(&flagDataDir, "data-dir", cfg.DataDir, "JSON-file store directory")
	root.PersistentFlags().StringVar(&flagDBPath, "db", cfg.DBPath, "SQLite database path")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")

	root.AddCommand(
		newUsersCmd(),
		newLessonsCmd(),
		newSessionsCmd(),
	)

	return root
}

// openStore opens the configured store and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	switch flagStoreDriver {
	case config.DriverSQLite:
		if flagDBPath == "" {
			return nil, fmt.Errorf("--db is required with the sqlite store")
		}
		st, err := store.NewSQLiteStore(flagDBPath, logger)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	case config.DriverJSONFile:
		st := store.NewJSONFileStore(flagDataDir, logger)
		if err := st.Migrate(ctx); err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", flagStoreDriver)
	}
}
