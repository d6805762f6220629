// Command dayplan runs the day planner API and its maintenance tasks.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/dayplan/internal/ai"
	"github.com/nhle/dayplan/internal/logging"
	"github.com/nhle/dayplan/internal/model"
	"github.com/nhle/dayplan/internal/store"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *model.AppConfig
	logger *zap.Logger
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dayplan",
		Short:         "Personal day planner with time blocks, routines and scheduled posts",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := model.LoadConfig(configPath)
			if err != nil {
				return err
			}
			cfg = loaded

			logger, err = logging.New(cfg.Log, verbose)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "config file path")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(serveCmd())
	root.AddCommand(sweepCmd())
	root.AddCommand(agendaCmd())
	root.AddCommand(apikeyCmd())
	root.AddCommand(initCmd())
	root.AddCommand(routinesCmd())
	return root
}

// openStore opens the configured database, creating its directory.
func openStore() (*store.SQLiteStore, error) {
	path := cfg.Database.Path
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	return store.NewSQLiteStore(path)
}

// newCompleter returns the AI client, or nil when no API key is available.
func newCompleter() ai.Completer {
	key, err := ai.ResolveAPIKey()
	if err != nil {
		logger.Warn("AI features disabled", zap.Error(err))
		return nil
	}
	return ai.NewClient(key, cfg.AI)
}
