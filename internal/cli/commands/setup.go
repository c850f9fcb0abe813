// Package commands contains the algorun subcommands.
package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sylva-labs/algorun/internal/config"
	"github.com/sylva-labs/algorun/internal/ledger"
)

// loadConfig loads the layered configuration using the command's
// persistent flags as the final override.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path, cmd.Root().PersistentFlags())
}

// newLogger builds the process logger. Verbose switches on debug
// logging.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openStore opens the ledger database and applies pending migrations.
// The caller owns the returned store and must close it.
func openStore(cfg *config.Config) (*ledger.SQLiteStore, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	store := ledger.NewSQLiteStore()
	if err := store.Open(cfg.Database.Path); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
