package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/statarr/internal/config"
	"github.com/hyperengineering/statarr/internal/secrets"
	"github.com/hyperengineering/statarr/internal/store"
	"github.com/hyperengineering/statarr/internal/types"
	"github.com/hyperengineering/statarr/internal/vault"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var namespaceOverride string

var rootCmd = &cobra.Command{
	Use:     "statarr",
	Short:   "Statarr - Sonarr library size analytics",
	Long:    "Snapshot, analyze, and diff per-series size statistics of a Sonarr library.",
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&namespaceOverride, "namespace", "",
		"Namespace (overrides config and STATARR_NAMESPACE)")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(credentialsCmd)
}

// loadConfig loads configuration and initializes the default logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)}
	if cfg.Log.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))

	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openStore opens the SQLite store from config (migrations, WAL mode).
func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	db, err := store.NewSQLiteStore(cfg.Database.Path, time.Duration(cfg.Database.QueryTimeout))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return db, nil
}

// openSecrets creates the secret store over the database and key vault.
func openSecrets(cfg *config.Config, db *store.SQLiteStore) *secrets.Store {
	return secrets.NewStore(db, vault.New(cfg.Vault.KeyPath))
}

// resolveNamespace applies the --namespace override on top of config.
func resolveNamespace(cfg *config.Config) string {
	if namespaceOverride != "" {
		return namespaceOverride
	}
	return cfg.Namespace
}

// parseTimestamp parses a snapshot timestamp in storage format, accepting a
// bare date as midnight.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(types.TimestampLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(types.DateLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q (want %q)", s, types.TimestampLayout)
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// formatGB renders a size in gigabytes.
func formatGB(gb float64) string {
	return fmt.Sprintf("%.2f GB", gb)
}

// formatMB renders a size in megabytes.
func formatMB(mb float64) string {
	return fmt.Sprintf("%.0f MB", mb)
}
