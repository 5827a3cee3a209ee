package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/statarr/internal/retention"
)

var (
	cleanupDays       int
	cleanupJSONOutput bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete snapshots older than the retention window",
	Args:  cobra.NoArgs,
	RunE:  runCleanup,
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0,
		"Days of history to keep (overrides config)")
	cleanupCmd.Flags().BoolVar(&cleanupJSONOutput, "json", false,
		"Output in JSON format")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	namespace := resolveNamespace(cfg)

	days := cfg.Retention.DaysToKeep
	if cmd.Flags().Changed("days") {
		days = cleanupDays
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	deleted, err := retention.NewService(db).Cleanup(ctx, namespace, days)
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}

	if cleanupJSONOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"namespace":    namespace,
			"days_to_keep": days,
			"deleted_rows": deleted,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cleaned up %d old records (kept last %d days)\n", deleted, days)
	return nil
}
