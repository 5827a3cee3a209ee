package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/statarr/internal/types"
)

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete <timestamp>",
	Short: "Delete one snapshot and its summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotDelete,
}

func runSnapshotDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	takenAt, err := parseTimestamp(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	namespace := resolveNamespace(cfg)

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteSnapshot(ctx, namespace, takenAt); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}

	if snapshotJSONOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"deleted":  true,
			"taken_at": takenAt.Format(types.TimestampLayout),
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted snapshot %s\n", takenAt.Format(types.TimestampLayout))
	return nil
}
