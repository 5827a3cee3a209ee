package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/statarr/internal/store"
	"github.com/hyperengineering/statarr/internal/types"
)

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshot timestamps, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotList,
}

func runSnapshotList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

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

	timestamps, err := db.ListTimestamps(ctx, namespace)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	if snapshotJSONOutput {
		items := make([]map[string]any, 0, len(timestamps))
		for _, ts := range timestamps {
			item := map[string]any{"taken_at": ts.Format(types.TimestampLayout)}
			if summary, err := db.GetSummary(ctx, namespace, ts); err == nil {
				item["total_series"] = summary.TotalSeries
				item["total_storage_gb"] = summary.TotalStorageGB
				item["outlier_count"] = summary.OutlierCount
			}
			items = append(items, item)
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"namespace": namespace,
			"snapshots": items,
			"total":     len(items),
		})
	}

	if len(timestamps) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No snapshots found.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "TAKEN AT\tSERIES\tSTORAGE\tOUTLIERS")
	for _, ts := range timestamps {
		summary, err := db.GetSummary(ctx, namespace, ts)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				fmt.Fprintf(w, "%s\t-\t-\t-\n", ts.Format(types.TimestampLayout))
				continue
			}
			return fmt.Errorf("get summary: %w", err)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\n",
			ts.Format(types.TimestampLayout),
			summary.TotalSeries,
			formatGB(summary.TotalStorageGB),
			summary.OutlierCount,
		)
	}
	w.Flush()

	return nil
}
