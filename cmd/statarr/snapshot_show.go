package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/statarr/internal/types"
)

var snapshotShowOutliers bool

var snapshotShowCmd = &cobra.Command{
	Use:   "show <timestamp>",
	Short: "Show the series rows and summary of one snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotShow,
}

func init() {
	snapshotShowCmd.Flags().BoolVar(&snapshotShowOutliers, "outliers", false,
		"Show only outlier rows")
}

func runSnapshotShow(cmd *cobra.Command, args []string) error {
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

	rows, err := db.LoadSnapshot(ctx, namespace, takenAt)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snapshotShowOutliers {
		filtered := rows[:0]
		for _, r := range rows {
			if r.IsOutlier {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	summary, err := db.GetSummary(ctx, namespace, takenAt)
	if err != nil {
		return fmt.Errorf("get summary: %w", err)
	}

	if snapshotJSONOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"summary": summary,
			"series":  rows,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Snapshot %s: %d series, %s, %d outliers (%.1f%%)\n\n",
		takenAt.Format(types.TimestampLayout),
		summary.TotalSeries,
		formatGB(summary.TotalStorageGB),
		summary.OutlierCount,
		summary.OutlierPercentage,
	)

	w := newTabWriter(out)
	fmt.Fprintln(w, "ID\tTITLE\tYEAR\tEPISODES\tTOTAL\tAVG/EP\tZ-SCORE\tOUTLIER")
	for _, r := range rows {
		marker := ""
		if r.IsOutlier {
			marker = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\t%.2f\t%s\n",
			r.SeriesID, r.Title, r.Year, r.EpisodeCount,
			formatGB(r.TotalSizeGB), formatMB(r.AvgSizeMB), r.ZScore, marker)
	}
	w.Flush()

	return nil
}
