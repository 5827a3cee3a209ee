package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/statarr/internal/diff"
)

var snapshotDiffLimit int

var snapshotDiffCmd = &cobra.Command{
	Use:   "diff <old-timestamp> <new-timestamp>",
	Short: "Compare two snapshots of the namespace",
	Long:  "Full outer join of two snapshots by series id, sorted by absolute size change.",
	Args:  cobra.ExactArgs(2),
	RunE:  runSnapshotDiff,
}

func init() {
	snapshotDiffCmd.Flags().IntVar(&snapshotDiffLimit, "limit", 0,
		"Show only the top N changers (0 = all)")
}

func runSnapshotDiff(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	oldAt, err := parseTimestamp(args[0])
	if err != nil {
		return err
	}
	newAt, err := parseTimestamp(args[1])
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

	rows, err := diff.NewEngine(db).Compare(ctx, namespace, oldAt, newAt)
	if err != nil {
		return fmt.Errorf("compare snapshots: %w", err)
	}
	if snapshotDiffLimit > 0 && len(rows) > snapshotDiffLimit {
		rows = rows[:snapshotDiffLimit]
	}

	if snapshotJSONOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"namespace":  namespace,
			"comparison": rows,
			"total":      len(rows),
		})
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tEPISODES\tSIZE CHANGE\tCHANGE %\tAVG CHANGE")
	for _, r := range rows {
		pct := "-"
		if r.SizeChangePct != nil {
			pct = fmt.Sprintf("%+.1f%%", *r.SizeChangePct)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%+d\t%+.2f GB\t%s\t%+.0f MB\n",
			r.SeriesID, r.Title, r.Status, r.EpisodesChange, r.SizeChangeGB, pct, r.AvgSizeChangeMB)
	}
	w.Flush()

	return nil
}
