package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/statarr/internal/types"
)

var (
	historySeriesID   int64
	historyMetric     string
	historyJSONOutput bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show metric history across snapshots",
	Long: "Without flags, shows the per-snapshot summary trend. With --series-id or\n" +
		"--metric, shows the time series of one metric (per series or aggregated).",
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int64Var(&historySeriesID, "series-id", 0,
		"Track a single series (0 = aggregate across the namespace)")
	historyCmd.Flags().StringVar(&historyMetric, "metric", "",
		"Metric to track: total_size_gb, avg_size_mb, or episode_count")
	historyCmd.Flags().BoolVar(&historyJSONOutput, "json", false,
		"Output in JSON format")
}

func runHistory(cmd *cobra.Command, args []string) error {
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

	if historyMetric != "" || historySeriesID > 0 {
		metric := historyMetric
		if metric == "" {
			metric = "total_size_gb"
		}
		points, err := db.TimeSeries(ctx, namespace, historySeriesID, metric)
		if err != nil {
			return fmt.Errorf("get time series: %w", err)
		}

		if historyJSONOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"namespace": namespace,
				"metric":    metric,
				"points":    points,
			})
		}

		w := newTabWriter(cmd.OutOrStdout())
		fmt.Fprintf(w, "TAKEN AT\t%s\n", metric)
		for _, p := range points {
			fmt.Fprintf(w, "%s\t%.2f\n", p.TakenAt.Format(types.TimestampLayout), p.Value)
		}
		w.Flush()
		return nil
	}

	trends, err := db.GlobalTrends(ctx, namespace)
	if err != nil {
		return fmt.Errorf("get trends: %w", err)
	}

	if historyJSONOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"namespace": namespace,
			"trends":    trends,
		})
	}

	if len(trends) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No snapshots found.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "TAKEN AT\tSERIES\tEPISODES\tSTORAGE\tAVG/EP\tOUTLIERS")
	for _, s := range trends {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%d\n",
			s.TakenAt.Format(types.TimestampLayout),
			s.TotalSeries, s.TotalEpisodes,
			formatGB(s.TotalStorageGB), formatMB(s.MeanAvgSizeMB), s.OutlierCount)
	}
	w.Flush()

	return nil
}
