package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/statarr/internal/sonarr"
	"github.com/hyperengineering/statarr/internal/types"
	"github.com/hyperengineering/statarr/internal/worker"
)

var (
	analyzeTimestamp  string
	analyzeOverwrite  bool
	analyzeZThreshold float64
	analyzeAbsoluteMB float64
	analyzeJSONOutput bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Fetch library data, detect outliers, and save a snapshot",
	Args:  cobra.NoArgs,
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeTimestamp, "timestamp", "",
		"Snapshot timestamp (default: now)")
	analyzeCmd.Flags().BoolVar(&analyzeOverwrite, "overwrite", false,
		"Replace an existing snapshot at the same timestamp")
	analyzeCmd.Flags().Float64Var(&analyzeZThreshold, "z-threshold", 0,
		"Z-score threshold (overrides config)")
	analyzeCmd.Flags().Float64Var(&analyzeAbsoluteMB, "absolute-threshold", 0,
		"Absolute average-size threshold in MB, 0 disables (overrides config)")
	analyzeCmd.Flags().BoolVar(&analyzeJSONOutput, "json", false,
		"Output in JSON format")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	namespace := resolveNamespace(cfg)

	takenAt := time.Now()
	if analyzeTimestamp != "" {
		takenAt, err = parseTimestamp(analyzeTimestamp)
		if err != nil {
			return err
		}
	}

	zThreshold := cfg.Analysis.ZThreshold
	if cmd.Flags().Changed("z-threshold") {
		zThreshold = analyzeZThreshold
	}
	absoluteMB := cfg.Analysis.AbsoluteThresholdMB
	if cmd.Flags().Changed("absolute-threshold") {
		absoluteMB = analyzeAbsoluteMB
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	creds, err := openSecrets(cfg, db).Load(ctx, namespace)
	if err != nil {
		return fmt.Errorf("load credentials (run 'statarr credentials set' first): %w", err)
	}

	client, err := sonarr.NewClient(creds.BaseURL, creds.APIKey,
		time.Duration(cfg.Sonarr.Timeout), cfg.Sonarr.MaxRetries)
	if err != nil {
		return err
	}

	runner := worker.NewAnalysisRunner(client, db, namespace, zThreshold, absoluteMB)
	summary, stats, err := runner.RunOnce(ctx, takenAt, analyzeOverwrite)
	if err != nil {
		return err
	}

	if analyzeJSONOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"summary": summary,
			"stats":   stats,
		})
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintf(w, "Snapshot:\t%s\n", summary.TakenAt.Format(types.TimestampLayout))
	fmt.Fprintf(w, "Series:\t%d\n", summary.TotalSeries)
	fmt.Fprintf(w, "Episodes:\t%d\n", summary.TotalEpisodes)
	fmt.Fprintf(w, "Storage:\t%s\n", formatGB(summary.TotalStorageGB))
	fmt.Fprintf(w, "Avg size/episode:\t%s\n", formatMB(summary.MeanAvgSizeMB))
	fmt.Fprintf(w, "Outliers:\t%d (%.1f%%)\n", summary.OutlierCount, summary.OutlierPercentage)
	w.Flush()

	return nil
}
