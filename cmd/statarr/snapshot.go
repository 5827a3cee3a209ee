package main

import (
	"github.com/spf13/cobra"
)

var snapshotJSONOutput bool

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage stored snapshots",
	Long:  "List, inspect, diff, and delete stored snapshots for a namespace.",
}

func init() {
	snapshotCmd.PersistentFlags().BoolVar(&snapshotJSONOutput, "json", false,
		"Output in JSON format")

	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotShowCmd)
	snapshotCmd.AddCommand(snapshotDiffCmd)
	snapshotCmd.AddCommand(snapshotDeleteCmd)
}
