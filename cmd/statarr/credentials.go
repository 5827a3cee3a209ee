package main

import (
	"github.com/spf13/cobra"
)

var credentialsJSONOutput bool

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage encrypted Sonarr credentials",
	Long:  "Store, inspect, and remove the per-namespace Sonarr endpoint and API key,\nencrypted at rest under the master key.",
}

func init() {
	credentialsCmd.PersistentFlags().BoolVar(&credentialsJSONOutput, "json", false,
		"Output in JSON format")

	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsShowCmd)
	credentialsCmd.AddCommand(credentialsDeleteCmd)
}

// maskKey hides all but the last four characters of an API key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
