package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/statarr/internal/sonarr"
)

var (
	credentialsSetURL string
	credentialsSetKey string
)

var credentialsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store Sonarr credentials for the namespace",
	Args:  cobra.NoArgs,
	RunE:  runCredentialsSet,
}

func init() {
	credentialsSetCmd.Flags().StringVar(&credentialsSetURL, "url", "",
		"Sonarr base URL (required)")
	credentialsSetCmd.Flags().StringVar(&credentialsSetKey, "api-key", "",
		"Sonarr API key (required)")
	credentialsSetCmd.MarkFlagRequired("url")
	credentialsSetCmd.MarkFlagRequired("api-key")
}

func runCredentialsSet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	normalized, err := sonarr.NormalizeURL(credentialsSetURL)
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

	if err := openSecrets(cfg, db).Save(ctx, namespace, normalized, credentialsSetKey); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}

	if credentialsJSONOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"namespace": namespace,
			"url":       normalized,
			"saved":     true,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Credentials saved for namespace %q (%s)\n", namespace, normalized)
	return nil
}
