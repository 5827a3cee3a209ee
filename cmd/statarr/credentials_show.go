package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var credentialsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored Sonarr endpoint (API key masked)",
	Args:  cobra.NoArgs,
	RunE:  runCredentialsShow,
}

func runCredentialsShow(cmd *cobra.Command, args []string) error {
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

	creds, err := openSecrets(cfg, db).Load(ctx, namespace)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	if credentialsJSONOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"namespace": namespace,
			"url":       creds.BaseURL,
			"api_key":   maskKey(creds.APIKey),
		})
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintf(w, "Namespace:\t%s\n", namespace)
	fmt.Fprintf(w, "URL:\t%s\n", creds.BaseURL)
	fmt.Fprintf(w, "API key:\t%s\n", maskKey(creds.APIKey))
	w.Flush()

	return nil
}
