package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var credentialsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the stored Sonarr credentials",
	Args:  cobra.NoArgs,
	RunE:  runCredentialsDelete,
}

func runCredentialsDelete(cmd *cobra.Command, args []string) error {
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

	deleted, err := openSecrets(cfg, db).Delete(ctx, namespace)
	if err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}

	if credentialsJSONOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"namespace": namespace,
			"deleted":   deleted > 0,
		})
	}

	if deleted > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted credentials for namespace %q\n", namespace)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "No credentials found to delete")
	}
	return nil
}
