package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/hyperengineering/statarr/internal/retention"
)

var (
	exportOutput string
	exportUpload bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the namespace's full snapshot history as CSV",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "",
		"Output file (default: statarr-history-<id>.csv)")
	exportCmd.Flags().BoolVar(&exportUpload, "upload", false,
		"Also upload the export to configured S3-compatible storage")
}

func runExport(cmd *cobra.Command, args []string) error {
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

	output := exportOutput
	if output == "" {
		output = fmt.Sprintf("statarr-history-%s.csv", ulid.Make().String())
	}
	if dir := filepath.Dir(output); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}

	svc := retention.NewService(db)
	written, err := svc.ExportCSV(ctx, namespace, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("export (%d records written): %w", written, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", written, output)

	if exportUpload {
		uploader, err := retention.NewUploader(cfg.Export)
		if err != nil {
			return fmt.Errorf("configure uploader: %w", err)
		}
		if _, ok := uploader.(*retention.NoopUploader); ok {
			return fmt.Errorf("upload requested but export storage is not configured")
		}
		if err := uploader.Upload(ctx, namespace, output); err != nil {
			return err
		}
		url, expiry, err := uploader.PresignedURL(ctx, namespace)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded; download until %s:\n%s\n",
			expiry.Format("2006-01-02 15:04"), url)
	}

	return nil
}
