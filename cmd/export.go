/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/server"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/services"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload a snapshot of the board to object storage",
	Long: `Writes every public board item as a gzipped JSON snapshot to the
configured MinIO or GCS bucket. Usage:

	whiteboard export --storage-backend gcs
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		backend, err := server.OpenBackend(cmd.Context(), cfg, logger, nil)
		if err != nil {
			return err
		}
		defer func() { _ = backend.Close() }()

		snapshots, err := storage.New(cmd.Context(), cfg.Storage)
		if err != nil {
			return err
		}

		res, err := services.NewExportService(backend.Board, snapshots).Export(cmd.Context())
		if err != nil {
			return err
		}
		logger.Info("board exported",
			zap.String("bucket", res.Bucket),
			zap.String("key", res.Key),
			zap.Int("items", res.Items),
			zap.Int("bytes", res.Bytes),
			zap.String("sha256", res.SHA256),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
