package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/hse-api/internal/repository"
	"github.com/noah-isme/hse-api/internal/service"
	"github.com/noah-isme/hse-api/pkg/storage"
)

func cleanupExportsCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup-exports",
		Short: "Delete stale export files",
		Long: `Remove the files of export jobs finished before now minus --older-than,
then sweep any other file in the export directory older than the same age.

Examples:
  hse-admin cleanup-exports --older-than 72h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			if olderThan <= 0 {
				olderThan = e.cfg.Reports.SignedURLTTL
			}

			store, err := storage.NewLocalStorage(e.cfg.Reports.StorageDir)
			if err != nil {
				return fmt.Errorf("open export storage: %w", err)
			}
			signer := storage.NewSignedURLSigner(e.cfg.Reports.SignedURLSecret, e.cfg.Reports.SignedURLTTL)
			exports := service.NewExportService(service.ExportSources{}, store, signer, service.ExportConfig{
				APIPrefix: e.cfg.APIPrefix,
				ResultTTL: e.cfg.Reports.SignedURLTTL,
			}, e.logger)
			reports := service.NewReportService(repository.NewReportRepository(e.db), nil, exports, nil, e.logger, service.ReportServiceConfig{
				ResultTTL: e.cfg.Reports.SignedURLTTL,
			})

			removed := reports.CleanupExpired(cmd.Context(), olderThan)
			e.logger.Info("export cleanup finished", zap.Int("removed", removed), zap.Duration("older_than", olderThan))
			success.Fprintf(cmd.OutOrStdout(), "removed %d export file(s) older than %s\n", removed, olderThan)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "minimum file age, defaults to the signed URL TTL")

	return cmd
}
