package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/hse-api/pkg/config"
	"github.com/noah-isme/hse-api/pkg/database"
	"github.com/noah-isme/hse-api/pkg/logger"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hse-admin",
		Short:         "Operator tooling for the HSE API",
		Long:          `Schema migration, super admin bootstrap, export housekeeping and risk matrix lookups.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(migrateCmd())
	cmd.AddCommand(createSuperAdminCmd())
	cmd.AddCommand(matrixCmd())
	cmd.AddCommand(classifyCmd())
	cmd.AddCommand(cleanupExportsCmd())

	return cmd
}

// env bundles what database-backed commands need.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &env{cfg: cfg, logger: logr, db: db}, nil
}

func (e *env) Close() {
	_ = e.db.Close()
	_ = e.logger.Sync()
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long:  `Create every table and index that does not exist yet. Safe to run repeatedly.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := database.Migrate(context.Background(), e.db); err != nil {
				return err
			}
			success.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}
