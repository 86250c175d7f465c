/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(cmd, "up", (*db.Migrator).Up)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(cmd, "down", (*db.Migrator).Down)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

func runMigration(cmd *cobra.Command, direction string, run func(*db.Migrator) error) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	migrator, err := db.NewMigrator(db.DSN(cfg.Database))
	if err != nil {
		return fmt.Errorf("init migrator failed: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	if err := run(migrator); err != nil {
		return fmt.Errorf("migrate %s failed: %w", direction, err)
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	logger.Info("migrations applied", zap.String("direction", direction), zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
