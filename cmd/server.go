/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/niklasbuhl/virtual-whiteboard-backend/config"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/db"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/logging"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the whiteboard backend server",
	Long: `Starts the whiteboard backend server. Usage:

	whiteboard server [--migrate]
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if migrateFirst, _ := cmd.Flags().GetBool("migrate"); migrateFirst && cfg.Database.Driver == config.DriverPostgres {
			if err := migrateUp(cfg); err != nil {
				logging.LogError(logger, "migration failed", err)
				return err
			}
		}

		srv, err := server.New(ctx, cfg, logger)
		if err != nil {
			logging.LogError(logger, "failed to start server", err)
			return err
		}

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			if err != nil {
				logging.LogError(logger, "server error", err)
			}
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
		return <-errCh
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().Bool("migrate", false, "apply database migrations before serving")
}

func migrateUp(cfg config.Config) error {
	migrator, err := db.NewMigrator(db.DSN(cfg.Database))
	if err != nil {
		return err
	}
	defer func() { _ = migrator.Close() }()
	return migrator.Up()
}
