/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/niklasbuhl/virtual-whiteboard-backend/config"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "whiteboard",
	Short: "Virtual whiteboard backend",
	Long: `Backend for a shared virtual whiteboard: accounts, sessions and
ownership-aware editing of texts, paths and images.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
}

// setup loads the layered config and builds the logger for a command.
func setup(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}
