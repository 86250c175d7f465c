/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/server"
	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// roleCmd represents the role command
var roleCmd = &cobra.Command{
	Use:   "role",
	Short: "Manage account roles",
}

var roleSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the role of an account",
	Long: `Sets the role of an account. Usage:

	whiteboard role set --username alice --role Moderator
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		username, _ := cmd.Flags().GetString("username")
		role, _ := cmd.Flags().GetString("role")

		backend, err := server.OpenBackend(cmd.Context(), cfg, logger, nil)
		if err != nil {
			return err
		}
		defer func() { _ = backend.Close() }()

		user, err := backend.Accounts.SetRole(cmd.Context(), username, types.Role(role))
		if err != nil {
			return err
		}
		logger.Info("role updated", zap.String("id", user.ID), zap.String("username", user.Username), zap.String("role", string(user.Role)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(roleCmd)
	roleCmd.AddCommand(roleSetCmd)

	roleSetCmd.Flags().String("username", "", "account to change")
	roleSetCmd.Flags().String("role", "", "new role: User, Moderator or Admin")
	_ = roleSetCmd.MarkFlagRequired("username")
	_ = roleSetCmd.MarkFlagRequired("role")
}
