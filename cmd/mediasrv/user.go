package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/mediasrv/config"
	"github.com/bnema/mediasrv/internal/service"
)

func newUserCommand(ctx *commandContext) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users",
	}

	userCmd.AddCommand(newUserAddCommand(ctx))
	userCmd.AddCommand(newUserPasswdCommand(ctx))

	return userCmd
}

func newUserAddCommand(ctx *commandContext) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a user that can log in to the API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(func(cfg *config.Config, s *stores) error {
				authSvc := service.NewAuthService(s.db, cfg.AuthSecret)
				err := authSvc.CreateUser(args[0], password)
				if errors.Is(err, service.ErrUserExists) {
					return fmt.Errorf("user %q already exists", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created user %s\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Password for the new user")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUserPasswdCommand(ctx *commandContext) *cobra.Command {
	var oldPassword, newPassword string

	cmd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Change a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(func(cfg *config.Config, s *stores) error {
				authSvc := service.NewAuthService(s.db, cfg.AuthSecret)
				if err := authSvc.ChangePassword(args[0], oldPassword, newPassword); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&oldPassword, "old", "", "Current password")
	cmd.Flags().StringVar(&newPassword, "new", "", "New password")
	_ = cmd.MarkFlagRequired("old")
	_ = cmd.MarkFlagRequired("new")
	return cmd
}
