// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/ReisolRius/MoRius-sub003/internal/authflow"
	"github.com/ReisolRius/MoRius-sub003/internal/config"
)

// NewLoginCmd creates the login subcommand.
func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to an existing MoRius account",
		Long: `Sign in to an existing MoRius account with email and password, or
through a third-party identity provider. On success the access token is
printed and the command exits; nothing is stored on disk.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFlow(cmd.Context(), cmd, authflow.ModeLogin, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}
