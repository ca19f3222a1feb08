// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/ReisolRius/MoRius-sub003/internal/authflow"
	"github.com/ReisolRius/MoRius-sub003/internal/config"
)

// NewRegisterCmd creates the register subcommand.
func NewRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new MoRius account",
		Long: `Create a new MoRius account in two steps: email and password first,
then the verification code from the confirmation email. On success the
access token is printed and the command exits; nothing is stored on disk.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFlow(cmd.Context(), cmd, authflow.ModeRegister, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}
