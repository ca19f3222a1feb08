// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoRius Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ReisolRius/MoRius-sub003/internal/config"
	"github.com/ReisolRius/MoRius-sub003/internal/xdg"
)

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	var initFile bool
	var force bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the configuration morius-auth would run with: built-in defaults,
overlaid with the config file and any flags given here. With --init, write
a starter config file to the default location instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if initFile {
				return runConfigInit(cmd, force)
			}
			return runConfigShow(cmd)
		},
	}

	cmd.Flags().BoolVar(&initFile, "init", false, "write a starter config file and exit")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file with --init")
	config.RegisterFlags(cmd.Flags())

	return cmd
}

// runConfigShow prints the merged configuration as YAML. The output is
// printed before validation so a broken file can still be inspected.
func runConfigShow(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	rendered, err := cfg.Render()
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	cmd.Print(string(rendered))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// runConfigInit writes the starter config file.
func runConfigInit(cmd *cobra.Command, force bool) error {
	path := configFile
	if path == "" {
		path = xdg.DefaultConfigFile()
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	}

	if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(config.FileTemplate), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	cmd.Printf("Wrote %s\n", path)
	return nil
}
