package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ReisolRius/MoRius-sub003/internal/config"
	"github.com/ReisolRius/MoRius-sub003/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the morius-auth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "morius-auth",
		Short: "MoRius account access client",
		Long: `morius-auth signs in to a MoRius account or creates a new one from
the terminal, driving the same two-step account dialog the game client
uses: email and password first, then the emailed verification code.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewLoginCmd())
	cmd.AddCommand(NewRegisterCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// effectiveConfigPath resolves which config file to load: the --config flag
// when given, otherwise the default XDG location if a file exists there.
func effectiveConfigPath() string {
	if configFile != "" {
		return configFile
	}
	path := xdg.DefaultConfigFile()
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// loadConfig builds the effective configuration from defaults, the resolved
// config file, and any flags changed on the command line.
func loadConfig(flags *pflag.FlagSet) (config.Config, error) {
	return config.Load(effectiveConfigPath(), flags)
}
