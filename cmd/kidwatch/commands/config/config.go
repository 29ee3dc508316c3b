// Package config implements configuration management subcommands.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd is the config subcommand.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Manage kidwatch configuration files.

Subcommands:
  init      Create a configuration file with defaults
  edit      Open configuration in editor
  validate  Validate configuration file
  show      Display current configuration`,
}

func init() {
	Cmd.AddCommand(initCmd)
	Cmd.AddCommand(editCmd)
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(showCmd)
}

// configPath returns the --config flag inherited from the root command.
func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
