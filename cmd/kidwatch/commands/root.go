// Package commands implements the kidwatch CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/kidwatch/cmd/kidwatch/commands/config"
	"github.com/marmos91/kidwatch/internal/cli/output"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile      string
	logLevel     string
	logFormat    string
	outputFormat string
	internal     bool
	workers      int
)

var rootCmd = &cobra.Command{
	Use:   "kidwatch",
	Short: "kidwatch - surveillance recordings toolkit for SMB shares",
	Long: `kidwatch lists, downloads and analyses camera recordings stored on an
SMB share. All remote access goes through a bounded, health-checked session
pool so a NAS with a small session limit is never overloaded.

Use "kidwatch [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/kidwatch/config.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "override logging.level (DEBUG, INFO, WARN, ERROR)")
	pf.StringVar(&logFormat, "log-format", "", "override logging.format (text, json)")
	pf.StringVarP(&outputFormat, "output", "o", "table", "output format (table|json|yaml)")
	pf.BoolVar(&internal, "internal", false, "use the smb_internal share settings")
	pf.IntVar(&workers, "workers", 0, "override dispatch.max_workers")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(config.Cmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

func newPrinter(cmd *cobra.Command) (*output.Printer, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(cmd.OutOrStdout(), format, false), nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "kidwatch %s (commit %s, built %s)\n", Version, Commit, Date)
	},
}
