package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/kidwatch/internal/cli/prompt"
	"github.com/marmos91/kidwatch/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample kidwatch configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/kidwatch/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  kidwatch config init

  # Initialize with custom path
  kidwatch config init --config /etc/kidwatch/config.yaml

  # Overwrite an existing config without asking
  kidwatch config init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file without confirmation")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	overwrite := initForce
	if _, err := os.Stat(path); err == nil && !initForce {
		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("%s exists. Overwrite", path), false)
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
		overwrite = true
	}

	if err := config.InitConfigToPath(path, overwrite); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration file created at: %s\n", path)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Set smb.host, smb.share and smb.username")
	fmt.Fprintln(out, "  2. Add one entry under cameras per camera folder")
	fmt.Fprintln(out, "  3. Check the result with: kidwatch config validate")
	fmt.Fprintln(out, "\nSecurity note:")
	fmt.Fprintln(out, "  Prefer KIDWATCH_SMB_PASSWORD over storing the password in the file.")
	return nil
}
