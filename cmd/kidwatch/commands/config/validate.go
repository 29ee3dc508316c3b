package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/kidwatch/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the kidwatch configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  kidwatch config validate

  # Validate specific config file
  kidwatch config validate --config /etc/kidwatch/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)

	cfg, err := config.MustLoad(path)
	if err != nil {
		return err
	}

	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration file: %s\n", path)
	fmt.Fprintln(out, "Validation: OK")

	if warnings := configWarnings(cfg); len(warnings) > 0 {
		fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	smb := cfg.ActiveSMB()
	fmt.Fprintf(out, "\nConfiguration summary:\n")
	fmt.Fprintf(out, "  Share:           //%s/%s\n", smb.Host, smb.Share)
	fmt.Fprintf(out, "  Max sessions:    %d\n", smb.MaxSessions)
	fmt.Fprintf(out, "  Cameras:         %s\n", strings.Join(cfg.CameraNames(), ", "))
	fmt.Fprintf(out, "  Sink:            %s\n", cfg.Sink.Type)
	fmt.Fprintf(out, "  Results:         %s\n", cfg.Results.Type)
	fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)
	return nil
}

// configWarnings lists settings that are valid but leave a command unusable.
func configWarnings(cfg *config.Config) []string {
	var warnings []string

	if err := config.ValidateRemote(cfg); err != nil {
		warnings = append(warnings, err.Error()+" (every share command will fail)")
	}
	if cfg.ActiveSMB().Password == "" {
		warnings = append(warnings, "SMB password not set; it will be prompted for or read from KIDWATCH_SMB_PASSWORD")
	}
	if len(cfg.CameraNames()) == 0 {
		warnings = append(warnings, "no cameras configured besides the default entry")
	}
	if cfg.Notify.Webhook.URL == "" && cfg.Notify.MQTT.Broker == "" {
		warnings = append(warnings, "no notification channel configured (check alerts are only logged)")
	}
	return warnings
}
