package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/kidwatch/internal/cli/output"
	"github.com/marmos91/kidwatch/pkg/config"
)

const masked = "********"

var showSecrets bool

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective kidwatch configuration, after defaults and
environment overrides. Secrets are masked unless --secrets is given.

The global --output flag selects json; anything else prints YAML.

Examples:
  # Show default config as YAML
  kidwatch config show

  # Show as JSON
  kidwatch config show -o json`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().BoolVar(&showSecrets, "secrets", false, "Print passwords and tokens in clear")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(configPath(cmd))
	if err != nil {
		return err
	}
	if !showSecrets {
		maskSecrets(cfg)
	}

	format, _ := cmd.Flags().GetString("output")
	if f, err := output.ParseFormat(format); err == nil && f == output.FormatJSON {
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	}
	return output.PrintYAML(cmd.OutOrStdout(), cfg)
}

func maskSecrets(cfg *config.Config) {
	for _, s := range []*string{
		&cfg.SMB.Password,
		&cfg.SMBInternal.Password,
		&cfg.Notify.Webhook.APIToken,
		&cfg.Sink.S3.SecretAccessKey,
		&cfg.Results.Postgres.DSN,
	} {
		if *s != "" {
			*s = masked
		}
	}
}
