package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/gitmcp/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the configuration gitmcp would run with, after reading the config
file (GITMCP_CONFIG or ~/.config/gitmcp/config.toml), the environment and an
optional .env file (GITMCP_ENV_FILE or ./.env).

Secrets are never printed; the output only says whether they are set.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	out := cmd.OutOrStdout()
	if cfg.Source != "" {
		fmt.Fprintf(out, "# Source: %s\n", cfg.Source)
	} else {
		fmt.Fprintln(out, "# Source: defaults and environment")
	}

	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, err = out.Write(data)
	return err
}
