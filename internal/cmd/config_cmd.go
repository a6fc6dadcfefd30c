package cmd

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	errwrap "github.com/3leaps/unhide/internal/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration after defaults, the config file, UNHIDE_*
environment variables and flags have been applied. Secrets are masked.

Examples:
  unhide config show
  unhide config show --backend s3 --env-file .env`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(appConfig.Redacted()); err != nil {
		return exitError(errwrap.KindInternal, "Failed to render configuration", err)
	}
	return enc.Close()
}
