package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/patentlens/kernel/internal/config"
)

// NewConfigCommand prints the resolved configuration (defaults merged with
// any config file found and environment overrides applied), as YAML.
func NewConfigCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			encoded, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}

			fmt.Print(string(encoded))

			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a config file (optional, defaults apply if absent)")

	return cmd
}
