package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/biocad/anbase/internal/config"
)

const maskedSecret = "********"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigValidateCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var showSecrets bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration as YAML",
		Long: "Prints the configuration after the config file, ANBASE_* environment\n" +
			"variables and defaults are merged. Credentials are masked unless\n" +
			"--show-secrets is given.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := *cliCtx.Config
			if !showSecrets {
				maskSecrets(&cfg)
			}
			out, err := yaml.Marshal(&cfg)
			if err != nil {
				return fmt.Errorf("config: marshal failed: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print credentials in clear text")
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			source := cliCtx.ConfigPath
			if source == "" {
				source = "environment and defaults"
			}
			PrintSuccess(cmd, "configuration is valid ("+source+")")
			return nil
		},
	}
}

// maskSecrets replaces credentials of cfg in place. cfg must be a copy.
func maskSecrets(cfg *config.Config) {
	mask := func(s *string) {
		if *s != "" {
			*s = maskedSecret
		}
	}
	mask(&cfg.Redis.Password)
	mask(&cfg.Storage.AccessKey)
	mask(&cfg.Storage.SecretKey)
}

//Personal.AI order the ending
