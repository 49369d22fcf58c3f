package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/consumable/internal/config"
)

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	var showEnv bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after the config file and CONSUMABLE_*
environment variables have been applied. With --env, list the
environment variables instead.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			if showEnv {
				usage, err := config.Usage()
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to describe environment", err)
				}
				fmt.Fprintln(w, usage)
				return nil
			}

			cfg := rootOpts.loadedConfig()
			if rootOpts.Format == "json" {
				return newFormatter(rootOpts, cmd).JSON(CLIResponse{Status: "ok", Data: cfg})
			}

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to encode config", err)
			}
			_, err = w.Write(out)
			return err
		},
	}

	cmd.Flags().BoolVar(&showEnv, "env", false, "list environment variables")
	return cmd
}
