package cli

import (
	"github.com/spf13/cobra"
)

var configSetFlags configFlags

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or change the active forecast configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ConfigShow(cmd.Context())
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change fields of the active configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgOpts, err := configSetFlags.options(cmd)
		if err != nil {
			return err
		}
		return getApp().ConfigSet(cmd.Context(), cfgOpts)
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ConfigReset(cmd.Context())
	},
}

func init() {
	configSetFlags.register(configSetCmd)
	configCmd.AddCommand(configShowCmd, configSetCmd, configResetCmd)
}
