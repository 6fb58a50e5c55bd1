package cli

import (
	"github.com/spf13/cobra"
)

var (
	presetDescription string
	presetConfig      configFlags
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Manage saved configurations",
}

var presetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().PresetsList(cmd.Context())
	},
}

var presetsSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the active configuration (with overrides) as a preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgOpts, err := presetConfig.options(cmd)
		if err != nil {
			return err
		}
		return getApp().PresetSave(cmd.Context(), args[0], presetDescription, cfgOpts)
	},
}

var presetsLoadCmd = &cobra.Command{
	Use:   "load <id|name>",
	Short: "Make a preset the active configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().PresetLoad(cmd.Context(), args[0])
	},
}

var presetsDeleteCmd = &cobra.Command{
	Use:   "delete <id|name>",
	Short: "Delete a preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().PresetDelete(cmd.Context(), args[0])
	},
}

func init() {
	presetsSaveCmd.Flags().StringVar(&presetDescription, "description", "", "Preset description")
	presetConfig.register(presetsSaveCmd)

	presetsCmd.AddCommand(presetsListCmd, presetsSaveCmd, presetsLoadCmd, presetsDeleteCmd)
}
