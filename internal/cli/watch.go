package cli

import (
	"github.com/spf13/cobra"

	"forecast-workbench/internal/app"
)

var (
	watchSource   sourceFlags
	watchConfig   configFlags
	watchModels   []string
	watchPresets  []string
	watchTicks    int
	watchAnnounce bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run forecasts on an interval and notify when the leader changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgOpts, err := watchConfig.options(cmd)
		if err != nil {
			return err
		}
		return getApp().Watch(cmd.Context(), app.WatchOptions{
			Source:        watchSource.options(),
			Config:        cfgOpts,
			Models:        watchModels,
			Presets:       watchPresets,
			Ticks:         watchTicks,
			AnnounceFirst: watchAnnounce,
		})
	},
}

func init() {
	watchSource.register(watchCmd)
	watchConfig.register(watchCmd)
	watchCmd.Flags().StringSliceVar(&watchModels, "models", nil, "Models to re-run (defaults to the active configuration)")
	watchCmd.Flags().StringSliceVar(&watchPresets, "presets", nil, "Saved presets to re-run")
	watchCmd.Flags().IntVar(&watchTicks, "ticks", 0, "Stop after this many ticks (0 runs until interrupted)")
	watchCmd.Flags().BoolVar(&watchAnnounce, "announce-first", false, "Notify about the first leader too")
}
