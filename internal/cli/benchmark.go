package cli

import (
	"github.com/spf13/cobra"

	"forecast-workbench/internal/app"
)

var (
	benchmarkSource  sourceFlags
	benchmarkConfig  configFlags
	benchmarkModels  []string
	benchmarkPresets []string
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Compare several models on one train/test split",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgOpts, err := benchmarkConfig.options(cmd)
		if err != nil {
			return err
		}
		return getApp().Benchmark(cmd.Context(), app.BenchmarkOptions{
			Source:  benchmarkSource.options(),
			Config:  cfgOpts,
			Models:  benchmarkModels,
			Presets: benchmarkPresets,
		})
	},
}

func init() {
	benchmarkSource.register(benchmarkCmd)
	benchmarkConfig.register(benchmarkCmd)
	benchmarkCmd.Flags().StringSliceVar(&benchmarkModels, "models", nil, "Models to compare (model or module/model)")
	benchmarkCmd.Flags().StringSliceVar(&benchmarkPresets, "presets", nil, "Saved presets to compare")
}
