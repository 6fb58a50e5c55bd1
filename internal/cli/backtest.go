package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"forecast-workbench/internal/app"
)

var (
	backtestSource  sourceFlags
	backtestConfig  configFlags
	backtestModels  []string
	backtestPresets []string
	backtestWindows int
	backtestStep    int
	backtestDryRun  bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Evaluate models over rolling windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		if backtestWindows <= 0 {
			return fmt.Errorf("--windows must be greater than zero")
		}
		cfgOpts, err := backtestConfig.options(cmd)
		if err != nil {
			return err
		}
		return getApp().Backtest(cmd.Context(), app.BacktestOptions{
			Source:  backtestSource.options(),
			Config:  cfgOpts,
			Models:  backtestModels,
			Presets: backtestPresets,
			Windows: backtestWindows,
			Step:    backtestStep,
			DryRun:  backtestDryRun,
		})
	},
}

func init() {
	backtestSource.register(backtestCmd)
	backtestConfig.register(backtestCmd)
	backtestCmd.Flags().StringSliceVar(&backtestModels, "models", nil, "Models to evaluate (model or module/model)")
	backtestCmd.Flags().StringSliceVar(&backtestPresets, "presets", nil, "Saved presets to evaluate")
	backtestCmd.Flags().IntVar(&backtestWindows, "windows", 3, "Number of rolling windows")
	backtestCmd.Flags().IntVar(&backtestStep, "step", 1, "Rows between window starts")
	backtestCmd.Flags().BoolVar(&backtestDryRun, "dry-run", false, "Print the window layout without calling the service")
}
