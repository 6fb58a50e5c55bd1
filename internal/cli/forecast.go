package cli

import (
	"github.com/spf13/cobra"

	"forecast-workbench/internal/app"
)

var (
	forecastSource  sourceFlags
	forecastConfig  configFlags
	forecastCSVPath string
	forecastPNGPath string
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Run one forecast with the active configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgOpts, err := forecastConfig.options(cmd)
		if err != nil {
			return err
		}
		return getApp().Forecast(cmd.Context(), app.ForecastOptions{
			Source:  forecastSource.options(),
			Config:  cfgOpts,
			CSVPath: forecastCSVPath,
			PNGPath: forecastPNGPath,
		})
	},
}

func init() {
	forecastSource.register(forecastCmd)
	forecastConfig.register(forecastCmd)
	forecastCmd.Flags().StringVar(&forecastCSVPath, "csv", "", "Also write the forecast as CSV")
	forecastCmd.Flags().StringVar(&forecastPNGPath, "png", "", "Also render the forecast as PNG")
}
