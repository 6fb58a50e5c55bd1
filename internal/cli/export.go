package cli

import (
	"github.com/spf13/cobra"

	"forecast-workbench/internal/app"
)

var (
	exportSource    sourceFlags
	exportConfig    configFlags
	exportRunID     string
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a forecast as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgOpts, err := exportConfig.options(cmd)
		if err != nil {
			return err
		}
		opts := app.ExportOptions{
			Source:    exportSource.options(),
			Config:    cfgOpts,
			RunID:     exportRunID,
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportSource.register(exportCmd)
	exportConfig.register(exportCmd)
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "Export an archived run instead of running a new forecast")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum history points to export (defaults to config)")
}
