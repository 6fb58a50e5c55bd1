package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	simulatePrevious string
	simulateCurrent  string
	simulateRMSE     float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-notify",
	Short: "Send a synthetic leader-change notification",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateCurrent == "" {
			return errors.New("--current must be provided")
		}
		if simulateRMSE < 0 {
			return errors.New("--rmse cannot be negative")
		}
		return getApp().SimulateNotification(cmd.Context(), simulatePrevious, simulateCurrent, simulateRMSE)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulatePrevious, "previous", "StatsForecast/naive", "Previous leader label")
	simulateCmd.Flags().StringVar(&simulateCurrent, "current", "StatsForecast/auto_ets", "New leader label")
	simulateCmd.Flags().Float64Var(&simulateRMSE, "rmse", 1, "RMSE of the new leader")
}
