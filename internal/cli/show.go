package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"forecast-workbench/internal/app"
)

var (
	showLimit  int
	showSource string

	leaderboardLimit  int
	leaderboardSource string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recently archived runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit:  showLimit,
			Source: showSource,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Rank archived runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if leaderboardLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}
		return getApp().Leaderboard(cmd.Context(), app.LeaderboardOptions{
			Limit:  leaderboardLimit,
			Source: leaderboardSource,
		})
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of runs to display")
	showCmd.Flags().StringVar(&showSource, "source", "", "Only runs for this source, e.g. sample:airpassengers")

	leaderboardCmd.Flags().IntVar(&leaderboardLimit, "limit", 200, "Number of recent runs to rank")
	leaderboardCmd.Flags().StringVar(&leaderboardSource, "source", "", "Only runs for this source, e.g. upload:sales.csv")
}
