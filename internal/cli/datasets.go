package cli

import (
	"github.com/spf13/cobra"
)

var datasetsLimit int

var datasetsCmd = &cobra.Command{
	Use:   "datasets [id]",
	Short: "List sample datasets or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		return getApp().Datasets(cmd.Context(), id, datasetsLimit)
	},
}

func init() {
	datasetsCmd.Flags().IntVar(&datasetsLimit, "limit", 10, "Records to print for a single dataset (0 prints all)")
}
