package cli

import (
	"github.com/spf13/cobra"

	"price-tracker/internal/app"
)

var (
	showLimit int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the newest price entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ShowOptions{
			Limit: showLimit,
		}
		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 0, "Number of entries to display (defaults to config)")
}
