package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"price-tracker/internal/app"
)

var (
	historySymbol string
	historyHours  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Display one symbol's trailing price history",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historySymbol == "" {
			return errors.New("--symbol is required")
		}

		opts := app.HistoryOptions{
			Symbol: historySymbol,
			Hours:  historyHours,
		}
		return getApp().History(cmd.Context(), opts)
	},
}

func init() {
	historyCmd.Flags().StringVar(&historySymbol, "symbol", "", "Symbol to display, e.g. bitcoin or AAPL")
	historyCmd.Flags().IntVar(&historyHours, "hours", 0, "Trailing window in hours (defaults to config)")
}
