package cli

import (
	"github.com/spf13/cobra"
)

var purgeDays int

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete price entries older than the given number of days",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Purge(cmd.Context(), purgeDays)
	},
}

func init() {
	purgeCmd.Flags().IntVar(&purgeDays, "days", 30, "Delete entries older than this many days")
}
