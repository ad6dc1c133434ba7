package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	simulateSymbol string
	simulatePrice  float64
	simulateChange float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Push a synthetic observation through the alert channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateSymbol == "" {
			return errors.New("--symbol is required")
		}
		if simulatePrice <= 0 {
			return errors.New("--price must be greater than zero")
		}
		return getApp().SimulateAlert(cmd.Context(), simulateSymbol, simulatePrice, simulateChange)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateSymbol, "symbol", "bitcoin", "Symbol for the synthetic observation")
	simulateCmd.Flags().Float64Var(&simulatePrice, "price", 0, "Current price")
	simulateCmd.Flags().Float64Var(&simulateChange, "change", 0, "24h change percentage")
}
