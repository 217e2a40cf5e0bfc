package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"poe2-arb-scanner/internal/app"
)

var (
	scanLeague  string
	scanTop     int
	scanSort    string
	scanPersist bool
	scanRefresh bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a one-shot market scan and print the top opportunities",
	RunE: func(cmd *cobra.Command, args []string) error {
		if scanTop <= 0 {
			return fmt.Errorf("--top must be greater than zero")
		}

		opts := app.ScanOptions{
			League:  scanLeague,
			Top:     scanTop,
			Sort:    scanSort,
			Persist: scanPersist,
			Refresh: scanRefresh,
		}

		return getApp().Scan(cmd.Context(), opts)
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanLeague, "league", "", "League to scan (defaults to config)")
	scanCmd.Flags().IntVar(&scanTop, "top", 20, "Number of opportunities to display")
	scanCmd.Flags().StringVar(&scanSort, "sort", "overall", "Sort mode: overall, profit or execution")
	scanCmd.Flags().BoolVar(&scanPersist, "persist", false, "Persist the run to the database")
	scanCmd.Flags().BoolVar(&scanRefresh, "refresh", false, "Invalidate cached league data before scanning")
}
