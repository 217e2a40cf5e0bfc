package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"poe2-arb-scanner/internal/app"
)

var (
	showLeague string
	showLimit  int
	showRuns   int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the latest persisted scan run",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			League: showLeague,
			Limit:  showLimit,
			Runs:   showRuns,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showLeague, "league", "", "League to display (defaults to config)")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of opportunities to display")
	showCmd.Flags().IntVar(&showRuns, "runs", 0, "List this many recent runs instead of one run's opportunities")
}
