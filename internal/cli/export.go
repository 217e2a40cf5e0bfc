package cli

import (
	"github.com/spf13/cobra"

	"poe2-arb-scanner/internal/app"
)

var (
	exportLeague    string
	exportID        string
	exportRoute     string
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export one item's implied-rate history as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			League:    exportLeague,
			DetailsID: exportID,
			Route:     exportRoute,
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportLeague, "league", "", "League to query (defaults to config)")
	exportCmd.Flags().StringVar(&exportID, "id", "", "Details ID of the item to export")
	exportCmd.Flags().StringVar(&exportRoute, "route", "exalted", "Route leg: exalted or chaos")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
}
