package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"poe2-arb-scanner/internal/app"
)

var (
	quoteItem           string
	quoteLeague         string
	quoteID             string
	quoteRoute          string
	quoteStart          float64
	quoteLegSpecs       [3]string
	quoteBidSpec        string
	quoteAggressiveness float64
	quoteSave           bool
	quoteLoad           bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Evaluate a manually entered three-leg round trip",
	Long: `Evaluate a round trip from user-entered quotes without touching the network.

Each leg is given as PAY:RECEIVE[:STOCK][:listing], e.g. --buy 1:250:3000
means paying 1 unit yields 250 units with 3000 in stock. Append ":listing"
to price a leg as a posted listing instead of an instant fill.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.QuoteOptions{
			ItemName:       quoteItem,
			League:         quoteLeague,
			DetailsID:      quoteID,
			Route:          quoteRoute,
			Start:          quoteStart,
			Aggressiveness: quoteAggressiveness,
			Save:           quoteSave,
			Load:           quoteLoad,
		}

		for i, spec := range quoteLegSpecs {
			if spec == "" && quoteLoad {
				continue
			}
			leg, err := parseLegSpec(spec)
			if err != nil {
				return fmt.Errorf("invalid leg %d: %w", i+1, err)
			}
			opts.Legs[i] = leg
		}

		if quoteBidSpec != "" {
			bid, err := parseLegSpec(quoteBidSpec)
			if err != nil {
				return fmt.Errorf("invalid --bid value: %w", err)
			}
			opts.Bid = bid
		}

		return getApp().Quote(cmd.Context(), opts)
	},
}

// parseLegSpec parses "PAY:RECEIVE[:STOCK][:listing]".
func parseLegSpec(spec string) (app.LegInput, error) {
	var leg app.LegInput
	if spec == "" {
		return leg, fmt.Errorf("empty quote")
	}

	parts := strings.Split(spec, ":")
	if last := parts[len(parts)-1]; last == "listing" {
		leg.Listing = true
		parts = parts[:len(parts)-1]
	}
	if len(parts) < 2 || len(parts) > 3 {
		return leg, fmt.Errorf("want PAY:RECEIVE[:STOCK][:listing], got %q", spec)
	}

	var err error
	if leg.PayQty, err = strconv.ParseFloat(parts[0], 64); err != nil {
		return leg, fmt.Errorf("pay quantity: %w", err)
	}
	if leg.ReceiveQty, err = strconv.ParseFloat(parts[1], 64); err != nil {
		return leg, fmt.Errorf("receive quantity: %w", err)
	}
	if len(parts) == 3 {
		if leg.Stock, err = strconv.ParseFloat(parts[2], 64); err != nil {
			return leg, fmt.Errorf("stock: %w", err)
		}
	}
	return leg, nil
}

func init() {
	quoteCmd.Flags().StringVar(&quoteItem, "item", "", "Item name for leg labels")
	quoteCmd.Flags().StringVar(&quoteLeague, "league", "", "League, required with --save/--load")
	quoteCmd.Flags().StringVar(&quoteID, "id", "", "Details ID, required with --save/--load")
	quoteCmd.Flags().StringVar(&quoteRoute, "route", "exalted", "Route leg: exalted or chaos")
	quoteCmd.Flags().Float64Var(&quoteStart, "start", 1, "Starting amount in divine orbs")
	quoteCmd.Flags().StringVar(&quoteLegSpecs[0], "buy", "", "Leg 1 quote: divine to item")
	quoteCmd.Flags().StringVar(&quoteLegSpecs[1], "sell", "", "Leg 2 quote: item to route currency")
	quoteCmd.Flags().StringVar(&quoteLegSpecs[2], "back", "", "Leg 3 quote: route currency to divine")
	quoteCmd.Flags().StringVar(&quoteBidSpec, "bid", "", "Optional instant bid (route currency to item) for a sell-price suggestion")
	quoteCmd.Flags().Float64Var(&quoteAggressiveness, "aggressiveness", 0.5, "Sell suggestion position between bid (0) and ask (1)")
	quoteCmd.Flags().BoolVar(&quoteSave, "save", false, "Persist the entered quotes to the database")
	quoteCmd.Flags().BoolVar(&quoteLoad, "load", false, "Seed missing inputs from the most recent saved quotes")
}
