package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"poe2-arb-scanner/internal/arb"
	"poe2-arb-scanner/internal/storage"
)

// quoteSnapshotKeep bounds the saved history per (league, id, route).
const quoteSnapshotKeep = 20

// quotePayload is the JSON shape persisted per quote snapshot.
type quotePayload struct {
	Start          float64     `json:"start"`
	Legs           [3]LegInput `json:"legs"`
	Bid            LegInput    `json:"bid"`
	Aggressiveness float64     `json:"aggressiveness"`
}

// Quote evaluates a manually entered three-leg round trip and prints the
// projected profit and any stock warnings. The round trip itself involves no
// network access; --save and --load only touch the database.
func (a *App) Quote(ctx context.Context, opts QuoteOptions) error {
	kind := arb.RouteKind(opts.Route)
	if kind != arb.RouteExalted && kind != arb.RouteChaos {
		return fmt.Errorf("invalid route %q (want exalted or chaos)", opts.Route)
	}

	if opts.Load {
		if err := a.loadQuoteSnapshot(ctx, &opts, kind); err != nil {
			return err
		}
	}
	if opts.Start <= 0 {
		return fmt.Errorf("start amount must be positive")
	}

	item := opts.ItemName
	if item == "" {
		item = "item"
	}
	other := routeCurrencyName(kind)

	legs := [3]arb.Leg{
		buildLeg(fmt.Sprintf("Buy %s with Divine Orb", item), opts.Legs[0], "Divine Orb", item),
		buildLeg(fmt.Sprintf("Sell %s for %s", item, other), opts.Legs[1], item, other),
		buildLeg(fmt.Sprintf("Convert %s to Divine Orb", other), opts.Legs[2], other, "Divine Orb"),
	}

	trip := arb.ComputeRoundTrip(opts.Start, legs)
	if !trip.OK {
		fmt.Fprintln(os.Stdout, "round trip incomplete:")
		for _, m := range trip.Missing {
			fmt.Fprintf(os.Stdout, "  %s\n", m)
		}
		return nil
	}

	fmt.Fprintf(os.Stdout, "start:  %.3f div\n", trip.Start)
	fmt.Fprintf(os.Stdout, "end:    %.3f div\n", trip.End)
	fmt.Fprintf(os.Stdout, "profit: %.3f div (%.2f%%)\n", trip.Profit, trip.ProfitPct)
	for _, w := range trip.Warnings {
		fmt.Fprintf(os.Stdout, "warning: %s\n", w)
	}

	if opts.Bid.PayQty > 0 && opts.Bid.ReceiveQty > 0 {
		ask := legs[1].Quote
		bid := arb.Quote{
			Pay:        other,
			Receive:    item,
			PayQty:     opts.Bid.PayQty,
			ReceiveQty: opts.Bid.ReceiveQty,
		}
		suggestion, err := arb.SuggestSellPrice(ask, bid, opts.Aggressiveness)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "\nsell-soon suggestion: list 1 %s for %g %s (bid %.4f, ask %.4f)\n",
			item, suggestion.Suggested, other, suggestion.BestBid, suggestion.BestAsk)
	}

	if opts.Save {
		if err := a.saveQuoteSnapshot(ctx, opts, kind); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) quoteStore(ctx context.Context, opts QuoteOptions) (storage.QuoteStore, func(), error) {
	if opts.League == "" || opts.DetailsID == "" {
		return nil, nil, errors.New("--league and --id are required for saved quotes")
	}
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, errors.New("database not configured; cannot use saved quotes")
	}
	return store, closeStore, nil
}

func (a *App) loadQuoteSnapshot(ctx context.Context, opts *QuoteOptions, kind arb.RouteKind) error {
	store, closeStore, err := a.quoteStore(ctx, *opts)
	if err != nil {
		return err
	}
	defer closeStore()

	snap, err := store.LatestQuoteSnapshot(ctx, opts.League, opts.DetailsID, string(kind))
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no saved quotes for %s/%s via %s", opts.League, opts.DetailsID, kind)
	}
	if err != nil {
		return err
	}

	var payload quotePayload
	if err := json.Unmarshal(snap.Quotes, &payload); err != nil {
		return fmt.Errorf("decode saved quotes: %w", err)
	}

	// CLI-provided values win over the snapshot.
	if opts.Start <= 0 {
		opts.Start = payload.Start
	}
	for i := range opts.Legs {
		if opts.Legs[i].PayQty <= 0 && opts.Legs[i].ReceiveQty <= 0 {
			opts.Legs[i] = payload.Legs[i]
		}
	}
	if opts.Bid.PayQty <= 0 && opts.Bid.ReceiveQty <= 0 {
		opts.Bid = payload.Bid
	}

	a.Logger.Info().
		Str("league", opts.League).
		Str("details_id", opts.DetailsID).
		Time("saved_at", snap.CreatedAt).
		Msg("loaded saved quotes")
	return nil
}

func (a *App) saveQuoteSnapshot(ctx context.Context, opts QuoteOptions, kind arb.RouteKind) error {
	store, closeStore, err := a.quoteStore(ctx, opts)
	if err != nil {
		return err
	}
	defer closeStore()

	payload, err := json.Marshal(quotePayload{
		Start:          opts.Start,
		Legs:           opts.Legs,
		Bid:            opts.Bid,
		Aggressiveness: opts.Aggressiveness,
	})
	if err != nil {
		return fmt.Errorf("encode quotes: %w", err)
	}

	snap, err := store.AppendQuoteSnapshot(ctx, storage.QuoteSnapshot{
		League:    opts.League,
		DetailsID: opts.DetailsID,
		RouteKind: string(kind),
		Quotes:    payload,
	}, quoteSnapshotKeep)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Int64("snapshot_id", snap.ID).
		Str("league", opts.League).
		Str("details_id", opts.DetailsID).
		Msg("quotes saved")
	return nil
}

func buildLeg(desc string, in LegInput, pay, receive string) arb.Leg {
	mode := arb.ModeInstant
	if in.Listing {
		mode = arb.ModeListing
	}

	quote := arb.Quote{
		Pay:        pay,
		Receive:    receive,
		PayQty:     in.PayQty,
		ReceiveQty: in.ReceiveQty,
	}
	if in.Stock > 0 {
		stock := in.Stock
		quote.Stock = &stock
	}

	return arb.Leg{
		Description: fmt.Sprintf("%s (%s)", desc, mode),
		Quote:       quote,
		Mode:        mode,
	}
}

func routeCurrencyName(kind arb.RouteKind) string {
	if kind == arb.RouteChaos {
		return "Chaos Orb"
	}
	return "Exalted Orb"
}
