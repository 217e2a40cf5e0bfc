package arb

import (
	"fmt"
	"math"
)

// QuoteMode distinguishes immediately fillable quotes from self-posted
// listings that must wait to fill.
type QuoteMode string

const (
	ModeInstant QuoteMode = "instant"
	ModeListing QuoteMode = "listing"
)

// Quote is a user-entered exchange ratio for one directed leg. Stock, when
// positive, bounds how much of the receive side is available at this ratio.
type Quote struct {
	Pay        string   `json:"pay"`
	Receive    string   `json:"receive"`
	PayQty     float64  `json:"payQty"`
	ReceiveQty float64  `json:"receiveQty"`
	Stock      *float64 `json:"stock,omitempty"`
}

// Valid reports whether the quote's quantities are positive and finite.
func (q Quote) Valid() bool {
	if !isFinite(q.PayQty) || !isFinite(q.ReceiveQty) {
		return false
	}
	return q.PayQty > 0 && q.ReceiveQty > 0
}

// Convert translates an amount in pay units to receive units. Returns false
// for an invalid quote or negative amount; incomplete user input is an
// expected steady state, not a fault.
func Convert(amount float64, q Quote) (float64, bool) {
	if !q.Valid() {
		return 0, false
	}
	if !isFinite(amount) || amount < 0 {
		return 0, false
	}
	return amount * (q.ReceiveQty / q.PayQty), true
}

// Leg is one directed step of a round trip.
type Leg struct {
	// Description is the human-readable leg label, e.g.
	// "Buy Chance Shard with Divine Orb (instant)".
	Description string
	Quote       Quote
	Mode        QuoteMode
}

// RoundTrip reports the outcome of chaining three legs. When OK is false,
// Missing lists every invalid leg by description. Warnings flag instant legs
// whose stock would be exceeded; the result itself stays unconstrained.
type RoundTrip struct {
	OK      bool
	Missing []string

	Start     float64
	End       float64
	Profit    float64
	ProfitPct float64
	Warnings  []string
}

// ComputeRoundTrip converts startAmount sequentially through three legs.
// Every invalid leg is reported up front; otherwise each instant leg with a
// positive finite stock that the flow would exceed yields a warning naming
// the maximum feasible start, back-solved through the ratio chain up to that
// leg. A non-finite intermediate or final value invalidates the computation.
func ComputeRoundTrip(startAmount float64, legs [3]Leg) RoundTrip {
	var missing []string
	for _, leg := range legs {
		if !leg.Quote.Valid() {
			missing = append(missing, leg.Description)
		}
	}
	if len(missing) > 0 {
		return RoundTrip{Missing: missing}
	}

	var warnings []string
	amount := startAmount
	// Receive units produced per start unit, accumulated leg by leg; used
	// to back-solve the max feasible start against a leg's stock.
	perStart := 1.0

	for i, leg := range legs {
		next, ok := Convert(amount, leg.Quote)
		if !ok {
			return RoundTrip{Missing: []string{fmt.Sprintf("Invalid step %d quote", i+1)}}
		}
		perStart *= leg.Quote.ReceiveQty / leg.Quote.PayQty

		if leg.Mode == ModeInstant && leg.Quote.Stock != nil {
			stock := *leg.Quote.Stock
			if isFinite(stock) && stock > 0 && next > stock {
				maxStart := 0.0
				if perStart > 0 {
					maxStart = stock / perStart
				}
				warnings = append(warnings,
					fmt.Sprintf("Step %d stock: need %.3f, available %.3f. Try listing or reduce start <= %.3f.",
						i+1, next, stock, maxStart))
			}
		}
		amount = next
	}

	end := amount
	profit := end - startAmount
	profitPct := 0.0
	if startAmount > 0 {
		profitPct = profit / startAmount * 100
	}
	if !isFinite(end) || !isFinite(profit) || !isFinite(profitPct) {
		return RoundTrip{Missing: []string{"Computation produced invalid values"}}
	}

	return RoundTrip{
		OK:        true,
		Start:     startAmount,
		End:       end,
		Profit:    profit,
		ProfitPct: profitPct,
		Warnings:  warnings,
	}
}

// SellSuggestion is a listing price derived from the current bid/ask.
type SellSuggestion struct {
	BestBid    float64
	BestAsk    float64
	Suggested  float64
	PayQty     float64
	ReceiveQty float64
}

// SuggestSellPrice derives a listing ratio between the best bid and best ask
// at the given aggressiveness in [0,1] (0 undercuts toward the bid, 1 holds
// out for the ask). ask is the item→other listing quote, bid the other→item
// instant quote; both are one-leg quotes independent of the round-trip chain.
// The suggestion is rounded to a precision scaling with its magnitude.
func SuggestSellPrice(ask, bid Quote, aggressiveness float64) (SellSuggestion, error) {
	if !ask.Valid() || !bid.Valid() {
		return SellSuggestion{}, fmt.Errorf("both ask and bid quotes are required")
	}

	bestAsk := ask.ReceiveQty / ask.PayQty // other per item
	bestBid := bid.PayQty / bid.ReceiveQty // other per item
	if !isFinite(bestAsk) || !isFinite(bestBid) || bestAsk <= 0 || bestBid <= 0 {
		return SellSuggestion{}, fmt.Errorf("invalid bid/ask values")
	}

	low := math.Min(bestBid, bestAsk)
	high := math.Max(bestBid, bestAsk)
	a := clamp01(aggressiveness)
	suggested := roundToMagnitude(low + (high-low)*a)

	return SellSuggestion{
		BestBid:    bestBid,
		BestAsk:    bestAsk,
		Suggested:  suggested,
		PayQty:     1,
		ReceiveQty: suggested,
	}, nil
}

// roundToMagnitude keeps 2 decimals for values >= 10, 3 for >= 1, else 4.
func roundToMagnitude(v float64) float64 {
	decimals := 4
	switch {
	case v >= 10:
		decimals = 2
	case v >= 1:
		decimals = 3
	}
	scale := math.Pow10(decimals)
	return math.Round(v*scale) / scale
}
