package arb

// rateFor returns a pair's rate when present, finite, and positive.
func rateFor(details NormalizedDetails, id CurrencyID) (float64, bool) {
	p, ok := details.Pairs[id]
	if !ok {
		return 0, false
	}
	if !isFinite(p.Rate) || p.Rate <= 0 {
		return 0, false
	}
	return p.Rate, true
}

// ComputeScreeningEdges derives the implied cross-rate edge versus baseline
// for every route whose legs are quotable. Without a positive divine rate no
// route is screenable and the result is empty. A route whose baseline is
// non-positive is omitted; the others are still computed.
func ComputeScreeningEdges(details NormalizedDetails, baseline BaselineRates) []ScreeningEdge {
	pDiv, ok := rateFor(details, Divine)
	if !ok {
		return nil
	}

	var out []ScreeningEdge
	routes := []struct {
		kind     RouteKind
		other    CurrencyID
		baseline float64
	}{
		{RouteExalted, Exalted, baseline.ExaltedPerDiv},
		{RouteChaos, Chaos, baseline.ChaosPerDiv},
	}

	for _, r := range routes {
		pOther, ok := rateFor(details, r.other)
		if !ok {
			continue
		}
		if !isFinite(r.baseline) || r.baseline <= 0 {
			continue
		}
		implied := pOther / pDiv
		out = append(out, ScreeningEdge{
			Kind:                r.kind,
			PDiv:                pDiv,
			POther:              pOther,
			ImpliedOtherPerDiv:  implied,
			BaselineOtherPerDiv: r.baseline,
			Edge:                implied/r.baseline - 1,
		})
	}
	return out
}
