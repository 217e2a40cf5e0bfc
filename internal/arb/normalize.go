package arb

import (
	"math"
	"sort"
	"strings"
	"time"

	"poe2-arb-scanner/internal/ninja"
)

const cdnBase = "https://web.poecdn.com"

// NormalizeImageURL absolutizes the CDN-relative icon paths the API returns.
func NormalizeImageURL(src string) string {
	if strings.HasPrefix(src, "/gen/image/") {
		return cdnBase + src
	}
	return src
}

// Normalize converts a raw details payload into the canonical structure.
// Pairs outside the reference-currency set, non-finite numeric fields, and
// history points with unparsable timestamps are dropped; the output is a
// best-effort partial structure, never an error.
func Normalize(d ninja.DetailsResponse) NormalizedDetails {
	pairs := make(map[CurrencyID]PairQuote)
	for _, p := range d.Pairs {
		id := CurrencyID(p.ID)
		if !isReference(id) {
			continue
		}
		if !isFinite(p.Rate) || !isFinite(p.VolumePrimaryValue) {
			continue
		}
		pairs[id] = PairQuote{
			ID:                 id,
			Rate:               p.Rate,
			VolumePrimaryValue: p.VolumePrimaryValue,
			History:            parseHistory(p.History),
		}
	}

	return NormalizedDetails{
		DetailsID: d.Item.DetailsID,
		Name:      d.Item.Name,
		Image:     NormalizeImageURL(d.Item.Image),
		Pairs:     pairs,
	}
}

func parseHistory(raw []ninja.PairHistoryPoint) []PairHistoryPoint {
	points := make([]PairHistoryPoint, 0, len(raw))
	for _, h := range raw {
		ts, err := time.Parse(time.RFC3339, h.Timestamp)
		if err != nil {
			continue
		}
		if !isFinite(h.Rate) || !isFinite(h.VolumePrimaryValue) {
			continue
		}
		points = append(points, PairHistoryPoint{
			TS:                 ts,
			Rate:               h.Rate,
			VolumePrimaryValue: h.VolumePrimaryValue,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].TS.Before(points[j].TS) })
	return points
}

func isReference(id CurrencyID) bool {
	for _, c := range ReferenceCurrencies {
		if c == id {
			return true
		}
	}
	return false
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
