package arb

import (
	"math"
	"sort"
)

const volatilityWindow = 7

// buildAlignedImpliedSeries inner-joins the divine and other legs' histories
// on exact timestamp and returns the implied other-per-divine series.
func buildAlignedImpliedSeries(details NormalizedDetails, other CurrencyID) []ImpliedSeriesPoint {
	div, okDiv := details.Pairs[Divine]
	oth, okOth := details.Pairs[other]
	if !okDiv || !okOth {
		return nil
	}

	divByTS := make(map[int64]float64, len(div.History))
	for _, h := range div.History {
		divByTS[h.TS.UnixNano()] = h.Rate
	}

	series := make([]ImpliedSeriesPoint, 0, len(oth.History))
	for _, h := range oth.History {
		divRate, ok := divByTS[h.TS.UnixNano()]
		if !ok || divRate <= 0 {
			continue
		}
		if !isFinite(h.Rate) || h.Rate <= 0 {
			continue
		}
		series = append(series, ImpliedSeriesPoint{TS: h.TS, ImpliedOtherPerDiv: h.Rate / divRate})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].TS.Before(series[j].TS) })
	return series
}

// AlignedImpliedSeries exposes the full aligned implied-rate series for a
// route, oldest first. Used by history exports.
func AlignedImpliedSeries(details NormalizedDetails, kind RouteKind) []ImpliedSeriesPoint {
	return buildAlignedImpliedSeries(details, kind.Other())
}

// ComputeVolatility7d computes the population standard deviation of log
// returns over the last up-to-7 aligned implied-rate samples. Fewer than 3
// aligned points yields a nil Volatility: insufficient data is distinct from
// zero volatility. The window is 7 samples, not 7 calendar days; downstream
// thresholds are calibrated against exactly this statistic.
func ComputeVolatility7d(details NormalizedDetails, kind RouteKind) VolatilityResult {
	all := buildAlignedImpliedSeries(details, kind.Other())
	start := len(all) - volatilityWindow
	if start < 0 {
		start = 0
	}
	series := all[start:]

	if len(series) < 3 {
		return VolatilityResult{PointsUsed: len(series), Series: series}
	}

	returns := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev := series[i-1].ImpliedOtherPerDiv
		cur := series[i].ImpliedOtherPerDiv
		if !isFinite(prev) || !isFinite(cur) || prev <= 0 || cur <= 0 {
			continue
		}
		returns = append(returns, math.Log(cur/prev))
	}

	vol := populationStdev(returns)
	return VolatilityResult{Volatility: vol, PointsUsed: len(series), Series: series}
}

// populationStdev divides by N, not N-1.
func populationStdev(values []float64) *float64 {
	if len(values) < 2 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	sd := math.Sqrt(variance)
	return &sd
}
