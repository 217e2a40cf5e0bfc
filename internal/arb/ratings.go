package arb

import (
	"math"
	"sort"
)

// Thresholds calibrate the rating engine.
type Thresholds struct {
	MinProfitPct   float64 `mapstructure:"min_profit_pct"`
	GreatProfitPct float64 `mapstructure:"great_profit_pct"`

	MinVolumePerHour    float64 `mapstructure:"min_volume_per_hour"`
	TargetVolumePerHour float64 `mapstructure:"target_volume_per_hour"`

	TargetVolatility float64 `mapstructure:"target_volatility"`
	MaxVolatility    float64 `mapstructure:"max_volatility"`
}

// unknownVolatilityScore is the flat score applied when a route has no
// usable volatility estimate.
const unknownVolatilityScore = 0.65

func clamp01(x float64) float64 {
	if !isFinite(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func clamp100(x float64) float64 {
	if !isFinite(x) || x < 0 {
		return 0
	}
	if x > 100 {
		return 100
	}
	return x
}

// ProfitRating maps edge percent linearly from [MinProfitPct, GreatProfitPct]
// onto [0, 100], clamped. A non-positive denominator is treated as "no
// signal" rather than an error.
func ProfitRating(edgePct float64, t Thresholds) float64 {
	denom := t.GreatProfitPct - t.MinProfitPct
	if !isFinite(denom) || denom <= 0 {
		return 0
	}
	return clamp100(clamp01((edgePct-t.MinProfitPct)/denom) * 100)
}

// ExecutionRating scores how executable a route is from its volume floor and
// volatility. The geometric blend penalizes a weak dimension harder than an
// arithmetic mean would.
func ExecutionRating(volumeMin, volatility *float64, t Thresholds) float64 {
	if volumeMin == nil || !isFinite(*volumeMin) {
		return 0
	}
	if *volumeMin < t.MinVolumePerHour {
		return 0
	}
	if volatility != nil && isFinite(*volatility) && *volatility > t.MaxVolatility {
		return 0
	}

	volDenom := t.TargetVolumePerHour - t.MinVolumePerHour
	volumeScore := 0.0
	if volDenom > 0 {
		volumeScore = clamp01((*volumeMin - t.MinVolumePerHour) / volDenom)
	}

	volatilityScore := unknownVolatilityScore
	if volatility != nil && isFinite(*volatility) {
		switch {
		case *volatility <= t.TargetVolatility:
			volatilityScore = 1
		case *volatility >= t.MaxVolatility:
			volatilityScore = 0
		default:
			denom := t.MaxVolatility - t.TargetVolatility
			if denom > 0 {
				volatilityScore = clamp01(1 - (*volatility-t.TargetVolatility)/denom)
			} else {
				volatilityScore = 0
			}
		}
	}

	return clamp100(math.Sqrt(volumeScore*volatilityScore) * 100)
}

// OverallRating is the harmonic mean of the two sub-scores: a route strong in
// only one dimension scores low overall.
func OverallRating(profit, execution float64) float64 {
	if !isFinite(profit) || !isFinite(execution) {
		return 0
	}
	if profit <= 0 || execution <= 0 {
		return 0
	}
	return 2 / (1/profit + 1/execution)
}

// Rate fills the three rating fields of every opportunity in place.
func Rate(opps []Opportunity, t Thresholds) {
	for i := range opps {
		o := &opps[i]
		o.ProfitRating = ProfitRating(o.Edge*100, t)
		o.ExecutionRating = ExecutionRating(o.VolumeMin, o.Volatility7d, t)
		o.Overall = OverallRating(o.ProfitRating, o.ExecutionRating)
	}
}

// SortMode selects the opportunity ordering.
type SortMode string

const (
	SortOverall   SortMode = "overall"
	SortProfit    SortMode = "profit"
	SortExecution SortMode = "execution"
)

// SortOpportunities orders opportunities descending by the chosen score.
func SortOpportunities(opps []Opportunity, mode SortMode) {
	key := func(o Opportunity) float64 {
		switch mode {
		case SortProfit:
			return o.ProfitRating
		case SortExecution:
			return o.ExecutionRating
		default:
			return o.Overall
		}
	}
	// Stable so equal scores keep scan order.
	sort.SliceStable(opps, func(i, j int) bool { return key(opps[i]) > key(opps[j]) })
}
