package arb

import "time"

// CurrencyID is one of the fixed reference currencies every route is
// expressed against.
type CurrencyID string

const (
	// Divine is the numeraire: baselines and edges are divine-denominated.
	Divine  CurrencyID = "divine"
	Exalted CurrencyID = "exalted"
	Chaos   CurrencyID = "chaos"
)

// ReferenceCurrencies is the fixed set the normalizer keeps.
var ReferenceCurrencies = []CurrencyID{Divine, Exalted, Chaos}

// RouteKind names the reference currency a round trip exits through.
type RouteKind string

const (
	RouteExalted RouteKind = "exalted"
	RouteChaos   RouteKind = "chaos"
)

// Other returns the reference currency of the route's second leg.
func (k RouteKind) Other() CurrencyID {
	if k == RouteExalted {
		return Exalted
	}
	return Chaos
}

// PairHistoryPoint is one validated history sample.
type PairHistoryPoint struct {
	TS                 time.Time
	Rate               float64
	VolumePrimaryValue float64
}

// PairQuote is one reference currency's validated quote for an item.
type PairQuote struct {
	ID                 CurrencyID
	Rate               float64
	VolumePrimaryValue float64
	History            []PairHistoryPoint
}

// NormalizedDetails is the canonical per-item structure every analyzer
// consumes. Built fresh per fetch and never mutated afterwards. A missing
// reference currency in Pairs means that route is unscreenable for the item,
// which is a valid outcome rather than an error.
type NormalizedDetails struct {
	DetailsID string
	Name      string
	Image     string
	Pairs     map[CurrencyID]PairQuote
}

// BaselineRates are the published per-divine exchange rates the implied
// cross-rate is compared against. Recomputed on every overview fetch.
type BaselineRates struct {
	ExaltedPerDiv float64
	ChaosPerDiv   float64
}

// ScreeningEdge is the implied-vs-baseline deviation for one route.
// Edge = ImpliedOtherPerDiv/BaselineOtherPerDiv - 1.
type ScreeningEdge struct {
	Kind                RouteKind
	PDiv                float64
	POther              float64
	ImpliedOtherPerDiv  float64
	BaselineOtherPerDiv float64
	Edge                float64
}

// VolumeResult models route throughput as bottlenecked by the thinner leg.
// Nil means the leg's volume was unavailable.
type VolumeResult struct {
	DivLeg   *float64
	OtherLeg *float64
	Min      *float64
}

// ImpliedSeriesPoint is one aligned implied-rate sample.
type ImpliedSeriesPoint struct {
	TS                 time.Time
	ImpliedOtherPerDiv float64
}

// VolatilityResult carries the 7-point volatility. A nil Volatility means
// insufficient aligned history, which is distinct from zero volatility.
type VolatilityResult struct {
	Volatility *float64
	PointsUsed int
	Series     []ImpliedSeriesPoint
}

// Opportunity is one qualifying route for one item within a single scan.
// Identity is (DetailsID, RouteKind); each scan produces a fresh list.
type Opportunity struct {
	ID        string
	League    string
	DetailsID string
	ItemName  string
	IconURL   string

	RouteKind           RouteKind
	Edge                float64
	ImpliedOtherPerDiv  float64
	BaselineOtherPerDiv float64

	PDiv   float64
	POther float64

	VolumeDivLeg   *float64
	VolumeOtherLeg *float64
	VolumeMin      *float64

	Volatility7d      *float64
	HistoryPointsUsed int

	ProfitRating    float64
	ExecutionRating float64
	Overall         float64
}

// ScanProgress counters are monotonically non-decreasing for one scan and
// terminal once Done == Total.
type ScanProgress struct {
	Total  int
	Done   int
	OK     int
	Failed int
}

// ScanResult bundles a completed scan. A non-empty Errors list means the scan
// succeeded with partial failures. Progress is the terminal snapshot
// (Done == Total).
type ScanResult struct {
	Overview      OverviewSnapshot
	Opportunities []Opportunity
	Errors        []string
	Progress      ScanProgress
}

// OverviewSnapshot is the slice of overview data downstream views need.
type OverviewSnapshot struct {
	League   string
	Baseline BaselineRates
	Items    []OverviewListItem
}

// OverviewListItem is one overview row retained for detail views.
type OverviewListItem struct {
	ID        string
	Name      string
	Image     string
	DetailsID string
}
