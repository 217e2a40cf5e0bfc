package arb

import (
	"math"
	"testing"
)

func testThresholds() Thresholds {
	return Thresholds{
		MinProfitPct:        2,
		GreatProfitPct:      12,
		MinVolumePerHour:    5,
		TargetVolumePerHour: 50,
		TargetVolatility:    0.08,
		MaxVolatility:       0.18,
	}
}

func fp(v float64) *float64 { return &v }

func TestProfitRatingLinearMapping(t *testing.T) {
	th := testThresholds()

	cases := []struct {
		edgePct float64
		want    float64
	}{
		{1, 0},
		{2, 0},
		{7, 50},
		{12, 100},
		{20, 100},
	}
	for _, tc := range cases {
		if got := ProfitRating(tc.edgePct, th); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("ProfitRating(%v) = %v, want %v", tc.edgePct, got, tc.want)
		}
	}
}

func TestProfitRatingDegenerateThresholds(t *testing.T) {
	th := testThresholds()
	th.GreatProfitPct = th.MinProfitPct
	if got := ProfitRating(50, th); got != 0 {
		t.Fatalf("collapsed band should score 0, got %v", got)
	}
}

func TestExecutionRatingVolumeFloor(t *testing.T) {
	th := testThresholds()

	if got := ExecutionRating(nil, nil, th); got != 0 {
		t.Fatalf("unknown volume scores 0, got %v", got)
	}
	if got := ExecutionRating(fp(4), nil, th); got != 0 {
		t.Fatalf("below-floor volume scores 0, got %v", got)
	}
}

func TestExecutionRatingVolatilityCeiling(t *testing.T) {
	th := testThresholds()
	if got := ExecutionRating(fp(50), fp(0.19), th); got != 0 {
		t.Fatalf("above max volatility scores 0, got %v", got)
	}
}

func TestExecutionRatingUnknownVolatilityDefault(t *testing.T) {
	th := testThresholds()
	// Full volume score with the 0.65 unknown-volatility default:
	// sqrt(1 * 0.65) * 100.
	want := math.Sqrt(0.65) * 100
	if got := ExecutionRating(fp(50), nil, th); math.Abs(got-want) > 1e-9 {
		t.Fatalf("ExecutionRating = %v, want %v", got, want)
	}
}

func TestExecutionRatingCalmMarket(t *testing.T) {
	th := testThresholds()
	if got := ExecutionRating(fp(50), fp(0.05), th); math.Abs(got-100) > 1e-9 {
		t.Fatalf("full volume and calm volatility should score 100, got %v", got)
	}
}

func TestExecutionRatingMidpointVolatility(t *testing.T) {
	th := testThresholds()
	// Volatility halfway between target and max halves the volatility score.
	got := ExecutionRating(fp(50), fp(0.13), th)
	want := math.Sqrt(0.5) * 100
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("ExecutionRating = %v, want %v", got, want)
	}
}

func TestOverallRatingHarmonicMean(t *testing.T) {
	if got := OverallRating(0, 100); got != 0 {
		t.Fatalf("zero profit should zero the overall, got %v", got)
	}
	if got := OverallRating(100, 0); got != 0 {
		t.Fatalf("zero execution should zero the overall, got %v", got)
	}
	if got := OverallRating(100, 100); math.Abs(got-100) > 1e-9 {
		t.Fatalf("equal scores keep the value, got %v", got)
	}
	// Harmonic mean of 50 and 100 is 200/3.
	if got := OverallRating(50, 100); math.Abs(got-200.0/3) > 1e-9 {
		t.Fatalf("OverallRating(50, 100) = %v", got)
	}
}

func TestRateFillsOpportunities(t *testing.T) {
	th := testThresholds()
	opps := []Opportunity{
		{Edge: 0.12, VolumeMin: fp(50), Volatility7d: fp(0.05)},
		{Edge: 0.01, VolumeMin: fp(50)},
	}

	Rate(opps, th)

	if opps[0].ProfitRating != 100 || opps[0].ExecutionRating != 100 || opps[0].Overall != 100 {
		t.Fatalf("strong opportunity ratings: %+v", opps[0])
	}
	if opps[1].ProfitRating != 0 || opps[1].Overall != 0 {
		t.Fatalf("below-min edge should zero out: %+v", opps[1])
	}
}

func TestSortOpportunities(t *testing.T) {
	opps := []Opportunity{
		{ID: "a", Overall: 10, ProfitRating: 90},
		{ID: "b", Overall: 80, ProfitRating: 20},
		{ID: "c", Overall: 50, ProfitRating: 50},
	}

	SortOpportunities(opps, SortOverall)
	if opps[0].ID != "b" || opps[1].ID != "c" || opps[2].ID != "a" {
		t.Fatalf("overall order wrong: %v %v %v", opps[0].ID, opps[1].ID, opps[2].ID)
	}

	SortOpportunities(opps, SortProfit)
	if opps[0].ID != "a" {
		t.Fatalf("profit order wrong: %v", opps[0].ID)
	}
}
