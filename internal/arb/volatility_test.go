package arb

import (
	"math"
	"testing"
	"time"
)

func historyDetails(divRates, exRates []float64) NormalizedDetails {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	mkHistory := func(rates []float64) []PairHistoryPoint {
		points := make([]PairHistoryPoint, 0, len(rates))
		for i, r := range rates {
			points = append(points, PairHistoryPoint{TS: base.Add(time.Duration(i) * time.Hour), Rate: r})
		}
		return points
	}

	return NormalizedDetails{Pairs: map[CurrencyID]PairQuote{
		Divine:  {ID: Divine, Rate: 0.004, History: mkHistory(divRates)},
		Exalted: {ID: Exalted, Rate: 1.1, History: mkHistory(exRates)},
	}}
}

func TestComputeVolatility7dInsufficientData(t *testing.T) {
	d := historyDetails([]float64{0.004, 0.004}, []float64{1.1, 1.1})

	res := ComputeVolatility7d(d, RouteExalted)
	if res.Volatility != nil {
		t.Fatalf("fewer than 3 points should yield nil, got %v", *res.Volatility)
	}
	if res.PointsUsed != 2 {
		t.Fatalf("points used: %d", res.PointsUsed)
	}
}

func TestComputeVolatility7dConstantSeries(t *testing.T) {
	d := historyDetails(
		[]float64{0.004, 0.004, 0.004, 0.004},
		[]float64{1.1, 1.1, 1.1, 1.1},
	)

	res := ComputeVolatility7d(d, RouteExalted)
	if res.Volatility == nil {
		t.Fatal("constant series should yield zero, not nil")
	}
	if *res.Volatility != 0 {
		t.Fatalf("constant series volatility: %v", *res.Volatility)
	}
	if res.PointsUsed != 4 {
		t.Fatalf("points used: %d", res.PointsUsed)
	}
}

func TestComputeVolatility7dWindowsLastSeven(t *testing.T) {
	// 10 aligned points; only the last 7 should count.
	div := make([]float64, 10)
	ex := make([]float64, 10)
	for i := range div {
		div[i] = 0.004
		ex[i] = 1.1
	}

	res := ComputeVolatility7d(historyDetails(div, ex), RouteExalted)
	if res.PointsUsed != 7 {
		t.Fatalf("window should cap at 7, got %d", res.PointsUsed)
	}
	if len(res.Series) != 7 {
		t.Fatalf("series length: %d", len(res.Series))
	}
}

func TestComputeVolatility7dPopulationStdev(t *testing.T) {
	// Implied rates 100, 110, 100: log returns r, -r with r = ln(1.1).
	// Population stdev of {r, -r} is |r|.
	d := historyDetails(
		[]float64{0.01, 0.01, 0.01},
		[]float64{1.0, 1.1, 1.0},
	)

	res := ComputeVolatility7d(d, RouteExalted)
	if res.Volatility == nil {
		t.Fatal("expected a volatility value")
	}
	want := math.Log(1.1)
	if math.Abs(*res.Volatility-want) > 1e-12 {
		t.Fatalf("volatility %v, want %v", *res.Volatility, want)
	}
}

func TestComputeVolatility7dUnalignedTimestamps(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	d := NormalizedDetails{Pairs: map[CurrencyID]PairQuote{
		Divine: {ID: Divine, History: []PairHistoryPoint{
			{TS: base, Rate: 0.004},
			{TS: base.Add(time.Hour), Rate: 0.004},
		}},
		Exalted: {ID: Exalted, History: []PairHistoryPoint{
			{TS: base.Add(30 * time.Minute), Rate: 1.1},
			{TS: base.Add(90 * time.Minute), Rate: 1.1},
		}},
	}}

	res := ComputeVolatility7d(d, RouteExalted)
	if res.PointsUsed != 0 {
		t.Fatalf("no exact timestamp matches means no series, got %d", res.PointsUsed)
	}
	if res.Volatility != nil {
		t.Fatal("volatility should be nil without aligned points")
	}
}

func TestAlignedImpliedSeriesValues(t *testing.T) {
	d := historyDetails(
		[]float64{0.004, 0.005},
		[]float64{1.0, 1.0},
	)

	series := AlignedImpliedSeries(d, RouteExalted)
	if len(series) != 2 {
		t.Fatalf("series length: %d", len(series))
	}
	if math.Abs(series[0].ImpliedOtherPerDiv-250) > 1e-9 {
		t.Fatalf("first implied rate: %v", series[0].ImpliedOtherPerDiv)
	}
	if math.Abs(series[1].ImpliedOtherPerDiv-200) > 1e-9 {
		t.Fatalf("second implied rate: %v", series[1].ImpliedOtherPerDiv)
	}
}
