package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"poe2-arb-scanner/internal/arb"
)

// Export fetches one item's details and renders its aligned implied-rate
// series as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.DetailsID == "" {
		return errors.New("--id is required")
	}

	league, err := a.resolveLeague(opts.League)
	if err != nil {
		return err
	}

	kind := arb.RouteKind(opts.Route)
	if kind != arb.RouteExalted && kind != arb.RouteChaos {
		return fmt.Errorf("invalid route %q (want exalted or chaos)", opts.Route)
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	client := a.newClient()

	overview, err := client.CurrencyOverview(ctx, league)
	if err != nil {
		return fmt.Errorf("fetch overview: %w", err)
	}
	baseline := arb.BaselineRates{
		ExaltedPerDiv: overview.Core.Rates.Exalted,
		ChaosPerDiv:   overview.Core.Rates.Chaos,
	}
	baselineRate := baseline.ExaltedPerDiv
	if kind == arb.RouteChaos {
		baselineRate = baseline.ChaosPerDiv
	}

	details, err := client.CurrencyDetails(ctx, league, opts.DetailsID)
	if err != nil {
		return fmt.Errorf("fetch details: %w", err)
	}

	normalized := arb.Normalize(details)
	series := arb.AlignedImpliedSeries(normalized, kind)
	if len(series) == 0 {
		a.Logger.Info().Str("details_id", opts.DetailsID).Msg("no aligned history for route")
		return nil
	}

	series = downsampleSeries(series, opts.MaxPoints)
	a.Logger.Info().
		Str("details_id", opts.DetailsID).
		Str("route", string(kind)).
		Int("points", len(series)).
		Msg("exporting implied series")

	if opts.CSVPath != "" {
		if err := writeSeriesCSV(opts.CSVPath, series, baselineRate); err != nil {
			return err
		}
	}
	if opts.PNGPath != "" {
		volumes := volumeByTS(normalized, kind)
		if err := writeSeriesPNG(opts.PNGPath, normalized.Name, string(kind), series, baselineRate, volumes); err != nil {
			return err
		}
	}
	return nil
}

// volumeByTS indexes the route leg's history volumes by timestamp for the
// chart's secondary axis.
func volumeByTS(details arb.NormalizedDetails, kind arb.RouteKind) map[int64]float64 {
	pair, ok := details.Pairs[kind.Other()]
	if !ok {
		return nil
	}
	out := make(map[int64]float64, len(pair.History))
	for _, h := range pair.History {
		out[h.TS.UnixNano()] = h.VolumePrimaryValue
	}
	return out
}

func downsampleSeries(series []arb.ImpliedSeriesPoint, max int) []arb.ImpliedSeriesPoint {
	if max <= 0 || len(series) <= max {
		return series
	}

	result := make([]arb.ImpliedSeriesPoint, 0, max)
	step := float64(len(series)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(series) {
			idx = len(series) - 1
		}
		result = append(result, series[idx])
	}
	return result
}

func writeSeriesCSV(path string, series []arb.ImpliedSeriesPoint, baseline float64) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"ts", "implied_other_per_div", "baseline_other_per_div", "edge_pct"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, p := range series {
		edgePct := 0.0
		if baseline > 0 {
			edgePct = (p.ImpliedOtherPerDiv/baseline - 1) * 100
		}
		record := []string{
			p.TS.UTC().Format(time.RFC3339),
			strconv.FormatFloat(p.ImpliedOtherPerDiv, 'f', -1, 64),
			strconv.FormatFloat(baseline, 'f', -1, 64),
			strconv.FormatFloat(edgePct, 'f', 4, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeSeriesPNG(path, itemName, route string, series []arb.ImpliedSeriesPoint, baseline float64, volumes map[int64]float64) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(series))
	implied := make([]float64, len(series))
	base := make([]float64, len(series))
	volume := make([]float64, len(series))
	haveVolume := false
	for i, p := range series {
		x[i] = p.TS
		implied[i] = p.ImpliedOtherPerDiv
		base[i] = baseline
		if v, ok := volumes[p.TS.UnixNano()]; ok {
			volume[i] = v
			haveVolume = true
		}
	}

	rateFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.4f")
	}
	graph := chart.Chart{
		Title:  fmt.Sprintf("%s implied %s/div", itemName, route),
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           fmt.Sprintf("Rate (%s per div)", route),
			ValueFormatter: rateFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Implied",
				XValues: x,
				YValues: implied,
			},
			chart.TimeSeries{
				Name:    "Baseline",
				XValues: x,
				YValues: base,
			},
		},
	}
	if haveVolume {
		graph.YAxisSecondary = chart.YAxis{
			Name:           "Volume",
			ValueFormatter: chart.IntValueFormatter,
		}
		graph.Series = append(graph.Series, chart.TimeSeries{
			Name:    "Volume",
			YAxis:   chart.YAxisSecondary,
			XValues: x,
			YValues: volume,
		})
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
