package arb

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"poe2-arb-scanner/internal/ninja"
)

// DataSource is the slice of the market data client the scanner consumes.
type DataSource interface {
	SearchCurrencyItems(ctx context.Context, league string) ([]ninja.SearchItem, error)
	CurrencyOverview(ctx context.Context, league string) (ninja.OverviewResponse, error)
	CurrencyDetails(ctx context.Context, league, detailsID string) (ninja.DetailsResponse, error)
}

// ProgressFunc receives scan progress snapshots. It is invoked once at start
// and once per settled item, in completion order; Done is monotonically
// non-decreasing and reaches Total before Scan returns.
type ProgressFunc func(p ScanProgress)

// Scanner fans out detail fetches over a market overview and aggregates
// qualifying routes into opportunities.
type Scanner struct {
	source DataSource
	logger zerolog.Logger
}

// NewScanner constructs a scanner over the given data source.
func NewScanner(source DataSource, logger zerolog.Logger) *Scanner {
	return &Scanner{
		source: source,
		logger: logger.With().Str("component", "scanner").Logger(),
	}
}

type itemResult struct {
	detailsID string
	data      ninja.DetailsResponse
	err       error
}

// Scan fetches the overview and search index, fans out detail fetches for
// every distinct detailsId, and aggregates successes into opportunities and
// failures into an error list. One item's failure never fails the scan; a
// non-empty Errors list means it succeeded with partial failures.
func (s *Scanner) Scan(ctx context.Context, league string, onProgress ProgressFunc) (ScanResult, error) {
	var (
		searchItems []ninja.SearchItem
		overview    ninja.OverviewResponse
	)

	var wg sync.WaitGroup
	var searchErr, overviewErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		searchItems, searchErr = s.source.SearchCurrencyItems(ctx, league)
	}()
	go func() {
		defer wg.Done()
		overview, overviewErr = s.source.CurrencyOverview(ctx, league)
	}()
	wg.Wait()

	if overviewErr != nil {
		return ScanResult{}, fmt.Errorf("fetch overview: %w", overviewErr)
	}
	if searchErr != nil {
		return ScanResult{}, fmt.Errorf("fetch search index: %w", searchErr)
	}

	iconByName := make(map[string]string, len(searchItems))
	for _, it := range searchItems {
		if it.Name != "" && it.Icon != "" {
			iconByName[it.Name] = it.Icon
		}
	}

	baseline := BaselineRates{
		ExaltedPerDiv: overview.Core.Rates.Exalted,
		ChaosPerDiv:   overview.Core.Rates.Chaos,
	}

	detailsIDs := dedupeDetailsIDs(overview.Items)
	total := len(detailsIDs)

	var mu sync.Mutex
	progress := ScanProgress{Total: total}
	emit := func() {
		if onProgress != nil {
			onProgress(progress)
		}
	}
	mu.Lock()
	emit()
	mu.Unlock()

	results := make([]itemResult, total)
	var fetchWG sync.WaitGroup
	for i, id := range detailsIDs {
		fetchWG.Add(1)
		go func(i int, id string) {
			defer fetchWG.Done()
			data, err := s.source.CurrencyDetails(ctx, league, id)
			results[i] = itemResult{detailsID: id, data: data, err: err}

			mu.Lock()
			progress.Done++
			if err != nil {
				progress.Failed++
			} else {
				progress.OK++
			}
			emit()
			mu.Unlock()
		}(i, id)
	}
	fetchWG.Wait()

	var errs []string
	var opportunities []Opportunity
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", r.detailsID, r.err))
			continue
		}

		normalized := Normalize(r.data)
		edges := ComputeScreeningEdges(normalized, baseline)
		if len(edges) == 0 {
			// No qualifying route; not an error.
			continue
		}

		iconURL := iconByName[normalized.Name]
		if iconURL == "" {
			iconURL = normalized.Image
		}

		for _, e := range edges {
			vol := ComputeVolumeMin(normalized, e.Kind)
			v := ComputeVolatility7d(normalized, e.Kind)
			opportunities = append(opportunities, Opportunity{
				ID:                  fmt.Sprintf("%s:%s", normalized.DetailsID, e.Kind),
				League:              league,
				DetailsID:           normalized.DetailsID,
				ItemName:            normalized.Name,
				IconURL:             iconURL,
				RouteKind:           e.Kind,
				Edge:                e.Edge,
				ImpliedOtherPerDiv:  e.ImpliedOtherPerDiv,
				BaselineOtherPerDiv: e.BaselineOtherPerDiv,
				PDiv:                e.PDiv,
				POther:              e.POther,
				VolumeDivLeg:        vol.DivLeg,
				VolumeOtherLeg:      vol.OtherLeg,
				VolumeMin:           vol.Min,
				Volatility7d:        v.Volatility,
				HistoryPointsUsed:   v.PointsUsed,
			})
		}
	}

	s.logger.Info().
		Str("league", league).
		Int("items", total).
		Int("opportunities", len(opportunities)).
		Int("failed", len(errs)).
		Msg("scan complete")

	return ScanResult{
		Overview:      snapshotOverview(league, overview, baseline),
		Opportunities: opportunities,
		Errors:        errs,
		Progress:      progress,
	}, nil
}

func dedupeDetailsIDs(items []ninja.OverviewItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it.DetailsID == "" {
			continue
		}
		if _, ok := seen[it.DetailsID]; ok {
			continue
		}
		seen[it.DetailsID] = struct{}{}
		ids = append(ids, it.DetailsID)
	}
	return ids
}

func snapshotOverview(league string, overview ninja.OverviewResponse, baseline BaselineRates) OverviewSnapshot {
	items := make([]OverviewListItem, 0, len(overview.Items))
	for _, it := range overview.Items {
		items = append(items, OverviewListItem{
			ID:        it.ID,
			Name:      it.Name,
			Image:     NormalizeImageURL(it.Image),
			DetailsID: it.DetailsID,
		})
	}
	return OverviewSnapshot{League: league, Baseline: baseline, Items: items}
}
