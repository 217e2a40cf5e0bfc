package arb

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"poe2-arb-scanner/internal/ninja"
)

type fakeSource struct {
	search   []ninja.SearchItem
	overview ninja.OverviewResponse
	details  map[string]ninja.DetailsResponse
	failIDs  map[string]error

	searchErr   error
	overviewErr error
}

func (f *fakeSource) SearchCurrencyItems(ctx context.Context, league string) ([]ninja.SearchItem, error) {
	return f.search, f.searchErr
}

func (f *fakeSource) CurrencyOverview(ctx context.Context, league string) (ninja.OverviewResponse, error) {
	return f.overview, f.overviewErr
}

func (f *fakeSource) CurrencyDetails(ctx context.Context, league, detailsID string) (ninja.DetailsResponse, error) {
	if err, ok := f.failIDs[detailsID]; ok {
		return ninja.DetailsResponse{}, err
	}
	return f.details[detailsID], nil
}

func detailsResponse(id, name string, divRate, exRate float64) ninja.DetailsResponse {
	return ninja.DetailsResponse{
		Item: ninja.OverviewItem{DetailsID: id, Name: name},
		Pairs: []ninja.DetailsPair{
			{ID: "divine", Rate: divRate, VolumePrimaryValue: 100},
			{ID: "exalted", Rate: exRate, VolumePrimaryValue: 80},
		},
	}
}

func scanFixture() *fakeSource {
	return &fakeSource{
		search: []ninja.SearchItem{
			{Name: "Chance Shard", Icon: "/gen/image/cs.png"},
		},
		overview: ninja.OverviewResponse{
			Core: ninja.OverviewCore{Rates: ninja.CoreRates{Exalted: 250, Chaos: 25}},
			Items: []ninja.OverviewItem{
				{ID: "1", Name: "Chance Shard", DetailsID: "chance-shard"},
				{ID: "2", Name: "Vaal Orb", DetailsID: "vaal-orb"},
				{ID: "3", Name: "Gemcutter's Prism", DetailsID: "gemcutters-prism"},
				{ID: "3b", Name: "Gemcutter's Prism", DetailsID: "gemcutters-prism"},
			},
		},
		details: map[string]ninja.DetailsResponse{
			"chance-shard":     detailsResponse("chance-shard", "Chance Shard", 0.004, 1.1),
			"gemcutters-prism": detailsResponse("gemcutters-prism", "Gemcutter's Prism", 0.01, 2.5),
		},
		failIDs: map[string]error{
			"vaal-orb": errors.New("http error: 503"),
		},
	}
}

func TestScanAggregatesPartialFailures(t *testing.T) {
	src := scanFixture()
	scanner := NewScanner(src, zerolog.Nop())

	result, err := scanner.Scan(context.Background(), "Standard", nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "vaal-orb") {
		t.Fatalf("errors: %v", result.Errors)
	}

	// Two items succeed, each with exalted route only (no chaos pair quoted).
	if len(result.Opportunities) != 2 {
		t.Fatalf("expected 2 opportunities, got %d: %#v", len(result.Opportunities), result.Opportunities)
	}
	byID := map[string]Opportunity{}
	for _, o := range result.Opportunities {
		byID[o.ID] = o
	}
	cs, ok := byID["chance-shard:exalted"]
	if !ok {
		t.Fatalf("missing chance-shard route: %v", byID)
	}
	if cs.IconURL != "/gen/image/cs.png" {
		t.Fatalf("search icon should win: %q", cs.IconURL)
	}
	if cs.VolumeMin == nil || *cs.VolumeMin != 80 {
		t.Fatalf("volume min: %v", cs.VolumeMin)
	}

	p := result.Progress
	if p.Total != 3 || p.Done != 3 || p.OK != 2 || p.Failed != 1 {
		t.Fatalf("terminal progress: %+v", p)
	}
}

func TestScanProgressMonotonic(t *testing.T) {
	src := scanFixture()
	scanner := NewScanner(src, zerolog.Nop())

	var mu sync.Mutex
	var snaps []ScanProgress
	_, err := scanner.Scan(context.Background(), "Standard", func(p ScanProgress) {
		mu.Lock()
		snaps = append(snaps, p)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(snaps) != 4 {
		t.Fatalf("expected initial + 3 item snapshots, got %d", len(snaps))
	}
	if snaps[0].Done != 0 || snaps[0].Total != 3 {
		t.Fatalf("initial snapshot: %+v", snaps[0])
	}
	for i := 1; i < len(snaps); i++ {
		if snaps[i].Done != snaps[i-1].Done+1 {
			t.Fatalf("Done must increase by one per settled item: %+v", snaps)
		}
		if snaps[i].Total != 3 {
			t.Fatalf("Total must stay fixed: %+v", snaps[i])
		}
	}
	last := snaps[len(snaps)-1]
	if last.Done != 3 || last.OK != 2 || last.Failed != 1 {
		t.Fatalf("final snapshot: %+v", last)
	}
}

func TestScanFailsWhenOverviewFails(t *testing.T) {
	src := scanFixture()
	src.overviewErr = errors.New("boom")
	scanner := NewScanner(src, zerolog.Nop())

	if _, err := scanner.Scan(context.Background(), "Standard", nil); err == nil {
		t.Fatal("overview failure must fail the scan")
	}
}

func TestScanFailsWhenSearchFails(t *testing.T) {
	src := scanFixture()
	src.searchErr = errors.New("boom")
	scanner := NewScanner(src, zerolog.Nop())

	if _, err := scanner.Scan(context.Background(), "Standard", nil); err == nil {
		t.Fatal("search failure must fail the scan")
	}
}

func TestScanFallsBackToDetailsImage(t *testing.T) {
	src := scanFixture()
	src.search = nil
	d := src.details["chance-shard"]
	d.Item.Image = "/gen/image/fallback.png"
	src.details["chance-shard"] = d

	scanner := NewScanner(src, zerolog.Nop())
	result, err := scanner.Scan(context.Background(), "Standard", nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	for _, o := range result.Opportunities {
		if o.DetailsID == "chance-shard" {
			if o.IconURL != "https://web.poecdn.com/gen/image/fallback.png" {
				t.Fatalf("details image fallback: %q", o.IconURL)
			}
			return
		}
	}
	t.Fatal("chance-shard opportunity missing")
}

func TestDedupeDetailsIDs(t *testing.T) {
	ids := dedupeDetailsIDs([]ninja.OverviewItem{
		{DetailsID: "a"},
		{DetailsID: ""},
		{DetailsID: "b"},
		{DetailsID: "a"},
	})
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("dedupe: %v", ids)
	}
}
