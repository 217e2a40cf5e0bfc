package ninja

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server, *int32) {
	t.Helper()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Options{BaseURL: srv.URL}, zerolog.Nop())
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c, srv, &hits
}

func TestEconomyLeaguesCached(t *testing.T) {
	c, _, hits := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != indexStatePath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"economyLeagues":[{"name":"Standard","indexed":true}]}`))
	}))

	for i := 0; i < 3; i++ {
		leagues, err := c.EconomyLeagues(context.Background())
		if err != nil {
			t.Fatalf("EconomyLeagues: %v", err)
		}
		if len(leagues) != 1 || leagues[0].Name != "Standard" {
			t.Fatalf("unexpected leagues: %#v", leagues)
		}
	}

	if got := atomic.LoadInt32(hits); got != 1 {
		t.Fatalf("index state should be fetched once, got %d", got)
	}
}

func TestSearchCurrencyItems(t *testing.T) {
	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("league"); got != "Rise of the Abyssal" {
			t.Errorf("league param: %q", got)
		}
		w.Write([]byte(`{"items":{"Currency":[{"name":"Chance Shard","icon":"/gen/image/x.png"}]}}`))
	}))

	items, err := c.SearchCurrencyItems(context.Background(), "Rise of the Abyssal")
	if err != nil {
		t.Fatalf("SearchCurrencyItems: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Chance Shard" {
		t.Fatalf("unexpected items: %#v", items)
	}
}

func TestCurrencyDetailsCachedPerItem(t *testing.T) {
	c, _, hits := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		w.Write([]byte(`{"item":{"detailsId":"` + id + `"},"pairs":[]}`))
	}))

	for i := 0; i < 2; i++ {
		if _, err := c.CurrencyDetails(context.Background(), "Standard", "chance-shard"); err != nil {
			t.Fatalf("CurrencyDetails: %v", err)
		}
	}
	if _, err := c.CurrencyDetails(context.Background(), "Standard", "vaal-orb"); err != nil {
		t.Fatalf("CurrencyDetails: %v", err)
	}

	if got := atomic.LoadInt32(hits); got != 2 {
		t.Fatalf("expected one fetch per distinct id, got %d", got)
	}
}

func TestInvalidateLeagueForcesRefetch(t *testing.T) {
	c, _, hits := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case overviewPath:
			w.Write([]byte(`{"core":{"items":[],"rates":{"exalted":250,"chaos":25}},"items":[]}`))
		case searchPath:
			w.Write([]byte(`{"items":{"Currency":[]}}`))
		case detailsPath:
			w.Write([]byte(`{"item":{},"pairs":[]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	ctx := context.Background()
	if _, err := c.CurrencyOverview(ctx, "Standard"); err != nil {
		t.Fatalf("overview: %v", err)
	}
	if _, err := c.SearchCurrencyItems(ctx, "Standard"); err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, err := c.CurrencyDetails(ctx, "Standard", "divine-orb"); err != nil {
		t.Fatalf("details: %v", err)
	}
	if got := atomic.LoadInt32(hits); got != 3 {
		t.Fatalf("expected 3 initial fetches, got %d", got)
	}

	c.InvalidateLeague("Standard")

	if _, err := c.CurrencyOverview(ctx, "Standard"); err != nil {
		t.Fatalf("overview after invalidate: %v", err)
	}
	if _, err := c.SearchCurrencyItems(ctx, "Standard"); err != nil {
		t.Fatalf("search after invalidate: %v", err)
	}
	if _, err := c.CurrencyDetails(ctx, "Standard", "divine-orb"); err != nil {
		t.Fatalf("details after invalidate: %v", err)
	}
	if got := atomic.LoadInt32(hits); got != 6 {
		t.Fatalf("invalidated league should refetch everything, got %d", got)
	}
}

func TestCurrencyOverviewParsesBaseline(t *testing.T) {
	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"core":{"items":[{"id":"1","name":"Divine Orb","detailsId":"divine-orb"}],"rates":{"exalted":312.5,"chaos":18.75}},"items":[]}`))
	}))

	overview, err := c.CurrencyOverview(context.Background(), "Standard")
	if err != nil {
		t.Fatalf("CurrencyOverview: %v", err)
	}
	if overview.Core.Rates.Exalted != 312.5 || overview.Core.Rates.Chaos != 18.75 {
		t.Fatalf("unexpected rates: %#v", overview.Core.Rates)
	}
	if len(overview.Core.Items) != 1 || overview.Core.Items[0].DetailsID != "divine-orb" {
		t.Fatalf("unexpected items: %#v", overview.Core.Items)
	}
}

func TestJitterStaysWithinBounds(t *testing.T) {
	c := NewClient(Options{
		JitterMin: 450 * time.Millisecond,
		JitterMax: 900 * time.Millisecond,
	}, zerolog.Nop())

	for i := 0; i < 100; i++ {
		d := c.jitter()
		if d < 450*time.Millisecond || d >= 900*time.Millisecond {
			t.Fatalf("jitter %v out of [450ms, 900ms)", d)
		}
	}
}
