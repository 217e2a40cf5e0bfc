package ninja

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"poe2-arb-scanner/internal/cache"
	"poe2-arb-scanner/internal/fetch"
	"poe2-arb-scanner/internal/limiter"
)

const (
	indexStatePath = "/poe2/api/data/index-state"
	searchPath     = "/poe2/api/economy/exchange/current/search"
	overviewPath   = "/poe2/api/economy/exchange/current/overview"
	detailsPath    = "/poe2/api/economy/exchange/current/details"
)

// Options parameterise the market data client.
type Options struct {
	BaseURL        string
	UserAgent      string
	RequestTimeout time.Duration

	LeaguesTTL  time.Duration
	SearchTTL   time.Duration
	OverviewTTL time.Duration
	DetailsTTL  time.Duration

	// DetailsConcurrency bounds simultaneous detail fetches.
	DetailsConcurrency int64
	// DetailsRetries and RetryBaseDelay govern the detail retry budget.
	DetailsRetries int
	RetryBaseDelay time.Duration
	// JitterMin/JitterMax bound the politeness delay before each detail
	// request; approximating a human request cadence keeps the remote's
	// rate limiting off our back.
	JitterMin time.Duration
	JitterMax time.Duration
}

func (o *Options) applyDefaults() {
	if o.BaseURL == "" {
		o.BaseURL = "https://poe.ninja"
	}
	if o.LeaguesTTL <= 0 {
		o.LeaguesTTL = 10 * time.Minute
	}
	if o.SearchTTL <= 0 {
		o.SearchTTL = 5 * time.Minute
	}
	if o.OverviewTTL <= 0 {
		o.OverviewTTL = 45 * time.Second
	}
	if o.DetailsTTL <= 0 {
		o.DetailsTTL = 3 * time.Minute
	}
	if o.DetailsConcurrency <= 0 {
		o.DetailsConcurrency = 2
	}
	if o.DetailsRetries <= 0 {
		o.DetailsRetries = 4
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = 500 * time.Millisecond
	}
	if o.JitterMin <= 0 {
		o.JitterMin = 450 * time.Millisecond
	}
	if o.JitterMax <= o.JitterMin {
		o.JitterMax = o.JitterMin + 450*time.Millisecond
	}
}

// Client wraps the four remote endpoints behind endpoint-specific TTL caches.
// Detail fetches additionally pass through the concurrency limiter, a
// randomized politeness delay, and a deeper retry budget.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	api     *fetch.Client
	details *fetch.Client
	limit   *limiter.Limiter

	indexCache    *cache.Cache[IndexState]
	searchCache   *cache.Cache[SearchResponse]
	overviewCache *cache.Cache[OverviewResponse]
	detailsCache  *cache.Cache[DetailsResponse]

	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient constructs a market data client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	opts.applyDefaults()

	logger = logger.With().Str("component", "ninja_client").Logger()

	return &Client{
		opts:   opts,
		logger: logger,
		api: fetch.New(fetch.Options{
			Timeout:   opts.RequestTimeout,
			UserAgent: opts.UserAgent,
			Retries:   2,
			BaseDelay: 250 * time.Millisecond,
		}, logger),
		details: fetch.New(fetch.Options{
			Timeout:   opts.RequestTimeout,
			UserAgent: opts.UserAgent,
			Retries:   opts.DetailsRetries,
			BaseDelay: opts.RetryBaseDelay,
		}, logger),
		limit:         limiter.New(opts.DetailsConcurrency),
		indexCache:    cache.New[IndexState](),
		searchCache:   cache.New[SearchResponse](),
		overviewCache: cache.New[OverviewResponse](),
		detailsCache:  cache.New[DetailsResponse](),
		sleep:         sleepCtx,
	}
}

// IndexState returns the cached index state.
func (c *Client) IndexState(ctx context.Context) (IndexState, error) {
	return c.indexCache.GetOrLoad(ctx, "index-state", c.opts.LeaguesTTL, func(ctx context.Context) (IndexState, error) {
		var state IndexState
		err := c.api.GetJSON(ctx, c.opts.BaseURL+indexStatePath, &state)
		return state, err
	})
}

// EconomyLeagues lists the leagues the remote currently indexes.
func (c *Client) EconomyLeagues(ctx context.Context) ([]EconomyLeague, error) {
	state, err := c.IndexState(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch index state: %w", err)
	}
	return state.EconomyLeagues, nil
}

// ExchangeSearch returns the cached search index for a league.
func (c *Client) ExchangeSearch(ctx context.Context, league string) (SearchResponse, error) {
	key := "search:" + league
	return c.searchCache.GetOrLoad(ctx, key, c.opts.SearchTTL, func(ctx context.Context) (SearchResponse, error) {
		u := fmt.Sprintf("%s%s?league=%s", c.opts.BaseURL, searchPath, url.QueryEscape(league))
		var res SearchResponse
		err := c.api.GetJSON(ctx, u, &res)
		return res, err
	})
}

// SearchCurrencyItems returns the currency slice of the search index.
func (c *Client) SearchCurrencyItems(ctx context.Context, league string) ([]SearchItem, error) {
	res, err := c.ExchangeSearch(ctx, league)
	if err != nil {
		return nil, err
	}
	return res.Items["Currency"], nil
}

// CurrencyOverview returns the cached currency market overview for a league.
func (c *Client) CurrencyOverview(ctx context.Context, league string) (OverviewResponse, error) {
	key := "overview:Currency:" + league
	return c.overviewCache.GetOrLoad(ctx, key, c.opts.OverviewTTL, func(ctx context.Context) (OverviewResponse, error) {
		u := fmt.Sprintf("%s%s?league=%s&type=Currency", c.opts.BaseURL, overviewPath, url.QueryEscape(league))
		var res OverviewResponse
		err := c.api.GetJSON(ctx, u, &res)
		return res, err
	})
}

// CurrencyDetails returns the cached per-item detail payload. Cache misses
// pass through the limiter, sleep a randomized politeness delay, then fetch
// with the deeper retry budget.
func (c *Client) CurrencyDetails(ctx context.Context, league, detailsID string) (DetailsResponse, error) {
	key := detailsKey(league, detailsID)
	return c.detailsCache.GetOrLoad(ctx, key, c.opts.DetailsTTL, func(ctx context.Context) (DetailsResponse, error) {
		var res DetailsResponse
		err := c.limit.Do(ctx, func(ctx context.Context) error {
			if err := c.sleep(ctx, c.jitter()); err != nil {
				return err
			}
			u := fmt.Sprintf("%s%s?league=%s&type=Currency&id=%s",
				c.opts.BaseURL, detailsPath, url.QueryEscape(league), url.QueryEscape(detailsID))
			return c.details.GetJSON(ctx, u, &res)
		})
		return res, err
	})
}

// InvalidateLeague clears the overview, search, and detail caches for a
// league, forcing the next read to be a true refresh.
func (c *Client) InvalidateLeague(league string) {
	c.overviewCache.Invalidate("overview:Currency:" + league)
	c.searchCache.Invalidate("search:" + league)
	c.detailsCache.InvalidatePrefix(detailsKey(league, ""))
	c.logger.Debug().Str("league", league).Msg("league caches invalidated")
}

// InvalidateDetails clears one item's detail cache entry.
func (c *Client) InvalidateDetails(league, detailsID string) {
	c.detailsCache.Invalidate(detailsKey(league, detailsID))
}

func detailsKey(league, detailsID string) string {
	return "details:Currency:" + league + ":" + detailsID
}

func (c *Client) jitter() time.Duration {
	span := c.opts.JitterMax - c.opts.JitterMin
	// The global source is fine here; the delay only needs to look human.
	return c.opts.JitterMin + time.Duration(rand.Int63n(int64(span)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
