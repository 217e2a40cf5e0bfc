package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"poe2-arb-scanner/internal/alerting"
	"poe2-arb-scanner/internal/arb"
	"poe2-arb-scanner/internal/config"
	"poe2-arb-scanner/internal/ninja"
	"poe2-arb-scanner/internal/scheduler"
	"poe2-arb-scanner/internal/service"
	"poe2-arb-scanner/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newClient() *ninja.Client {
	n := a.Config.Ninja
	return ninja.NewClient(ninja.Options{
		BaseURL:            n.BaseURL,
		UserAgent:          n.UserAgent,
		RequestTimeout:     n.RequestTimeout,
		LeaguesTTL:         n.LeaguesTTL,
		SearchTTL:          n.SearchTTL,
		OverviewTTL:        n.OverviewTTL,
		DetailsTTL:         n.DetailsTTL,
		DetailsConcurrency: n.DetailsConcurrency,
		DetailsRetries:     n.DetailsRetries,
		RetryBaseDelay:     n.RetryBaseDelay,
		JitterMin:          n.JitterMin,
		JitterMax:          n.JitterMax,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// resolveLeague prefers the CLI override, then config.
func (a *App) resolveLeague(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if a.Config.Scan.League != "" {
		return a.Config.Scan.League, nil
	}
	return "", errors.New("no league given; pass --league or set scan.league")
}

// Run executes the long-running scan daemon.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scan.Interval,
		AlignToStart: a.Config.Scan.AlignToBucket,
		StartupDelay: a.Config.Scan.StartupDelay,
	}, a.Logger)

	client := a.newClient()
	scanner := arb.NewScanner(client, a.Logger)
	notifier := a.newNotifier()

	var scanStore storage.ScanStore
	if store != nil {
		scanStore = store
	}

	svc := service.New(a.Config, sched, scanner, client, scanStore, notifier, a.Logger)

	a.Logger.Info().Str("league", a.Config.Scan.League).Msg("starting scan daemon")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("scan daemon terminated with error")
		return err
	}

	a.Logger.Info().Msg("scan daemon stopped")
	return nil
}

// ScanOptions configure a one-shot scan.
type ScanOptions struct {
	League  string
	Top     int
	Sort    string
	Persist bool
	Refresh bool
}

// ShowOptions configure the show command. A positive Runs lists recent runs
// across leagues instead of one run's opportunities.
type ShowOptions struct {
	League string
	Limit  int
	Runs   int
}

// ExportOptions hold parameters for exporting an item's implied series.
type ExportOptions struct {
	League    string
	DetailsID string
	Route     string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// QuoteOptions describe a manually entered round trip. Bid is optional; when
// its quantities are set a sell-price suggestion is printed alongside the
// round trip. Save persists the entered quotes for the (league, id, route);
// Load seeds missing inputs from the most recent saved snapshot.
type QuoteOptions struct {
	ItemName       string
	League         string
	DetailsID      string
	Route          string
	Start          float64
	Legs           [3]LegInput
	Bid            LegInput
	Aggressiveness float64
	Save           bool
	Load           bool
}

// LegInput is one leg's raw CLI input. The json tags fix the saved-snapshot
// schema.
type LegInput struct {
	PayQty     float64 `json:"payQty"`
	ReceiveQty float64 `json:"receiveQty"`
	Stock      float64 `json:"stock,omitempty"`
	Listing    bool    `json:"listing,omitempty"`
}
