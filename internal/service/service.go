package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"poe2-arb-scanner/internal/alerting"
	"poe2-arb-scanner/internal/arb"
	"poe2-arb-scanner/internal/config"
	"poe2-arb-scanner/internal/scheduler"
	"poe2-arb-scanner/internal/storage"
)

// Refresher invalidates a league's caches so a tick sees live data.
type Refresher interface {
	InvalidateLeague(league string)
}

// Service orchestrates the periodic scan loop: invalidate, scan, rate,
// persist, alert.
type Service struct {
	scheduler *scheduler.Scheduler
	scanner   *arb.Scanner
	refresher Refresher
	store     storage.ScanStore
	notifier  alerting.Notifier
	logger    zerolog.Logger

	league     string
	thresholds arb.Thresholds
	sortMode   arb.SortMode

	alertsOn   bool
	minOverall float64
	cooldown   time.Duration
	channels   []string
	lastAlert  time.Time

	locker  storage.AdvisoryLocker
	lockKey int64
}

// New constructs the scan service.
func New(cfg *config.Config, sched *scheduler.Scheduler, scanner *arb.Scanner, refresher Refresher, store storage.ScanStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:  sched,
		scanner:    scanner,
		refresher:  refresher,
		store:      store,
		notifier:   notifier,
		logger:     logger.With().Str("component", "service").Logger(),
		league:     cfg.Scan.League,
		thresholds: cfg.Thresholds,
		sortMode:   arb.SortMode(cfg.Scan.SortMode),
		alertsOn:   cfg.Alerting.Enabled,
		minOverall: cfg.Alerting.MinOverall,
		cooldown:   cfg.Alerting.Cooldown,
		channels:   cfg.Alerting.Channels,
		locker:     locker,
		lockKey:    cfg.Scan.AdvisoryLockKey,
	}
}

// Run begins the aligned scan loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	if s.league == "" {
		return fmt.Errorf("scan.league not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessTick)
}

// ProcessTick executes one scheduled scan.
func (s *Service) ProcessTick(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip tick because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeTick(ctx, bucket)
}

func (s *Service) executeTick(ctx context.Context, bucket time.Time) error {
	if s.refresher != nil {
		// A scheduled tick wants live data, not a cached read.
		s.refresher.InvalidateLeague(s.league)
	}

	startedAt := time.Now().UTC()
	result, err := s.scanner.Scan(ctx, s.league, s.progressLogger(bucket))
	if err != nil {
		return fmt.Errorf("scan league %s: %w", s.league, err)
	}
	finishedAt := time.Now().UTC()

	arb.Rate(result.Opportunities, s.thresholds)
	arb.SortOpportunities(result.Opportunities, s.sortMode)

	runID := uuid.New()
	if s.store != nil {
		run := storage.ScanRun{
			ID:         runID,
			League:     s.league,
			StartedAt:  startedAt,
			FinishedAt: finishedAt,
			Total:      result.Progress.Total,
			OK:         result.Progress.OK,
			Failed:     result.Progress.Failed,
			Errors:     result.Errors,
		}
		rows := OpportunityRows(runID, result.Opportunities)
		if err := s.store.InsertScanRun(ctx, run, rows); err != nil {
			s.logger.Error().Err(err).Time("bucket", bucket).Msg("failed to persist scan run")
		}
	}

	s.logger.Info().
		Time("bucket", bucket).
		Str("run_id", runID.String()).
		Int("opportunities", len(result.Opportunities)).
		Int("failed_items", len(result.Errors)).
		Msg("scan tick recorded")

	s.maybeAlert(ctx, result.Opportunities)
	return nil
}

func (s *Service) progressLogger(bucket time.Time) arb.ProgressFunc {
	return func(p arb.ScanProgress) {
		if p.Done == 0 || p.Done == p.Total {
			s.logger.Debug().
				Time("bucket", bucket).
				Int("total", p.Total).
				Int("done", p.Done).
				Int("ok", p.OK).
				Int("failed", p.Failed).
				Msg("scan progress")
		}
	}
}

func (s *Service) maybeAlert(ctx context.Context, opps []arb.Opportunity) {
	if !s.alertsOn || s.notifier == nil || s.minOverall <= 0 {
		return
	}
	if len(opps) == 0 {
		return
	}
	if !s.lastAlert.IsZero() && time.Since(s.lastAlert) < s.cooldown {
		return
	}

	best := opps[0]
	for _, o := range opps[1:] {
		if o.Overall > best.Overall {
			best = o
		}
	}
	if best.Overall < s.minOverall {
		return
	}

	note := alerting.Notification{
		League:       best.League,
		ItemName:     best.ItemName,
		RouteKind:    string(best.RouteKind),
		EdgePct:      decimal.NewFromFloat(best.Edge * 100),
		ProfitRating: decimal.NewFromFloat(best.ProfitRating),
		Execution:    decimal.NewFromFloat(best.ExecutionRating),
		Overall:      decimal.NewFromFloat(best.Overall),
		MinOverall:   decimal.NewFromFloat(s.minOverall),
		Channels:     s.channels,
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Str("item", best.ItemName).Msg("failed to dispatch alert")
		return
	}
	s.lastAlert = time.Now()
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}

// OpportunityRows converts scan opportunities into persistence rows.
func OpportunityRows(runID uuid.UUID, opps []arb.Opportunity) []storage.OpportunityRow {
	rows := make([]storage.OpportunityRow, 0, len(opps))
	for _, o := range opps {
		rows = append(rows, storage.OpportunityRow{
			RunID:           runID,
			League:          o.League,
			DetailsID:       o.DetailsID,
			RouteKind:       string(o.RouteKind),
			ItemName:        o.ItemName,
			IconURL:         o.IconURL,
			EdgePct:         decimal.NewFromFloat(o.Edge * 100),
			Implied:         decimal.NewFromFloat(o.ImpliedOtherPerDiv),
			Baseline:        decimal.NewFromFloat(o.BaselineOtherPerDiv),
			PriceDiv:        decimal.NewFromFloat(o.PDiv),
			PriceOther:      decimal.NewFromFloat(o.POther),
			VolumeDivLeg:    o.VolumeDivLeg,
			VolumeOtherLeg:  o.VolumeOtherLeg,
			VolumeMin:       o.VolumeMin,
			Volatility7d:    o.Volatility7d,
			PointsUsed:      o.HistoryPointsUsed,
			ProfitRating:    decimal.NewFromFloat(o.ProfitRating),
			ExecutionRating: decimal.NewFromFloat(o.ExecutionRating),
			Overall:         decimal.NewFromFloat(o.Overall),
		})
	}
	return rows
}
