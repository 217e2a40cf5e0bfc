package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("storage: not found")
)

const (
	insertScanRunSQL = `INSERT INTO scan_runs (
        id,
        league,
        started_at,
        finished_at,
        total,
        ok,
        failed,
        errors
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    );`

	insertOpportunitySQL = `INSERT INTO opportunities (
        run_id,
        league,
        details_id,
        route_kind,
        item_name,
        icon_url,
        edge_pct,
        implied_other_per_div,
        baseline_other_per_div,
        price_div,
        price_other,
        volume_div_leg,
        volume_other_leg,
        volume_min,
        volatility_7d,
        points_used,
        profit_rating,
        execution_rating,
        overall
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19
    );`

	latestRunSQL = `SELECT
        id, league, started_at, finished_at, total, ok, failed, errors, created_at
    FROM scan_runs
    WHERE league = $1
    ORDER BY started_at DESC
    LIMIT 1;`

	listRecentRunsSQL = `SELECT
        id, league, started_at, finished_at, total, ok, failed, errors, created_at
    FROM scan_runs
    ORDER BY started_at DESC
    LIMIT $1;`

	listRunOpportunitiesSQL = `SELECT
        run_id, league, details_id, route_kind, item_name, icon_url,
        edge_pct, implied_other_per_div, baseline_other_per_div,
        price_div, price_other,
        volume_div_leg, volume_other_leg, volume_min,
        volatility_7d, points_used,
        profit_rating, execution_rating, overall,
        created_at
    FROM opportunities
    WHERE run_id = $1
    ORDER BY overall DESC
    LIMIT $2;`

	appendQuoteSnapshotSQL = `INSERT INTO quote_snapshots (
        league, details_id, route_kind, quotes
    ) VALUES ($1,$2,$3,$4)
    RETURNING id, created_at;`

	latestQuoteSnapshotSQL = `SELECT
        id, league, details_id, route_kind, quotes, created_at
    FROM quote_snapshots
    WHERE league = $1 AND details_id = $2 AND route_kind = $3
    ORDER BY created_at DESC
    LIMIT 1;`

	pruneQuoteSnapshotsSQL = `DELETE FROM quote_snapshots
    WHERE league = $1 AND details_id = $2 AND route_kind = $3
      AND id NOT IN (
        SELECT id FROM quote_snapshots
        WHERE league = $1 AND details_id = $2 AND route_kind = $3
        ORDER BY created_at DESC
        LIMIT $4
      );`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// ScanStore persists scan runs and their opportunities.
type ScanStore interface {
	InsertScanRun(ctx context.Context, run ScanRun, opportunities []OpportunityRow) error
	LatestRun(ctx context.Context, league string) (ScanRun, error)
	ListRecentRuns(ctx context.Context, limit int) ([]ScanRun, error)
	ListRunOpportunities(ctx context.Context, runID uuid.UUID, limit int) ([]OpportunityRow, error)
}

// QuoteStore persists quote snapshots per route.
type QuoteStore interface {
	AppendQuoteSnapshot(ctx context.Context, snapshot QuoteSnapshot, keep int) (QuoteSnapshot, error)
	LatestQuoteSnapshot(ctx context.Context, league, detailsID, routeKind string) (QuoteSnapshot, error)
}

// AdvisoryLocker exposes PostgreSQL advisory locks for daemon exclusivity.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store implements the persistence interfaces over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps a pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InsertScanRun writes the run and its opportunities in one transaction.
func (s *Store) InsertScanRun(ctx context.Context, run ScanRun, opportunities []OpportunityRow) error {
	if s.pool == nil {
		return ErrNotConfigured
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin scan run tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, insertScanRunSQL,
		run.ID, run.League, run.StartedAt, run.FinishedAt,
		run.Total, run.OK, run.Failed, run.Errors,
	); err != nil {
		return fmt.Errorf("insert scan run: %w", err)
	}

	for _, opp := range opportunities {
		if _, err := tx.Exec(ctx, insertOpportunitySQL,
			run.ID, opp.League, opp.DetailsID, opp.RouteKind, opp.ItemName, opp.IconURL,
			opp.EdgePct, opp.Implied, opp.Baseline,
			opp.PriceDiv, opp.PriceOther,
			opp.VolumeDivLeg, opp.VolumeOtherLeg, opp.VolumeMin,
			opp.Volatility7d, opp.PointsUsed,
			opp.ProfitRating, opp.ExecutionRating, opp.Overall,
		); err != nil {
			return fmt.Errorf("insert opportunity %s:%s: %w", opp.DetailsID, opp.RouteKind, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit scan run: %w", err)
	}
	return nil
}

// LatestRun returns the most recent run for a league.
func (s *Store) LatestRun(ctx context.Context, league string) (ScanRun, error) {
	if s.pool == nil {
		return ScanRun{}, ErrNotConfigured
	}
	row := s.pool.QueryRow(ctx, latestRunSQL, league)
	return scanRunFromRow(row)
}

// ListRecentRuns returns the most recent runs across leagues.
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]ScanRun, error) {
	if s.pool == nil {
		return nil, ErrNotConfigured
	}
	rows, err := s.pool.Query(ctx, listRecentRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}
	defer rows.Close()

	var runs []ScanRun
	for rows.Next() {
		run, err := scanRunFromRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListRunOpportunities returns a run's opportunities ordered by overall
// rating.
func (s *Store) ListRunOpportunities(ctx context.Context, runID uuid.UUID, limit int) ([]OpportunityRow, error) {
	if s.pool == nil {
		return nil, ErrNotConfigured
	}
	rows, err := s.pool.Query(ctx, listRunOpportunitiesSQL, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("list run opportunities: %w", err)
	}
	defer rows.Close()

	var opps []OpportunityRow
	for rows.Next() {
		var o OpportunityRow
		if err := rows.Scan(
			&o.RunID, &o.League, &o.DetailsID, &o.RouteKind, &o.ItemName, &o.IconURL,
			&o.EdgePct, &o.Implied, &o.Baseline,
			&o.PriceDiv, &o.PriceOther,
			&o.VolumeDivLeg, &o.VolumeOtherLeg, &o.VolumeMin,
			&o.Volatility7d, &o.PointsUsed,
			&o.ProfitRating, &o.ExecutionRating, &o.Overall,
			&o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan opportunity row: %w", err)
		}
		opps = append(opps, o)
	}
	return opps, rows.Err()
}

// AppendQuoteSnapshot inserts a snapshot and prunes the route's history down
// to keep entries.
func (s *Store) AppendQuoteSnapshot(ctx context.Context, snapshot QuoteSnapshot, keep int) (QuoteSnapshot, error) {
	if s.pool == nil {
		return QuoteSnapshot{}, ErrNotConfigured
	}
	if len(snapshot.Quotes) == 0 {
		snapshot.Quotes = json.RawMessage("{}")
	}

	err := s.pool.QueryRow(ctx, appendQuoteSnapshotSQL,
		snapshot.League, snapshot.DetailsID, snapshot.RouteKind, snapshot.Quotes,
	).Scan(&snapshot.ID, &snapshot.CreatedAt)
	if err != nil {
		return QuoteSnapshot{}, fmt.Errorf("append quote snapshot: %w", err)
	}

	if keep > 0 {
		if _, err := s.pool.Exec(ctx, pruneQuoteSnapshotsSQL,
			snapshot.League, snapshot.DetailsID, snapshot.RouteKind, keep,
		); err != nil {
			return QuoteSnapshot{}, fmt.Errorf("prune quote snapshots: %w", err)
		}
	}
	return snapshot, nil
}

// LatestQuoteSnapshot returns the newest snapshot for a route.
func (s *Store) LatestQuoteSnapshot(ctx context.Context, league, detailsID, routeKind string) (QuoteSnapshot, error) {
	if s.pool == nil {
		return QuoteSnapshot{}, ErrNotConfigured
	}

	var snap QuoteSnapshot
	err := s.pool.QueryRow(ctx, latestQuoteSnapshotSQL, league, detailsID, routeKind).Scan(
		&snap.ID, &snap.League, &snap.DetailsID, &snap.RouteKind, &snap.Quotes, &snap.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return QuoteSnapshot{}, ErrNotFound
	}
	if err != nil {
		return QuoteSnapshot{}, fmt.Errorf("latest quote snapshot: %w", err)
	}
	return snap, nil
}

// TryAdvisoryLock attempts a session advisory lock; the returned unlock
// releases it.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	if s.pool == nil {
		return nil, false, ErrNotConfigured
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire conn for advisory lock: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		// Release on a background context so shutdown still unlocks.
		_, _ = conn.Exec(context.Background(), advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunFromRow(row rowScanner) (ScanRun, error) {
	var run ScanRun
	err := row.Scan(
		&run.ID, &run.League, &run.StartedAt, &run.FinishedAt,
		&run.Total, &run.OK, &run.Failed, &run.Errors, &run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return ScanRun{}, ErrNotFound
	}
	if err != nil {
		return ScanRun{}, fmt.Errorf("scan run row: %w", err)
	}
	return run, nil
}

var (
	_ ScanStore      = (*Store)(nil)
	_ QuoteStore     = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
