package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScanRun summarises one persisted scan.
type ScanRun struct {
	ID         uuid.UUID
	League     string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	OK         int
	Failed     int
	Errors     []string
	CreatedAt  time.Time
}

// OpportunityRow is one persisted opportunity within a scan run. Nullable
// metrics stay pointers; ratings are stored as decimals for exact ordering
// in SQL.
type OpportunityRow struct {
	RunID     uuid.UUID
	League    string
	DetailsID string
	RouteKind string
	ItemName  string
	IconURL   string

	EdgePct    decimal.Decimal
	Implied    decimal.Decimal
	Baseline   decimal.Decimal
	PriceDiv   decimal.Decimal
	PriceOther decimal.Decimal

	VolumeDivLeg   *float64
	VolumeOtherLeg *float64
	VolumeMin      *float64
	Volatility7d   *float64
	PointsUsed     int

	ProfitRating    decimal.Decimal
	ExecutionRating decimal.Decimal
	Overall         decimal.Decimal

	CreatedAt time.Time
}

// QuoteSnapshot stores the manually entered quotes for one route at one
// moment, as opaque JSON.
type QuoteSnapshot struct {
	ID        int64
	League    string
	DetailsID string
	RouteKind string
	Quotes    json.RawMessage
	CreatedAt time.Time
}
