// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// ErrBackfillRunning signals that a backfill for the same user is already in
// flight; the duplicate trigger should be skipped, not queued.
var ErrBackfillRunning = errors.New("backfill already running for user")

// PriceResolver resolves a single (instrument, date) valuation through the
// cache → market data → generative oracle chain. Exhaustion of all sources is
// a normal outcome returned as (nil, nil), never an error.
type PriceResolver interface {
	Resolve(ctx context.Context, instrument models.Instrument, date time.Time) (*models.ValuationPoint, error)
}

// SyntheticValuer produces valuation points for instruments with no price
// feed, from a growth model anchored on the transaction cost basis and an
// observed NAV.
type SyntheticValuer interface {
	ValueAt(ctx context.Context, instrument models.Instrument, date time.Time, anchor models.TransactionRecord) (*models.ValuationPoint, error)
}

// BackfillService drives coverage of the price cache for a user's
// instruments: full backfill on first sight, incremental from the cache
// watermark afterwards.
type BackfillService interface {
	// EnsureCoverage fills the cache for the given instruments across
	// [from, to] and returns the cached points per symbol for that window.
	// Instruments are processed independently; one failure never aborts the
	// batch. A second concurrent call for the same user returns
	// ErrBackfillRunning.
	EnsureCoverage(ctx context.Context, userID string, instruments []models.Instrument, from, to time.Time) (map[string][]models.ValuationPoint, error)

	// OnFileUploaded persists ingested transactions and runs a full-window
	// backfill from the earliest transaction date to today.
	OnFileUploaded(ctx context.Context, userID string, records []models.TransactionRecord) error

	// OnUserLogin runs an incremental backfill for the user's stored
	// instruments from each instrument's watermark to today.
	OnUserLogin(ctx context.Context, userID string) error
}
