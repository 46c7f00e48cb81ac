// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// PriceStore is the shared cross-user valuation cache, keyed by
// (symbol, date). Concurrent upserts rely on the store's atomic
// upsert-by-key, not application-level locking.
type PriceStore interface {
	// Get returns the cached point for an exact date, or (nil, nil) when
	// absent.
	Get(ctx context.Context, symbol string, date time.Time) (*models.ValuationPoint, error)

	// Put upserts a point by (symbol, date). Points violating the
	// persistence invariants are dropped with a diagnostic log and no error:
	// one bad source response must not abort an otherwise-successful batch.
	Put(ctx context.Context, point *models.ValuationPoint) error

	// Range returns cached points within [from, to] in ascending date order.
	// The result is sparse; gaps are expected.
	Range(ctx context.Context, symbol string, from, to time.Time) ([]models.ValuationPoint, error)

	// LastKnownDate returns the latest cached date for the symbol. The bool
	// is false when no point is cached at all.
	LastKnownDate(ctx context.Context, symbol string) (time.Time, bool, error)
}

// TransactionStore persists ingested holdings. The pricing core reads it to
// seed cost-basis anchors; writes come from CSV ingestion.
type TransactionStore interface {
	SaveTransactions(ctx context.Context, records []models.TransactionRecord) error
	ListByUser(ctx context.Context, userID string) ([]models.TransactionRecord, error)

	// ListUserIDs returns the distinct users with stored holdings, for the
	// background refresh scheduler.
	ListUserIDs(ctx context.Context) ([]string, error)
}

// StorageManager provides access to all storage areas
type StorageManager interface {
	PriceStore() PriceStore
	TransactionStore() TransactionStore
	Close() error
}
