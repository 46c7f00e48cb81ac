package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// PriceStore persists valuation points keyed by (symbol, date). It is shared
// across all users; upserts are atomic by record id, so concurrent writers on
// the same key race last-write-wins, which is acceptable for idempotent price
// facts.
type PriceStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewPriceStore(db *surrealdb.DB, logger *common.Logger) *PriceStore {
	return &PriceStore{
		db:     db,
		logger: logger,
	}
}

// priceRow is the persisted layout. Dates are stored as YYYY-MM-DD strings so
// lexicographic range comparisons match chronological order.
type priceRow struct {
	Symbol   string  `json:"symbol"`
	Date     string  `json:"date"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	Source   string  `json:"source"`
}

func priceRecordID(symbol string, date time.Time) surrealmodels.RecordID {
	return surrealmodels.NewRecordID("price", fmt.Sprintf("%s:%s", symbol, models.DateKey(date)))
}

func (r *priceRow) toPoint() (*models.ValuationPoint, error) {
	date, err := models.ParseDateKey(r.Date)
	if err != nil {
		return nil, err
	}
	return &models.ValuationPoint{
		Symbol:   r.Symbol,
		Date:     date,
		Price:    r.Price,
		Category: r.Category,
		Source:   models.PriceSource(r.Source),
	}, nil
}

func rowFromPoint(point *models.ValuationPoint) priceRow {
	return priceRow{
		Symbol:   point.Symbol,
		Date:     models.DateKey(point.Date),
		Price:    point.Price,
		Category: point.Category,
		Source:   string(point.Source),
	}
}

// Get returns the cached point at the exact date, or (nil, nil) when absent.
func (s *PriceStore) Get(ctx context.Context, symbol string, date time.Time) (*models.ValuationPoint, error) {
	row, err := surrealdb.Select[priceRow](ctx, s.db, priceRecordID(symbol, date))
	if err != nil {
		return nil, fmt.Errorf("failed to select price: %w", err)
	}
	if row == nil || row.Symbol == "" {
		return nil, nil
	}
	return row.toPoint()
}

// Put upserts a point by (symbol, date). Points that violate the persistence
// invariants are dropped with a diagnostic log: the cache boundary absorbs bad
// source responses instead of aborting the writer's batch.
func (s *PriceStore) Put(ctx context.Context, point *models.ValuationPoint) error {
	if point == nil {
		return nil
	}
	if err := point.Validate(time.Now()); err != nil {
		s.logger.Warn().
			Str("symbol", point.Symbol).
			Str("source", string(point.Source)).
			Err(err).
			Msg("Dropping valuation point failing cache invariants")
		return nil
	}

	sql := "UPSERT $rid CONTENT $data"
	vars := map[string]any{
		"rid":  priceRecordID(point.Symbol, point.Date),
		"data": rowFromPoint(point),
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]priceRow](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to save price after retries: %w", lastErr)
}

// Range returns cached points within [from, to] in ascending date order.
func (s *PriceStore) Range(ctx context.Context, symbol string, from, to time.Time) ([]models.ValuationPoint, error) {
	sql := "SELECT * FROM price WHERE symbol = $symbol AND date >= $from AND date <= $to ORDER BY date ASC"
	vars := map[string]any{
		"symbol": symbol,
		"from":   models.DateKey(from),
		"to":     models.DateKey(to),
	}

	results, err := surrealdb.Query[[]priceRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query price range: %w", err)
	}

	var points []models.ValuationPoint
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			point, err := row.toPoint()
			if err != nil {
				s.logger.Warn().Str("symbol", symbol).Str("date", row.Date).Msg("Skipping cached row with bad date")
				continue
			}
			points = append(points, *point)
		}
	}
	return points, nil
}

// LastKnownDate returns the latest cached date for the symbol, or false when
// nothing is cached. This is the backfill watermark.
func (s *PriceStore) LastKnownDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	sql := "SELECT date FROM price WHERE symbol = $symbol ORDER BY date DESC LIMIT 1"
	vars := map[string]any{"symbol": symbol}

	type dateResult struct {
		Date string `json:"date"`
	}

	results, err := surrealdb.Query[[]dateResult](ctx, s.db, sql, vars)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query last known date: %w", err)
	}

	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		date, err := models.ParseDateKey((*results)[0].Result[0].Date)
		if err != nil {
			return time.Time{}, false, err
		}
		return date, true, nil
	}
	return time.Time{}, false, nil
}
