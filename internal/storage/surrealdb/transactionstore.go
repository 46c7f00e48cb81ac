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

// TransactionStore persists ingested holdings. Records are keyed by
// (user, symbol, date) so re-uploading the same statement is idempotent.
type TransactionStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewTransactionStore(db *surrealdb.DB, logger *common.Logger) *TransactionStore {
	return &TransactionStore{
		db:     db,
		logger: logger,
	}
}

type transactionRow struct {
	UserID         string  `json:"user_id"`
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Date           string  `json:"date"`
	Quantity       float64 `json:"quantity"`
	CostBasisPrice float64 `json:"cost_basis_price"`
	InvestedAmount float64 `json:"invested_amount"`
}

func transactionRecordID(userID, symbol string, date time.Time) surrealmodels.RecordID {
	return surrealmodels.NewRecordID("transaction", fmt.Sprintf("%s:%s:%s", userID, symbol, models.DateKey(date)))
}

func (r *transactionRow) toRecord() (*models.TransactionRecord, error) {
	date, err := models.ParseDateKey(r.Date)
	if err != nil {
		return nil, err
	}
	return &models.TransactionRecord{
		UserID:         r.UserID,
		Symbol:         r.Symbol,
		Name:           r.Name,
		Date:           date,
		Quantity:       r.Quantity,
		CostBasisPrice: r.CostBasisPrice,
		InvestedAmount: r.InvestedAmount,
	}, nil
}

// SaveTransactions upserts the given records. A failure on one record aborts
// the batch; ingestion retries the whole file.
func (s *TransactionStore) SaveTransactions(ctx context.Context, records []models.TransactionRecord) error {
	sql := "UPSERT $rid CONTENT $data"

	for _, record := range records {
		row := transactionRow{
			UserID:         record.UserID,
			Symbol:         record.Symbol,
			Name:           record.Name,
			Date:           models.DateKey(record.Date),
			Quantity:       record.Quantity,
			CostBasisPrice: record.CostBasisPrice,
			InvestedAmount: record.InvestedAmount,
		}
		vars := map[string]any{
			"rid":  transactionRecordID(record.UserID, record.Symbol, record.Date),
			"data": row,
		}
		if _, err := surrealdb.Query[[]transactionRow](ctx, s.db, sql, vars); err != nil {
			return fmt.Errorf("failed to save transaction for %s: %w", record.Symbol, err)
		}
	}

	s.logger.Debug().Int("count", len(records)).Msg("Saved transaction records")
	return nil
}

// ListUserIDs returns the distinct users with stored holdings.
func (s *TransactionStore) ListUserIDs(ctx context.Context) ([]string, error) {
	sql := "SELECT user_id FROM transaction GROUP BY user_id"

	type userResult struct {
		UserID string `json:"user_id"`
	}

	results, err := surrealdb.Query[[]userResult](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query user ids: %w", err)
	}

	var ids []string
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			if row.UserID != "" {
				ids = append(ids, row.UserID)
			}
		}
	}
	return ids, nil
}

// ListByUser returns the user's holdings ordered by date ascending.
func (s *TransactionStore) ListByUser(ctx context.Context, userID string) ([]models.TransactionRecord, error) {
	sql := "SELECT * FROM transaction WHERE user_id = $user_id ORDER BY date ASC"
	vars := map[string]any{"user_id": userID}

	results, err := surrealdb.Query[[]transactionRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	var records []models.TransactionRecord
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			record, err := row.toRecord()
			if err != nil {
				s.logger.Warn().Str("user_id", userID).Str("date", row.Date).Msg("Skipping transaction row with bad date")
				continue
			}
			records = append(records, *record)
		}
	}
	return records, nil
}
