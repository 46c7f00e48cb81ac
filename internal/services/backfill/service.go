// Package backfill drives price-cache coverage for a user's instruments.
package backfill

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/folio/internal/classify"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// userLocks guards against duplicate concurrent backfills for the same user.
// A second trigger while one is in flight is skipped, never queued.
type userLocks struct {
	mu     sync.Mutex
	active map[string]bool
}

func newUserLocks() *userLocks {
	return &userLocks{active: make(map[string]bool)}
}

func (l *userLocks) tryAcquire(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active[userID] {
		return false
	}
	l.active[userID] = true
	return true
}

func (l *userLocks) release(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, userID)
}

// Service fills the price cache across a date window: a single bulk market
// data call per listed instrument, weekly synthetic points per private
// vehicle. Instruments are independent; a failure on one is logged and the
// rest still complete.
type Service struct {
	priceStore interfaces.PriceStore
	txnStore   interfaces.TransactionStore
	market     interfaces.MarketDataClient
	synthetic  interfaces.SyntheticValuer
	stepDays   int
	logger     *common.Logger
	locks      *userLocks
	now        func() time.Time
}

func NewService(priceStore interfaces.PriceStore, txnStore interfaces.TransactionStore, market interfaces.MarketDataClient, synthetic interfaces.SyntheticValuer, stepDays int, logger *common.Logger) *Service {
	if stepDays <= 0 {
		stepDays = 7
	}
	return &Service{
		priceStore: priceStore,
		txnStore:   txnStore,
		market:     market,
		synthetic:  synthetic,
		stepDays:   stepDays,
		logger:     logger,
		locks:      newUserLocks(),
		now:        time.Now,
	}
}

// EnsureCoverage fills [from, to] for each instrument and returns the cached
// points per symbol for that window. At most one run per user is in flight;
// a concurrent duplicate gets ErrBackfillRunning.
func (s *Service) EnsureCoverage(ctx context.Context, userID string, instruments []models.Instrument, from, to time.Time) (map[string][]models.ValuationPoint, error) {
	if !s.locks.tryAcquire(userID) {
		return nil, interfaces.ErrBackfillRunning
	}
	defer s.locks.release(userID)

	from = models.DateOnly(from)
	to = models.DateOnly(to)
	if today := models.DateOnly(s.now()); to.After(today) {
		to = today
	}

	results := make(map[string][]models.ValuationPoint, len(instruments))
	for _, instrument := range instruments {
		if err := s.coverInstrument(ctx, userID, instrument, from, to); err != nil {
			s.logger.Warn().
				Str("user_id", userID).
				Str("symbol", instrument.Symbol).
				Err(err).
				Msg("Backfill failed for instrument, continuing with others")
		}

		points, err := s.priceStore.Range(ctx, instrument.Symbol, from, to)
		if err != nil {
			s.logger.Warn().Str("symbol", instrument.Symbol).Err(err).Msg("Failed to read cached range")
			continue
		}
		results[instrument.Symbol] = points
	}
	return results, nil
}

// coverInstrument fills the missing portion of [from, to] for one instrument.
// The cache watermark decides full versus incremental: no watermark means the
// whole window, a watermark at or past the window end means nothing to fetch.
func (s *Service) coverInstrument(ctx context.Context, userID string, instrument models.Instrument, from, to time.Time) error {
	watermark, ok, err := s.priceStore.LastKnownDate(ctx, instrument.Symbol)
	if err != nil {
		return err
	}

	target := from
	if ok {
		if !watermark.Before(to) {
			return nil
		}
		if next := watermark.AddDate(0, 0, 1); next.After(target) {
			target = next
		}
	}

	if instrument.AssetClass == models.AssetPrivateVehicle {
		return s.coverSynthetic(ctx, userID, instrument, target, to)
	}
	return s.coverFromMarket(ctx, instrument, target, to)
}

// coverFromMarket issues one bulk range call for the whole target window.
// One call fills many dates; never a call per date.
func (s *Service) coverFromMarket(ctx context.Context, instrument models.Instrument, from, to time.Time) error {
	if s.market == nil {
		return fmt.Errorf("market data client not configured, skipping %s", instrument.Symbol)
	}
	series, err := s.market.GetRange(ctx, instrument.Symbol, from, to)
	if err != nil {
		return fmt.Errorf("bulk range fetch for %s: %w", instrument.Symbol, err)
	}

	for i := range series {
		if err := s.priceStore.Put(ctx, &series[i]); err != nil {
			return err
		}
	}

	s.logger.Debug().
		Str("symbol", instrument.Symbol).
		Int("points", len(series)).
		Str("from", models.DateKey(from)).
		Str("to", models.DateKey(to)).
		Msg("Backfilled from market data")
	return nil
}

// coverSynthetic walks the window at the configured grain. Weekly is the
// intended resolution: the curve has only two real anchor points, daily
// sampling adds nothing.
func (s *Service) coverSynthetic(ctx context.Context, userID string, instrument models.Instrument, from, to time.Time) error {
	anchor, err := s.anchorFor(ctx, userID, instrument.Symbol)
	if err != nil {
		return err
	}
	if anchor == nil {
		return fmt.Errorf("no transaction anchor for %s", instrument.Symbol)
	}

	count := 0
	for date := from; !date.After(to); date = date.AddDate(0, 0, s.stepDays) {
		if _, err := s.synthetic.ValueAt(ctx, instrument, date, *anchor); err != nil {
			return fmt.Errorf("synthetic valuation for %s at %s: %w", instrument.Symbol, models.DateKey(date), err)
		}
		count++
	}

	s.logger.Debug().
		Str("symbol", instrument.Symbol).
		Int("points", count).
		Msg("Backfilled from synthetic model")
	return nil
}

// anchorFor returns the user's earliest transaction for the symbol.
func (s *Service) anchorFor(ctx context.Context, userID, symbol string) (*models.TransactionRecord, error) {
	records, err := s.txnStore.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var anchor *models.TransactionRecord
	for i := range records {
		if records[i].Symbol != symbol {
			continue
		}
		if anchor == nil || records[i].Date.Before(anchor.Date) {
			anchor = &records[i]
		}
	}
	return anchor, nil
}

// OnFileUploaded persists the ingested transactions and backfills from the
// earliest transaction date to today.
func (s *Service) OnFileUploaded(ctx context.Context, userID string, records []models.TransactionRecord) error {
	if len(records) == 0 {
		return nil
	}
	for i := range records {
		records[i].UserID = userID
	}
	if err := s.txnStore.SaveTransactions(ctx, records); err != nil {
		return err
	}

	instruments := instrumentsFrom(records)
	from := records[0].Date
	for _, r := range records[1:] {
		if r.Date.Before(from) {
			from = r.Date
		}
	}

	_, err := s.EnsureCoverage(ctx, userID, instruments, from, s.now())
	return err
}

// OnUserLogin refreshes the user's cached prices incrementally up to today.
func (s *Service) OnUserLogin(ctx context.Context, userID string) error {
	records, err := s.txnStore.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	instruments := instrumentsFrom(records)
	from := records[0].Date
	for _, r := range records[1:] {
		if r.Date.Before(from) {
			from = r.Date
		}
	}

	_, err = s.EnsureCoverage(ctx, userID, instruments, from, s.now())
	return err
}

// instrumentsFrom derives the distinct classified instruments from a set of
// transactions.
func instrumentsFrom(records []models.TransactionRecord) []models.Instrument {
	seen := make(map[string]bool, len(records))
	var instruments []models.Instrument
	for _, r := range records {
		if seen[r.Symbol] {
			continue
		}
		seen[r.Symbol] = true
		instruments = append(instruments, classify.NewInstrument(r.Symbol, r.Name))
	}
	return instruments
}

var _ interfaces.BackfillService = (*Service)(nil)
