package pricing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

const syntheticCategory = "PMS/AIF"

// SyntheticModel values PrivateVehicle instruments that publish no price
// feed. It derives a constant-growth curve from the transaction cost basis
// and an oracle-observed NAV, then fills arbitrary dates from the curve.
// Growth models are session state only; the cache receives the generated
// points, never the curve itself.
type SyntheticModel struct {
	store        interfaces.PriceStore
	oracle       interfaces.CompletionClient
	alternate    interfaces.CompletionClient
	windowDays   int
	factsheetDir string
	logger       *common.Logger
	now          func() time.Time

	mu     sync.Mutex
	curves map[string]*models.GrowthModel
}

func NewSyntheticModel(store interfaces.PriceStore, oracle, alternate interfaces.CompletionClient, windowDays int, factsheetDir string, logger *common.Logger) *SyntheticModel {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &SyntheticModel{
		store:        store,
		oracle:       oracle,
		alternate:    alternate,
		windowDays:   windowDays,
		factsheetDir: factsheetDir,
		logger:       logger,
		now:          time.Now,
		curves:       make(map[string]*models.GrowthModel),
	}
}

// ValueAt produces the valuation for one date from the instrument's growth
// curve and persists it. When no curve can be built the anchor's cost basis
// is returned as a flat valuation instead of failing. Future target dates are
// rejected; the curve extrapolates forward of its anchors, not of the
// calendar.
func (s *SyntheticModel) ValueAt(ctx context.Context, instrument models.Instrument, date time.Time, anchor models.TransactionRecord) (*models.ValuationPoint, error) {
	date = models.DateOnly(date)
	today := models.DateOnly(s.now())
	if date.After(today) {
		return nil, fmt.Errorf("synthetic valuation for %s: target date %s is in the future", instrument.Symbol, models.DateKey(date))
	}

	curve := s.curveFor(ctx, instrument, anchor)

	var point *models.ValuationPoint
	if curve != nil {
		point = &models.ValuationPoint{
			Symbol:   instrument.Symbol,
			Date:     date,
			Price:    curve.ValueAt(date),
			Category: syntheticCategory,
			Source:   models.SourceSyntheticDerived,
		}
	} else {
		_, originPrice := anchor.Anchor()
		if originPrice <= 0 {
			return nil, fmt.Errorf("synthetic valuation for %s: no usable cost basis", instrument.Symbol)
		}
		point = &models.ValuationPoint{
			Symbol:   instrument.Symbol,
			Date:     date,
			Price:    originPrice,
			Category: syntheticCategory,
			Source:   models.SourceTransactionCost,
		}
	}

	if err := s.store.Put(ctx, point); err != nil {
		return nil, err
	}
	return point, nil
}

// curveFor returns the cached growth model for the instrument, refreshing the
// observed NAV when the cached one has aged out. Returns nil when no model
// can be built.
func (s *SyntheticModel) curveFor(ctx context.Context, instrument models.Instrument, anchor models.TransactionRecord) *models.GrowthModel {
	s.mu.Lock()
	curve, ok := s.curves[instrument.Symbol]
	s.mu.Unlock()
	if ok && curve != nil && common.IsFresh(curve.RefreshedAt, common.FreshnessObservedNAV) {
		return curve
	}

	observed := s.factsheetNAV(instrument, anchor)
	if observed == nil {
		observed = s.observeNAV(ctx, instrument)
	}
	if observed == nil {
		// Keep serving a stale curve over falling back to flat cost basis.
		if ok {
			return curve
		}
		return nil
	}

	originDate, originPrice := anchor.Anchor()
	if !observed.Date.After(originDate) {
		s.logger.Warn().
			Str("symbol", instrument.Symbol).
			Str("observed", models.DateKey(observed.Date)).
			Str("origin", models.DateKey(originDate)).
			Msg("Observed NAV does not postdate cost basis, using flat valuation")
		return nil
	}

	curve, err := models.NewGrowthModel(instrument.Symbol, originDate, originPrice, observed.Date, observed.Price)
	if err != nil {
		s.logger.Warn().Str("symbol", instrument.Symbol).Err(err).Msg("Growth model not buildable")
		return nil
	}

	s.logger.Info().
		Str("symbol", instrument.Symbol).
		Float64("annualized_rate", curve.AnnualizedRate).
		Str("observed", models.DateKey(observed.Date)).
		Msg("Growth model derived")

	s.mu.Lock()
	s.curves[instrument.Symbol] = curve
	s.mu.Unlock()
	return curve
}

// factsheetNAV derives today's value from the instrument's factsheet PDF when
// one is on disk. Factsheets carry the fund's own disclosed returns, so they
// take precedence over the completion backend.
func (s *SyntheticModel) factsheetNAV(instrument models.Instrument, anchor models.TransactionRecord) *models.ValuationPoint {
	if s.factsheetDir == "" {
		return nil
	}
	path := filepath.Join(s.factsheetDir, instrument.Symbol+".pdf")
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if !common.IsFresh(info.ModTime(), common.FreshnessFactsheet) {
		s.logger.Debug().Str("symbol", instrument.Symbol).Msg("Factsheet on disk is stale, using oracle")
		return nil
	}

	text, err := ExtractFactsheetText(path)
	if err != nil {
		s.logger.Warn().Str("symbol", instrument.Symbol).Err(err).Msg("Factsheet unreadable")
		return nil
	}

	point, err := ParseFactsheetReturns(text).EstimateValue(anchor, s.now())
	if err != nil {
		s.logger.Warn().Str("symbol", instrument.Symbol).Err(err).Msg("Factsheet estimate failed")
		return nil
	}
	if point == nil {
		return nil
	}

	s.logger.Info().
		Str("symbol", instrument.Symbol).
		Float64("value", point.Price).
		Msg("Observed NAV from factsheet")
	return point
}

// observeNAV asks the completion backend for the latest disclosed NAV. There
// is no market-data attempt for this asset class; the oracle is the only
// source. One retry on the alternate backend, then give up.
func (s *SyntheticModel) observeNAV(ctx context.Context, instrument models.Instrument) *models.ValuationPoint {
	if s.oracle == nil {
		return nil
	}
	now := s.now()
	prompt := buildOraclePrompt(instrument, now, s.windowDays)

	point, err := oracleQuery(ctx, s.oracle, prompt, instrument.Symbol, now)
	if err == nil {
		return point
	}
	s.logger.Warn().Str("symbol", instrument.Symbol).Err(err).Msg("NAV oracle reply rejected")

	if s.alternate == nil {
		return nil
	}
	point, err = oracleQuery(ctx, s.alternate, prompt, instrument.Symbol, now)
	if err != nil {
		s.logger.Warn().Str("symbol", instrument.Symbol).Err(err).Msg("Alternate NAV oracle reply rejected")
		return nil
	}
	return point
}

func oracleQuery(ctx context.Context, client interfaces.CompletionClient, prompt, symbol string, now time.Time) (*models.ValuationPoint, error) {
	reply, err := client.Complete(ctx, prompt, oracleMaxTokens)
	if err != nil {
		return nil, err
	}
	return parseOracleReply(reply, symbol, now)
}

var _ interfaces.SyntheticValuer = (*SyntheticModel)(nil)
