package pricing

import (
	"context"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

const oracleMaxTokens = 256

// Resolver resolves a single (instrument, date) valuation through the source
// chain: cache exact, cache nearest, market data, generative oracle. Source
// failures are misses, not resolution errors; only cache read/write failures
// propagate.
type Resolver struct {
	store      interfaces.PriceStore
	market     interfaces.MarketDataClient
	oracle     interfaces.CompletionClient
	alternate  interfaces.CompletionClient
	windowDays int
	logger     *common.Logger
	now        func() time.Time
}

// NewResolver creates a resolver. market, oracle and alternate may each be
// nil, in which case that rung of the chain is skipped.
func NewResolver(store interfaces.PriceStore, market interfaces.MarketDataClient, oracle, alternate interfaces.CompletionClient, windowDays int, logger *common.Logger) *Resolver {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &Resolver{
		store:      store,
		market:     market,
		oracle:     oracle,
		alternate:  alternate,
		windowDays: windowDays,
		logger:     logger,
		now:        time.Now,
	}
}

// Resolve walks the source chain for one (instrument, date). Exhaustion is a
// normal outcome returned as (nil, nil). Every externally sourced point is
// written back to the cache before returning.
func (r *Resolver) Resolve(ctx context.Context, instrument models.Instrument, date time.Time) (*models.ValuationPoint, error) {
	date = models.DateOnly(date)

	// Exact cache hit.
	point, err := r.store.Get(ctx, instrument.Symbol, date)
	if err != nil {
		return nil, err
	}
	if point != nil {
		return point, nil
	}

	// Nearest cached point within the tolerance window.
	from := date.AddDate(0, 0, -r.windowDays)
	to := date.AddDate(0, 0, r.windowDays)
	cached, err := r.store.Range(ctx, instrument.Symbol, from, to)
	if err != nil {
		return nil, err
	}
	if nearest := nearestPoint(cached, date); nearest != nil {
		return nearest, nil
	}

	// Market data applies to exchange-listed classes only; a PMS/AIF vehicle
	// has no feed and querying one wastes the rate budget.
	if r.market != nil && instrument.AssetClass != models.AssetPrivateVehicle {
		if point := r.fromMarketData(ctx, instrument, date, from, to); point != nil {
			if err := r.store.Put(ctx, point); err != nil {
				return nil, err
			}
			return point, nil
		}
	}

	if r.oracle != nil {
		if point := r.fromOracle(ctx, instrument, date); point != nil {
			if err := r.store.Put(ctx, point); err != nil {
				return nil, err
			}
			return point, nil
		}
	}

	r.logger.Debug().
		Str("symbol", instrument.Symbol).
		Str("date", models.DateKey(date)).
		Msg("Price not found in any source")
	return nil, nil
}

// fromMarketData queries the market feed for an exact bar, then the nearest
// bar within the window. Bars failing the price invariants are misses like any
// other; "N/A" closes and zero-price placeholder rows do come back from feeds.
func (r *Resolver) fromMarketData(ctx context.Context, instrument models.Instrument, date, from, to time.Time) *models.ValuationPoint {
	now := r.now()

	point, err := r.market.GetPoint(ctx, instrument.Symbol, date)
	if err != nil {
		r.logger.Warn().Str("symbol", instrument.Symbol).Err(err).Msg("Market data point query failed, treating as miss")
		return nil
	}
	if point != nil {
		if err := point.Validate(now); err != nil {
			r.logger.Warn().Str("symbol", instrument.Symbol).Err(err).Msg("Market data point invalid, treating as miss")
		} else {
			return point
		}
	}

	series, err := r.market.GetRange(ctx, instrument.Symbol, from, to)
	if err != nil {
		r.logger.Warn().Str("symbol", instrument.Symbol).Err(err).Msg("Market data range query failed, treating as miss")
		return nil
	}
	var valid []models.ValuationPoint
	for _, p := range series {
		if err := p.Validate(now); err != nil {
			r.logger.Warn().Str("symbol", instrument.Symbol).Err(err).Msg("Market data bar invalid, skipped")
			continue
		}
		valid = append(valid, p)
	}
	return nearestPoint(valid, date)
}

// fromOracle queries the completion backend and validates the reply. A
// validation failure or call error earns exactly one retry against the
// alternate backend when one is configured.
func (r *Resolver) fromOracle(ctx context.Context, instrument models.Instrument, date time.Time) *models.ValuationPoint {
	prompt := buildOraclePrompt(instrument, date, r.windowDays)

	point, err := oracleQuery(ctx, r.oracle, prompt, instrument.Symbol, r.now())
	if err == nil {
		return point
	}
	r.logger.Warn().Str("symbol", instrument.Symbol).Err(err).Msg("Oracle reply rejected")

	if r.alternate == nil {
		return nil
	}
	point, err = oracleQuery(ctx, r.alternate, prompt, instrument.Symbol, r.now())
	if err != nil {
		r.logger.Warn().Str("symbol", instrument.Symbol).Err(err).Msg("Alternate oracle reply rejected")
		return nil
	}
	return point
}

// nearestPoint returns the point closest in days to target, or nil for an
// empty slice. On equal distance the earlier date wins; the input is in
// ascending date order, so strict improvement keeps the earlier point.
func nearestPoint(points []models.ValuationPoint, target time.Time) *models.ValuationPoint {
	var best *models.ValuationPoint
	bestDist := 0
	for i := range points {
		dist := models.DaysBetween(target, points[i].Date)
		if dist < 0 {
			dist = -dist
		}
		if best == nil || dist < bestDist {
			best = &points[i]
			bestDist = dist
		}
	}
	return best
}

var _ interfaces.PriceResolver = (*Resolver)(nil)
