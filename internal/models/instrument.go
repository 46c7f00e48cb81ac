// Package models defines data structures for Folio
package models

import (
	"fmt"
	"math"
	"time"
)

// AssetClass identifies how an instrument is priced.
type AssetClass string

const (
	AssetEquity         AssetClass = "equity"
	AssetFund           AssetClass = "fund"
	AssetPrivateVehicle AssetClass = "private_vehicle"
)

// PriceSource records where a valuation point came from.
type PriceSource string

const (
	SourceMarketData       PriceSource = "market_data"
	SourceGenerativeModel  PriceSource = "generative_model"
	SourceSyntheticDerived PriceSource = "synthetic_derived"
	SourceTransactionCost  PriceSource = "transaction_cost_basis"
)

// Instrument is a trackable investable asset.
// Classification is idempotent and may be re-run when new metadata arrives;
// the latest classification wins.
type Instrument struct {
	Symbol      string     `json:"symbol"`
	AssetClass  AssetClass `json:"asset_class"`
	DisplayName string     `json:"display_name"`
}

// ValuationPoint is one (instrument, date) price observation.
// At most one point exists per (symbol, date); later writes overwrite.
type ValuationPoint struct {
	Symbol   string      `json:"symbol"`
	Date     time.Time   `json:"date"`
	Price    float64     `json:"price"`
	Category string      `json:"category"` // sector or fund category
	Source   PriceSource `json:"source"`
}

// Validate checks the persistence invariants: price positive and finite,
// date not in the future relative to now.
func (p *ValuationPoint) Validate(now time.Time) error {
	if p.Symbol == "" {
		return fmt.Errorf("valuation point has empty symbol")
	}
	if p.Price <= 0 {
		return fmt.Errorf("price %v for %s is not positive", p.Price, p.Symbol)
	}
	if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		return fmt.Errorf("price for %s is not finite", p.Symbol)
	}
	if DateOnly(p.Date).After(DateOnly(now)) {
		return fmt.Errorf("date %s for %s is in the future", DateKey(p.Date), p.Symbol)
	}
	return nil
}

// TransactionRecord is an ingested holding. It is owned by ingestion and
// consumed read-only by the pricing core. For PrivateVehicle instruments it is
// the sole cost-basis anchor.
type TransactionRecord struct {
	UserID         string    `json:"user_id"`
	Symbol         string    `json:"symbol"`
	Name           string    `json:"name"`
	Date           time.Time `json:"date"`
	Quantity       float64   `json:"quantity"`
	CostBasisPrice float64   `json:"cost_basis_price"`
	InvestedAmount float64   `json:"invested_amount"`
}

// Invested returns the invested amount, preferring the explicit figure over
// price * quantity when both are present.
func (t *TransactionRecord) Invested() float64 {
	if t.InvestedAmount > 0 {
		return t.InvestedAmount
	}
	return t.CostBasisPrice * t.Quantity
}

// Anchor returns the (date, price) cost-basis anchor for synthetic valuation.
func (t *TransactionRecord) Anchor() (time.Time, float64) {
	return DateOnly(t.Date), t.CostBasisPrice
}

// GrowthModel is a derived constant-growth valuation curve for a
// PrivateVehicle instrument. It is a session-scoped cache entry, recomputed
// when a fresher NAV is observed, and is never itself persisted as a price.
type GrowthModel struct {
	Symbol         string
	OriginDate     time.Time
	OriginPrice    float64
	ObservedDate   time.Time
	ObservedPrice  float64
	AnnualizedRate float64
	RefreshedAt    time.Time
}

// NewGrowthModel derives the annualized growth rate from the two anchor
// points. The model is undefined when the anchors coincide in time or either
// price is non-positive.
func NewGrowthModel(symbol string, originDate time.Time, originPrice float64, observedDate time.Time, observedPrice float64) (*GrowthModel, error) {
	days := DaysBetween(originDate, observedDate)
	if days == 0 {
		return nil, fmt.Errorf("growth model for %s: anchor dates coincide", symbol)
	}
	if originPrice <= 0 || observedPrice <= 0 {
		return nil, fmt.Errorf("growth model for %s: non-positive anchor price", symbol)
	}

	rate := math.Pow(observedPrice/originPrice, 365.25/float64(days)) - 1

	return &GrowthModel{
		Symbol:         symbol,
		OriginDate:     DateOnly(originDate),
		OriginPrice:    originPrice,
		ObservedDate:   DateOnly(observedDate),
		ObservedPrice:  observedPrice,
		AnnualizedRate: rate,
		RefreshedAt:    time.Now(),
	}, nil
}

// ValueAt returns the exponential interpolation/extrapolation at the given
// date. The curve is intentionally unclamped: it applies before, between and
// after the anchors alike. At the origin date it returns the origin price
// exactly.
func (m *GrowthModel) ValueAt(date time.Time) float64 {
	years := float64(DaysBetween(m.OriginDate, date)) / 365.25
	return m.OriginPrice * math.Pow(1+m.AnnualizedRate, years)
}

// DateOnly truncates a timestamp to its calendar day in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole-day difference from a to b (negative when b
// precedes a).
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// DateKey formats a date using the canonical storage key layout.
func DateKey(t time.Time) string {
	return DateOnly(t).Format("2006-01-02")
}

// ParseDateKey parses a canonical YYYY-MM-DD date key.
func ParseDateKey(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
