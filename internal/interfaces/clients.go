// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// MarketDataClient provides point and range price queries against a market
// data API. Exchange symbol-suffix conventions are the provider's concern.
type MarketDataClient interface {
	// GetPoint retrieves the closing price for an exact date. Absence is
	// returned as (nil, nil), not an error.
	GetPoint(ctx context.Context, symbol string, date time.Time) (*models.ValuationPoint, error)

	// GetRange retrieves closing prices for a date range in ascending date
	// order. The series is sparse: non-trading days are simply missing.
	GetRange(ctx context.Context, symbol string, from, to time.Time, opts ...RangeOption) ([]models.ValuationPoint, error)
}

// RangeOption configures range queries
type RangeOption func(*RangeParams)

// RangeParams holds range query parameters
type RangeParams struct {
	Granularity string // d=daily, w=weekly, m=monthly
}

// WithGranularity sets the bar granularity for a range query
func WithGranularity(granularity string) RangeOption {
	return func(p *RangeParams) {
		p.Granularity = granularity
	}
}

// CompletionClient is an opaque text-in/text-out generative model capability.
// Prompt construction and response validation belong to the caller.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}
