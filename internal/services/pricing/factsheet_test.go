package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/models"
)

const sampleFactsheet = `
Marcellus Consistent Compounders PMS
Monthly Factsheet - October 2024

Performance (as of 30 Sep 2024)
1 Year Return: 15.5%
3 Year CAGR: 18.2%
5 Year CAGR: 22.1%
Since Inception CAGR: 19.8%

Portfolio composition and disclosures follow.
`

func TestParseFactsheetReturns(t *testing.T) {
	returns := ParseFactsheetReturns(sampleFactsheet)

	assert.Equal(t, 15.5, returns["1y"])
	assert.Equal(t, 18.2, returns["3y"])
	assert.Equal(t, 22.1, returns["5y"])
	assert.Equal(t, 19.8, returns["si"])
}

func TestParseFactsheetReturnsCompactFormat(t *testing.T) {
	text := "Returns: 1Y: 12.4% 3Y CAGR: 16.0% 5Y: -2.5%"
	returns := ParseFactsheetReturns(text)

	assert.Equal(t, 12.4, returns["1y"])
	assert.Equal(t, 16.0, returns["3y"])
	assert.Equal(t, -2.5, returns["5y"])
}

func TestParseFactsheetReturnsEmpty(t *testing.T) {
	returns := ParseFactsheetReturns("Portfolio commentary only, no performance table.")
	assert.Empty(t, returns)
}

func TestEstimateValuePicksPeriodByHolding(t *testing.T) {
	returns := ParseFactsheetReturns(sampleFactsheet)
	anchor := models.TransactionRecord{
		Symbol:         "INP000006387",
		Date:           day("2021-10-01"),
		InvestedAmount: 1000000,
	}

	// Held ~3 years, so the 3Y CAGR applies.
	point, err := returns.EstimateValue(anchor, day("2024-10-01"))
	require.NoError(t, err)
	require.NotNil(t, point)

	years := float64(models.DaysBetween(anchor.Date, day("2024-10-01"))) / 365.25
	expected := 1000000 * math.Pow(1.182, years)
	assert.InEpsilon(t, expected, point.Price, 1e-9)
	assert.Equal(t, models.SourceSyntheticDerived, point.Source)
}

func TestEstimateValueFallsBackWithinHoldingBuckets(t *testing.T) {
	returns := FactsheetReturns{"3y": 18.2}
	anchor := models.TransactionRecord{
		Symbol:         "INP000006387",
		Date:           day("2018-01-01"),
		InvestedAmount: 500000,
	}

	// Held over 5 years but only a 3Y figure is published.
	point, err := returns.EstimateValue(anchor, day("2024-10-01"))
	require.NoError(t, err)
	require.NotNil(t, point)
	assert.Greater(t, point.Price, 500000.0)
}

func TestEstimateValueSinceInceptionFallback(t *testing.T) {
	returns := FactsheetReturns{"si": 10.0}
	anchor := models.TransactionRecord{
		Symbol:         "INP000006387",
		Date:           day("2024-04-01"),
		InvestedAmount: 200000,
	}

	// Held under a year; only since-inception covers it.
	point, err := returns.EstimateValue(anchor, day("2024-09-01"))
	require.NoError(t, err)
	require.NotNil(t, point)
	assert.Greater(t, point.Price, 200000.0)
}

func TestEstimateValueNoUsableReturn(t *testing.T) {
	returns := FactsheetReturns{}
	anchor := models.TransactionRecord{
		Symbol:         "INP000006387",
		Date:           day("2023-01-01"),
		InvestedAmount: 200000,
	}

	point, err := returns.EstimateValue(anchor, day("2024-01-01"))
	require.NoError(t, err)
	assert.Nil(t, point)
}

func TestEstimateValueRejectsBadAnchor(t *testing.T) {
	returns := FactsheetReturns{"1y": 12.0}

	_, err := returns.EstimateValue(models.TransactionRecord{Symbol: "X", Date: day("2023-01-01")}, day("2024-01-01"))
	assert.Error(t, err)

	_, err = returns.EstimateValue(models.TransactionRecord{
		Symbol: "X", Date: day("2024-06-01"), InvestedAmount: 100,
	}, day("2024-01-01"))
	assert.Error(t, err)
}
