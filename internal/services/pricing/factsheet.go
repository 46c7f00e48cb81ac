package pricing

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/bobmcallan/folio/internal/models"
)

// Factsheet text longer than this is truncated; performance tables sit in the
// first few pages.
const maxFactsheetChars = 50000

// FactsheetReturns holds the period returns extracted from a PMS/AIF
// factsheet, keyed "1y", "3y", "5y" and "si" (since inception), values in
// percent per annum.
type FactsheetReturns map[string]float64

// ExtractFactsheetText pulls plain text from a factsheet PDF.
func ExtractFactsheetText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open factsheet: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
		if sb.Len() > maxFactsheetChars {
			break
		}
	}

	result := sb.String()
	if len(result) > maxFactsheetChars {
		result = result[:maxFactsheetChars]
	}
	return result, nil
}

// Factsheets disagree wildly on layout; each period gets a pattern list tried
// in order, first numeric match wins.
var factsheetPatterns = map[string][]*regexp.Regexp{
	"1y": {
		regexp.MustCompile(`(?im)(?:^|\s)1Y\s*(?:Return|CAGR)?\s*[:\-]?\s*([+-]?\d+\.?\d*)\s*%`),
		regexp.MustCompile(`(?im)1\s*Y(?:ear)?.{0,40}?(?:Return|CAGR|Performance).{0,20}?([+-]?\d+\.?\d*)\s*%`),
	},
	"3y": {
		regexp.MustCompile(`(?im)(?:^|\s)3Y\s*(?:CAGR|Return)?\s*[:\-]?\s*([+-]?\d+\.?\d*)\s*%`),
		regexp.MustCompile(`(?im)3\s*Y(?:ear)?.{0,40}?(?:CAGR|Return|Performance).{0,20}?([+-]?\d+\.?\d*)\s*%`),
	},
	"5y": {
		regexp.MustCompile(`(?im)(?:^|\s)5Y\s*(?:CAGR|Return)?\s*[:\-]?\s*([+-]?\d+\.?\d*)\s*%`),
		regexp.MustCompile(`(?im)5\s*Y(?:ear)?.{0,40}?(?:CAGR|Return|Performance).{0,20}?([+-]?\d+\.?\d*)\s*%`),
	},
	"si": {
		regexp.MustCompile(`(?im)Since\s*Inception.{0,40}?(?:CAGR)?.{0,20}?([+-]?\d+\.?\d*)\s*%`),
	},
}

// ParseFactsheetReturns extracts period returns from factsheet text. Missing
// periods are simply absent from the result.
func ParseFactsheetReturns(text string) FactsheetReturns {
	returns := make(FactsheetReturns)
	for key, patterns := range factsheetPatterns {
		for _, pattern := range patterns {
			match := pattern.FindStringSubmatch(text)
			if match == nil {
				continue
			}
			value, err := strconv.ParseFloat(match[1], 64)
			if err != nil {
				continue
			}
			returns[key] = value
			break
		}
	}
	return returns
}

// EstimateValue projects the holding's current value from the best-fit
// factsheet CAGR for the holding period: 5Y when held five years or more,
// then 3Y, then 1Y. Returns (nil, nil) when no usable return covers the
// period.
func (fr FactsheetReturns) EstimateValue(anchor models.TransactionRecord, asOf time.Time) (*models.ValuationPoint, error) {
	invested := anchor.Invested()
	if invested <= 0 {
		return nil, fmt.Errorf("factsheet estimate for %s: no usable invested amount", anchor.Symbol)
	}

	years := float64(models.DaysBetween(anchor.Date, asOf)) / 365.25
	if years <= 0 {
		return nil, fmt.Errorf("factsheet estimate for %s: as-of date precedes investment", anchor.Symbol)
	}

	var rate float64
	found := false
	if years >= 5 {
		rate, found = fr["5y"]
	}
	if !found && years >= 3 {
		rate, found = fr["3y"]
	}
	if !found && years >= 1 {
		rate, found = fr["1y"]
	}
	if !found {
		rate, found = fr["si"]
	}
	if !found {
		return nil, nil
	}

	value := invested * math.Pow(1+rate/100, years)
	return &models.ValuationPoint{
		Symbol:   anchor.Symbol,
		Date:     models.DateOnly(asOf),
		Price:    value,
		Category: syntheticCategory,
		Source:   models.SourceSyntheticDerived,
	}, nil
}
