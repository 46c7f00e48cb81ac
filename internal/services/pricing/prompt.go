// Package pricing implements price resolution, synthetic valuation and the
// generative price oracle for Folio.
package pricing

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// Reply validation failures. The resolver treats any of these as grounds for
// one retry against the alternate backend before giving up.
var (
	ErrCodeLikeReply = fmt.Errorf("oracle reply contains code")
	ErrRefusalReply  = fmt.Errorf("oracle reply is a refusal")
)

// buildOraclePrompt constructs the price query sent to the completion backend.
// The reply contract is a single delimited line; the prompt forbids prose,
// code and refusals up front because models echo all three when left loose.
func buildOraclePrompt(instrument models.Instrument, date time.Time, windowDays int) string {
	var kind string
	switch instrument.AssetClass {
	case models.AssetFund:
		kind = "Indian mutual fund"
	case models.AssetPrivateVehicle:
		kind = "Indian PMS/AIF portfolio vehicle"
	default:
		kind = "Indian listed stock"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a financial data expert. Get the unit price (NAV or closing price) for this %s:\n\n", kind)
	fmt.Fprintf(&b, "Name: %s\n", instrument.DisplayName)
	fmt.Fprintf(&b, "Code: %s\n", instrument.Symbol)
	fmt.Fprintf(&b, "Target Date: %s (the nearest published value within %d days is acceptable)\n\n", models.DateKey(date), windowDays)
	b.WriteString("Return ONLY one line in this exact format:\n")
	b.WriteString("DATE|PRICE|CATEGORY\n\n")
	b.WriteString("Examples:\n")
	b.WriteString("2024-03-15|146.58|Mid Cap Fund\n")
	b.WriteString("2024-03-14|2940.55|Energy\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- DATE is the actual date of the value, format YYYY-MM-DD\n")
	b.WriteString("- PRICE is numeric only, no currency symbols or commas\n")
	b.WriteString("- CATEGORY is the sector or fund category, or UNKNOWN\n")
	b.WriteString("- Do NOT return source code, explanations or apologies\n")
	b.WriteString("- If you cannot find the value, return NOT_FOUND\n")
	return b.String()
}

// codeTokenPattern matches programming-language keywords at line or word
// starts. A reply carrying these echoed code instead of data.
var codeTokenPattern = regexp.MustCompile(`(?m)(^|\s)(import\s|def\s|class\s|func\s|package\s|#include|return\s|print\()|` + "```")

var refusalPhrases = []string{
	"i am sorry",
	"i'm sorry",
	"i apologize",
	"i cannot",
	"i can't",
	"i am unable",
	"unable to provide",
	"as an ai",
	"do not have access",
	"not_found",
}

func looksLikeCode(reply string) bool {
	return codeTokenPattern.MatchString(reply)
}

func looksLikeRefusal(reply string) bool {
	lower := strings.ToLower(reply)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// parseOracleReply validates a completion reply and extracts the valuation
// point. Checks run in a fixed order: code detection, refusal detection,
// field parsing, the future-date guard, then positivity. The future-date
// guard exists because models will happily assert a valuation for tomorrow.
func parseOracleReply(reply, symbol string, now time.Time) (*models.ValuationPoint, error) {
	if looksLikeCode(reply) {
		return nil, ErrCodeLikeReply
	}
	if looksLikeRefusal(reply) {
		return nil, ErrRefusalReply
	}

	for _, line := range strings.Split(strings.TrimSpace(reply), "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "|") {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 2 {
			continue
		}

		date, err := models.ParseDateKey(strings.TrimSpace(parts[0]))
		if err != nil {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			continue
		}

		category := "UNKNOWN"
		if len(parts) >= 3 {
			if c := strings.TrimSpace(parts[2]); c != "" {
				category = c
			}
		}

		if models.DateOnly(date).After(models.DateOnly(now)) {
			return nil, fmt.Errorf("oracle reply for %s asserts future date %s", symbol, models.DateKey(date))
		}
		if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
			return nil, fmt.Errorf("oracle reply for %s has non-positive price %v", symbol, price)
		}

		return &models.ValuationPoint{
			Symbol:   symbol,
			Date:     models.DateOnly(date),
			Price:    price,
			Category: category,
			Source:   models.SourceGenerativeModel,
		}, nil
	}

	return nil, fmt.Errorf("oracle reply for %s has no parseable line", symbol)
}
