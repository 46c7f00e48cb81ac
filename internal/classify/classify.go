// Package classify assigns instruments to asset classes from symbol shape and
// free-text metadata. Classification is deterministic and total: unrecognized
// patterns fall through to Equity.
package classify

import (
	"regexp"
	"strings"

	"github.com/bobmcallan/folio/internal/models"
)

// registryCodePattern matches private-placement registry identifiers: a short
// alphabetic country/registry prefix followed by a long numeric id
// (e.g. INP000006387, INA000004081).
var registryCodePattern = regexp.MustCompile(`^[A-Z]{2,3}\d{9,}$`)

// fundISINPattern matches mutual fund ISINs (INF prefix, 12 characters).
var fundISINPattern = regexp.MustCompile(`^INF[A-Z0-9]{9}$`)

// numericPattern matches purely numeric symbols.
var numericPattern = regexp.MustCompile(`^\d+$`)

// vehicleMarkers are explicit vehicle-type tokens in symbols or metadata.
var vehicleMarkers = []string{"PMS", "AIF", "PORTFOLIO MANAGEMENT", "ALTERNATIVE INVESTMENT"}

// Classify maps a symbol and an optional free-text hint (fund name, CSV
// category column) to an asset class. Rules are applied in order:
// private-vehicle registry codes and marker tokens, then fund scheme codes,
// then Equity as the default.
func Classify(symbol, hint string) models.AssetClass {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	upperHint := strings.ToUpper(hint)

	if registryCodePattern.MatchString(sym) {
		return models.AssetPrivateVehicle
	}
	for _, marker := range vehicleMarkers {
		if containsToken(sym, marker) || containsToken(upperHint, marker) {
			return models.AssetPrivateVehicle
		}
	}

	if fundISINPattern.MatchString(sym) {
		return models.AssetFund
	}
	if numericPattern.MatchString(sym) {
		// Exchange-listed scrip codes are six digits starting with 5; the
		// remaining 5-6 digit numeric codes are fund scheme codes.
		if len(sym) == 6 && sym[0] == '5' {
			return models.AssetEquity
		}
		if len(sym) == 5 || len(sym) == 6 {
			return models.AssetFund
		}
	}
	if strings.HasPrefix(sym, "MF_") {
		return models.AssetFund
	}

	return models.AssetEquity
}

// NewInstrument builds a classified instrument. Re-running with fresh metadata
// is idempotent; the latest result wins.
func NewInstrument(symbol, displayName string) models.Instrument {
	return models.Instrument{
		Symbol:      strings.TrimSpace(symbol),
		AssetClass:  Classify(symbol, displayName),
		DisplayName: strings.TrimSpace(displayName),
	}
}

// containsToken reports whether s contains token as a word-ish unit rather
// than a substring of a longer alphabetic run ("AIF" must not match "FAIRFAX").
func containsToken(s, token string) bool {
	idx := strings.Index(s, token)
	for idx >= 0 {
		beforeOK := idx == 0 || !isAlpha(s[idx-1])
		afterIdx := idx + len(token)
		afterOK := afterIdx >= len(s) || !isAlpha(s[afterIdx])
		if beforeOK && afterOK {
			return true
		}
		next := strings.Index(s[idx+1:], token)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isAlpha(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z'
}
