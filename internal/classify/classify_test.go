package classify

import (
	"testing"

	"github.com/bobmcallan/folio/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		symbol string
		hint   string
		want   models.AssetClass
	}{
		// Private-vehicle registry codes
		{"INP000006387", "", models.AssetPrivateVehicle},
		{"INA000004081", "", models.AssetPrivateVehicle},
		{"inp000005000", "", models.AssetPrivateVehicle},
		// Vehicle marker tokens in symbol or metadata
		{"BUOYANT_PMS", "", models.AssetPrivateVehicle},
		{"XYZ001", "Opportunities PMS Scheme", models.AssetPrivateVehicle},
		{"ABCAP", "Emerging AIF Category II", models.AssetPrivateVehicle},
		// Fund scheme codes and ISINs
		{"119551", "", models.AssetFund},
		{"25872", "", models.AssetFund},
		{"INF174K01KT2", "", models.AssetFund},
		{"MF_102949", "", models.AssetFund},
		// Exchange scrip codes (six digits, leading 5) are equities
		{"500414", "", models.AssetEquity},
		{"543210", "", models.AssetEquity},
		// Plain tickers
		{"INFY", "", models.AssetEquity},
		{"TCS", "Tata Consultancy Services", models.AssetEquity},
		{"ACME.AU", "", models.AssetEquity},
		// Marker must match as a token, not a substring
		{"FAIRFAX", "", models.AssetEquity},
		{"IMPMS", "", models.AssetEquity},
		// Unrecognized defaults to Equity
		{"", "", models.AssetEquity},
		{"1234567890123", "", models.AssetEquity},
	}

	for _, tt := range tests {
		if got := Classify(tt.symbol, tt.hint); got != tt.want {
			t.Errorf("Classify(%q, %q) = %v, want %v", tt.symbol, tt.hint, got, tt.want)
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		if got := Classify("INP000006387", "anything"); got != models.AssetPrivateVehicle {
			t.Fatalf("run %d: classification changed to %v", i, got)
		}
	}
}

func TestNewInstrument(t *testing.T) {
	inst := NewInstrument("  119551  ", " HDFC Balanced Advantage Fund ")
	if inst.Symbol != "119551" {
		t.Errorf("Symbol = %q, want trimmed", inst.Symbol)
	}
	if inst.AssetClass != models.AssetFund {
		t.Errorf("AssetClass = %v, want fund", inst.AssetClass)
	}
	if inst.DisplayName != "HDFC Balanced Advantage Fund" {
		t.Errorf("DisplayName = %q, want trimmed", inst.DisplayName)
	}
}
