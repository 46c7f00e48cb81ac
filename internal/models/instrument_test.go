package models

import (
	"math"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestValuationPoint_Validate(t *testing.T) {
	now := date(2024, 10, 14)

	tests := []struct {
		name    string
		point   ValuationPoint
		wantErr bool
	}{
		{"valid", ValuationPoint{Symbol: "ACME", Date: date(2024, 1, 15), Price: 100.0, Source: SourceMarketData}, false},
		{"valid today", ValuationPoint{Symbol: "ACME", Date: now, Price: 1.5, Source: SourceMarketData}, false},
		{"zero price", ValuationPoint{Symbol: "ACME", Date: date(2024, 1, 15), Price: 0}, true},
		{"negative price", ValuationPoint{Symbol: "ACME", Date: date(2024, 1, 15), Price: -4.2}, true},
		{"nan price", ValuationPoint{Symbol: "ACME", Date: date(2024, 1, 15), Price: math.NaN()}, true},
		{"inf price", ValuationPoint{Symbol: "ACME", Date: date(2024, 1, 15), Price: math.Inf(1)}, true},
		{"future date", ValuationPoint{Symbol: "ACME", Date: date(2024, 10, 15), Price: 100.0}, true},
		{"empty symbol", ValuationPoint{Date: date(2024, 1, 15), Price: 100.0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.point.Validate(now)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValuationPoint_Validate_IgnoresTimeOfDay(t *testing.T) {
	// A point dated today-with-timestamp must not be rejected just because the
	// clock reads later than "now".
	now := time.Date(2024, 10, 14, 9, 0, 0, 0, time.UTC)
	p := ValuationPoint{Symbol: "ACME", Date: time.Date(2024, 10, 14, 23, 30, 0, 0, time.UTC), Price: 10}
	if err := p.Validate(now); err != nil {
		t.Errorf("same-day point rejected: %v", err)
	}
}

func TestTransactionRecord_Invested(t *testing.T) {
	tr := TransactionRecord{Quantity: 100, CostBasisPrice: 50, InvestedAmount: 5500}
	if got := tr.Invested(); got != 5500 {
		t.Errorf("Invested() = %v, want explicit amount 5500", got)
	}

	tr.InvestedAmount = 0
	if got := tr.Invested(); got != 5000 {
		t.Errorf("Invested() = %v, want price*quantity 5000", got)
	}

	tr.InvestedAmount = -1
	if got := tr.Invested(); got != 5000 {
		t.Errorf("Invested() = %v with non-positive amount, want fallback 5000", got)
	}
}

func TestNewGrowthModel_Rate(t *testing.T) {
	// 7,000,000 on 2024-01-06 observed at 8,500,000 on 2024-10-14.
	m, err := NewGrowthModel("XYZ001", date(2024, 1, 6), 7_000_000, date(2024, 10, 14), 8_500_000)
	if err != nil {
		t.Fatalf("NewGrowthModel failed: %v", err)
	}

	if math.Abs(m.AnnualizedRate-0.285) > 0.01 {
		t.Errorf("AnnualizedRate = %v, want ~0.285", m.AnnualizedRate)
	}
}

func TestNewGrowthModel_Undefined(t *testing.T) {
	if _, err := NewGrowthModel("X", date(2024, 1, 6), 100, date(2024, 1, 6), 120); err == nil {
		t.Error("expected error for coinciding anchor dates")
	}
	if _, err := NewGrowthModel("X", date(2024, 1, 6), 0, date(2024, 10, 14), 120); err == nil {
		t.Error("expected error for zero origin price")
	}
	if _, err := NewGrowthModel("X", date(2024, 1, 6), 100, date(2024, 10, 14), -5); err == nil {
		t.Error("expected error for negative observed price")
	}
}

func TestGrowthModel_ValueAt_Origin(t *testing.T) {
	m, err := NewGrowthModel("XYZ001", date(2024, 1, 6), 7_000_000, date(2024, 10, 14), 8_500_000)
	if err != nil {
		t.Fatalf("NewGrowthModel failed: %v", err)
	}

	// Degenerate case of the exponential: years = 0 must return the origin
	// price exactly.
	if got := m.ValueAt(date(2024, 1, 6)); got != 7_000_000 {
		t.Errorf("ValueAt(origin) = %v, want exactly 7000000", got)
	}
}

func TestGrowthModel_ValueAt_Interpolation(t *testing.T) {
	m, err := NewGrowthModel("XYZ001", date(2024, 1, 6), 7_000_000, date(2024, 10, 14), 8_500_000)
	if err != nil {
		t.Fatalf("NewGrowthModel failed: %v", err)
	}

	got := m.ValueAt(date(2024, 7, 1))
	want := 7_910_000.0
	if math.Abs(got-want)/want > 0.01 {
		t.Errorf("ValueAt(2024-07-01) = %v, want %v ±1%%", got, want)
	}
}

func TestGrowthModel_ValueAt_MonotonicExtrapolation(t *testing.T) {
	// Growing vehicle: values keep rising past the observed date.
	up, err := NewGrowthModel("UP", date(2024, 1, 6), 100, date(2024, 6, 1), 130)
	if err != nil {
		t.Fatalf("NewGrowthModel failed: %v", err)
	}
	atObserved := up.ValueAt(date(2024, 6, 1))
	for _, d := range []time.Time{date(2024, 6, 8), date(2024, 9, 1), date(2025, 6, 1)} {
		if up.ValueAt(d) <= atObserved {
			t.Errorf("ValueAt(%s) = %v, want > value at observed date %v", DateKey(d), up.ValueAt(d), atObserved)
		}
	}

	// Declining vehicle: negative rate, no special-casing.
	down, err := NewGrowthModel("DOWN", date(2024, 1, 6), 100, date(2024, 6, 1), 80)
	if err != nil {
		t.Fatalf("NewGrowthModel failed: %v", err)
	}
	if down.AnnualizedRate >= 0 {
		t.Errorf("AnnualizedRate = %v, want negative for declining NAV", down.AnnualizedRate)
	}
	atObserved = down.ValueAt(date(2024, 6, 1))
	for _, d := range []time.Time{date(2024, 6, 8), date(2024, 9, 1), date(2025, 6, 1)} {
		if down.ValueAt(d) >= atObserved {
			t.Errorf("ValueAt(%s) = %v, want < value at observed date %v", DateKey(d), down.ValueAt(d), atObserved)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	if got := DaysBetween(date(2024, 1, 6), date(2024, 10, 14)); got != 282 {
		t.Errorf("DaysBetween = %d, want 282", got)
	}
	if got := DaysBetween(date(2024, 10, 14), date(2024, 1, 6)); got != -282 {
		t.Errorf("reverse DaysBetween = %d, want -282", got)
	}
	// Timestamps within the same day count as zero days apart.
	a := time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)
	b := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)
	if got := DaysBetween(a, b); got != 0 {
		t.Errorf("same-day DaysBetween = %d, want 0", got)
	}
}

func TestParseDateKey(t *testing.T) {
	got, err := ParseDateKey("2024-10-13")
	if err != nil {
		t.Fatalf("ParseDateKey failed: %v", err)
	}
	if !got.Equal(date(2024, 10, 13)) {
		t.Errorf("ParseDateKey = %v, want 2024-10-13", got)
	}

	if _, err := ParseDateKey("13/10/2024"); err == nil {
		t.Error("expected error for non-canonical layout")
	}
}
