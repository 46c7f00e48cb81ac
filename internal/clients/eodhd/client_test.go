package eodhd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient("test-key", WithBaseURL(srv.URL))
	return srv, client
}

func TestGetRange(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/eod/ACME.AU" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("api_token") != "test-key" {
			t.Errorf("api_token = %q", q.Get("api_token"))
		}
		if q.Get("from") != "2024-10-07" || q.Get("to") != "2024-10-14" {
			t.Errorf("range = %s..%s", q.Get("from"), q.Get("to"))
		}
		if q.Get("order") != "a" {
			t.Errorf("order = %q, want ascending", q.Get("order"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"date":"2024-10-07","open":1,"high":1,"low":1,"close":1350.10,"adjusted_close":1350.10,"volume":100},
			{"date":"2024-10-11","open":1,"high":1,"low":1,"close":1367.07,"adjusted_close":1367.07,"volume":200}
		]`))
	})

	from := time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 10, 14, 0, 0, 0, 0, time.UTC)
	points, err := client.GetRange(context.Background(), "ACME.AU", from, to)
	if err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}

	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if points[0].Price != 1350.10 || points[1].Price != 1367.07 {
		t.Errorf("prices = %v, %v", points[0].Price, points[1].Price)
	}
	for _, p := range points {
		if p.Source != models.SourceMarketData {
			t.Errorf("source = %v, want market_data", p.Source)
		}
		if p.Symbol != "ACME.AU" {
			t.Errorf("symbol = %q", p.Symbol)
		}
	}
}

func TestGetRange_StringAndNAPrices(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"date":"2024-10-07","close":"1350.10","adjusted_close":"1350.10","volume":100},
			{"date":"2024-10-08","close":"N/A","adjusted_close":"N/A","volume":0},
			{"date":"2024-10-09","close":"","adjusted_close":"","volume":0}
		]`))
	})

	from := time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 10, 9, 0, 0, 0, 0, time.UTC)
	points, err := client.GetRange(context.Background(), "ACME.AU", from, to)
	if err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}

	if len(points) != 3 {
		t.Fatalf("got %d points, want 3", len(points))
	}
	if points[0].Price != 1350.10 {
		t.Errorf("string close = %v, want 1350.10", points[0].Price)
	}
	if points[1].Price != 0 || points[2].Price != 0 {
		t.Errorf("N/A and empty closes = %v, %v, want 0", points[1].Price, points[2].Price)
	}
}

func TestGetRange_Granularity(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("period"); got != "w" {
			t.Errorf("period = %q, want w", got)
		}
		w.Write([]byte(`[]`))
	})

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if _, err := client.GetRange(context.Background(), "ACME", from, to, interfaces.WithGranularity("w")); err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}
}

func TestGetPoint_Found(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"date":"2024-01-15","close":100.0,"adjusted_close":100.0,"volume":10}]`))
	})

	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	point, err := client.GetPoint(context.Background(), "ACME", date)
	if err != nil {
		t.Fatalf("GetPoint failed: %v", err)
	}
	if point == nil {
		t.Fatal("expected a point, got nil")
	}
	if point.Price != 100.0 {
		t.Errorf("price = %v, want 100.0", point.Price)
	}
}

func TestGetPoint_Absent(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	date := time.Date(2024, 10, 13, 0, 0, 0, 0, time.UTC)
	point, err := client.GetPoint(context.Background(), "ACME", date)
	if err != nil {
		t.Fatalf("GetPoint failed: %v", err)
	}
	if point != nil {
		t.Errorf("expected nil for absent date, got %+v", point)
	}
}

func TestGet_APIError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("invalid token"))
	})

	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	_, err := client.GetPoint(context.Background(), "ACME", date)
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", apiErr.StatusCode)
	}
}
