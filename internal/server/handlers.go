package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/bobmcallan/folio/internal/classify"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// transactionUpload is the ingestion payload: one parsed CSV row per record.
type transactionUpload struct {
	Records []uploadRecord `json:"records"`
}

type uploadRecord struct {
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Date           string  `json:"date"`
	Quantity       float64 `json:"quantity"`
	CostBasisPrice float64 `json:"cost_basis_price"`
	InvestedAmount float64 `json:"invested_amount"`
}

// handleTransactions handles POST (upload) and GET (list) on /api/transactions.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleTransactionUpload(w, r)
	case http.MethodGet:
		s.handleTransactionList(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleTransactionUpload ingests parsed holdings and kicks off a full-window
// backfill for the instruments they name.
func (s *Server) handleTransactionUpload(w http.ResponseWriter, r *http.Request) {
	userID := RequireUser(w, r)
	if userID == "" {
		return
	}

	var upload transactionUpload
	if !DecodeJSON(w, r, &upload) {
		return
	}
	if len(upload.Records) == 0 {
		WriteError(w, http.StatusBadRequest, "records is required")
		return
	}

	records := make([]models.TransactionRecord, 0, len(upload.Records))
	for _, rec := range upload.Records {
		if rec.Symbol == "" {
			WriteError(w, http.StatusBadRequest, "record symbol is required")
			return
		}
		date, err := models.ParseDateKey(rec.Date)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "record date must be YYYY-MM-DD")
			return
		}
		records = append(records, models.TransactionRecord{
			UserID:         userID,
			Symbol:         rec.Symbol,
			Name:           rec.Name,
			Date:           date,
			Quantity:       rec.Quantity,
			CostBasisPrice: rec.CostBasisPrice,
			InvestedAmount: rec.InvestedAmount,
		})
	}

	if err := s.app.Backfill.OnFileUploaded(r.Context(), userID, records); err != nil {
		if errors.Is(err, interfaces.ErrBackfillRunning) {
			WriteError(w, http.StatusConflict, "A backfill is already running for this user")
			return
		}
		s.logger.Error().Str("user_id", userID).Err(err).Msg("Transaction upload failed")
		WriteError(w, http.StatusInternalServerError, "Failed to process transactions")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"records": len(records),
	})
}

func (s *Server) handleTransactionList(w http.ResponseWriter, r *http.Request) {
	userID := RequireUser(w, r)
	if userID == "" {
		return
	}

	records, err := s.app.Storage.TransactionStore().ListByUser(r.Context(), userID)
	if err != nil {
		s.logger.Error().Str("user_id", userID).Err(err).Msg("Failed to list transactions")
		WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}
	if records == nil {
		records = []models.TransactionRecord{}
	}
	WriteJSON(w, http.StatusOK, records)
}

// handleRefresh handles POST /api/backfill/refresh: the login-time
// incremental refresh for the acting user.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	userID := RequireUser(w, r)
	if userID == "" {
		return
	}

	if err := s.app.Backfill.OnUserLogin(r.Context(), userID); err != nil {
		if errors.Is(err, interfaces.ErrBackfillRunning) {
			WriteError(w, http.StatusConflict, "A backfill is already running for this user")
			return
		}
		s.logger.Error().Str("user_id", userID).Err(err).Msg("Login refresh failed")
		WriteError(w, http.StatusInternalServerError, "Failed to refresh prices")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePriceResolve handles GET /api/prices/{symbol}?date=YYYY-MM-DD&name=...
// It resolves one valuation through the full source chain. 404 means every
// source was exhausted, which is a normal outcome for obscure instruments.
func (s *Server) handlePriceResolve(w http.ResponseWriter, r *http.Request, symbol string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := models.ParseDateKey(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	instrument := classify.NewInstrument(symbol, r.URL.Query().Get("name"))

	point, err := s.app.Resolver.Resolve(r.Context(), instrument, date)
	if err != nil {
		s.logger.Error().Str("symbol", symbol).Err(err).Msg("Price resolution failed")
		WriteError(w, http.StatusInternalServerError, "Failed to resolve price")
		return
	}
	if point == nil {
		WriteError(w, http.StatusNotFound, "No price found for "+symbol)
		return
	}
	WriteJSON(w, http.StatusOK, point)
}

// handlePriceSeries handles GET /api/prices/{symbol}/series?from=...&to=...
// It reads the cache only; use the refresh endpoint to fill gaps first.
func (s *Server) handlePriceSeries(w http.ResponseWriter, r *http.Request, symbol string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "symbol is required in path")
		return
	}

	to := models.DateOnly(time.Now())
	from := to.AddDate(0, 0, -s.app.Config.Pricing.BackfillWindowDays)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := models.ParseDateKey(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := models.ParseDateKey(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
		to = parsed
	}
	if to.Before(from) {
		WriteError(w, http.StatusBadRequest, "to must not precede from")
		return
	}

	points, err := s.app.Storage.PriceStore().Range(r.Context(), symbol, from, to)
	if err != nil {
		s.logger.Error().Str("symbol", symbol).Err(err).Msg("Failed to read price series")
		WriteError(w, http.StatusInternalServerError, "Failed to read price series")
		return
	}
	if points == nil {
		points = []models.ValuationPoint{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"from":   models.DateKey(from),
		"to":     models.DateKey(to),
		"points": points,
	})
}
