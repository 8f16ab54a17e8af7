package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"binance-futures-backtest/internal/database"
	"binance-futures-backtest/internal/models"
	"go.uber.org/zap"
)

const defaultRunLimit = 50

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log   *zap.Logger
	store *database.Store
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, store *database.Store) *APIHandler {
	return &APIHandler{log: log, store: store}
}

// Routes returns the mux with every API endpoint registered.
func (h *APIHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.HealthHandler)
	mux.HandleFunc("/api/runs", h.RunsHandler)
	mux.HandleFunc("/api/trades", h.TradesHandler)
	mux.HandleFunc("/api/equity", h.EquityHandler)
	mux.HandleFunc("/api/monthly", h.MonthlyHandler)
	mux.HandleFunc("/api/statistics", h.StatisticsHandler)
	return mux
}

// HealthHandler reports that the server is up.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// RunsHandler returns stored runs, or a single run when run_id is given.
func (h *APIHandler) RunsHandler(w http.ResponseWriter, r *http.Request) {
	if runID := r.URL.Query().Get("run_id"); runID != "" {
		run, err := h.store.GetRun(runID)
		if err != nil {
			h.fail(w, "Failed to get run", err)
			return
		}
		h.writeJSON(w, run)
		return
	}

	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.store.ListRuns(limit)
	if err != nil {
		h.fail(w, "Failed to list runs", err)
		return
	}
	h.writeJSON(w, runs)
}

// TradesHandler returns the trades of a run, or of every run when run_id is empty.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := h.store.Trades(r.URL.Query().Get("run_id"))
	if err != nil {
		h.fail(w, "Failed to get trades", err)
		return
	}
	h.writeJSON(w, trades)
}

// EquityHandler returns the equity curve of a run.
func (h *APIHandler) EquityHandler(w http.ResponseWriter, r *http.Request) {
	runID, ok := requireRunID(w, r)
	if !ok {
		return
	}
	points, err := h.store.Equity(runID)
	if err != nil {
		h.fail(w, "Failed to get equity curve", err)
		return
	}
	h.writeJSON(w, points)
}

// MonthlyHandler returns the monthly breakdown of a run.
func (h *APIHandler) MonthlyHandler(w http.ResponseWriter, r *http.Request) {
	runID, ok := requireRunID(w, r)
	if !ok {
		return
	}
	months, err := h.store.Monthly(runID)
	if err != nil {
		h.fail(w, "Failed to get monthly stats", err)
		return
	}
	h.writeJSON(w, months)
}

// StatsDetail holds calculated statistics for a group of trades.
type StatsDetail struct {
	TotalTrades      int64   `json:"total_trades"`
	ProfitableTrades int64   `json:"profitable_trades"`
	WinRate          float64 `json:"win_rate"`
	TotalProfit      float64 `json:"total_profit"`
	TakeProfits      int64   `json:"take_profits"`
	StopLosses       int64   `json:"stop_losses"`
}

func (s *StatsDetail) add(t models.Trade) {
	s.TotalTrades++
	if t.PnLPct > 0 {
		s.ProfitableTrades++
	}
	s.TotalProfit += t.PnLAbs
	switch t.ExitReason {
	case "TP":
		s.TakeProfits++
	case "SL":
		s.StopLosses++
	}
}

func (s *StatsDetail) finish() {
	if s.TotalTrades > 0 {
		s.WinRate = float64(s.ProfitableTrades) / float64(s.TotalTrades)
	}
}

// StatisticsResponse is the structure for the /api/statistics endpoint.
type StatisticsResponse struct {
	AllTrades StatsDetail `json:"all_trades"`
	Long      StatsDetail `json:"long"`
	Short     StatsDetail `json:"short"`
}

// StatisticsHandler calculates trade statistics for a run, or for every run when
// run_id is empty.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := h.store.Trades(r.URL.Query().Get("run_id"))
	if err != nil {
		h.fail(w, "Failed to calculate statistics", err)
		return
	}

	var resp StatisticsResponse
	for _, t := range trades {
		resp.AllTrades.add(t)
		switch t.Direction {
		case "LONG":
			resp.Long.add(t)
		case "SHORT":
			resp.Short.add(t)
		}
	}
	resp.AllTrades.finish()
	resp.Long.finish()
	resp.Short.finish()

	h.writeJSON(w, resp)
}

func requireRunID(w http.ResponseWriter, r *http.Request) (string, bool) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		http.Error(w, "run_id is required", http.StatusBadRequest)
		return "", false
	}
	return runID, true
}

func (h *APIHandler) fail(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, database.ErrRunNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.log.Error(msg, zap.Error(err))
	http.Error(w, msg, http.StatusInternalServerError)
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to write response", zap.Error(err))
	}
}
