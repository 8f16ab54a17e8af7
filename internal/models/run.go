package models

import (
	"encoding/json"
	"math"
	"time"

	"binance-futures-backtest/internal/config"
	"gorm.io/gorm"
)

// BacktestRun is one stored simulation with its parameters and headline metrics.
type BacktestRun struct {
	gorm.Model
	RunID    string          `gorm:"uniqueIndex;size:26;not null" json:"run_id"`
	Strategy string          `json:"strategy"`
	Symbols  string          `json:"symbols"` // comma separated
	Params   config.Backtest `gorm:"serializer:json;type:text" json:"params"`
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`

	InitialBalance float64 `json:"initial_balance"`
	FinalBalance   float64 `json:"final_balance"`
	TotalReturnPct float64 `json:"total_return_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	TotalTrades    int     `json:"total_trades"`
	Wins           int     `json:"wins"`
	WinRate        float64 `json:"win_rate"`
	ProfitFactor   float64 `json:"profit_factor"`
	Sharpe         float64 `json:"sharpe"`
	Sortino        float64 `json:"sortino"`
	Calmar         float64 `json:"calmar"`
	CAGR           float64 `json:"cagr"`
	OpenPositions  int     `json:"open_positions"`
}

// MarshalJSON writes an infinite profit factor as null, which JSON cannot represent otherwise.
func (r BacktestRun) MarshalJSON() ([]byte, error) {
	type alias BacktestRun
	var pf *float64
	if !math.IsInf(r.ProfitFactor, 0) && !math.IsNaN(r.ProfitFactor) {
		v := r.ProfitFactor
		pf = &v
	}
	return json.Marshal(struct {
		alias
		ProfitFactor *float64 `json:"profit_factor"`
	}{alias(r), pf})
}

// EquityPoint is one sample of a run's equity curve.
type EquityPoint struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	RunID     string    `gorm:"index;size:26" json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Balance   float64   `json:"balance"`
}

// MonthlyStat is one month of a run's breakdown.
type MonthlyStat struct {
	ID           uint    `gorm:"primarykey" json:"-"`
	RunID        string  `gorm:"uniqueIndex:idx_run_month;size:26" json:"run_id"`
	Month        string  `gorm:"uniqueIndex:idx_run_month;size:7" json:"month"`
	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	WinRate      float64 `json:"win_rate"`
	PnLAbs       float64 `json:"pnl_abs"`
	PnLPct       float64 `json:"pnl_pct"`
	StartBalance float64 `json:"start_balance"`
}
