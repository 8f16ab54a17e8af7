package models

import (
	"time"

	"gorm.io/gorm"
)

// Trade represents a closed backtest trade in the database.
type Trade struct {
	gorm.Model
	RunID      string    `gorm:"index;size:26" json:"run_id"`
	Symbol     string    `json:"symbol"`
	Direction  string    `json:"direction"` // "LONG" or "SHORT"
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Notional   float64   `json:"notional"`
	Margin     float64   `json:"margin"`
	PnLPct     float64   `json:"pnl_pct"`
	PnLAbs     float64   `json:"pnl_abs"`
	OpenedAt   time.Time `json:"opened_at"`
	ClosedAt   time.Time `gorm:"index" json:"closed_at"`
	ExitReason string    `json:"exit_reason"` // "SL" or "TP"
}
