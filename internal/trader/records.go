package trader

import (
	"time"

	"binance-futures-backtest/internal/config"
	"binance-futures-backtest/internal/market"
	"binance-futures-backtest/internal/portfolio"
	"binance-futures-backtest/internal/position"
)

// monthLayout keys monthly buckets by calendar month.
const monthLayout = "2006-01"

// Trade is a closed position. Trades are only ever appended.
type Trade struct {
	Symbol     string              `json:"symbol"`
	Direction  market.Direction    `json:"direction"`
	EntryPrice float64             `json:"entry_price"`
	ExitPrice  float64             `json:"exit_price"`
	Notional   float64             `json:"notional"`
	Margin     float64             `json:"margin"`
	PnLPct     float64             `json:"pnl_pct"`
	PnLAbs     float64             `json:"pnl_abs"`
	OpenedAt   time.Time           `json:"opened_at"`
	ClosedAt   time.Time           `json:"closed_at"`
	Reason     position.ExitReason `json:"exit_reason"`
}

// IsWin reports whether the trade made money after commission.
func (t Trade) IsWin() bool {
	return t.PnLPct > 0
}

// EquityPoint is the balance at the start of a tick, before its exits and entries.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Balance   float64   `json:"balance"`
}

// MonthlyBucket accumulates the trades closed in one calendar month.
type MonthlyBucket struct {
	Month        string  `json:"month"`
	PnLAbs       float64 `json:"pnl_abs"`
	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	StartBalance float64 `json:"start_balance"`
}

// Result is everything a finished run produced.
type Result struct {
	Params        config.Backtest     `json:"params"`
	Strategy      string              `json:"strategy"`
	Symbols       []string            `json:"symbols"`
	Trades        []Trade             `json:"trades"`
	Equity        []EquityPoint       `json:"equity"`
	Months        []MonthlyBucket     `json:"months"`
	Final         portfolio.State     `json:"final"`
	OpenPositions []position.Position `json:"open_positions"`
	Start         time.Time           `json:"start"`
	End           time.Time           `json:"end"`
}
