package position

import (
	"math"

	"binance-futures-backtest/internal/market"
)

// ExitReason says which level closed a position.
type ExitReason string

const (
	StopLoss   ExitReason = "SL"
	TakeProfit ExitReason = "TP"
)

// Rules are the exit levels and execution costs applied to every position.
type Rules struct {
	TakeProfitPct   float64
	StopLossPct     float64
	TakerCommission float64
	Slippage        float64
}

// Exit describes a triggered close.
type Exit struct {
	Reason ExitReason
	// Price is the fill after slippage.
	Price float64
	// RawPnL is the direction-adjusted relative move from entry to fill.
	RawPnL float64
	// PnLPct is RawPnL net of the round-trip taker commission.
	PnLPct float64
	// Profit is PnLPct applied to the position notional, in account currency.
	Profit float64
}

// StopPrice returns the stop-loss level for p.
func (r Rules) StopPrice(p Position) float64 {
	if p.Direction == market.Long {
		return p.EntryPrice * (1 - r.StopLossPct)
	}
	return p.EntryPrice * (1 + r.StopLossPct)
}

// TakePrice returns the take-profit level for p.
func (r Rules) TakePrice(p Position) float64 {
	if p.Direction == market.Long {
		return p.EntryPrice * (1 + r.TakeProfitPct)
	}
	return p.EntryPrice * (1 - r.TakeProfitPct)
}

// EvaluateExit checks p against the next candle. The stop is tested first, so a candle
// that breaches both levels closes at the stop. A stop gapped through at the open fills
// at the worse open; a take profit always fills at its level.
func (r Rules) EvaluateExit(p Position, next market.Candle) (Exit, bool) {
	stop := r.StopPrice(p)
	take := r.TakePrice(p)

	var ex Exit
	switch p.Direction {
	case market.Long:
		switch {
		case next.Low <= stop:
			ex.Reason = StopLoss
			ex.Price = math.Min(next.Open, stop) * (1 - r.Slippage)
		case next.High >= take:
			ex.Reason = TakeProfit
			ex.Price = take * (1 - r.Slippage)
		default:
			return Exit{}, false
		}
		ex.RawPnL = (ex.Price - p.EntryPrice) / p.EntryPrice
	case market.Short:
		switch {
		case next.High >= stop:
			ex.Reason = StopLoss
			ex.Price = math.Max(next.Open, stop) * (1 + r.Slippage)
		case next.Low <= take:
			ex.Reason = TakeProfit
			ex.Price = take * (1 + r.Slippage)
		default:
			return Exit{}, false
		}
		ex.RawPnL = (p.EntryPrice - ex.Price) / p.EntryPrice
	default:
		return Exit{}, false
	}

	// Slippage is already in the fill price; only commission is charged here.
	ex.PnLPct = ex.RawPnL - 2*r.TakerCommission
	ex.Profit = p.Notional * ex.PnLPct
	return ex, true
}

// EntryPrice returns the fill for a market entry at open, moved against the trader by slippage.
func (r Rules) EntryPrice(dir market.Direction, open float64) float64 {
	if dir == market.Long {
		return open * (1 + r.Slippage)
	}
	return open * (1 - r.Slippage)
}
