// Package metrics turns a finished run into performance statistics. Everything here
// is a pure function of the run result.
package metrics

import (
	"math"

	"binance-futures-backtest/internal/market"
	"binance-futures-backtest/internal/position"
	"binance-futures-backtest/internal/trader"
)

// DaysPerYear annualizes daily statistics. Crypto trades every day.
const DaysPerYear = 365

// MonthReport is one row of the per-month breakdown.
type MonthReport struct {
	Month        string  `json:"month"`
	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	WinRate      float64 `json:"win_rate"`
	PnLAbs       float64 `json:"pnl_abs"`
	PnLPct       float64 `json:"pnl_pct"`
	StartBalance float64 `json:"start_balance"`
}

// Report holds the statistics of one run. Rates and returns are fractions, except
// MaxDrawdownPct and TotalReturnPct which are percentages.
type Report struct {
	InitialBalance float64 `json:"initial_balance"`
	FinalBalance   float64 `json:"final_balance"`
	NetPnL         float64 `json:"net_pnl"`
	TotalReturnPct float64 `json:"total_return_pct"`

	TotalTrades int     `json:"total_trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"win_rate"`
	LongTrades  int     `json:"long_trades"`
	ShortTrades int     `json:"short_trades"`
	TakeProfits int     `json:"take_profits"`
	StopLosses  int     `json:"stop_losses"`
	AvgWin      float64 `json:"avg_win"`
	AvgLoss     float64 `json:"avg_loss"`

	GrossProfit float64 `json:"gross_profit"`
	GrossLoss   float64 `json:"gross_loss"`
	// ProfitFactor is +Inf when there are winners and no losers.
	ProfitFactor float64 `json:"-"`

	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	CAGR           float64 `json:"cagr"`
	Sharpe         float64 `json:"sharpe"`
	Sortino        float64 `json:"sortino"`
	Calmar         float64 `json:"calmar"`
	Days           int     `json:"days"`

	Months []MonthReport `json:"months"`
	Daily  []DailyPoint  `json:"daily"`
}

// Compute derives the report for res. riskFreeRate is annual.
func Compute(res *trader.Result, riskFreeRate float64) Report {
	r := Report{
		InitialBalance: res.Params.InitialBalance,
		FinalBalance:   res.Final.Balance,
		MaxDrawdownPct: res.Final.MaxDrawdownPct,
	}
	r.NetPnL = r.FinalBalance - r.InitialBalance
	if r.InitialBalance > 0 {
		r.TotalReturnPct = r.NetPnL / r.InitialBalance * 100
	}

	// 1. Trade statistics.
	tradeStats(&r, res.Trades)

	// 2. Monthly breakdown.
	r.Months = make([]MonthReport, 0, len(res.Months))
	for _, b := range res.Months {
		m := MonthReport{
			Month:        b.Month,
			Trades:       b.Trades,
			Wins:         b.Wins,
			PnLAbs:       b.PnLAbs,
			StartBalance: b.StartBalance,
		}
		if b.Trades > 0 {
			m.WinRate = float64(b.Wins) / float64(b.Trades)
		}
		if b.StartBalance > 0 {
			m.PnLPct = b.PnLAbs / b.StartBalance
		}
		r.Months = append(r.Months, m)
	}

	// 3. Risk-adjusted returns from the daily equity curve.
	r.Daily = ResampleDaily(res.Equity)
	returns := DailyReturns(r.Daily)
	if len(r.Daily) > 1 {
		r.Days = int(r.Daily[len(r.Daily)-1].Day.Sub(r.Daily[0].Day).Hours() / 24)
	}
	r.CAGR = CAGR(r.Daily)
	r.Sharpe = Sharpe(returns, riskFreeRate)
	r.Sortino = Sortino(returns, riskFreeRate)
	r.Calmar = Calmar(r.CAGR, r.MaxDrawdownPct)
	return r
}

func tradeStats(r *Report, trades []trader.Trade) {
	r.TotalTrades = len(trades)
	for _, t := range trades {
		switch {
		case t.PnLAbs > 0:
			r.GrossProfit += t.PnLAbs
		case t.PnLAbs < 0:
			r.GrossLoss += -t.PnLAbs
		}
		if t.IsWin() {
			r.Wins++
		} else {
			r.Losses++
		}
		if t.Direction == market.Long {
			r.LongTrades++
		} else {
			r.ShortTrades++
		}
		if t.Reason == position.TakeProfit {
			r.TakeProfits++
		} else {
			r.StopLosses++
		}
	}
	if r.TotalTrades > 0 {
		r.WinRate = float64(r.Wins) / float64(r.TotalTrades)
	}
	if r.Wins > 0 {
		r.AvgWin = r.GrossProfit / float64(r.Wins)
	}
	if r.Losses > 0 {
		r.AvgLoss = -r.GrossLoss / float64(r.Losses)
	}
	r.ProfitFactor = ProfitFactor(r.GrossProfit, r.GrossLoss)
}

// ProfitFactor is gross profit over gross loss, both positive. It is 0 without any
// profit and +Inf with profit but no loss.
func ProfitFactor(grossProfit, grossLoss float64) float64 {
	switch {
	case grossProfit <= 0:
		return 0
	case grossLoss <= 0:
		return math.Inf(1)
	default:
		return grossProfit / grossLoss
	}
}

// CAGR annualizes the growth between the first and last daily value. It is 0 for
// fewer than two days or a zero span.
func CAGR(daily []DailyPoint) float64 {
	if len(daily) < 2 {
		return 0
	}
	first, last := daily[0], daily[len(daily)-1]
	days := last.Day.Sub(first.Day).Hours() / 24
	if days <= 0 || first.Balance <= 0 {
		return 0
	}
	ratio := last.Balance / first.Balance
	if ratio <= 0 {
		return -1
	}
	return math.Pow(ratio, DaysPerYear/days) - 1
}

// Sharpe is the annualized mean daily excess return over the sample standard
// deviation of daily returns. It is 0 for fewer than two returns or zero variance.
func Sharpe(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	sd := stdDev(returns)
	if sd == 0 || math.IsNaN(sd) {
		return 0
	}
	return (mean(returns) - riskFreeRate/DaysPerYear) / sd * math.Sqrt(DaysPerYear)
}

// Sortino is Sharpe with only the negative daily returns in the denominator. It is 0
// when fewer than two returns are negative or they do not vary.
func Sortino(returns []float64, riskFreeRate float64) float64 {
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) < 2 {
		return 0
	}
	sd := stdDev(downside)
	if sd == 0 || math.IsNaN(sd) {
		return 0
	}
	return (mean(returns) - riskFreeRate/DaysPerYear) / sd * math.Sqrt(DaysPerYear)
}

// Calmar is CAGR over max drawdown as a fraction. It is 0 without a drawdown.
func Calmar(cagr, maxDrawdownPct float64) float64 {
	if maxDrawdownPct <= 0 {
		return 0
	}
	return cagr / (maxDrawdownPct / 100)
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev is the sample standard deviation (n-1 denominator).
func stdDev(xs []float64) float64 {
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
