package metrics

import (
	"math"
	"testing"
	"time"

	"binance-futures-backtest/internal/config"
	"binance-futures-backtest/internal/market"
	"binance-futures-backtest/internal/portfolio"
	"binance-futures-backtest/internal/position"
	"binance-futures-backtest/internal/trader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func flatResult(balance float64) *trader.Result {
	return &trader.Result{
		Params: config.Backtest{InitialBalance: balance},
		Equity: []trader.EquityPoint{
			{Timestamp: day0.Add(1 * time.Hour), Balance: balance},
			{Timestamp: day0.Add(30 * time.Hour), Balance: balance},
			{Timestamp: day0.Add(60 * time.Hour), Balance: balance},
		},
		Months: []trader.MonthlyBucket{{Month: "2024-05", StartBalance: balance}},
		Final:  portfolio.State{Balance: balance, PeakBalance: balance},
	}
}

func TestCompute_NoTrades(t *testing.T) {
	// Arrange
	res := flatResult(500)

	// Act
	r := Compute(res, 0)

	// Assert
	assert.Equal(t, 0, r.TotalTrades)
	assert.Equal(t, 0.0, r.ProfitFactor)
	assert.Equal(t, 0.0, r.Sharpe)
	assert.Equal(t, 0.0, r.Sortino)
	assert.Equal(t, 0.0, r.Calmar)
	assert.Equal(t, 0.0, r.CAGR)
	assert.Equal(t, 0.0, r.MaxDrawdownPct)
	assert.Equal(t, 0.0, r.WinRate)
	assert.Equal(t, 500.0, r.FinalBalance)
	assert.Equal(t, 0.0, r.TotalReturnPct)
	require.Len(t, r.Months, 1)
	assert.Equal(t, 0.0, r.Months[0].WinRate)
	assert.Len(t, r.Daily, 3)
	assert.Equal(t, 2, r.Days)
}

func trade(pnl float64, dir market.Direction, reason position.ExitReason) trader.Trade {
	return trader.Trade{Symbol: "ETH/USDT", Direction: dir, Notional: 1000, PnLAbs: pnl, PnLPct: pnl / 1000, Reason: reason}
}

func TestCompute_TradeStatistics(t *testing.T) {
	// Arrange
	res := flatResult(1000)
	res.Trades = []trader.Trade{
		trade(30, market.Long, position.TakeProfit),
		trade(-10, market.Short, position.StopLoss),
		trade(-5, market.Long, position.StopLoss),
		trade(25, market.Short, position.TakeProfit),
	}
	res.Final = portfolio.State{Balance: 1040, PeakBalance: 1040, MaxDrawdownPct: 1.2}
	res.Months = []trader.MonthlyBucket{{Month: "2024-05", PnLAbs: 40, Trades: 4, Wins: 2, StartBalance: 1000}}

	// Act
	r := Compute(res, 0)

	// Assert
	assert.Equal(t, 4, r.TotalTrades)
	assert.Equal(t, 2, r.Wins)
	assert.Equal(t, 2, r.Losses)
	assert.Equal(t, 0.5, r.WinRate)
	assert.Equal(t, 2, r.LongTrades)
	assert.Equal(t, 2, r.ShortTrades)
	assert.Equal(t, 2, r.TakeProfits)
	assert.Equal(t, 2, r.StopLosses)
	assert.InDelta(t, 55, r.GrossProfit, 1e-12)
	assert.InDelta(t, 15, r.GrossLoss, 1e-12)
	assert.InDelta(t, 55.0/15, r.ProfitFactor, 1e-12)
	assert.InDelta(t, 27.5, r.AvgWin, 1e-12)
	assert.InDelta(t, -7.5, r.AvgLoss, 1e-12)
	assert.InDelta(t, 4, r.TotalReturnPct, 1e-9)
	assert.InDelta(t, 40, r.NetPnL, 1e-9)
	assert.Equal(t, 1.2, r.MaxDrawdownPct)

	require.Len(t, r.Months, 1)
	assert.Equal(t, 0.5, r.Months[0].WinRate)
	assert.InDelta(t, 0.04, r.Months[0].PnLPct, 1e-12)
}

func TestCompute_Idempotent(t *testing.T) {
	res := flatResult(1000)
	res.Trades = []trader.Trade{trade(12, market.Long, position.TakeProfit)}
	res.Equity = append(res.Equity, trader.EquityPoint{Timestamp: day0.Add(100 * time.Hour), Balance: 1012})

	first := Compute(res, 0.02)
	second := Compute(res, 0.02)

	assert.Equal(t, first, second)
	assert.True(t, math.IsInf(first.ProfitFactor, 1))
}

func TestProfitFactor(t *testing.T) {
	testCases := []struct {
		name     string
		profit   float64
		loss     float64
		expected float64
	}{
		{"No trades", 0, 0, 0},
		{"Only winners", 10, 0, math.Inf(1)},
		{"Only losers", 0, 10, 0},
		{"Mixed", 30, 10, 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ProfitFactor(tc.profit, tc.loss))
		})
	}
}

func TestResampleDaily_ForwardFills(t *testing.T) {
	// Arrange
	points := []trader.EquityPoint{
		{Timestamp: day0.Add(10 * time.Hour), Balance: 100},
		{Timestamp: day0.Add(20 * time.Hour), Balance: 110},
		{Timestamp: day0.Add(53 * time.Hour), Balance: 120},
	}

	// Act
	daily := ResampleDaily(points)
	returns := DailyReturns(daily)

	// Assert
	require.Len(t, daily, 3)
	assert.Equal(t, day0, daily[0].Day)
	assert.Equal(t, 110.0, daily[0].Balance)
	assert.Equal(t, day0.AddDate(0, 0, 1), daily[1].Day)
	assert.Equal(t, 110.0, daily[1].Balance)
	assert.Equal(t, 120.0, daily[2].Balance)

	require.Len(t, returns, 2)
	assert.Equal(t, 0.0, returns[0])
	assert.InDelta(t, 120.0/110-1, returns[1], 1e-12)
}

func TestResampleDaily_Empty(t *testing.T) {
	assert.Nil(t, ResampleDaily(nil))
	assert.Nil(t, DailyReturns(nil))
}

func TestCAGR(t *testing.T) {
	oneYear := []DailyPoint{
		{Day: day0, Balance: 100},
		{Day: day0.AddDate(0, 0, 365), Balance: 110},
	}
	assert.InDelta(t, 0.1, CAGR(oneYear), 1e-12)

	halfYear := []DailyPoint{
		{Day: day0, Balance: 100},
		{Day: day0.AddDate(0, 0, 73), Balance: 110},
	}
	assert.InDelta(t, math.Pow(1.1, 5)-1, CAGR(halfYear), 1e-12)

	assert.Equal(t, 0.0, CAGR([]DailyPoint{{Day: day0, Balance: 100}}))
}

func TestSharpeAndSortino(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.02, 0}
	assert.InDelta(t, 7.399324293474371, Sharpe(returns, 0), 1e-9)
	assert.InDelta(t, 7.251337807604883, Sharpe(returns, 0.0365), 1e-9)
	// A single negative return is not enough for a downside deviation.
	assert.Equal(t, 0.0, Sortino(returns, 0))

	returns = []float64{0.02, -0.01, -0.03, 0.04}
	assert.InDelta(t, 3.0724021827250736, Sharpe(returns, 0), 1e-9)
	assert.InDelta(t, 6.754628043053149, Sortino(returns, 0), 1e-9)

	assert.Equal(t, 0.0, Sharpe([]float64{0.01}, 0))
	assert.Equal(t, 0.0, Sharpe([]float64{0.25, 0.25, 0.25}, 0))
	assert.Equal(t, 0.0, Sortino([]float64{-0.01, -0.01, 0.02}, 0))
}

func TestCalmar(t *testing.T) {
	assert.InDelta(t, 2.0, Calmar(0.2, 10), 1e-12)
	assert.Equal(t, 0.0, Calmar(0.2, 0))
}
