package trader

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"binance-futures-backtest/internal/config"
	"binance-futures-backtest/internal/market"
	"binance-futures-backtest/internal/oracle"
	"binance-futures-backtest/internal/position"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockOracle is a mock implementation of the Oracle interface.
type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) Predict(ctx context.Context, symbol string, row market.FeatureRow) (market.Probabilities, error) {
	args := m.Called(symbol, row)
	return args.Get(0).(market.Probabilities), args.Error(1)
}

var (
	t0      = time.Date(2024, 1, 31, 22, 0, 0, 0, time.UTC)
	neutral = market.Probabilities{Neutral: 1}
	bullish = market.Probabilities{Short: 0.05, Neutral: 0.05, Long: 0.9}
	bearish = market.Probabilities{Short: 0.9, Neutral: 0.05, Long: 0.05}
)

func testConfig() config.Backtest {
	cfg := config.Default().Backtest
	cfg.Symbols = []string{"ETH/USDT"}
	return cfg
}

// bar is one candle plus the oracle answer for its features.
type bar struct {
	open, high, low float64
	probs           market.Probabilities
}

// buildWindow lays out hourly candles per symbol with the probabilities stored as
// feature columns, ready for the column oracle.
func buildWindow(bars map[string][]bar) *market.Window {
	w := &market.Window{Series: make(map[string]market.Series)}
	n := 0
	for sym, bs := range bars {
		n = len(bs)
		s := market.Series{Symbol: sym}
		for i, b := range bs {
			ts := t0.Add(time.Duration(i) * time.Hour)
			s.Candles = append(s.Candles, market.Candle{Timestamp: ts, Open: b.open, High: b.high, Low: b.low, Close: b.open})
			s.Features = append(s.Features, market.FeatureRow{Timestamp: ts, Values: map[string]float64{
				oracle.ColumnShort:   b.probs.Short,
				oracle.ColumnNeutral: b.probs.Neutral,
				oracle.ColumnLong:    b.probs.Long,
			}})
		}
		w.Series[sym] = s
		w.Symbols = append(w.Symbols, sym)
	}
	sort.Strings(w.Symbols)
	for i := 0; i < n; i++ {
		w.Timestamps = append(w.Timestamps, t0.Add(time.Duration(i)*time.Hour))
	}
	return w
}

func TestEngine_TakeProfitRoundTrip(t *testing.T) {
	// Arrange: balance sized so the risk budget buys exactly 1000 notional.
	cfg := testConfig()
	cfg.InitialBalance = 1500
	w := buildWindow(map[string][]bar{
		"ETH/USDT": {
			{open: 100, high: 100, low: 100, probs: bullish},
			{open: 100 / 1.0003, high: 101, low: 99.5, probs: neutral},
			{open: 101, high: 103.5, low: 99, probs: neutral},
			{open: 102, high: 102, low: 102, probs: neutral},
		},
	})
	engine := NewEngine(zap.NewNop(), cfg, oracle.ColumnOracle{})

	// Act
	res, err := engine.Run(context.Background(), w)

	// Assert
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, market.Long, tr.Direction)
	assert.Equal(t, position.TakeProfit, tr.Reason)
	assert.InDelta(t, 100, tr.EntryPrice, 1e-9)
	assert.InDelta(t, 102.969, tr.ExitPrice, 1e-9)
	assert.InDelta(t, 1000, tr.Notional, 1e-9)
	assert.InDelta(t, 0.02889, tr.PnLPct, 1e-9)
	assert.InDelta(t, 28.89, tr.PnLAbs, 1e-6)
	assert.Equal(t, t0.Add(time.Hour), tr.OpenedAt)
	assert.Equal(t, t0.Add(2*time.Hour), tr.ClosedAt)

	// One equity point per tick, recorded before the tick settles.
	require.Len(t, res.Equity, 3)
	assert.Equal(t, 1500.0, res.Equity[0].Balance)
	assert.Equal(t, 1500.0, res.Equity[1].Balance)
	assert.InDelta(t, 1528.89, res.Equity[2].Balance, 1e-6)
	assert.Equal(t, t0, res.Equity[0].Timestamp)

	assert.InDelta(t, 1528.89, res.Final.Balance, 1e-6)
	assert.Equal(t, 0.0, res.Final.UsedMargin)
	assert.Equal(t, 0.0, res.Final.MaxDrawdownPct)
	assert.Empty(t, res.OpenPositions)
	assert.Equal(t, t0, res.Start)
	assert.Equal(t, t0.Add(3*time.Hour), res.End)
	assert.Equal(t, []string{"ETH/USDT"}, res.Symbols)
	assert.Equal(t, "threshold", res.Strategy)
}

func TestEngine_MonthlyBuckets(t *testing.T) {
	// Arrange: t0 is 22:00 on Jan 31, so the trade closes in February.
	cfg := testConfig()
	cfg.InitialBalance = 1500
	w := buildWindow(map[string][]bar{
		"ETH/USDT": {
			{open: 100, high: 100, low: 100, probs: bullish},
			{open: 100, high: 100, low: 100, probs: neutral},
			{open: 100, high: 100, low: 97, probs: neutral},
		},
	})

	// Act
	res, err := NewEngine(zap.NewNop(), cfg, oracle.ColumnOracle{}).Run(context.Background(), w)

	// Assert
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, position.StopLoss, res.Trades[0].Reason)
	require.Len(t, res.Months, 2)
	assert.Equal(t, "2024-01", res.Months[0].Month)
	assert.Equal(t, 0, res.Months[0].Trades)
	assert.Equal(t, "2024-02", res.Months[1].Month)
	assert.Equal(t, 1, res.Months[1].Trades)
	assert.Equal(t, 0, res.Months[1].Wins)
	assert.Equal(t, 1500.0, res.Months[1].StartBalance)
	assert.InDelta(t, res.Trades[0].PnLAbs, res.Months[1].PnLAbs, 1e-12)
	assert.Greater(t, res.Final.MaxDrawdownPct, 0.0)
}

func TestEngine_NoTrades(t *testing.T) {
	// Arrange
	cfg := testConfig()
	w := buildWindow(map[string][]bar{
		"ETH/USDT": {
			{open: 100, high: 101, low: 99, probs: neutral},
			{open: 101, high: 102, low: 100, probs: neutral},
			{open: 100, high: 101, low: 99, probs: neutral},
		},
	})

	// Act
	res, err := NewEngine(zap.NewNop(), cfg, oracle.ColumnOracle{}).Run(context.Background(), w)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Len(t, res.Equity, 2)
	assert.Equal(t, cfg.InitialBalance, res.Final.Balance)
	assert.Equal(t, 0.0, res.Final.MaxDrawdownPct)
}

func TestEngine_StopWinsTie(t *testing.T) {
	// Arrange
	cfg := testConfig()
	cfg.Slippage = 0
	cfg.TakerCommission = 0
	w := buildWindow(map[string][]bar{
		"ETH/USDT": {
			{open: 100, high: 100, low: 100, probs: bullish},
			{open: 100, high: 100, low: 100, probs: neutral},
			{open: 100, high: 104, low: 98, probs: neutral},
		},
	})

	// Act
	res, err := NewEngine(zap.NewNop(), cfg, oracle.ColumnOracle{}).Run(context.Background(), w)

	// Assert
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, position.StopLoss, res.Trades[0].Reason)
	assert.InDelta(t, 98.5, res.Trades[0].ExitPrice, 1e-9)
	assert.InDelta(t, -0.015, res.Trades[0].PnLPct, 1e-9)
}

func TestEngine_ShortGapStop(t *testing.T) {
	// Arrange
	cfg := testConfig()
	cfg.Slippage = 0
	cfg.TakerCommission = 0
	w := buildWindow(map[string][]bar{
		"BTC/USDT": {
			{open: 100, high: 100, low: 100, probs: bearish},
			{open: 100, high: 100.5, low: 99, probs: neutral},
			{open: 105, high: 106, low: 104, probs: neutral},
		},
	})

	// Act
	res, err := NewEngine(zap.NewNop(), cfg, oracle.ColumnOracle{}).Run(context.Background(), w)

	// Assert
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, market.Short, tr.Direction)
	assert.Equal(t, position.StopLoss, tr.Reason)
	assert.InDelta(t, 105, tr.ExitPrice, 1e-9)
	assert.InDelta(t, -0.05, tr.PnLPct, 1e-9)
}

func TestEngine_FreedMarginReusedOnSameTick(t *testing.T) {
	// Arrange: ZZZ locks the whole balance, exits on tick 1, and AAA (visited first
	// in symbol order) must still see the released margin on that tick.
	ctx := context.Background()
	cfg := testConfig()
	cfg.Symbols = []string{"AAA", "ZZZ"}
	cfg.InitialBalance = 1000
	cfg.RiskPerTrade = 0.015
	cfg.Slippage = 0
	cfg.TakerCommission = 0
	w := buildWindow(map[string][]bar{
		"ZZZ": {
			{open: 100, high: 100, low: 100, probs: bullish},
			{open: 100, high: 101, low: 99.5, probs: neutral},
			{open: 101, high: 104, low: 100, probs: neutral},
			{open: 102, high: 102, low: 102, probs: neutral},
		},
		"AAA": {
			{open: 50, high: 50, low: 50, probs: neutral},
			{open: 50, high: 50, low: 50, probs: bullish},
			{open: 50, high: 50, low: 50, probs: neutral},
			{open: 50, high: 50.5, low: 49.5, probs: neutral},
		},
	})
	engine := NewEngine(zap.NewNop(), cfg, oracle.ColumnOracle{})

	// Act & Assert: tick 0 opens ZZZ with all the margin.
	require.NoError(t, engine.Step(ctx, w.Tick(0)))
	zzz, ok := engine.Position("ZZZ")
	require.True(t, ok)
	assert.InDelta(t, 1000, zzz.Margin, 1e-9)
	assert.InDelta(t, 0, engine.State().Balance-engine.State().UsedMargin, 1e-9)

	// tick 1: ZZZ takes profit, AAA enters with the whole new balance.
	require.NoError(t, engine.Step(ctx, w.Tick(1)))
	_, ok = engine.Position("ZZZ")
	assert.False(t, ok)
	aaa, ok := engine.Position("AAA")
	require.True(t, ok)
	assert.InDelta(t, 1030, engine.State().Balance, 1e-9)
	assert.InDelta(t, 1030, aaa.Notional, 1e-9)
	assert.InDelta(t, 1030, aaa.Margin, 1e-9)
	assert.Equal(t, t0.Add(2*time.Hour), aaa.OpenedAt)

	// tick 2: AAA stays inside its levels.
	require.NoError(t, engine.Step(ctx, w.Tick(2)))
	res := engine.Result()
	assert.Len(t, res.Trades, 1)
	require.Len(t, res.OpenPositions, 1)
	assert.Equal(t, "AAA", res.OpenPositions[0].Symbol)
	assert.InDelta(t, 1030, res.Final.UsedMargin, 1e-9)
}

func TestEngine_NoReentryOnClosingTick(t *testing.T) {
	// Arrange
	ctx := context.Background()
	cfg := testConfig()
	cfg.InitialBalance = 1500
	w := buildWindow(map[string][]bar{
		"ETH/USDT": {
			{open: 100, high: 100, low: 100, probs: bullish},
			{open: 100, high: 100, low: 100, probs: bullish},
			{open: 100, high: 104, low: 100, probs: bullish},
			{open: 103, high: 103, low: 103, probs: neutral},
		},
	})
	engine := NewEngine(zap.NewNop(), cfg, oracle.ColumnOracle{})

	// Act
	require.NoError(t, engine.Step(ctx, w.Tick(0)))
	require.NoError(t, engine.Step(ctx, w.Tick(1)))

	// Assert: closed on tick 1 and still flat after it.
	assert.Len(t, engine.Result().Trades, 1)
	_, open := engine.Position("ETH/USDT")
	assert.False(t, open)

	// tick 2 reads the bullish row again and re-enters.
	require.NoError(t, engine.Step(ctx, w.Tick(2)))
	_, open = engine.Position("ETH/USDT")
	assert.True(t, open)
}

func TestEngine_SkipsBelowMinimumNotional(t *testing.T) {
	// Arrange
	cfg := testConfig()
	cfg.MinNotionalFloor = 10000
	w := buildWindow(map[string][]bar{
		"ETH/USDT": {
			{open: 100, high: 100, low: 100, probs: bullish},
			{open: 100, high: 100, low: 100, probs: bearish},
			{open: 100, high: 100, low: 100, probs: bullish},
		},
	})

	// Act
	res, err := NewEngine(zap.NewNop(), cfg, oracle.ColumnOracle{}).Run(context.Background(), w)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Empty(t, res.OpenPositions)
	assert.Equal(t, 0.0, res.Final.UsedMargin)
}

func TestEngine_OracleNotAskedWhileOpen(t *testing.T) {
	// Arrange
	cfg := testConfig()
	w := buildWindow(map[string][]bar{
		"ETH/USDT": {
			{open: 100, high: 100, low: 100},
			{open: 100, high: 100.5, low: 99.5},
			{open: 100, high: 100.5, low: 99.5},
			{open: 100, high: 100.5, low: 99.5},
		},
	})
	mockOracle := new(MockOracle)
	mockOracle.On("Predict", "ETH/USDT", mock.Anything).Return(bullish, nil).Once()
	engine := NewEngine(zap.NewNop(), cfg, mockOracle)

	// Act
	res, err := engine.Run(context.Background(), w)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Len(t, res.OpenPositions, 1)
	mockOracle.AssertExpectations(t)
}

func TestEngine_OracleErrorAbortsRun(t *testing.T) {
	// Arrange
	cfg := testConfig()
	w := buildWindow(map[string][]bar{
		"ETH/USDT": {
			{open: 100, high: 100, low: 100},
			{open: 100, high: 100, low: 100},
		},
	})
	boom := errors.New("model unavailable")
	mockOracle := new(MockOracle)
	mockOracle.On("Predict", "ETH/USDT", mock.Anything).Return(market.Probabilities{}, boom)

	// Act
	res, err := NewEngine(zap.NewNop(), cfg, mockOracle).Run(context.Background(), w)

	// Assert
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, res)
	mockOracle.AssertExpectations(t)
}

func TestEngine_StepRejectsOutOfOrderTicks(t *testing.T) {
	ctx := context.Background()
	engine := NewEngine(zap.NewNop(), testConfig(), oracle.ColumnOracle{})

	err := engine.Step(ctx, market.Tick{Time: t0, NextTime: t0})
	assert.ErrorIs(t, err, ErrTickOrder)

	require.NoError(t, engine.Step(ctx, market.Tick{Time: t0, NextTime: t0.Add(time.Hour)}))
	err = engine.Step(ctx, market.Tick{Time: t0, NextTime: t0.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrTickOrder)
}

func TestEngine_StepRequiresBarForOpenPosition(t *testing.T) {
	// Arrange
	ctx := context.Background()
	cfg := testConfig()
	w := buildWindow(map[string][]bar{
		"AAA": {
			{open: 100, high: 100, low: 100, probs: bullish},
			{open: 100, high: 100, low: 100, probs: neutral},
			{open: 100, high: 100, low: 100, probs: neutral},
		},
		"BBB": {
			{open: 50, high: 50, low: 50, probs: neutral},
			{open: 50, high: 50, low: 50, probs: neutral},
			{open: 50, high: 50, low: 50, probs: neutral},
		},
	})
	engine := NewEngine(zap.NewNop(), cfg, oracle.ColumnOracle{})
	require.NoError(t, engine.Step(ctx, w.Tick(0)))
	_, open := engine.Position("AAA")
	require.True(t, open)

	partial := w.Tick(1)
	delete(partial.Bars, "AAA")

	// Act
	err := engine.Step(ctx, partial)

	// Assert
	assert.ErrorIs(t, err, ErrMissingBar)
	assert.Contains(t, err.Error(), "AAA")
	assert.Len(t, engine.Result().Equity, 1)
	_, open = engine.Position("AAA")
	assert.True(t, open)

	// The full tick is still accepted.
	require.NoError(t, engine.Step(ctx, w.Tick(1)))
	assert.Len(t, engine.Result().Equity, 2)
}

func TestEngine_StepCanBeRetriedAfterOracleError(t *testing.T) {
	// Arrange: AAA opens on tick 0 and would take profit on tick 1, but the oracle
	// fails for BBB on tick 1.
	ctx := context.Background()
	cfg := testConfig()
	w := buildWindow(map[string][]bar{
		"AAA": {
			{open: 100, high: 100, low: 100},
			{open: 100, high: 100, low: 100},
			{open: 101, high: 104, low: 100.5},
		},
		"BBB": {
			{open: 50, high: 50, low: 50},
			{open: 50, high: 50, low: 50},
			{open: 50, high: 50, low: 50},
		},
	})
	boom := errors.New("model unavailable")
	mockOracle := new(MockOracle)
	mockOracle.On("Predict", "AAA", mock.Anything).Return(bullish, nil).Once()
	mockOracle.On("Predict", "BBB", mock.Anything).Return(neutral, nil).Once()
	mockOracle.On("Predict", "BBB", mock.Anything).Return(market.Probabilities{}, boom).Once()
	mockOracle.On("Predict", "BBB", mock.Anything).Return(neutral, nil).Once()
	engine := NewEngine(zap.NewNop(), cfg, mockOracle)
	require.NoError(t, engine.Step(ctx, w.Tick(0)))
	before := engine.State()

	// Act
	err := engine.Step(ctx, w.Tick(1))

	// Assert: nothing from tick 1 was applied.
	require.ErrorIs(t, err, boom)
	res := engine.Result()
	assert.Len(t, res.Equity, 1)
	assert.Empty(t, res.Trades)
	assert.Equal(t, before, engine.State())
	_, open := engine.Position("AAA")
	assert.True(t, open)

	// Act: the same tick again.
	require.NoError(t, engine.Step(ctx, w.Tick(1)))

	// Assert
	res = engine.Result()
	assert.Len(t, res.Equity, 2)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, position.TakeProfit, res.Trades[0].Reason)
	mockOracle.AssertExpectations(t)
}

func TestEngine_RunStopsWhenContextDone(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := wavyWindow([]string{"ETH/USDT"}, 10)

	// Act
	res, err := NewEngine(zap.NewNop(), testConfig(), oracle.ColumnOracle{}).Run(ctx, w)

	// Assert
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestEngine_MarginDriftPanics(t *testing.T) {
	engine := NewEngine(zap.NewNop(), testConfig(), oracle.ColumnOracle{})
	assert.NotPanics(t, engine.checkMargin)

	require.NoError(t, engine.ledger.ReserveMargin(5))

	assert.Panics(t, engine.checkMargin)
}

type alwaysShort struct{}

func (alwaysShort) Name() string { return "always-short" }

func (alwaysShort) Decide(market.Probabilities) (market.Direction, bool) {
	return market.Short, true
}

func TestEngine_CustomStrategy(t *testing.T) {
	cfg := testConfig()
	w := buildWindow(map[string][]bar{
		"ETH/USDT": {
			{open: 100, high: 100, low: 100, probs: neutral},
			{open: 100, high: 100, low: 100, probs: neutral},
		},
	})
	engine := NewEngine(zap.NewNop(), cfg, oracle.ColumnOracle{})
	engine.SetStrategy(alwaysShort{})

	res, err := engine.Run(context.Background(), w)

	require.NoError(t, err)
	require.Len(t, res.OpenPositions, 1)
	assert.Equal(t, market.Short, res.OpenPositions[0].Direction)
	assert.Equal(t, "always-short", res.Strategy)
}

// wavyWindow builds a deterministic multi-symbol window that trades often.
func wavyWindow(symbols []string, n int) *market.Window {
	bars := make(map[string][]bar, len(symbols))
	for k, sym := range symbols {
		for i := 0; i < n; i++ {
			phase := float64(i)*0.7 + float64(k)
			price := 100 + 6*math.Sin(phase)
			probs := neutral
			switch (i + k) % 4 {
			case 0:
				probs = bullish
			case 2:
				probs = bearish
			}
			bars[sym] = append(bars[sym], bar{open: price, high: price * 1.02, low: price * 0.98, probs: probs})
		}
	}
	return buildWindow(bars)
}

func TestEngine_InvariantsHoldEveryTick(t *testing.T) {
	// Arrange
	ctx := context.Background()
	cfg := testConfig()
	cfg.Symbols = []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"}
	cfg.RiskPerTrade = 0.2
	cfg.Leverage = 2
	w := wavyWindow(cfg.Symbols, 200)
	engine := NewEngine(zap.NewNop(), cfg, oracle.ColumnOracle{})

	prevPeak, prevDD := 0.0, 0.0
	for i := 0; i < w.Ticks(); i++ {
		// Act
		require.NoError(t, engine.Step(ctx, w.Tick(i)))

		// Assert
		st := engine.State()
		total := 0.0
		seen := make(map[string]bool)
		for _, p := range engine.OpenPositions() {
			assert.False(t, seen[p.Symbol], "duplicate position for %s", p.Symbol)
			seen[p.Symbol] = true
			total += p.Margin
		}
		assert.InDelta(t, total, st.UsedMargin, 1e-9, "tick %d", i)
		assert.GreaterOrEqual(t, st.UsedMargin, 0.0)
		assert.LessOrEqual(t, st.UsedMargin, st.Balance+1e-6)
		assert.GreaterOrEqual(t, st.PeakBalance, prevPeak)
		assert.GreaterOrEqual(t, st.MaxDrawdownPct, prevDD)
		prevPeak, prevDD = st.PeakBalance, st.MaxDrawdownPct
	}

	res := engine.Result()
	assert.NotEmpty(t, res.Trades)
	assert.Len(t, res.Equity, w.Ticks())

	// Balance moves only by realized pnl.
	sum := cfg.InitialBalance
	for _, tr := range res.Trades {
		sum += tr.PnLAbs
	}
	assert.InDelta(t, sum, res.Final.Balance, 1e-6)
}

func TestEngine_Deterministic(t *testing.T) {
	cfg := testConfig()
	cfg.Symbols = []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"}
	cfg.RiskPerTrade = 0.2
	w := wavyWindow(cfg.Symbols, 120)

	first, err := NewEngine(zap.NewNop(), cfg, oracle.ColumnOracle{}).Run(context.Background(), w)
	require.NoError(t, err)
	second, err := NewEngine(zap.NewNop(), cfg, oracle.ColumnOracle{}).Run(context.Background(), w)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestThresholdStrategy_Decide(t *testing.T) {
	s := ThresholdStrategy{Threshold: 0.65}

	testCases := []struct {
		name     string
		probs    market.Probabilities
		expected market.Direction
		signal   bool
	}{
		{"Long", market.Probabilities{Short: 0.1, Neutral: 0.2, Long: 0.7}, market.Long, true},
		{"Short", market.Probabilities{Short: 0.7, Neutral: 0.2, Long: 0.1}, market.Short, true},
		{"At threshold is no signal", market.Probabilities{Short: 0.35, Long: 0.65}, 0, false},
		{"Neutral", market.Probabilities{Short: 0.2, Neutral: 0.6, Long: 0.2}, 0, false},
		{"Long wins when both clear", market.Probabilities{Short: 0.8, Long: 0.8}, market.Long, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir, ok := s.Decide(tc.probs)
			assert.Equal(t, tc.signal, ok)
			assert.Equal(t, tc.expected, dir)
		})
	}
}
