package trader

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"binance-futures-backtest/internal/config"
	"binance-futures-backtest/internal/market"
	"binance-futures-backtest/internal/oracle"
	"binance-futures-backtest/internal/portfolio"
	"binance-futures-backtest/internal/position"
	"go.uber.org/zap"
)

// marginTolerance bounds rounding drift between the ledger and the book.
const marginTolerance = 1e-6

var (
	// ErrTickOrder is returned by Step when ticks do not move forward in time.
	ErrTickOrder = errors.New("tick out of order")
	// ErrMissingBar is returned by Step when a symbol with an open position has no bar in the tick.
	ErrMissingBar = errors.New("missing bar for open position")
)

// Engine replays ticks through the position state machine and the portfolio ledger.
// One Engine is one run: it owns its ledger and book and is not safe for concurrent use.
type Engine struct {
	logger   *zap.Logger
	cfg      config.Backtest
	oracle   oracle.Oracle
	strategy Strategy
	rules    position.Rules
	sizing   position.Sizing

	ledger *portfolio.Ledger
	book   *position.Book

	trades  []Trade
	equity  []EquityPoint
	months  map[string]*MonthlyBucket
	symbols map[string]struct{}

	start, end time.Time
}

// NewEngine creates an engine for one run over cfg. The config is copied, so later
// changes by the caller do not reach the run.
func NewEngine(logger *zap.Logger, cfg config.Backtest, orc oracle.Oracle) *Engine {
	return &Engine{
		logger:   logger.Named("engine"),
		cfg:      cfg,
		oracle:   orc,
		strategy: ThresholdStrategy{Threshold: cfg.ConfidenceThreshold},
		rules: position.Rules{
			TakeProfitPct:   cfg.TakeProfitPct,
			StopLossPct:     cfg.StopLossPct,
			TakerCommission: cfg.TakerCommission,
			Slippage:        cfg.Slippage,
		},
		sizing: position.Sizing{
			RiskPerTrade: cfg.RiskPerTrade,
			StopLossPct:  cfg.StopLossPct,
			Leverage:     cfg.Leverage,
			MinNotional:  cfg.MinNotionalFloor,
		},
		ledger:  portfolio.NewLedger(cfg.InitialBalance),
		book:    position.NewBook(),
		months:  make(map[string]*MonthlyBucket),
		symbols: make(map[string]struct{}),
	}
}

// SetStrategy replaces the default threshold strategy. Call it before the first Step.
func (e *Engine) SetStrategy(s Strategy) {
	e.strategy = s
}

// State returns the current account state.
func (e *Engine) State() portfolio.State {
	return e.ledger.State()
}

// Position returns the open position for symbol, if any.
func (e *Engine) Position(symbol string) (position.Position, bool) {
	return e.book.Get(symbol)
}

// OpenPositions returns the open positions ordered by symbol.
func (e *Engine) OpenPositions() []position.Position {
	return e.book.Positions()
}

// Run replays every tick of w in order and returns the result. It stops between
// ticks once ctx is done.
func (e *Engine) Run(ctx context.Context, w *market.Window) (*Result, error) {
	e.logger.Info("Starting backtest",
		zap.Strings("symbols", w.Symbols),
		zap.Int("timestamps", w.Len()),
		zap.Int("ticks", w.Ticks()),
		zap.String("strategy", e.strategy.Name()),
		zap.Float64("initial_balance", e.cfg.InitialBalance))

	for i := 0; i < w.Ticks(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest stopped at tick %d: %w", i, err)
		}
		if err := e.Step(ctx, w.Tick(i)); err != nil {
			return nil, fmt.Errorf("tick %d (%s): %w", i, w.Timestamps[i].Format(time.RFC3339), err)
		}
	}

	res := e.Result()
	e.logger.Info("Backtest finished",
		zap.Int("trades", len(res.Trades)),
		zap.Float64("final_balance", res.Final.Balance),
		zap.Float64("max_drawdown_pct", res.Final.MaxDrawdownPct),
		zap.Int("open_positions", len(res.OpenPositions)))
	return res, nil
}

// Step processes one tick. Every open position is checked against its next candle
// and settled first; only then are flat symbols offered an entry, so margin freed on
// this tick is available to entries on this tick. Symbols are visited in lexicographic
// order in both passes. A symbol closed on this tick does not re-enter until the next one.
//
// A live driver calls Step once per closed candle with the candle that fills execute against.
// The tick must carry a bar for every open position. Step changes nothing when it returns
// an error, so the same tick can be offered again, e.g. after an oracle failure.
func (e *Engine) Step(ctx context.Context, t market.Tick) error {
	if !t.NextTime.After(t.Time) {
		return fmt.Errorf("%w: next %s is not after %s", ErrTickOrder, t.NextTime, t.Time)
	}
	if n := len(e.equity); n > 0 && !t.Time.After(e.equity[n-1].Timestamp) {
		return fmt.Errorf("%w: %s does not follow %s", ErrTickOrder, t.Time, e.equity[n-1].Timestamp)
	}
	for _, sym := range e.book.Symbols() {
		if _, ok := t.Bars[sym]; !ok {
			return fmt.Errorf("%w: %s at %s", ErrMissingBar, sym, t.Time)
		}
	}

	// Every open symbol has a bar, so the bars cover both passes.
	symbols := make([]string, 0, len(t.Bars))
	for sym := range t.Bars {
		if sym == "" {
			return fmt.Errorf("tick at %s has a bar without a symbol", t.Time)
		}
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	// 1. Ask for signals on the symbols that start the tick flat. Symbols that exit on
	// this tick are not candidates, so exits cannot change this set.
	signals := make(map[string]market.Direction)
	for _, sym := range symbols {
		if !e.book.IsFlat(sym) {
			continue
		}
		probs, err := e.oracle.Predict(ctx, sym, t.Bars[sym].Features)
		if err != nil {
			return fmt.Errorf("oracle %s: %w", sym, err)
		}
		if dir, ok := e.strategy.Decide(probs); ok {
			signals[sym] = dir
		}
	}
	for _, sym := range symbols {
		dir, ok := signals[sym]
		if !ok {
			continue
		}
		if next := t.Bars[sym].Next; e.rules.EntryPrice(dir, next.Open) <= 0 {
			return fmt.Errorf("open %s: next candle at %s has non-positive open %v", sym, next.Timestamp, next.Open)
		}
	}

	// 2. Snapshot equity before anything settles.
	balance := e.ledger.Balance()
	e.equity = append(e.equity, EquityPoint{Timestamp: t.Time, Balance: balance})
	if e.start.IsZero() {
		e.start = t.Time
	}
	e.end = t.NextTime
	bucket := e.month(t.NextTime, balance)
	for _, sym := range symbols {
		e.symbols[sym] = struct{}{}
	}

	// 3. Exits.
	for _, sym := range symbols {
		pos, ok := e.book.Get(sym)
		if !ok {
			continue
		}
		ex, hit := e.rules.EvaluateExit(pos, t.Bars[sym].Next)
		if !hit {
			continue
		}
		e.close(pos, ex, t.NextTime, bucket)
	}

	// 4. Entries.
	for _, sym := range symbols {
		dir, ok := signals[sym]
		if !ok {
			continue
		}
		e.open(sym, dir, t.Bars[sym].Next, t.NextTime)
	}
	return nil
}

// open sizes and opens a position for sym, filled at next's open.
func (e *Engine) open(sym string, dir market.Direction, next market.Candle, at time.Time) {
	size, ok := e.sizing.Compute(e.ledger.Balance(), e.ledger.UsedMargin())
	if !ok {
		e.logger.Debug("Skipping entry below minimum notional",
			zap.String("symbol", sym),
			zap.Stringer("direction", dir),
			zap.Float64("notional", size.Notional),
			zap.Float64("min_notional", e.sizing.MinNotional),
			zap.Float64("available", e.ledger.Available()))
		return
	}

	pos := position.Position{
		Symbol:     sym,
		Direction:  dir,
		EntryPrice: e.rules.EntryPrice(dir, next.Open),
		Notional:   size.Notional,
		Margin:     size.Margin,
		OpenedAt:   at,
	}

	// Sizing clamps to the free margin and the symbol was flat, so either error is a
	// broken invariant.
	if err := e.ledger.ReserveMargin(size.Margin); err != nil {
		panic(fmt.Sprintf("trader: %v", err))
	}
	if err := e.book.Open(pos); err != nil {
		panic(fmt.Sprintf("trader: %v", err))
	}
	e.checkMargin()

	e.logger.Debug("Opened position",
		zap.String("symbol", sym),
		zap.Stringer("direction", dir),
		zap.Float64("entry_price", pos.EntryPrice),
		zap.Float64("notional", pos.Notional),
		zap.Float64("margin", pos.Margin),
		zap.Bool("clamped", size.Clamped),
		zap.Time("opened_at", at))
}

// close settles an exit: margin back, pnl booked, trade logged.
func (e *Engine) close(pos position.Position, ex position.Exit, at time.Time, bucket *MonthlyBucket) {
	if _, err := e.book.Close(pos.Symbol); err != nil {
		panic(fmt.Sprintf("trader: %v", err))
	}
	e.ledger.ReleaseMargin(pos.Margin)
	e.ledger.ApplyPnL(ex.Profit)
	e.checkMargin()

	trade := Trade{
		Symbol:     pos.Symbol,
		Direction:  pos.Direction,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  ex.Price,
		Notional:   pos.Notional,
		Margin:     pos.Margin,
		PnLPct:     ex.PnLPct,
		PnLAbs:     ex.Profit,
		OpenedAt:   pos.OpenedAt,
		ClosedAt:   at,
		Reason:     ex.Reason,
	}
	e.trades = append(e.trades, trade)

	bucket.PnLAbs += trade.PnLAbs
	bucket.Trades++
	if trade.IsWin() {
		bucket.Wins++
	}

	e.logger.Debug("Closed position",
		zap.String("symbol", pos.Symbol),
		zap.Stringer("direction", pos.Direction),
		zap.String("reason", string(ex.Reason)),
		zap.Float64("exit_price", ex.Price),
		zap.Float64("pnl_pct", ex.PnLPct),
		zap.Float64("pnl_abs", ex.Profit),
		zap.Float64("balance", e.ledger.Balance()))
}

// checkMargin panics when the ledger's locked margin drifts from the margin of the
// open positions.
func (e *Engine) checkMargin() {
	used, held := e.ledger.UsedMargin(), e.book.TotalMargin()
	if math.Abs(used-held) > marginTolerance*math.Max(1, held) {
		panic(fmt.Sprintf("trader: ledger holds %.8f margin, open positions %.8f", used, held))
	}
}

// month returns the bucket for the calendar month of ts, creating it with the
// given opening balance the first time the month is seen.
func (e *Engine) month(ts time.Time, balance float64) *MonthlyBucket {
	key := ts.UTC().Format(monthLayout)
	b, ok := e.months[key]
	if !ok {
		b = &MonthlyBucket{Month: key, StartBalance: balance}
		e.months[key] = b
	}
	return b
}

// Result snapshots what the engine has produced so far.
func (e *Engine) Result() *Result {
	months := make([]MonthlyBucket, 0, len(e.months))
	for _, b := range e.months {
		months = append(months, *b)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })

	symbols := make([]string, 0, len(e.symbols))
	for sym := range e.symbols {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	params := e.cfg
	params.Symbols = append([]string(nil), e.cfg.Symbols...)
	params.Features = append([]string(nil), e.cfg.Features...)

	return &Result{
		Params:        params,
		Strategy:      e.strategy.Name(),
		Symbols:       symbols,
		Trades:        append([]Trade(nil), e.trades...),
		Equity:        append([]EquityPoint(nil), e.equity...),
		Months:        months,
		Final:         e.ledger.State(),
		OpenPositions: e.book.Positions(),
		Start:         e.start,
		End:           e.end,
	}
}
