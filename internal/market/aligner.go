package market

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// ErrInsufficientData aborts a run when the aligned test window cannot produce a single tick.
var ErrInsufficientData = errors.New("insufficient data")

// DefaultSplitFraction is the share of the common time axis reserved for training.
const DefaultSplitFraction = 0.85

// Bar is what the simulator sees for one symbol on one tick: the features of the
// current candle and the next candle to execute against.
type Bar struct {
	Features FeatureRow
	Next     Candle
}

// Tick is a single simulation step. Time is the current candle, NextTime the candle
// that fills are evaluated against. A live driver builds one of these per closed candle.
type Tick struct {
	Time     time.Time
	NextTime time.Time
	Bars     map[string]Bar
}

// Window is the held-out test range, every symbol re-indexed onto the same
// ascending time axis.
type Window struct {
	Timestamps []time.Time
	Symbols    []string
	Series     map[string]Series
}

// Len returns the number of timestamps in the window.
func (w *Window) Len() int {
	return len(w.Timestamps)
}

// Ticks returns the number of steps the window can drive. The last timestamp has no
// next candle and is excluded.
func (w *Window) Ticks() int {
	if len(w.Timestamps) < 2 {
		return 0
	}
	return len(w.Timestamps) - 1
}

// Tick builds step i. It panics if i is outside [0, Ticks()).
func (w *Window) Tick(i int) Tick {
	if i < 0 || i >= w.Ticks() {
		panic(fmt.Sprintf("market: tick %d out of range [0,%d)", i, w.Ticks()))
	}
	bars := make(map[string]Bar, len(w.Symbols))
	for _, sym := range w.Symbols {
		s := w.Series[sym]
		bars[sym] = Bar{
			Features: s.Features[i],
			Next:     s.Candles[i+1],
		}
	}
	return Tick{
		Time:     w.Timestamps[i],
		NextTime: w.Timestamps[i+1],
		Bars:     bars,
	}
}

// Align intersects the timestamps of all usable series, splits the sorted intersection
// at splitFraction and returns the test part as a Window. Series without candles, or
// whose feature rows do not line up with their candles, are dropped with a warning.
func Align(series []Series, splitFraction float64, logger *zap.Logger) (*Window, error) {
	if splitFraction <= 0 || splitFraction >= 1 {
		return nil, fmt.Errorf("split fraction %v must be in (0,1)", splitFraction)
	}

	// 1. Keep only symbols with a usable candle table.
	usable := make([]Series, 0, len(series))
	seen := make(map[string]bool, len(series))
	for _, s := range series {
		switch {
		case seen[s.Symbol]:
			logger.Warn("Ignoring duplicate symbol", zap.String("symbol", s.Symbol))
		case len(s.Candles) == 0:
			logger.Warn("Excluding symbol without candles", zap.String("symbol", s.Symbol))
		case len(s.Features) != len(s.Candles):
			logger.Warn("Excluding symbol with misaligned feature rows",
				zap.String("symbol", s.Symbol),
				zap.Int("candles", len(s.Candles)),
				zap.Int("features", len(s.Features)))
		default:
			seen[s.Symbol] = true
			usable = append(usable, s)
		}
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("%w: no symbol has candle data", ErrInsufficientData)
	}

	// 2. Index every series by timestamp and count how many symbols cover each one.
	indexes := make(map[string]map[int64]int, len(usable))
	counts := make(map[int64]int)
	for _, s := range usable {
		idx := make(map[int64]int, len(s.Candles))
		for i, c := range s.Candles {
			key := c.Timestamp.UnixNano()
			if _, dup := idx[key]; dup {
				continue
			}
			idx[key] = i
			counts[key]++
		}
		indexes[s.Symbol] = idx
	}

	common := make([]int64, 0, len(counts))
	for key, n := range counts {
		if n == len(usable) {
			common = append(common, key)
		}
	}
	if len(common) == 0 {
		return nil, fmt.Errorf("%w: symbols share no timestamps", ErrInsufficientData)
	}
	sort.Slice(common, func(i, j int) bool { return common[i] < common[j] })

	// 3. Split and keep the test part.
	split := int(float64(len(common)) * splitFraction)
	test := common[split:]
	if len(test) < 2 {
		return nil, fmt.Errorf("%w: test window has %d timestamps of %d common, no tick can execute",
			ErrInsufficientData, len(test), len(common))
	}

	// 4. Re-index every symbol onto the test axis.
	w := &Window{
		Timestamps: make([]time.Time, len(test)),
		Symbols:    make([]string, 0, len(usable)),
		Series:     make(map[string]Series, len(usable)),
	}
	for _, s := range usable {
		idx := indexes[s.Symbol]
		out := Series{
			Symbol:   s.Symbol,
			Candles:  make([]Candle, len(test)),
			Features: make([]FeatureRow, len(test)),
		}
		for j, key := range test {
			i := idx[key]
			out.Candles[j] = s.Candles[i]
			out.Features[j] = s.Features[i]
			out.Features[j].Timestamp = s.Candles[i].Timestamp
		}
		w.Symbols = append(w.Symbols, s.Symbol)
		w.Series[s.Symbol] = out
	}
	sort.Strings(w.Symbols)
	ref := w.Series[w.Symbols[0]]
	for j := range test {
		w.Timestamps[j] = ref.Candles[j].Timestamp
	}

	logger.Info("Aligned candle series",
		zap.Int("symbols", len(w.Symbols)),
		zap.Int("common_timestamps", len(common)),
		zap.Int("test_timestamps", len(test)),
		zap.Time("from", w.Timestamps[0]),
		zap.Time("to", w.Timestamps[len(w.Timestamps)-1]))

	return w, nil
}
