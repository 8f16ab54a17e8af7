package trader

import (
	"context"
	"fmt"
	"sync"

	"binance-futures-backtest/internal/config"
	"binance-futures-backtest/internal/market"
	"binance-futures-backtest/internal/oracle"
	"go.uber.org/zap"
)

// Sweep runs one backtest per confidence threshold over the same window. Runs execute
// in parallel, each with its own engine; the window and oracle are only read. Results
// come back in the order of thresholds.
func Sweep(ctx context.Context, logger *zap.Logger, base config.Backtest, thresholds []float64, w *market.Window, orc oracle.Oracle) ([]*Result, error) {
	results := make([]*Result, len(thresholds))
	errs := make([]error, len(thresholds))

	var wg sync.WaitGroup
	for i, th := range thresholds {
		wg.Add(1)
		go func(i int, th float64) {
			defer wg.Done()
			cfg := base
			cfg.ConfidenceThreshold = th
			if err := cfg.Validate(); err != nil {
				errs[i] = err
				return
			}
			l := logger.With(zap.Float64("threshold", th))
			results[i], errs[i] = NewEngine(l, cfg, orc).Run(ctx, w)
		}(i, th)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("sweep threshold %v: %w", thresholds[i], err)
		}
	}
	return results, nil
}
