package oracle

import (
	"context"
	"fmt"

	"binance-futures-backtest/internal/config"
	"binance-futures-backtest/internal/market"
	"go.uber.org/zap"
)

// Oracle maps a feature row to class probabilities. Implementations must be
// deterministic for a given row and safe for concurrent use, since parameter
// sweeps share one oracle across engines. ctx bounds any remote call.
type Oracle interface {
	Predict(ctx context.Context, symbol string, row market.FeatureRow) (market.Probabilities, error)
}

// Func adapts a plain function to the Oracle interface.
type Func func(ctx context.Context, symbol string, row market.FeatureRow) (market.Probabilities, error)

// Predict calls f.
func (f Func) Predict(ctx context.Context, symbol string, row market.FeatureRow) (market.Probabilities, error) {
	return f(ctx, symbol, row)
}

// New builds the oracle selected by cfg.Kind.
func New(cfg config.Oracle, logger *zap.Logger) (Oracle, error) {
	switch cfg.Kind {
	case "columns", "":
		return ColumnOracle{}, nil
	case "http":
		return NewHTTPOracle(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown oracle kind %q", cfg.Kind)
	}
}
