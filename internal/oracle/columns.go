package oracle

import (
	"context"
	"fmt"

	"binance-futures-backtest/internal/market"
)

// Column names holding probabilities precomputed by an external inference job.
const (
	ColumnShort   = "p_short"
	ColumnNeutral = "p_neutral"
	ColumnLong    = "p_long"
)

// ColumnOracle reads probabilities stored alongside the features. A missing
// p_neutral column means a two-class model.
type ColumnOracle struct{}

// ensure ColumnOracle implements the interface
var _ Oracle = ColumnOracle{}

// Predict returns the probabilities found in row.
func (ColumnOracle) Predict(_ context.Context, symbol string, row market.FeatureRow) (market.Probabilities, error) {
	short, okShort := row.Values[ColumnShort]
	long, okLong := row.Values[ColumnLong]
	if !okShort || !okLong {
		return market.Probabilities{}, fmt.Errorf("%s at %s: feature row has no %s/%s columns",
			symbol, row.Timestamp, ColumnShort, ColumnLong)
	}
	probs := []float64{short, long}
	if neutral, ok := row.Values[ColumnNeutral]; ok {
		probs = []float64{short, neutral, long}
	}
	p, err := market.NewProbabilities(probs)
	if err != nil {
		return market.Probabilities{}, fmt.Errorf("%s at %s: %w", symbol, row.Timestamp, err)
	}
	return p, nil
}

// IsProbabilityColumn reports whether name is one of the reserved probability columns.
func IsProbabilityColumn(name string) bool {
	return name == ColumnShort || name == ColumnNeutral || name == ColumnLong
}
