package trader

import "binance-futures-backtest/internal/market"

// Strategy turns the oracle's class probabilities into an entry decision.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// Decide returns the direction to open, or false when there is no signal.
	Decide(p market.Probabilities) (market.Direction, bool)
}

// ThresholdStrategy enters when a directional probability is strictly above Threshold.
// Long is checked first, so it wins if both sides clear the threshold.
type ThresholdStrategy struct {
	Threshold float64
}

// ensure ThresholdStrategy implements the interface
var _ Strategy = ThresholdStrategy{}

// Name returns the name of the strategy.
func (s ThresholdStrategy) Name() string {
	return "threshold"
}

// Decide applies the confidence threshold.
func (s ThresholdStrategy) Decide(p market.Probabilities) (market.Direction, bool) {
	switch {
	case p.Long > s.Threshold:
		return market.Long, true
	case p.Short > s.Threshold:
		return market.Short, true
	default:
		return 0, false
	}
}
