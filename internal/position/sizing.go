package position

// Sizing holds the risk parameters used to size a new position.
type Sizing struct {
	RiskPerTrade float64
	StopLossPct  float64
	Leverage     float64
	MinNotional  float64
}

// Size is the outcome of position sizing.
type Size struct {
	Notional float64
	Margin   float64
	// Clamped is set when the margin was cut down to what the account had available.
	Clamped bool
}

// Compute sizes a position so that a full stop-loss hit loses RiskPerTrade of the
// balance, capped by leverage and by free margin. The second result is false when
// the resulting notional falls below the minimum order size and no entry should be made.
func (s Sizing) Compute(balance, usedMargin float64) (Size, bool) {
	// 1. Risk-based notional.
	riskCapital := balance * s.RiskPerTrade
	notional := riskCapital / s.StopLossPct

	// 2. Leverage cap.
	if maxNotional := balance * s.Leverage; notional > maxNotional {
		notional = maxNotional
	}

	// 3. Degrade to the free margin instead of rejecting.
	size := Size{Notional: notional, Margin: notional / s.Leverage}
	if available := balance - usedMargin; size.Margin > available {
		size.Margin = available
		size.Notional = available * s.Leverage
		size.Clamped = true
	}

	// 4. Minimum order floor.
	if size.Notional < s.MinNotional || size.Margin <= 0 {
		return size, false
	}
	return size, true
}
