package portfolio

import (
	"errors"
	"fmt"
	"math"
)

// ErrMarginExceeded means a reservation would lock more margin than the balance holds.
// Callers clamp before reserving, so seeing it indicates a broken invariant.
var ErrMarginExceeded = errors.New("margin exceeded")

// marginEpsilon absorbs rounding when a caller reserves exactly the available margin.
const marginEpsilon = 1e-9

// State is a snapshot of the account.
type State struct {
	Balance        float64 `json:"balance"`
	UsedMargin     float64 `json:"used_margin"`
	PeakBalance    float64 `json:"peak_balance"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
}

// Ledger tracks cash balance, locked margin and drawdown for one simulation run.
// It is not safe for concurrent use; parallel runs each own a Ledger.
type Ledger struct {
	state State
}

// NewLedger creates a ledger holding the initial balance with nothing reserved.
func NewLedger(initialBalance float64) *Ledger {
	return &Ledger{state: State{
		Balance:     initialBalance,
		PeakBalance: initialBalance,
	}}
}

// State returns a copy of the current account state.
func (l *Ledger) State() State {
	return l.state
}

// Balance returns the cash balance.
func (l *Ledger) Balance() float64 {
	return l.state.Balance
}

// UsedMargin returns the margin locked by open positions.
func (l *Ledger) UsedMargin() float64 {
	return l.state.UsedMargin
}

// Available returns the balance not locked as margin.
func (l *Ledger) Available() float64 {
	return l.state.Balance - l.state.UsedMargin
}

// ReserveMargin locks amount against a new position.
func (l *Ledger) ReserveMargin(amount float64) error {
	if amount < 0 || math.IsNaN(amount) {
		return fmt.Errorf("reserve margin: invalid amount %v", amount)
	}
	next := l.state.UsedMargin + amount
	if next > l.state.Balance+marginEpsilon*math.Max(1, math.Abs(l.state.Balance)) {
		return fmt.Errorf("%w: used %.8f + requested %.8f > balance %.8f",
			ErrMarginExceeded, l.state.UsedMargin, amount, l.state.Balance)
	}
	l.state.UsedMargin = next
	return nil
}

// ReleaseMargin unlocks amount. Used margin never drops below zero.
func (l *Ledger) ReleaseMargin(amount float64) {
	l.state.UsedMargin -= amount
	if l.state.UsedMargin < 0 {
		l.state.UsedMargin = 0
	}
}

// ApplyPnL books a realized profit or loss and updates peak balance and max drawdown.
func (l *Ledger) ApplyPnL(delta float64) {
	l.state.Balance += delta
	if l.state.Balance > l.state.PeakBalance {
		l.state.PeakBalance = l.state.Balance
	}
	if l.state.PeakBalance > 0 {
		dd := (l.state.PeakBalance - l.state.Balance) / l.state.PeakBalance * 100
		if dd > l.state.MaxDrawdownPct {
			l.state.MaxDrawdownPct = dd
		}
	}
}
