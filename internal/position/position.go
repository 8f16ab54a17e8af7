package position

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"binance-futures-backtest/internal/market"
)

var (
	// ErrAlreadyOpen is returned when a symbol already holds a position.
	ErrAlreadyOpen = errors.New("position already open")
	// ErrNotOpen is returned when closing a symbol that is flat.
	ErrNotOpen = errors.New("no open position")
)

// Position is an open trade. It exists only between entry and exit.
type Position struct {
	Symbol     string           `json:"symbol"`
	Direction  market.Direction `json:"direction"`
	EntryPrice float64          `json:"entry_price"`
	Notional   float64          `json:"notional"`
	Margin     float64          `json:"margin"`
	OpenedAt   time.Time        `json:"opened_at"`
}

// Book holds the per-symbol state machine. A symbol missing from the book is flat;
// a symbol present in it is open. There are no other states.
type Book struct {
	open map[string]Position
}

// NewBook returns a book with every symbol flat.
func NewBook() *Book {
	return &Book{open: make(map[string]Position)}
}

// Get returns the open position for symbol, or false if the symbol is flat.
func (b *Book) Get(symbol string) (Position, bool) {
	p, ok := b.open[symbol]
	return p, ok
}

// IsFlat reports whether symbol has no open position.
func (b *Book) IsFlat(symbol string) bool {
	_, ok := b.open[symbol]
	return !ok
}

// Open moves symbol from flat to open.
func (b *Book) Open(p Position) error {
	if p.Symbol == "" {
		return fmt.Errorf("open position: empty symbol")
	}
	if _, ok := b.open[p.Symbol]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyOpen, p.Symbol)
	}
	if p.EntryPrice <= 0 || p.Notional <= 0 || p.Margin <= 0 {
		return fmt.Errorf("open position %s: entry %.8f, notional %.8f and margin %.8f must be positive",
			p.Symbol, p.EntryPrice, p.Notional, p.Margin)
	}
	b.open[p.Symbol] = p
	return nil
}

// Close moves symbol from open to flat and returns the position it held.
func (b *Book) Close(symbol string) (Position, error) {
	p, ok := b.open[symbol]
	if !ok {
		return Position{}, fmt.Errorf("%w: %s", ErrNotOpen, symbol)
	}
	delete(b.open, symbol)
	return p, nil
}

// Len returns the number of open positions.
func (b *Book) Len() int {
	return len(b.open)
}

// Symbols returns the open symbols in lexicographic order.
func (b *Book) Symbols() []string {
	out := make([]string, 0, len(b.open))
	for sym := range b.open {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Positions returns the open positions ordered by symbol.
func (b *Book) Positions() []Position {
	out := make([]Position, 0, len(b.open))
	for _, sym := range b.Symbols() {
		out = append(out, b.open[sym])
	}
	return out
}

// TotalMargin sums the margin of all open positions in symbol order, so the result
// does not depend on map iteration.
func (b *Book) TotalMargin() float64 {
	total := 0.0
	for _, sym := range b.Symbols() {
		total += b.open[sym].Margin
	}
	return total
}
