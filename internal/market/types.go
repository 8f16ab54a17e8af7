package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrBadProbabilities is returned when an oracle output is not a valid probability vector.
var ErrBadProbabilities = errors.New("invalid probabilities")

// probabilityTolerance bounds how far a probability vector may sum away from 1.
const probabilityTolerance = 1e-6

// Candle is a closed OHLC bar for one symbol.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
}

// FeatureRow is the model input for one candle. The core never looks inside Values,
// it only hands the row to the signal oracle.
type FeatureRow struct {
	Timestamp time.Time          `json:"timestamp"`
	Values    map[string]float64 `json:"features"`
}

// Direction is the side of a position.
type Direction int8

const (
	Long  Direction = 1
	Short Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "NONE"
	}
}

// Probabilities is the class-probability triple produced by the signal oracle.
type Probabilities struct {
	Short   float64 `json:"p_short"`
	Neutral float64 `json:"p_neutral"`
	Long    float64 `json:"p_long"`
}

// NewProbabilities builds a triple from a raw classifier output.
// Two values are read as (short, long) with an implicit zero neutral class,
// three values as (short, neutral, long).
func NewProbabilities(probs []float64) (Probabilities, error) {
	var p Probabilities
	switch len(probs) {
	case 2:
		p = Probabilities{Short: probs[0], Long: probs[1]}
	case 3:
		p = Probabilities{Short: probs[0], Neutral: probs[1], Long: probs[2]}
	default:
		return Probabilities{}, fmt.Errorf("%w: expected 2 or 3 classes, got %d", ErrBadProbabilities, len(probs))
	}
	if err := p.Validate(); err != nil {
		return Probabilities{}, err
	}
	return p, nil
}

// Validate checks that every class is in [0,1] and the vector sums to 1.
func (p Probabilities) Validate() error {
	sum := 0.0
	for _, v := range []float64{p.Short, p.Neutral, p.Long} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: class probability %v out of range", ErrBadProbabilities, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > probabilityTolerance {
		return fmt.Errorf("%w: probabilities sum to %v", ErrBadProbabilities, sum)
	}
	return nil
}

// Series is one symbol's candle table with its parallel feature rows.
// Features[i] describes the same candle as Candles[i].
type Series struct {
	Symbol   string
	Candles  []Candle
	Features []FeatureRow
}
