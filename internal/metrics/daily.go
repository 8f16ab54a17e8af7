package metrics

import (
	"time"

	"binance-futures-backtest/internal/trader"
)

// DailyPoint is the balance at the end of a UTC calendar day.
type DailyPoint struct {
	Day     time.Time `json:"day"`
	Balance float64   `json:"balance"`
}

// ResampleDaily keeps the last equity observation of every UTC day between the first
// and last point, carrying the previous value forward over days with no observation.
// Points must be in time order.
func ResampleDaily(points []trader.EquityPoint) []DailyPoint {
	if len(points) == 0 {
		return nil
	}

	last := make(map[time.Time]float64)
	for _, p := range points {
		last[dayOf(p.Timestamp)] = p.Balance
	}

	first := dayOf(points[0].Timestamp)
	end := dayOf(points[len(points)-1].Timestamp)
	var out []DailyPoint
	carry := points[0].Balance
	for d := first; !d.After(end); d = d.AddDate(0, 0, 1) {
		if v, ok := last[d]; ok {
			carry = v
		}
		out = append(out, DailyPoint{Day: d, Balance: carry})
	}
	return out
}

// DailyReturns returns the simple return from each day to the next.
func DailyReturns(daily []DailyPoint) []float64 {
	if len(daily) < 2 {
		return nil
	}
	out := make([]float64, 0, len(daily)-1)
	for i := 1; i < len(daily); i++ {
		prev := daily[i-1].Balance
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, daily[i].Balance/prev-1)
	}
	return out
}

func dayOf(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
