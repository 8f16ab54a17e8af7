package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"binance-futures-backtest/internal/metrics"
	"binance-futures-backtest/internal/trader"
)

var (
	tradeHeader   = []string{"symbol", "direction", "opened_at", "closed_at", "entry_price", "exit_price", "notional", "margin", "pnl_pct", "pnl_abs", "exit_reason"}
	equityHeader  = []string{"timestamp", "balance"}
	monthlyHeader = []string{"month", "trades", "wins", "win_rate", "pnl_abs", "pnl_pct", "start_balance"}
)

// WriteTradesCSV writes the trade log.
func WriteTradesCSV(w io.Writer, trades []trader.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		err := cw.Write([]string{
			t.Symbol,
			t.Direction.String(),
			t.OpenedAt.UTC().Format(time.RFC3339),
			t.ClosedAt.UTC().Format(time.RFC3339),
			formatF(t.EntryPrice),
			formatF(t.ExitPrice),
			formatF(t.Notional),
			formatF(t.Margin),
			formatF(t.PnLPct),
			formatF(t.PnLAbs),
			string(t.Reason),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEquityCSV writes the per-tick equity curve.
func WriteEquityCSV(w io.Writer, equity []trader.EquityPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(equityHeader); err != nil {
		return err
	}
	for _, p := range equity {
		if err := cw.Write([]string{p.Timestamp.UTC().Format(time.RFC3339), formatF(p.Balance)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMonthlyCSV writes the per-month breakdown.
func WriteMonthlyCSV(w io.Writer, months []metrics.MonthReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(monthlyHeader); err != nil {
		return err
	}
	for _, m := range months {
		err := cw.Write([]string{
			m.Month,
			strconv.Itoa(m.Trades),
			strconv.Itoa(m.Wins),
			formatF(m.WinRate),
			formatF(m.PnLAbs),
			formatF(m.PnLPct),
			formatF(m.StartBalance),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export writes <prefix>_trades.csv, <prefix>_equity.csv and <prefix>_monthly.csv
// into dir and returns their paths.
func Export(dir, prefix string, res *trader.Result, rep metrics.Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"trades", func(w io.Writer) error { return WriteTradesCSV(w, res.Trades) }},
		{"equity", func(w io.Writer) error { return WriteEquityCSV(w, res.Equity) }},
		{"monthly", func(w io.Writer) error { return WriteMonthlyCSV(w, rep.Months) }},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", prefix, f.name))
		if err := writeFile(path, f.write); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
