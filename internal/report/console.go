// Package report renders run results for people: styled console tables and CSV files.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"binance-futures-backtest/internal/metrics"
	"binance-futures-backtest/internal/models"
	"binance-futures-backtest/internal/trader"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Render writes the monthly breakdown, the totals and the risk metrics of one run.
func Render(w io.Writer, res *trader.Result, rep metrics.Report) error {
	sections := []string{
		titleStyle.Render(fmt.Sprintf("Backtest %s .. %s  |  %s",
			res.Start.UTC().Format("2006-01-02 15:04"),
			res.End.UTC().Format("2006-01-02 15:04"),
			strings.Join(res.Symbols, ", "))),
		monthlyTable(rep),
		summaryPanel(rep),
	}
	if len(res.OpenPositions) > 0 {
		sections = append(sections, openPositionsTable(res))
	}
	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, sections...))
	return err
}

func monthlyTable(rep metrics.Report) string {
	t := newTable("Month", "Trades", "Win rate", "PnL %", "PnL")
	for _, m := range rep.Months {
		t.Row(
			m.Month,
			fmt.Sprintf("%d", m.Trades),
			Percent(m.WinRate*100),
			signed(m.PnLPct, SignedPercent(m.PnLPct*100)),
			signed(m.PnLAbs, SignedMoney(m.PnLAbs)),
		)
	}
	t.Row(
		"TOTAL",
		fmt.Sprintf("%d", rep.TotalTrades),
		Percent(rep.WinRate*100),
		signed(rep.TotalReturnPct, SignedPercent(rep.TotalReturnPct)),
		signed(rep.NetPnL, SignedMoney(rep.NetPnL)),
	)
	return t.Render()
}

func summaryPanel(rep metrics.Report) string {
	lines := []string{
		line("Final balance", fmt.Sprintf("%.2f", rep.FinalBalance)),
		line("Max drawdown", Percent(rep.MaxDrawdownPct)),
		line("Trades (L/S)", fmt.Sprintf("%d (%d/%d)", rep.TotalTrades, rep.LongTrades, rep.ShortTrades)),
		line("Exits (TP/SL)", fmt.Sprintf("%d/%d", rep.TakeProfits, rep.StopLosses)),
		line("Avg win / loss", fmt.Sprintf("%.2f / %.2f", rep.AvgWin, rep.AvgLoss)),
		line("Profit factor", Ratio(rep.ProfitFactor)),
		line("Sharpe", Ratio(rep.Sharpe)),
		line("Sortino", Ratio(rep.Sortino)),
		line("Calmar", Ratio(rep.Calmar)),
		line("CAGR", signed(rep.CAGR, SignedPercent(rep.CAGR*100))),
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func openPositionsTable(res *trader.Result) string {
	t := newTable("Open", "Side", "Entry", "Notional", "Margin", "Since")
	for _, p := range res.OpenPositions {
		t.Row(
			p.Symbol,
			p.Direction.String(),
			fmt.Sprintf("%.4f", p.EntryPrice),
			fmt.Sprintf("%.2f", p.Notional),
			fmt.Sprintf("%.2f", p.Margin),
			p.OpenedAt.UTC().Format("2006-01-02 15:04"),
		)
	}
	return t.Render()
}

// RenderSweep writes one row per sweep run.
func RenderSweep(w io.Writer, thresholds []float64, reports []metrics.Report) error {
	t := newTable("Threshold", "Trades", "Win rate", "Return", "Max DD", "PF", "Sharpe", "Sortino", "Calmar")
	for i, rep := range reports {
		t.Row(
			fmt.Sprintf("%.2f", thresholds[i]),
			fmt.Sprintf("%d", rep.TotalTrades),
			Percent(rep.WinRate*100),
			signed(rep.TotalReturnPct, SignedPercent(rep.TotalReturnPct)),
			Percent(rep.MaxDrawdownPct),
			Ratio(rep.ProfitFactor),
			Ratio(rep.Sharpe),
			Ratio(rep.Sortino),
			Ratio(rep.Calmar),
		)
	}
	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Confidence threshold sweep"), t.Render()))
	return err
}

// RenderRuns writes one row per stored run.
func RenderRuns(w io.Writer, runs []models.BacktestRun) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No stored runs.")
		return err
	}
	t := newTable("Run", "Symbols", "Threshold", "Trades", "Return", "Max DD", "PF", "Sharpe")
	for _, r := range runs {
		t.Row(
			r.RunID,
			r.Symbols,
			fmt.Sprintf("%.2f", r.Params.ConfidenceThreshold),
			fmt.Sprintf("%d", r.TotalTrades),
			signed(r.TotalReturnPct, SignedPercent(r.TotalReturnPct)),
			Percent(r.MaxDrawdownPct),
			Ratio(r.ProfitFactor),
			Ratio(r.Sharpe),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func line(label, value string) string {
	return labelStyle.Render(label) + value
}

// Ratio formats a ratio, spelling out infinities.
func Ratio(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// Percent formats a percentage.
func Percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

// SignedPercent formats a percentage with an explicit sign.
func SignedPercent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

// SignedMoney formats an amount with an explicit sign.
func SignedMoney(v float64) string {
	return fmt.Sprintf("%+.2f$", v)
}
