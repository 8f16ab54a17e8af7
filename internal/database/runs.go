package database

import (
	"errors"
	"fmt"
	"strings"

	"binance-futures-backtest/internal/metrics"
	"binance-futures-backtest/internal/models"
	"binance-futures-backtest/internal/trader"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrRunNotFound is returned when no stored run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

const insertBatchSize = 500

// SaveRun stores a finished run, its trades, equity curve and monthly breakdown
// under runID in a single transaction.
func (s *Store) SaveRun(runID string, res *trader.Result, rep metrics.Report) error {
	run := models.BacktestRun{
		RunID:          runID,
		Strategy:       res.Strategy,
		Symbols:        strings.Join(res.Symbols, ","),
		Params:         res.Params,
		Start:          res.Start,
		End:            res.End,
		InitialBalance: rep.InitialBalance,
		FinalBalance:   rep.FinalBalance,
		TotalReturnPct: rep.TotalReturnPct,
		MaxDrawdownPct: rep.MaxDrawdownPct,
		TotalTrades:    rep.TotalTrades,
		Wins:           rep.Wins,
		WinRate:        rep.WinRate,
		ProfitFactor:   rep.ProfitFactor,
		Sharpe:         rep.Sharpe,
		Sortino:        rep.Sortino,
		Calmar:         rep.Calmar,
		CAGR:           rep.CAGR,
		OpenPositions:  len(res.OpenPositions),
	}

	trades := make([]models.Trade, 0, len(res.Trades))
	for _, t := range res.Trades {
		trades = append(trades, models.Trade{
			RunID:      runID,
			Symbol:     t.Symbol,
			Direction:  t.Direction.String(),
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			Notional:   t.Notional,
			Margin:     t.Margin,
			PnLPct:     t.PnLPct,
			PnLAbs:     t.PnLAbs,
			OpenedAt:   t.OpenedAt,
			ClosedAt:   t.ClosedAt,
			ExitReason: string(t.Reason),
		})
	}

	equity := make([]models.EquityPoint, 0, len(res.Equity))
	for _, p := range res.Equity {
		equity = append(equity, models.EquityPoint{RunID: runID, Timestamp: p.Timestamp, Balance: p.Balance})
	}

	months := make([]models.MonthlyStat, 0, len(rep.Months))
	for _, m := range rep.Months {
		months = append(months, models.MonthlyStat{
			RunID:        runID,
			Month:        m.Month,
			Trades:       m.Trades,
			Wins:         m.Wins,
			WinRate:      m.WinRate,
			PnLAbs:       m.PnLAbs,
			PnLPct:       m.PnLPct,
			StartBalance: m.StartBalance,
		})
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		if len(trades) > 0 {
			if err := tx.CreateInBatches(&trades, insertBatchSize).Error; err != nil {
				return fmt.Errorf("failed to save trades: %w", err)
			}
		}
		if len(equity) > 0 {
			if err := tx.CreateInBatches(&equity, insertBatchSize).Error; err != nil {
				return fmt.Errorf("failed to save equity curve: %w", err)
			}
		}
		if len(months) > 0 {
			if err := tx.CreateInBatches(&months, insertBatchSize).Error; err != nil {
				return fmt.Errorf("failed to save monthly stats: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Saved run",
		zap.String("run_id", runID),
		zap.Int("trades", len(trades)),
		zap.Int("equity_points", len(equity)))
	return nil
}

// ListRuns returns stored runs, most recent first. A limit of 0 returns all of them.
func (s *Store) ListRuns(limit int) ([]models.BacktestRun, error) {
	var runs []models.BacktestRun
	q := s.db.Order("run_id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run stored under runID.
func (s *Store) GetRun(runID string) (models.BacktestRun, error) {
	var run models.BacktestRun
	err := s.db.Where("run_id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return run, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return run, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return run, nil
}

// Trades returns the trades of a run in close order. An empty runID returns the
// trades of every run, most recent first.
func (s *Store) Trades(runID string) ([]models.Trade, error) {
	var trades []models.Trade
	q := s.db
	if runID != "" {
		q = q.Where("run_id = ?", runID).Order("closed_at, id")
	} else {
		q = q.Order("closed_at desc, id desc")
	}
	if err := q.Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to get trades: %w", err)
	}
	return trades, nil
}

// Equity returns the equity curve of a run.
func (s *Store) Equity(runID string) ([]models.EquityPoint, error) {
	var points []models.EquityPoint
	if err := s.db.Where("run_id = ?", runID).Order("timestamp").Find(&points).Error; err != nil {
		return nil, fmt.Errorf("failed to get equity curve: %w", err)
	}
	return points, nil
}

// Monthly returns the monthly breakdown of a run.
func (s *Store) Monthly(runID string) ([]models.MonthlyStat, error) {
	var months []models.MonthlyStat
	if err := s.db.Where("run_id = ?", runID).Order("month").Find(&months).Error; err != nil {
		return nil, fmt.Errorf("failed to get monthly stats: %w", err)
	}
	return months, nil
}
