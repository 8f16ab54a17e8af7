package main

import (
	"fmt"

	"binance-futures-backtest/internal/config"
	"binance-futures-backtest/internal/database"
	"binance-futures-backtest/internal/logger"
	"binance-futures-backtest/internal/market"
	"binance-futures-backtest/internal/oracle"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay classifier signals against historical futures candles",
	Long: `Backtest replays the probabilities of a trained classifier against the held-out
part of the candle history of one or more futures symbols, simulating entries,
stop-loss and take-profit exits, margin and fees on a shared account.

Candles and features are read from the SQLite tables written by the ETL job
(<BASE>_<QUOTE>_features). Configuration comes from configs/config.yml, a .env file
and BACKTEST_*, ORACLE_* environment variables.`,
	SilenceUsage: true,
}

var (
	configPath string
	symbols    []string
	threshold  float64
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./configs", "directory holding config.yml")
	rootCmd.PersistentFlags().StringSliceVarP(&symbols, "symbols", "s", nil, "symbols to trade, overrides backtest.symbols")
	rootCmd.PersistentFlags().Float64VarP(&threshold, "threshold", "t", 0, "confidence threshold, overrides backtest.confidence_threshold")
}

// app bundles what every subcommand needs.
type app struct {
	cfg   config.Config
	log   *zap.Logger
	store *database.Store
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	if len(symbols) > 0 {
		cfg.Backtest.Symbols = symbols
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Backtest.ConfidenceThreshold = threshold
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("could not initialize logger: %w", err)
	}
	log.Info("Configuration loaded", zap.String("path", configPath))

	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	log.Info("Database connection successful", zap.String("dsn", cfg.Database.DSN))

	return &app{cfg: cfg, log: log, store: database.NewStore(db, log)}, nil
}

// window loads the configured symbols and aligns them onto the test window.
func (a *app) window() (*market.Window, error) {
	series := a.store.LoadAll(a.cfg.Backtest.Symbols, a.cfg.Backtest.Features)
	return market.Align(series, a.cfg.Backtest.SplitFraction, a.log)
}

func (a *app) oracle() (oracle.Oracle, error) {
	return oracle.New(a.cfg.Oracle, a.log)
}

func (a *app) close() {
	_ = a.log.Sync()
	if sqlDB, err := a.store.DB().DB(); err == nil {
		_ = sqlDB.Close()
	}
}
