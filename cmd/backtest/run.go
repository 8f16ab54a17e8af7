package main

import (
	"fmt"
	"os"

	"binance-futures-backtest/internal/metrics"
	"binance-futures-backtest/internal/report"
	"binance-futures-backtest/internal/trader"
	"binance-futures-backtest/pkg/id"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one backtest and print its report",
	Long: `Run aligns the configured symbols, replays the test window once and prints the
monthly breakdown and risk metrics. The run is stored in the database unless
--no-save is given, and CSV files are written when an output directory is set.

Example:
  backtest run --symbols BTC/USDT,ETH/USDT --threshold 0.7 --out ./reports`,
	RunE: runBacktest,
}

var (
	runNoSave bool
	runOutDir string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "do not store the run in the database")
	runCmd.Flags().StringVarP(&runOutDir, "out", "o", "", "directory for CSV exports, overrides report.output_dir")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	w, err := a.window()
	if err != nil {
		return err
	}
	orc, err := a.oracle()
	if err != nil {
		return err
	}

	res, err := trader.NewEngine(a.log, a.cfg.Backtest, orc).Run(cmd.Context(), w)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}
	rep := metrics.Compute(res, a.cfg.Backtest.RiskFreeRate)

	if err := report.Render(os.Stdout, res, rep); err != nil {
		return err
	}

	runID := id.New()
	outDir := a.cfg.Report.OutputDir
	if runOutDir != "" {
		outDir = runOutDir
	}
	if outDir != "" {
		paths, err := report.Export(outDir, runID, res, rep)
		if err != nil {
			return err
		}
		a.log.Info("Exported CSV files", zap.Strings("files", paths))
	}

	if !runNoSave {
		if err := a.store.SaveRun(runID, res, rep); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Run saved as %s\n", runID)
	}
	return nil
}
