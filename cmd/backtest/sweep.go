package main

import (
	"os"

	"binance-futures-backtest/internal/metrics"
	"binance-futures-backtest/internal/report"
	"binance-futures-backtest/internal/trader"
	"binance-futures-backtest/pkg/id"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Compare confidence thresholds on the same test window",
	Long: `Sweep runs one independent backtest per threshold in parallel over the same
aligned data and prints one line of metrics per threshold.

Example:
  backtest sweep --thresholds 0.55,0.6,0.65,0.7,0.75`,
	RunE: runSweep,
}

var (
	sweepThresholds []float64
	sweepSave       bool
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().Float64SliceVar(&sweepThresholds, "thresholds", []float64{0.55, 0.6, 0.65, 0.7, 0.75, 0.8}, "confidence thresholds to compare")
	sweepCmd.Flags().BoolVar(&sweepSave, "save", false, "store every run in the database")
}

func runSweep(cmd *cobra.Command, args []string) error {
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

	results, err := trader.Sweep(cmd.Context(), a.log, a.cfg.Backtest, sweepThresholds, w, orc)
	if err != nil {
		return err
	}

	reports := make([]metrics.Report, len(results))
	for i, res := range results {
		reports[i] = metrics.Compute(res, a.cfg.Backtest.RiskFreeRate)
		if sweepSave {
			runID := id.New()
			if err := a.store.SaveRun(runID, res, reports[i]); err != nil {
				return err
			}
			a.log.Info("Saved sweep run", zap.String("run_id", runID), zap.Float64("threshold", sweepThresholds[i]))
		}
	}
	return report.RenderSweep(os.Stdout, sweepThresholds, reports)
}
