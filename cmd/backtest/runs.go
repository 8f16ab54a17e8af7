package main

import (
	"os"

	"binance-futures-backtest/internal/report"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored runs",
	RunE:  runList,
}

var runsLimit int

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to show, 0 for all")
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	runs, err := a.store.ListRuns(runsLimit)
	if err != nil {
		return err
	}
	return report.RenderRuns(os.Stdout, runs)
}
