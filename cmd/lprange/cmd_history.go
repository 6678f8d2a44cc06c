package main

import (
	"context"

	"LPRange/internal/report"

	"github.com/spf13/cobra"
)

var (
	historyPair  string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently stored evaluations (requires clickhouse)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, app, cleanup, err := loadApp()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		rows, err := app.Evaluator().Recent(ctx, historyPair, historyLimit)
		if err != nil {
			return err
		}
		return report.History(cmd.OutOrStdout(), rows)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyPair, "pair", "", "filter by pair")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum rows")
}
