// cmd/perfwatch/baselines.go
package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/signalnine/perfwatch/internal/analysis"
)

var refreshBaselines bool

var baselinesCmd = &cobra.Command{
	Use:   "baselines",
	Short: "Show learned baselines",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()
		ctx := cmd.Context()

		bs := analysis.NewBaselineStore(analysis.WithLogger(e.log.Named("analysis")), analysis.WithWriter(e.store))
		rows, err := e.store.Baselines(ctx)
		if err != nil {
			return err
		}
		bs.Load(rows)
		if refreshBaselines {
			n := bs.Refresh(ctx, e.store, e.cfg.Analysis.BaselineHistoryDays)
			fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %d baselines from the last %d days.\n",
				n, e.cfg.Analysis.BaselineHistoryDays)
		}

		all := bs.All()
		if len(all) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No baselines yet. Run the monitor to collect history.")
			return nil
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("METRIC", "CONTEXT", "MEAN", "STD DEV", "MIN", "MAX", "SAMPLES", "UPDATED")
		for _, b := range all {
			t.Row(b.MetricName, string(b.Context),
				fmt.Sprintf("%.2f", b.Mean), fmt.Sprintf("%.2f", b.StdDev),
				fmt.Sprintf("%.2f", b.Min), fmt.Sprintf("%.2f", b.Max),
				humanize.Comma(int64(b.SampleCount)), humanize.Time(b.LastUpdated))
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.String())
		return nil
	},
}

func init() {
	baselinesCmd.Flags().BoolVar(&refreshBaselines, "refresh", false, "recompute from stored history first")
}
