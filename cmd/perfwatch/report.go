// cmd/perfwatch/report.go
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalnine/perfwatch/internal/report"
)

var reportStart, reportEnd string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a summary report for a time range (default: last 24h)",
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		end := now
		if reportEnd != "" {
			t, err := parseTime(reportEnd)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			end = t
		}
		start := end.Add(-24 * time.Hour)
		if reportStart != "" {
			t, err := parseTime(reportStart)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			start = t
		}
		if !start.Before(end) {
			return fmt.Errorf("--start %s is not before --end %s", start.Format(time.DateTime), end.Format(time.DateTime))
		}

		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		out, err := report.Report(cmd.Context(), e.store, start, end, now)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var timeLayouts = []string{time.DateOnly, time.DateTime, "2006-01-02T15:04:05"}

// parseTime accepts a date, a date and time, or an ISO-style date-time, all
// in local time.
func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q (use YYYY-MM-DD, \"YYYY-MM-DD HH:MM:SS\" or YYYY-MM-DDTHH:MM:SS)", s)
}

func init() {
	reportCmd.Flags().StringVar(&reportStart, "start", "", "start of the period")
	reportCmd.Flags().StringVar(&reportEnd, "end", "", "end of the period (default now)")
}
