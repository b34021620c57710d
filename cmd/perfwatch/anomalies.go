// cmd/perfwatch/anomalies.go
package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	anomalyHours int
	anomalyJSON  bool
)

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies",
	Short: "List recent anomalies with their root causes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if anomalyHours < 1 {
			return fmt.Errorf("--hours must be positive, got %d", anomalyHours)
		}
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		since := time.Now().Add(-time.Duration(anomalyHours) * time.Hour)
		list, err := e.store.RecentAnomalies(cmd.Context(), since)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if anomalyJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}

		if len(list) == 0 {
			fmt.Fprintf(out, "No anomalies in the last %d hours.\n", anomalyHours)
			return nil
		}
		for _, a := range list {
			fmt.Fprintf(out, "%s  [%s] %s\n", a.Timestamp.Format(time.DateTime),
				strings.ToUpper(string(a.Severity)), a.Type)
			fmt.Fprintf(out, "  %s\n", a.Description)
			if a.RootCause != nil && a.RootCause.Summary != "" {
				for _, line := range strings.Split(a.RootCause.Summary, "\n") {
					fmt.Fprintf(out, "    %s\n", line)
				}
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	anomaliesCmd.Flags().IntVar(&anomalyHours, "hours", 24, "look-back window in hours")
	anomaliesCmd.Flags().BoolVar(&anomalyJSON, "json", false, "print JSON")
}
