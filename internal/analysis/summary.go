// internal/analysis/summary.go
package analysis

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/signalnine/perfwatch/internal/model"
)

func contributorDisplay(c model.Contributor) string {
	var b strings.Builder
	if c.Metric == "memory_rss" {
		fmt.Fprintf(&b, "%s (PID %d): %s memory", c.Name, c.Pid, humanize.IBytes(uint64(c.CurrentValue)))
		switch {
		case c.IsNewProcess:
			b.WriteString(" (new process)")
		case c.Delta > mib:
			fmt.Fprintf(&b, " (+%s)", humanize.IBytes(uint64(c.Delta)))
		}
		return b.String()
	}

	fmt.Fprintf(&b, "%s (PID %d): %.1f%% CPU", c.Name, c.Pid, c.CurrentValue)
	switch {
	case c.IsNewProcess:
		b.WriteString(" (new process)")
	case c.Delta > 1:
		fmt.Fprintf(&b, " (+%.1f%%)", c.Delta)
	}
	return b.String()
}

// summarize renders the RootCause as operator-facing text.
func summarize(a *model.Anomaly, rc *model.RootCause) string {
	parts := []string{
		fmt.Sprintf("[%s] %s", strings.ToUpper(string(a.Severity)), a.Description),
	}

	if n := len(rc.TopContributors); n > 0 {
		parts = append(parts, "\nTop contributors:")
		for i, c := range rc.TopContributors[:min(n, 5)] {
			parts = append(parts, fmt.Sprintf("  %d. %s", i+1, c.Display))
		}

		var top3 float64
		for _, c := range rc.TopContributors[:min(n, 3)] {
			top3 += c.CurrentValue
		}
		switch {
		case a.Type.IsCPU():
			parts = append(parts, fmt.Sprintf("\n  Top 3 processes account for %.1f%% CPU", top3))
		case a.Type.IsMemory():
			parts = append(parts, fmt.Sprintf("\n  Top 3 processes use %s memory", humanize.IBytes(uint64(top3))))
		}
	}

	if len(rc.ProcessTree) > 1 {
		links := make([]string, len(rc.ProcessTree))
		for i, n := range rc.ProcessTree {
			links[i] = fmt.Sprintf("%s(%d)", n.Name, n.Pid)
		}
		parts = append(parts, "\nProcess chain: "+strings.Join(links, " → "))
	}

	if rc.IOAnalysis != nil {
		for _, p := range rc.IOAnalysis.Patterns {
			if p.LikelyIssue != "" {
				parts = append(parts, fmt.Sprintf("\nI/O issue: %s - %s (%s)", p.Name, p.LikelyIssue, p.Classification))
			}
		}
	}

	return strings.Join(parts, "\n")
}
