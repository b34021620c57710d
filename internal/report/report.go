// internal/report/report.go
package report

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"

	"github.com/signalnine/perfwatch/internal/config"
	"github.com/signalnine/perfwatch/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

// Reporter renders console output: the live dashboard, banners and
// summary reports.
type Reporter struct {
	w    io.Writer
	term *termenv.Output
	st   styles
	topN int
}

// New returns a Reporter writing to w. Colours follow the terminal's
// capabilities unless cfg.UseColors is false, which forces plain ASCII.
func New(w io.Writer, cfg config.DisplayConfig) *Reporter {
	var opts []termenv.OutputOption
	if !cfg.UseColors {
		opts = append(opts, termenv.WithProfile(termenv.Ascii))
	}
	renderer := lipgloss.NewRenderer(w, opts...)
	topN := cfg.ShowTopProcesses
	if topN <= 0 {
		topN = 10
	}
	return &Reporter{
		w:    w,
		term: termenv.NewOutput(w, opts...),
		st:   newStyles(renderer),
		topN: topN,
	}
}

// DashboardData is everything one dashboard frame shows.
type DashboardData struct {
	Cycle           int
	Sample          model.SystemSample
	Processes       model.ProcessSnapshot
	Anomalies       []*model.Anomaly
	Recommendations []model.Recommendation
	DBSizeMB        float64
}

// Dashboard clears the screen and draws one frame.
func (r *Reporter) Dashboard(d DashboardData) error {
	st := r.st
	s := d.Sample
	var b strings.Builder

	b.WriteString("\n" + st.rule.Render(rule()) + "\n")
	b.WriteString("  " + st.title.Render("SYSTEM PERFORMANCE MONITOR") + "\n")
	fmt.Fprintf(&b, "  Time: %s  | Cycle: %d\n", s.Timestamp.Format(timeLayout), d.Cycle)
	b.WriteString(st.rule.Render(rule()) + "\n")

	b.WriteString("\n" + st.bold.Render("  SYSTEM METRICS:") + "\n")

	cpu := model.Deref(s.CPUPercent)
	var loads []string
	for _, l := range []*float64{s.LoadAvg1, s.LoadAvg5, s.LoadAvg15} {
		if l != nil {
			loads = append(loads, fmt.Sprintf("%.1f", *l))
		}
	}
	loadStr := ""
	if len(loads) > 0 {
		loadStr = "  Load: " + strings.Join(loads, ", ")
	}
	fmt.Fprintf(&b, "  %s     %s  %s%s\n", st.bold.Render("CPU:"),
		st.level(cpu, 80, 95).Render(fmt.Sprintf("%5.1f%%", cpu)), bar(cpu), loadStr)

	r.usageLine(&b, "Memory:", model.Deref(s.MemoryPercent), 80, 95, s.MemoryUsed, s.MemoryTotal)
	r.usageLine(&b, "Swap:", model.Deref(s.SwapPercent), 50, 80, s.SwapUsed, s.SwapTotal)

	fmt.Fprintf(&b, "  %s    Read: %s  Write: %s\n", st.bold.Render("Disk:"),
		rate(s.DiskReadRate), rate(s.DiskWriteRate))

	r.usageLine(&b, "Storage:", model.Deref(s.DiskPercent), 80, 95, s.DiskUsed, s.DiskTotal)

	b.WriteString("\n" + st.bold.Render("  TOP PROCESSES (by CPU):") + "\n")
	b.WriteString("  " + st.dim.Render(fmt.Sprintf("%7s  %-20s %6s  %10s  %-15s", "PID", "Name", "CPU%", "Memory", "User")) + "\n")
	b.WriteString("  " + st.dim.Render(strings.Repeat("─", 62)) + "\n")
	for _, p := range d.Processes[:min(len(d.Processes), r.topN)] {
		name := p.Name
		if name == "" {
			name = "unknown"
		}
		user := p.Username
		if user == "" {
			user = "unknown"
		}
		fmt.Fprintf(&b, "  %7d  %-20s %s  %10s  %-15s\n",
			p.Pid, truncate(name, 20),
			st.level(p.CPUPercent, 50, 90).Render(fmt.Sprintf("%5.1f%%", p.CPUPercent)),
			humanize.IBytes(p.MemoryRSS), truncate(user, 15))
	}

	if len(d.Anomalies) > 0 {
		b.WriteString("\n" + st.bold.Render("  ACTIVE ALERTS:") + "\n")
		for _, a := range d.Anomalies[:min(len(d.Anomalies), 5)] {
			icon := "⚠"
			if a.Severity.Rank() >= model.SeverityHigh.Rank() {
				icon = "●"
			}
			fmt.Fprintf(&b, "  %s %s: %s\n", icon,
				st.severity(a.Severity).Render(strings.ToUpper(string(a.Severity))), a.Description)
		}
	}

	if len(d.Recommendations) > 0 {
		b.WriteString("\n" + st.bold.Render("  RECENT RECOMMENDATIONS:") + "\n")
		for _, rec := range d.Recommendations[:min(len(d.Recommendations), 5)] {
			line := fmt.Sprintf("  %s %s", st.severity(rec.Priority).Render("["+strings.ToUpper(string(rec.Priority))+"]"), label(rec.Type))
			if rec.EstimatedImpact != "" {
				line += " - " + rec.EstimatedImpact
			}
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\n" + st.rule.Render(rule()) + "\n")
	b.WriteString("  " + st.dim.Render(fmt.Sprintf("Press Ctrl+C to stop  |  DB size: %.1f MB", d.DBSizeMB)) + "\n")
	b.WriteString(st.rule.Render(rule()) + "\n")

	r.term.ClearScreen()
	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *Reporter) usageLine(b *strings.Builder, name string, pct, warnAt, critAt float64, used, total *uint64) {
	fmt.Fprintf(b, "  %s%s%s  %s %s / %s\n",
		r.st.bold.Render(name), strings.Repeat(" ", max(1, 9-len(name))),
		r.st.level(pct, warnAt, critAt).Render(fmt.Sprintf("%5.1f%%", pct)), bar(pct),
		bytesOrNA(used), bytesOrNA(total))
}

func bytesOrNA(p *uint64) string {
	if p == nil {
		return "N/A"
	}
	return humanize.IBytes(*p)
}

func rate(p *float64) string {
	if p == nil {
		return "N/A"
	}
	return humanize.IBytes(uint64(math.Max(0, *p))) + "/s"
}

// Banner prints host information at startup.
func (r *Reporter) Banner(info model.SystemInfo, interval time.Duration) {
	st := r.st
	var b strings.Builder
	b.WriteString("\n" + st.rule.Render(rule()) + "\n")
	b.WriteString("  " + st.title.Render("PERFWATCH") + "\n")
	b.WriteString("  " + st.dim.Render("Host performance anomaly detection") + "\n")
	b.WriteString(st.rule.Render(rule()) + "\n")
	fmt.Fprintf(&b, "  Platform:  %s %s\n", orUnknown(info.Platform), truncate(info.PlatformVersion, 30))
	fmt.Fprintf(&b, "  Processor: %s\n", truncate(orUnknown(info.Processor), 45))
	fmt.Fprintf(&b, "  CPU Cores: %d physical, %d logical\n", info.CPUCountPhysical, info.CPUCountLogical)
	fmt.Fprintf(&b, "  Interval:  %s\n", interval)
	b.WriteString(st.rule.Render(rule()) + "\n")
	b.WriteString("  " + st.ok.Render("Starting monitoring... Press Ctrl+C to stop.") + "\n\n")
	io.WriteString(r.w, b.String())
}

// ShutdownSummary prints totals when monitoring stops.
func (r *Reporter) ShutdownSummary(cycles int, sizeMB float64, counts map[string]int64) {
	st := r.st
	var b strings.Builder
	b.WriteString("\n" + st.warn.Render(rule()) + "\n")
	b.WriteString("  " + st.bold.Render("Shutting down...") + "\n")
	fmt.Fprintf(&b, "  Total monitoring cycles: %d\n", cycles)
	fmt.Fprintf(&b, "  Database size: %.1f MB\n", sizeMB)
	fmt.Fprintf(&b, "  Data points collected: %s\n", humanize.Comma(counts["system_metrics"]))
	fmt.Fprintf(&b, "  Anomalies detected: %s\n", humanize.Comma(counts["anomalies"]))
	fmt.Fprintf(&b, "  Recommendations: %s\n", humanize.Comma(counts["recommendations"]))
	b.WriteString(st.warn.Render(rule()) + "\n")
	b.WriteString("  " + st.ok.Render("Goodbye!") + "\n\n")
	io.WriteString(r.w, b.String())
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// Source is the read side of the store a summary report needs.
type Source interface {
	Range(ctx context.Context, start, end time.Time) ([]model.SystemSample, error)
	AnomaliesBetween(ctx context.Context, start, end time.Time) ([]model.Anomaly, error)
	ActiveRecommendations(ctx context.Context) ([]model.Recommendation, error)
	SizeMB(ctx context.Context) (float64, error)
	RowCounts(ctx context.Context) (map[string]int64, error)
}

// Report builds a plain-text summary of [start, end].
func Report(ctx context.Context, src Source, start, end, now time.Time) (string, error) {
	var lines []string
	add := func(format string, args ...any) { lines = append(lines, fmt.Sprintf(format, args...)) }

	add("\n%s", rule())
	add("  PERFORMANCE SUMMARY REPORT")
	add("  Period: %s to %s", start.Format(timeLayout), end.Format(timeLayout))
	add("  Generated: %s", now.Format(timeLayout))
	add("%s", rule())

	samples, err := src.Range(ctx, start, end)
	if err != nil {
		return "", fmt.Errorf("query samples: %w", err)
	}
	if len(samples) == 0 {
		add("\n  No data available for the specified time range.")
		add("\n%s", rule())
		return strings.Join(lines, "\n"), nil
	}

	add("\n  SYSTEM OVERVIEW:")
	lines = append(lines, cpuSection(samples)...)
	lines = append(lines, memorySection(samples)...)
	lines = append(lines, diskSection(samples)...)

	anomalies, err := src.AnomaliesBetween(ctx, start, end)
	if err != nil {
		return "", fmt.Errorf("query anomalies: %w", err)
	}
	add("\n  ANOMALIES DETECTED: %d", len(anomalies))
	for _, tc := range countTypes(anomalies) {
		add("    %s: %d occurrences", label(tc.name), tc.count)
	}

	recs, err := src.ActiveRecommendations(ctx)
	if err != nil {
		return "", fmt.Errorf("query recommendations: %w", err)
	}
	add("\n  ACTIVE RECOMMENDATIONS: %d", len(recs))
	for _, rec := range recs[:min(len(recs), 5)] {
		add("    [%s] %s", strings.ToUpper(string(rec.Priority)), label(rec.Type))
	}

	size, err := src.SizeMB(ctx)
	if err != nil {
		return "", fmt.Errorf("database size: %w", err)
	}
	counts, err := src.RowCounts(ctx)
	if err != nil {
		return "", fmt.Errorf("row counts: %w", err)
	}
	add("\n  DATABASE STATS:")
	add("    Size: %.1f MB", size)
	add("    System snapshots: %s", humanize.Comma(counts["system_metrics"]))
	add("    Process records: %s", humanize.Comma(counts["process_metrics"]))
	add("\n%s", rule())

	return strings.Join(lines, "\n"), nil
}

type typeCount struct {
	name  string
	count int
}

// countTypes tallies anomaly types, most frequent first.
func countTypes(anomalies []model.Anomaly) []typeCount {
	idx := map[string]int{}
	var out []typeCount
	for _, a := range anomalies {
		t := string(a.Type)
		if t == "" {
			t = string(model.UnknownAnomaly)
		}
		i, ok := idx[t]
		if !ok {
			i = len(out)
			idx[t] = i
			out = append(out, typeCount{name: t})
		}
		out[i].count++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	return out
}
