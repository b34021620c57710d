// internal/report/stats.go
package report

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/signalnine/perfwatch/internal/model"
)

type series struct {
	values []float64
	at     []model.SystemSample
}

func collect(samples []model.SystemSample, metric string) series {
	var s series
	for _, m := range samples {
		if v, ok := m.Value(metric); ok {
			s.values = append(s.values, v)
			s.at = append(s.at, m)
		}
	}
	return s
}

func cpuSection(samples []model.SystemSample) []string {
	cpu := collect(samples, model.MetricCPUPercent)
	if len(cpu.values) == 0 {
		return nil
	}
	peak := floats.MaxIdx(cpu.values)
	return []string{
		"\n    CPU Usage:",
		fmt.Sprintf("      Average: %.1f%%", stat.Mean(cpu.values, nil)),
		fmt.Sprintf("      Peak: %.1f%% at %s", cpu.values[peak], cpu.at[peak].Timestamp.Format(timeLayout)),
		fmt.Sprintf("      Minimum: %.1f%%", floats.Min(cpu.values)),
	}
}

func memorySection(samples []model.SystemSample) []string {
	pct := collect(samples, model.MetricMemoryPercent)
	if len(pct.values) == 0 {
		return nil
	}
	var avgUsed float64
	if used := collect(samples, model.MetricMemoryUsed); len(used.values) > 0 {
		avgUsed = stat.Mean(used.values, nil)
	}
	peak := floats.MaxIdx(pct.values)
	out := []string{
		"\n    Memory Usage:",
		fmt.Sprintf("      Average: %s (%.1f%%)", humanize.IBytes(uint64(avgUsed)), stat.Mean(pct.values, nil)),
		fmt.Sprintf("      Peak: %.1f%% at %s", pct.values[peak], pct.at[peak].Timestamp.Format(timeLayout)),
	}

	if n := len(pct.values); n > 10 {
		q := n / 4
		first := stat.Mean(pct.values[:q], nil)
		last := stat.Mean(pct.values[n-q:], nil)
		trend := last - first
		dir := "↓"
		if trend > 0 {
			dir = "↑"
		}
		out = append(out, fmt.Sprintf("      Trend: %s %.1f%% change over period", dir, math.Abs(trend)))
	}
	return out
}

func diskSection(samples []model.SystemSample) []string {
	var read, written uint64
	seen := false
	for _, m := range samples {
		if m.DiskReadBytesDelta != nil {
			seen = true
			read += *m.DiskReadBytesDelta
		}
		if m.DiskWriteBytesDelta != nil {
			written += *m.DiskWriteBytesDelta
		}
	}
	if !seen {
		return nil
	}
	return []string{
		"\n    Disk I/O:",
		"      Total read: " + humanize.IBytes(read),
		"      Total written: " + humanize.IBytes(written),
	}
}
