// internal/analysis/trend.go
package analysis

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/signalnine/perfwatch/internal/model"
)

const (
	mib = 1024 * 1024

	leakMinPoints      = 60
	leakBuckets        = 12
	leakBucketSpan     = 10 * time.Minute
	leakMinAverages    = 6
	leakMinComparisons = 5
	leakGrowthRatio    = 0.75
	leakMinMBPerHour   = 50
	leakHighMBPerHour  = 100

	thrashMinPoints      = 20
	thrashMinComparisons = 10
	thrashDeltaBytes     = 100 * mib
	thrashChangeRatio    = 0.15
)

func (d *Detector) detectTrends(sample model.SystemSample, now time.Time) []*model.Anomaly {
	if v, ok := sample.Value(model.MetricMemoryUsed); ok {
		d.memory.add(sample.Timestamp, v)
	}
	if v, ok := sample.Value(model.MetricSwapUsed); ok {
		d.swap.add(sample.Timestamp, v)
	}
	d.memory.prune(now)
	d.swap.prune(now)

	var out []*model.Anomaly
	if a := d.checkMemoryLeak(sample.Timestamp, now); a != nil {
		out = append(out, a)
	}
	if a := d.checkSwapThrashing(sample.Timestamp); a != nil {
		out = append(out, a)
	}
	return out
}

// checkMemoryLeak splits the last two hours into ten-minute buckets aligned
// to now and looks for sustained growth between bucket averages.
func (d *Detector) checkMemoryLeak(ts, now time.Time) *model.Anomaly {
	if d.memory.len() < leakMinPoints {
		return nil
	}

	var buckets [leakBuckets][]float64
	for _, p := range d.memory.points {
		age := now.Sub(p.ts)
		idx := leakBuckets - 1 - min(leakBuckets-1, int(age.Seconds()/leakBucketSpan.Seconds()))
		if idx < 0 || idx >= leakBuckets {
			continue
		}
		buckets[idx] = append(buckets[idx], p.value)
	}

	var averages []float64
	for _, b := range buckets {
		if len(b) > 0 {
			averages = append(averages, stat.Mean(b, nil))
		}
	}
	if len(averages) < leakMinAverages {
		return nil
	}

	comparisons := len(averages) - 1
	if comparisons < leakMinComparisons {
		return nil
	}
	growth := 0
	for i := 1; i < len(averages); i++ {
		if averages[i] > averages[i-1] {
			growth++
		}
	}
	if float64(growth)/float64(comparisons) < leakGrowthRatio {
		return nil
	}

	first, last := averages[0], averages[len(averages)-1]
	span := float64(len(averages)) * leakBucketSpan.Seconds()
	mbPerHour := (last - first) * 3600 / span / mib
	if mbPerHour <= leakMinMBPerHour {
		return nil
	}

	sev := model.SeverityMedium
	if mbPerHour > leakHighMBPerHour {
		sev = model.SeverityHigh
	}
	desc := fmt.Sprintf("Potential memory leak detected: memory growing at %.0f MB/hour over the last %d minutes (%d/%d intervals show growth)",
		mbPerHour, len(averages)*10, growth, comparisons)
	d.log.Warn("memory leak suspected", zap.String("severity", string(sev)), zap.String("description", desc))

	return &model.Anomaly{
		Timestamp:    ts,
		Type:         model.MemoryLeak,
		Severity:     sev,
		MetricName:   model.MetricMemoryUsed,
		MetricValue:  last,
		BaselineMean: first,
		Description:  desc,
	}
}

// checkSwapThrashing counts large swings in swap usage between consecutive
// samples over the last thirty minutes.
func (d *Detector) checkSwapThrashing(ts time.Time) *model.Anomaly {
	pts := d.swap.points
	if len(pts) < thrashMinPoints {
		return nil
	}

	comparisons := len(pts) - 1
	if comparisons < thrashMinComparisons {
		return nil
	}
	changes := 0
	for i := 1; i < len(pts); i++ {
		if math.Abs(pts[i].value-pts[i-1].value) > thrashDeltaBytes {
			changes++
		}
	}
	if float64(changes)/float64(comparisons) <= thrashChangeRatio {
		return nil
	}

	desc := fmt.Sprintf("Swap thrashing detected: %d large swap changes (>100 MB) in %d samples over the last 30 minutes. System performance severely degraded.",
		changes, comparisons)
	d.log.Error("swap thrashing", zap.String("description", desc))

	return &model.Anomaly{
		Timestamp:   ts,
		Type:        model.SwapThrashing,
		Severity:    model.SeverityCritical,
		MetricName:  model.MetricSwapUsed,
		MetricValue: pts[len(pts)-1].value,
		Description: desc,
	}
}
