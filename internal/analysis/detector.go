// internal/analysis/detector.go
package analysis

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/signalnine/perfwatch/internal/model"
)

const (
	memoryWindow = 2 * time.Hour
	swapWindow   = 30 * time.Minute
)

var titleCaser = cases.Title(language.English)

// Detector compares each sample with its contextual baseline and runs the
// memory-leak and swap-thrashing trend checks. It is not safe for
// concurrent Evaluate calls.
type Detector struct {
	baselines BaselineReader
	levels    SeverityLevels
	log       *zap.Logger
	clock     clock.Clock

	memory *window
	swap   *window
}

// NewDetector returns a Detector reading baselines from r.
func NewDetector(r BaselineReader, levels SeverityLevels, opts ...Option) *Detector {
	o := buildOptions(opts)
	return &Detector{
		baselines: r,
		levels:    levels,
		log:       o.log.Named("detector"),
		clock:     o.clock,
		memory:    newWindow(memoryWindow),
		swap:      newWindow(swapWindow),
	}
}

// Evaluate returns the anomalies found in sample: z-score anomalies in
// MonitoredMetrics order, then memory leak, then swap thrashing.
func (d *Detector) Evaluate(sample model.SystemSample) []*model.Anomaly {
	now := d.clock.Now()
	tc := model.ContextFor(sample.Timestamp)

	var out []*model.Anomaly
	for _, metric := range MonitoredMetrics {
		value, ok := sample.Value(metric)
		if !ok {
			continue
		}
		b, ok := d.baselines.Get(metric, tc)
		if !ok {
			continue
		}
		if a := d.checkZScore(sample.Timestamp, metric, value, b, tc); a != nil {
			out = append(out, a)
		}
	}

	return append(out, d.detectTrends(sample, now)...)
}

func (d *Detector) checkZScore(ts time.Time, metric string, value float64, b model.Baseline, tc model.TimeContext) *model.Anomaly {
	std := math.Max(b.StdDev, MinStdDev)
	z := (value - b.Mean) / std

	sev := d.levels.Classify(math.Abs(z))
	if sev == model.SeverityNormal || sev == model.SeverityLow {
		return nil
	}

	direction := "below"
	if z > 0 {
		direction = "above"
	}
	desc := fmt.Sprintf("%s at %.1f%% is %.1f std devs %s normal for %s (typical: %.1f%% ± %.1f%%)",
		titleCaser.String(strings.ReplaceAll(metric, "_", " ")),
		value, math.Abs(z), direction,
		strings.ReplaceAll(string(tc), "_", " "),
		b.Mean, std)

	d.log.Warn("anomaly detected",
		zap.String("severity", string(sev)), zap.String("description", desc))

	return &model.Anomaly{
		Timestamp:      ts,
		Type:           anomalyType(metric, z),
		Severity:       sev,
		MetricName:     metric,
		MetricValue:    value,
		BaselineMean:   b.Mean,
		BaselineStdDev: std,
		ZScore:         z,
		Description:    desc,
	}
}

func anomalyType(metric string, z float64) model.AnomalyType {
	up := z > 0
	switch metric {
	case model.MetricCPUPercent:
		if up {
			return model.CPUSpike
		}
		return model.CPUDrop
	case model.MetricMemoryPercent:
		if up {
			return model.MemoryPressure
		}
		return model.MemoryDrop
	case model.MetricSwapPercent:
		if up {
			return model.SwapPressure
		}
		return model.SwapDrop
	}
	return model.UnknownAnomaly
}
