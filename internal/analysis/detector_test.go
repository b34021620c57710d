// internal/analysis/detector_test.go
package analysis

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/perfwatch/internal/model"
)

// Tuesday morning in UTC; tests build timestamps in UTC so the context is fixed.
var tuesdayMorning = time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)

func storeWith(bs ...model.Baseline) *BaselineStore {
	s := NewBaselineStore()
	s.Load(bs)
	return s
}

func newTestDetector(r BaselineReader) (*Detector, *clock.Mock) {
	mock := clock.NewMock()
	mock.Set(tuesdayMorning)
	return NewDetector(r, DefaultSeverityLevels(), WithClock(mock)), mock
}

func TestEvaluateCriticalSpike(t *testing.T) {
	d, mock := newTestDetector(storeWith(model.Baseline{
		MetricName: "cpu_percent", Context: model.WeekdayMorning, Mean: 50, StdDev: 10, SampleCount: 100,
	}))

	got := d.Evaluate(model.SystemSample{Timestamp: mock.Now(), CPUPercent: model.Float(85)})
	require.Len(t, got, 1)

	a := got[0]
	assert.Equal(t, model.CPUSpike, a.Type)
	assert.Equal(t, model.SeverityCritical, a.Severity)
	assert.InDelta(t, 3.5, a.ZScore, 1e-9)
	assert.Equal(t, 85.0, a.MetricValue)
	assert.Equal(t, 50.0, a.BaselineMean)
	assert.Equal(t, 10.0, a.BaselineStdDev)
	assert.Nil(t, a.RootCause)
	assert.Equal(t,
		"Cpu Percent at 85.0% is 3.5 std devs above normal for weekday morning (typical: 50.0% ± 10.0%)",
		a.Description)
}

func TestEvaluateDirectionAndOrder(t *testing.T) {
	d, mock := newTestDetector(storeWith(
		model.Baseline{MetricName: "cpu_percent", Context: model.WeekdayMorning, Mean: 50, StdDev: 10, SampleCount: 100},
		model.Baseline{MetricName: "memory_percent", Context: model.WeekdayMorning, Mean: 60, StdDev: 5, SampleCount: 100},
		model.Baseline{MetricName: "swap_percent", Context: model.WeekdayMorning, Mean: 10, StdDev: 2, SampleCount: 100},
	))

	got := d.Evaluate(model.SystemSample{
		Timestamp:     mock.Now(),
		CPUPercent:    model.Float(20), // z=-3
		MemoryPercent: model.Float(72), // z=2.4
		SwapPercent:   model.Float(11), // z=0.5
	})
	require.Len(t, got, 2)
	assert.Equal(t, model.CPUDrop, got[0].Type)
	assert.Contains(t, got[0].Description, "below normal")
	assert.Equal(t, model.MemoryPressure, got[1].Type)
	assert.Equal(t, model.SeverityMedium, got[1].Severity)
}

func TestEvaluateSuppressesLowAndNormal(t *testing.T) {
	d, mock := newTestDetector(storeWith(model.Baseline{
		MetricName: "cpu_percent", Context: model.WeekdayMorning, Mean: 50, StdDev: 10, SampleCount: 100,
	}))

	for _, v := range []float64{50, 60, 65, 69.9, 35} {
		got := d.Evaluate(model.SystemSample{Timestamp: mock.Now(), CPUPercent: model.Float(v)})
		assert.Empty(t, got, "value %v", v)
	}
}

func TestEvaluateSkipsMissingValueOrBaseline(t *testing.T) {
	d, mock := newTestDetector(storeWith(model.Baseline{
		MetricName: "cpu_percent", Context: model.WeekendDay, Mean: 10, StdDev: 1, SampleCount: 100,
	}))

	// baseline exists for weekend only; Tuesday has none
	assert.Empty(t, d.Evaluate(model.SystemSample{Timestamp: mock.Now(), CPUPercent: model.Float(99)}))
	// no value at all
	assert.Empty(t, d.Evaluate(model.SystemSample{Timestamp: mock.Now()}))
}

// feedMemory adds one memory_used sample per minute and returns the last
// Evaluate result.
func feedMemory(d *Detector, mock *clock.Mock, minutes int, value func(i int) float64) []*model.Anomaly {
	var last []*model.Anomaly
	for i := 0; i <= minutes; i++ {
		if i > 0 {
			mock.Add(time.Minute)
		}
		last = d.Evaluate(model.SystemSample{Timestamp: mock.Now(), MemoryUsed: model.Uint(uint64(value(i)))})
	}
	return last
}

func ofType(as []*model.Anomaly, t model.AnomalyType) []*model.Anomaly {
	var out []*model.Anomaly
	for _, a := range as {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

func TestMemoryLeakMedium(t *testing.T) {
	d, mock := newTestDetector(storeWith())
	base := 4.0 * 1024 * mib

	got := feedMemory(d, mock, 120, func(i int) float64 { return base + float64(i)*mib })

	leaks := ofType(got, model.MemoryLeak)
	require.Len(t, leaks, 1)
	a := leaks[0]
	assert.Equal(t, model.SeverityMedium, a.Severity)
	assert.Equal(t, "memory_used", a.MetricName)
	assert.Zero(t, a.ZScore)
	assert.Greater(t, a.MetricValue, a.BaselineMean)
	assert.Contains(t, a.Description, "over the last 120 minutes (11/11 intervals show growth)")
}

func TestMemoryLeakHigh(t *testing.T) {
	d, mock := newTestDetector(storeWith())

	got := feedMemory(d, mock, 120, func(i int) float64 { return float64(i) * 3 * mib })

	leaks := ofType(got, model.MemoryLeak)
	require.Len(t, leaks, 1)
	assert.Equal(t, model.SeverityHigh, leaks[0].Severity)
}

func TestMemoryLeakFlatOrOscillating(t *testing.T) {
	d, mock := newTestDetector(storeWith())
	got := feedMemory(d, mock, 120, func(int) float64 { return 2048 * mib })
	assert.Empty(t, ofType(got, model.MemoryLeak))

	d, mock = newTestDetector(storeWith())
	got = feedMemory(d, mock, 120, func(i int) float64 {
		if (i/10)%2 == 0 {
			return 2048 * mib
		}
		return 2448 * mib
	})
	assert.Empty(t, ofType(got, model.MemoryLeak))
}

func TestMemoryLeakNeedsSixtyPoints(t *testing.T) {
	d, mock := newTestDetector(storeWith())
	got := feedMemory(d, mock, 58, func(i int) float64 { return float64(i) * 100 * mib })
	assert.Empty(t, got)
}

func TestSwapThrashing(t *testing.T) {
	d, mock := newTestDetector(storeWith())

	var got []*model.Anomaly
	for i := 0; i < 30; i++ {
		if i > 0 {
			mock.Add(30 * time.Second)
		}
		v := uint64(0)
		if i%2 == 1 {
			v = 200 * mib
		}
		got = d.Evaluate(model.SystemSample{Timestamp: mock.Now(), SwapUsed: model.Uint(v)})
	}

	thrash := ofType(got, model.SwapThrashing)
	require.Len(t, thrash, 1)
	a := thrash[0]
	assert.Equal(t, model.SeverityCritical, a.Severity)
	assert.Equal(t, "swap_used", a.MetricName)
	assert.Zero(t, a.BaselineMean)
	assert.Zero(t, a.ZScore)
	assert.Equal(t, float64(200*mib), a.MetricValue)
	assert.Contains(t, a.Description, "29 large swap changes (>100 MB) in 29 samples")
}

func TestSwapStable(t *testing.T) {
	d, mock := newTestDetector(storeWith())

	var got []*model.Anomaly
	for i := 0; i < 40; i++ {
		mock.Add(30 * time.Second)
		got = d.Evaluate(model.SystemSample{Timestamp: mock.Now(), SwapUsed: model.Uint(512*mib + uint64(i)*mib)})
		assert.Empty(t, ofType(got, model.SwapThrashing))
	}
}

func TestSwapWindowIsPruned(t *testing.T) {
	d, mock := newTestDetector(storeWith())
	for i := 0; i < 25; i++ {
		mock.Add(30 * time.Second)
		d.Evaluate(model.SystemSample{Timestamp: mock.Now(), SwapUsed: model.Uint(0)})
	}
	mock.Add(time.Hour)
	d.Evaluate(model.SystemSample{Timestamp: mock.Now(), SwapUsed: model.Uint(0)})
	assert.Equal(t, 1, d.swap.len())
}

// bucketedMemory fills the most recent len(avgsMiB) ten-minute buckets with
// seven points each, every point in a bucket equal to that bucket's average.
func bucketedMemory(now time.Time, avgsMiB []float64) *window {
	w := newWindow(memoryWindow)
	first := leakBuckets - len(avgsMiB)
	for j, avg := range avgsMiB {
		bucket := first + j
		for k := 6; k >= 0; k-- {
			age := time.Duration(leakBuckets-1-bucket)*leakBucketSpan + time.Duration(k*80)*time.Second
			w.add(now.Add(-age), avg*mib)
		}
	}
	return w
}

func TestMemoryLeakThresholds(t *testing.T) {
	tests := []struct {
		name    string
		avgsMiB []float64
		want    model.Severity // empty means no anomaly
	}{
		// 8 comparisons, 6 increases: ratio exactly 0.75 triggers
		{"growth ratio at 0.75", []float64{0, 50, 40, 90, 80, 130, 180, 230, 300}, model.SeverityHigh},
		{"growth ratio below 0.75", []float64{0, 50, 40, 90, 80, 130, 120, 170, 300}, ""},
		// 9 buckets span 5400s, so +75 MiB is exactly 50 MB/hour
		{"rate at 50 MB/hour", []float64{0, 1, 2, 3, 4, 5, 6, 7, 75}, ""},
		{"rate above 50 MB/hour", []float64{0, 1, 2, 3, 4, 5, 6, 7, 76}, model.SeverityMedium},
		{"rate at 100 MB/hour", []float64{0, 1, 2, 3, 4, 5, 6, 7, 150}, model.SeverityMedium},
		{"rate above 100 MB/hour", []float64{0, 1, 2, 3, 4, 5, 6, 7, 151}, model.SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, mock := newTestDetector(storeWith())
			now := mock.Now()
			d.memory = bucketedMemory(now, tt.avgsMiB)
			require.GreaterOrEqual(t, d.memory.len(), leakMinPoints)

			a := d.checkMemoryLeak(now, now)
			if tt.want == "" {
				assert.Nil(t, a)
				return
			}
			require.NotNil(t, a)
			assert.Equal(t, tt.want, a.Severity)
		})
	}
}

// swapSeries returns 21 points 30s apart ending at now. The first `changes`
// steps alternate between 0 and step bytes, the rest repeat the last value.
func swapSeries(now time.Time, changes int, step float64) *window {
	w := newWindow(swapWindow)
	v := 0.0
	for i := 0; i <= 20; i++ {
		if i > 0 && i <= changes {
			if v == 0 {
				v = step
			} else {
				v = 0
			}
		}
		w.add(now.Add(-time.Duration(20-i)*30*time.Second), v)
	}
	return w
}

func TestSwapThrashingThresholds(t *testing.T) {
	tests := []struct {
		name    string
		changes int
		step    float64
		want    bool
	}{
		// 20 comparisons: 3 changes is exactly 0.15 and must not trigger
		{"change ratio at 0.15", 3, 200 * mib, false},
		{"change ratio above 0.15", 4, 200 * mib, true},
		// a swing of exactly 100 MiB is not a large change
		{"delta at 100 MiB", 20, 100 * mib, false},
		{"delta above 100 MiB", 20, 100*mib + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, mock := newTestDetector(storeWith())
			now := mock.Now()
			d.swap = swapSeries(now, tt.changes, tt.step)

			a := d.checkSwapThrashing(now)
			if !tt.want {
				assert.Nil(t, a)
				return
			}
			require.NotNil(t, a)
			assert.Equal(t, model.SeverityCritical, a.Severity)
		})
	}
}
