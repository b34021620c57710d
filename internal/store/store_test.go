// internal/store/store_test.go
package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/perfwatch/internal/model"
)

// Tuesday 09:00 local time
var t0 = time.Date(2026, 2, 3, 9, 0, 0, 0, time.Local)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSampleRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	in := model.SystemSample{
		Timestamp:       t0,
		CPUPercent:      model.Float(42.5),
		CPUCountLogical: model.Int(8),
		MemoryUsed:      model.Uint(6 << 30),
		MemoryPercent:   model.Float(71.2),
		SwapUsed:        model.Uint(0),
		DiskReadRate:    model.Float(1024.5),
	}
	require.NoError(t, s.InsertSample(ctx, in))

	got, err := s.Range(ctx, t0.Add(-time.Second), t0.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, got, 1)

	out := got[0]
	assert.True(t, out.Timestamp.Equal(t0))
	assert.Equal(t, 42.5, *out.CPUPercent)
	assert.Equal(t, 8, *out.CPUCountLogical)
	assert.Equal(t, uint64(6<<30), *out.MemoryUsed)
	assert.Equal(t, uint64(0), *out.SwapUsed, "zero is stored, not dropped")
	assert.Nil(t, out.SwapPercent, "absent stays absent")
	assert.Nil(t, out.LoadAvg1)

	latest, ok, err := s.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, latest.Timestamp.Equal(t0))
}

func TestLatestEmpty(t *testing.T) {
	_, ok, err := openTest(t).Latest(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValuesForContext(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	// Tuesday morning, Tuesday afternoon, Saturday midday
	stamps := []time.Time{t0, t0.Add(time.Minute), t0.Add(5 * time.Hour), t0.AddDate(0, 0, 4).Add(3 * time.Hour)}
	for i, ts := range stamps {
		require.NoError(t, s.InsertSample(ctx, model.SystemSample{Timestamp: ts, CPUPercent: model.Float(float64(10 * (i + 1)))}))
	}
	// a sample with no cpu value is skipped
	require.NoError(t, s.InsertSample(ctx, model.SystemSample{Timestamp: t0.Add(2 * time.Minute)}))

	since := t0.Add(-time.Hour)
	morning, err := s.ValuesForContext(ctx, "cpu_percent", model.WeekdayMorning, since)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20}, morning)

	weekend, err := s.ValuesForContext(ctx, "cpu_percent", model.WeekendDay, since)
	require.NoError(t, err)
	assert.Equal(t, []float64{40}, weekend)

	later, err := s.ValuesForContext(ctx, "cpu_percent", model.WeekdayMorning, t0.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, []float64{20}, later)

	_, err = s.ValuesForContext(ctx, "cpu_percent; DROP TABLE baselines", model.WeekdayMorning, since)
	assert.True(t, errors.Is(err, ErrUnknownMetric))

	avg, ok, err := s.AverageMetric(ctx, "cpu_percent", since)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 25.0, avg)
}

func TestSnapshotAt(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	for _, ts := range []time.Time{t0, t0.Add(5 * time.Second)} {
		require.NoError(t, s.InsertSample(ctx, model.SystemSample{Timestamp: ts}))
	}
	require.NoError(t, s.InsertProcesses(ctx, t0, []model.Process{
		{Pid: 1, Name: "init", CPUPercent: 0.1, MemoryRSS: 1 << 20},
		{Pid: 42, PPid: 1, Name: "postgres", CPUPercent: 55, MemoryRSS: 512 << 20,
			CreateTime: t0.Add(-time.Hour),
			IO:         &model.IOCounters{ReadBytes: 4096, WriteBytes: 100, ReadCount: 2, WriteCount: 1}},
	}))
	require.NoError(t, s.InsertProcesses(ctx, t0.Add(5*time.Second), []model.Process{
		{Pid: 42, PPid: 1, Name: "postgres", CPUPercent: 80},
	}))

	snap, err := s.SnapshotAt(ctx, t0.Add(3*time.Second))
	require.NoError(t, err)
	require.Len(t, snap, 2)
	assert.Equal(t, int32(42), snap[0].Pid, "sorted by cpu desc")
	assert.Equal(t, int32(1), snap[0].PPid)
	require.NotNil(t, snap[0].IO)
	assert.Equal(t, uint64(4096), snap[0].IO.ReadBytes)
	assert.True(t, snap[0].CreateTime.Equal(t0.Add(-time.Hour)))
	assert.Nil(t, snap[1].IO)

	snap, err = s.SnapshotAt(ctx, t0.Add(10*time.Second))
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, 80.0, snap[0].CPUPercent)

	snap, err = s.SnapshotAt(ctx, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, snap, "outside the tolerance")

	byMem, err := s.TopProcessesByMemory(ctx, t0, 1)
	require.NoError(t, err)
	require.Len(t, byMem, 1)
	assert.Equal(t, "postgres", byMem[0].Name)

	hist, err := s.ProcessHistory(ctx, 42, t0.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, 80.0, hist[1].CPUPercent)
}

func TestAnomalyRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	a := &model.Anomaly{
		Timestamp:   t0,
		Type:        model.CPUSpike,
		Severity:    model.SeverityCritical,
		MetricName:  "cpu_percent",
		MetricValue: 97,
		ZScore:      4.2,
		Description: "Cpu Percent at 97.0% is 4.2 std devs above normal",
		RootCause: &model.RootCause{
			TopContributors: []model.Contributor{{Pid: 7, Name: "stress", CurrentValue: 90}},
			Summary:         "[CRITICAL] ...",
		},
	}
	require.NoError(t, s.InsertAnomaly(ctx, a))
	assert.NotZero(t, a.ID)
	require.NoError(t, s.InsertAnomaly(ctx, &model.Anomaly{
		Timestamp: t0.Add(-48 * time.Hour), Type: model.MemoryLeak, Severity: model.SeverityMedium,
	}))

	got, err := s.RecentAnomalies(ctx, t0.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.CPUSpike, got[0].Type)
	require.NotNil(t, got[0].RootCause)
	assert.Equal(t, "stress", got[0].RootCause.TopContributors[0].Name)

	all, err := s.AnomaliesBetween(ctx, t0.Add(-72*time.Hour), t0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Nil(t, all[1].RootCause)
}

func TestRecommendations(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	pid := int32(99)
	r := &model.Recommendation{
		Timestamp: t0, Type: "database_index", TargetProcess: "postgres", TargetPid: &pid,
		Recommendation: "Add an index", Priority: model.SeverityHigh,
	}
	require.NoError(t, s.InsertRecommendation(ctx, r))
	assert.Equal(t, "active", r.Status)

	has, err := s.HasRecentRecommendation(ctx, "database_index", t0.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.True(t, has)

	has, err = s.HasRecentRecommendation(ctx, "database_index", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, has)

	active, err := s.ActiveRecommendations(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.NotNil(t, active[0].TargetPid)
	assert.Equal(t, pid, *active[0].TargetPid)
	assert.Equal(t, model.SeverityHigh, active[0].Priority)
}

func TestBaselineUpsert(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	b := model.Baseline{MetricName: "cpu_percent", Context: model.WeekdayMorning, Mean: 30, StdDev: 5, Min: 1, Max: 80, SampleCount: 100, LastUpdated: t0}
	require.NoError(t, s.UpsertBaseline(ctx, b))
	b.Mean = 35
	b.SampleCount = 120
	require.NoError(t, s.UpsertBaseline(ctx, b))

	got, err := s.Baselines(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 35.0, got[0].Mean)
	assert.Equal(t, 120, got[0].SampleCount)
	assert.True(t, got[0].LastUpdated.Equal(t0))
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	old := t0.AddDate(0, 0, -10)
	for _, ts := range []time.Time{old, t0} {
		require.NoError(t, s.InsertSample(ctx, model.SystemSample{Timestamp: ts, CPUPercent: model.Float(1)}))
		require.NoError(t, s.InsertProcesses(ctx, ts, []model.Process{{Pid: 1, Name: "init"}}))
	}
	require.NoError(t, s.InsertAnomaly(ctx, &model.Anomaly{Timestamp: old, Type: model.CPUSpike, Severity: model.SeverityHigh}))
	require.NoError(t, s.InsertAnomaly(ctx, &model.Anomaly{Timestamp: t0.AddDate(0, 0, -40), Type: model.CPUSpike, Severity: model.SeverityHigh}))

	res, err := s.Cleanup(ctx, t0, 7, 30)
	require.NoError(t, err)
	assert.Equal(t, CleanupResult{Samples: 1, Processes: 1, Anomalies: 1}, res)

	counts, err := s.RowCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["system_metrics"])
	assert.Equal(t, int64(1), counts["process_metrics"])
	assert.Equal(t, int64(1), counts["anomalies"])
	assert.Len(t, counts, len(Tables))

	require.NoError(t, s.Vacuum(ctx))
	size, err := s.SizeMB(ctx)
	require.NoError(t, err)
	assert.Greater(t, size, 0.0)
}

func TestProcessesRequireSample(t *testing.T) {
	err := openTest(t).InsertProcesses(context.Background(), t0, []model.Process{{Pid: 1}})
	assert.Error(t, err, "foreign key enforced")
}
