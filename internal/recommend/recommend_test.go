// internal/recommend/recommend_test.go
package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/perfwatch/internal/config"
	"github.com/signalnine/perfwatch/internal/model"
)

var t0 = time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)

type fakeStore struct {
	recs      []*model.Recommendation
	recentErr error
	insertErr error
}

func (f *fakeStore) HasRecentRecommendation(_ context.Context, recType string, since time.Time) (bool, error) {
	if f.recentErr != nil {
		return false, f.recentErr
	}
	for _, r := range f.recs {
		if r.Type == recType && !r.Timestamp.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) InsertRecommendation(_ context.Context, r *model.Recommendation) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	r.ID = int64(len(f.recs) + 1)
	f.recs = append(f.recs, r)
	return nil
}

func newTestRecommender(store Store) (*Recommender, *clock.Mock) {
	clk := clock.NewMock()
	clk.Set(t0)
	cfg := config.RecommendationConfig{Enabled: true, CooldownHours: 24}
	return New(cfg, store, WithClock(clk)), clk
}

func quietSample() model.SystemSample {
	return model.SystemSample{
		Timestamp:       t0,
		CPUPercent:      model.Float(80),
		CPUCountLogical: model.Int(8),
		MemoryTotal:     model.Uint(16 * gib),
		MemoryUsed:      model.Uint(8 * gib),
		MemoryPercent:   model.Float(50),
		SwapUsed:        model.Uint(0),
	}
}

func TestDatabaseIndex(t *testing.T) {
	store := &fakeStore{}
	r, _ := newTestRecommender(store)

	procs := model.ProcessSnapshot{{
		Pid:  4242,
		Name: "postgres",
		IO:   &model.IOCounters{ReadCount: 20000, ReadBytes: 20000 * 4096},
	}}
	recs := r.Generate(context.Background(), quietSample(), procs)

	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, TypeDatabaseIndex, rec.Type)
	assert.Equal(t, "postgres (PID 4242)", rec.TargetProcess)
	require.NotNil(t, rec.TargetPid)
	assert.Equal(t, int32(4242), *rec.TargetPid)
	assert.Equal(t, model.SeverityHigh, rec.Priority)
	assert.Equal(t, "active", rec.Status)
	assert.Equal(t, t0, rec.Timestamp)
	assert.Contains(t, rec.IssueDescription, "Read operations: 20,000/sample")
	assert.Contains(t, rec.IssueDescription, "Average read size: 4.0 KiB")
	assert.Contains(t, rec.Recommendation, "4. Monitor postgres after adding indexes")
	assert.Len(t, store.recs, 1)
}

func TestDatabaseIndexLargeReadsIgnored(t *testing.T) {
	r, _ := newTestRecommender(&fakeStore{})
	procs := model.ProcessSnapshot{
		{Pid: 1, Name: "mysqld", IO: &model.IOCounters{ReadCount: 20000, ReadBytes: 20000 * 65536}},
		{Pid: 2, Name: "mongod", IO: &model.IOCounters{ReadCount: 50, ReadBytes: 50}},
		{Pid: 3, Name: "postgres"},
	}
	assert.Empty(t, r.Generate(context.Background(), quietSample(), procs))
}

func TestMemoryUpgrade(t *testing.T) {
	r, _ := newTestRecommender(&fakeStore{})

	s := quietSample()
	s.MemoryUsed = model.Uint(14 * gib)
	s.MemoryPercent = model.Float(90)
	s.SwapUsed = model.Uint(gib)

	procs := model.ProcessSnapshot{
		{Pid: 1, Name: "small", MemoryRSS: 1 << 20},
		{Pid: 2, Name: "java", MemoryRSS: 4 * gib},
	}
	recs := r.Generate(context.Background(), s, procs)

	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, TypeMemoryUpgrade, rec.Type)
	assert.Equal(t, "system", rec.TargetProcess)
	assert.Nil(t, rec.TargetPid)
	// 14 GB * 1.3 = 18.2 GB, next size up is 24.
	assert.Contains(t, rec.Recommendation, "Upgrade to 24 GB RAM.")
	assert.Contains(t, rec.Recommendation, "Top memory consumers:\n  - java: 4.0 GiB\n  - small: 1.0 MiB")
	assert.Contains(t, rec.IssueDescription, "Swap: 1.0 GB")
}

func TestMemoryUpgradeNeedsSwap(t *testing.T) {
	r, _ := newTestRecommender(&fakeStore{})
	s := quietSample()
	s.MemoryPercent = model.Float(95)
	s.SwapUsed = model.Uint(100 << 20)
	assert.Empty(t, r.Generate(context.Background(), s, nil))
}

func TestMemoryUpgradeCapsAtLargestSize(t *testing.T) {
	in := input{now: t0, sample: model.SystemSample{
		MemoryTotal:   model.Uint(128 * gib),
		MemoryUsed:    model.Uint(120 * gib),
		MemoryPercent: model.Float(94),
		SwapUsed:      model.Uint(2 * gib),
	}}
	rec := checkMemoryUpgrade(in)
	require.NotNil(t, rec)
	assert.Contains(t, rec.Recommendation, "Upgrade to 128 GB RAM.")
}

func chromeProcs(n int, each uint64, started time.Time) model.ProcessSnapshot {
	var out model.ProcessSnapshot
	for i := 0; i < n; i++ {
		out = append(out, model.Process{
			Pid:        int32(100 + i),
			Name:       "chrome",
			MemoryRSS:  each,
			CreateTime: started,
		})
	}
	return out
}

func TestChromeTabs(t *testing.T) {
	r, _ := newTestRecommender(&fakeStore{})

	procs := chromeProcs(12, gib/3, t0.Add(-72*time.Hour))
	recs := r.Generate(context.Background(), quietSample(), procs)

	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, TypeChromeTabs, rec.Type)
	assert.Equal(t, "chrome (12 processes)", rec.TargetProcess)
	assert.Equal(t, model.SeverityMedium, rec.Priority)
	assert.Contains(t, rec.IssueDescription, "~4 tabs")
	assert.Contains(t, rec.IssueDescription, "Runtime: 72 hours")
	assert.Equal(t, "Reclaim 2.0-2.8 GB RAM", rec.EstimatedImpact)
}

func TestChromeTabsModestUsageIgnored(t *testing.T) {
	r, _ := newTestRecommender(&fakeStore{})

	// 2.5 GB, few tabs, short runtime.
	procs := chromeProcs(10, gib/4, t0.Add(-2*time.Hour))
	assert.Empty(t, r.Generate(context.Background(), quietSample(), procs))

	// Under 2 GB never triggers.
	procs = chromeProcs(100, 10<<20, t0.Add(-100*time.Hour))
	assert.Empty(t, r.Generate(context.Background(), quietSample(), procs))
}

func TestDockerLimits(t *testing.T) {
	r, _ := newTestRecommender(&fakeStore{})

	procs := model.ProcessSnapshot{
		{Pid: 10, Name: "dockerd", MemoryRSS: 1 * gib},
		{Pid: 11, Name: "containerd-shim", MemoryRSS: 5 * gib},
		{Pid: 12, Name: "bash", MemoryRSS: 8 * gib},
	}
	recs := r.Generate(context.Background(), quietSample(), procs)

	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, TypeDockerLimits, rec.Type)
	assert.Equal(t, "docker containers", rec.TargetProcess)
	assert.Contains(t, rec.IssueDescription, "6.0 GB (38% of RAM) across 2 processes")
	assert.Contains(t, rec.Recommendation, "  - containerd-shim (PID 11): 5.0 GiB\n  - dockerd (PID 10): 1.0 GiB")
}

func TestDockerLimitsSmallFootprintIgnored(t *testing.T) {
	r, _ := newTestRecommender(&fakeStore{})
	procs := model.ProcessSnapshot{{Pid: 10, Name: "dockerd", MemoryRSS: gib}}
	assert.Empty(t, r.Generate(context.Background(), quietSample(), procs))
}

func TestBuildOptimization(t *testing.T) {
	r, _ := newTestRecommender(&fakeStore{})

	s := quietSample()
	s.CPUPercent = model.Float(20)
	procs := model.ProcessSnapshot{
		{Pid: 500, Name: "make"},
		{Pid: 501, Name: "gcc"},
		{Pid: 502, Name: "gcc-wrapper"},
		{Pid: 503, Name: "cc"},
		{Pid: 504, Name: "rustc"},
	}
	recs := r.Generate(context.Background(), s, procs)

	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, TypeBuildOptimization, rec.Type)
	assert.Equal(t, "compiler (make, gcc, cc)", rec.TargetProcess)
	require.NotNil(t, rec.TargetPid)
	assert.Equal(t, int32(500), *rec.TargetPid)
	assert.Equal(t, "7-8x faster builds", rec.EstimatedImpact)
	assert.Contains(t, rec.Recommendation, "make -j8")
}

func TestBuildOptimizationBusyCPUIgnored(t *testing.T) {
	r, _ := newTestRecommender(&fakeStore{})
	procs := model.ProcessSnapshot{{Pid: 500, Name: "make"}}
	assert.Empty(t, r.Generate(context.Background(), quietSample(), procs))
}

func TestCooldown(t *testing.T) {
	store := &fakeStore{}
	r, clk := newTestRecommender(store)
	procs := model.ProcessSnapshot{{Pid: 1, Name: "dockerd", MemoryRSS: 7 * gib}}

	s := quietSample()
	require.Len(t, r.Generate(context.Background(), s, procs), 1)

	clk.Add(23 * time.Hour)
	s.Timestamp = clk.Now()
	assert.Empty(t, r.Generate(context.Background(), s, procs), "still within cooldown")

	clk.Add(2 * time.Hour)
	s.Timestamp = clk.Now()
	assert.Len(t, r.Generate(context.Background(), s, procs), 1)
	assert.Len(t, store.recs, 2)
}

func TestHeuristicOrder(t *testing.T) {
	r, _ := newTestRecommender(&fakeStore{})

	s := quietSample()
	s.CPUPercent = model.Float(10)
	s.MemoryUsed = model.Uint(15 * gib)
	s.MemoryPercent = model.Float(92)
	s.SwapUsed = model.Uint(2 * gib)
	procs := model.ProcessSnapshot{
		{Pid: 1, Name: "make"},
		{Pid: 2, Name: "dockerd", MemoryRSS: 7 * gib},
		{Pid: 3, Name: "postgres", IO: &model.IOCounters{ReadCount: 10000, ReadBytes: 10000 * 512}},
	}

	var types []string
	for _, rec := range r.Generate(context.Background(), s, procs) {
		types = append(types, rec.Type)
	}
	assert.Equal(t, []string{TypeDatabaseIndex, TypeMemoryUpgrade, TypeDockerLimits, TypeBuildOptimization}, types)
}

func TestStoreErrorsSkipRecommendation(t *testing.T) {
	procs := model.ProcessSnapshot{{Pid: 1, Name: "dockerd", MemoryRSS: 7 * gib}}

	r, _ := newTestRecommender(&fakeStore{recentErr: errors.New("db locked")})
	assert.Empty(t, r.Generate(context.Background(), quietSample(), procs))

	r, _ = newTestRecommender(&fakeStore{insertErr: errors.New("disk full")})
	assert.Empty(t, r.Generate(context.Background(), quietSample(), procs))
}

func TestPanickingHeuristicSkipped(t *testing.T) {
	r, _ := newTestRecommender(&fakeStore{})
	r.checks = append([]check{{"boom", func(input) *model.Recommendation {
		panic("bad input")
	}}}, r.checks...)

	procs := model.ProcessSnapshot{{Pid: 1, Name: "dockerd", MemoryRSS: 7 * gib}}
	recs := r.Generate(context.Background(), quietSample(), procs)
	require.Len(t, recs, 1)
	assert.Equal(t, TypeDockerLimits, recs[0].Type)
}

func TestDisabled(t *testing.T) {
	r := New(config.RecommendationConfig{Enabled: false, CooldownHours: 24}, &fakeStore{})
	procs := model.ProcessSnapshot{{Pid: 1, Name: "dockerd", MemoryRSS: 7 * gib}}
	assert.Nil(t, r.Generate(context.Background(), quietSample(), procs))
}
