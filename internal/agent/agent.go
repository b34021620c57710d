// internal/agent/agent.go
package agent

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/signalnine/perfwatch/internal/analysis"
	"github.com/signalnine/perfwatch/internal/config"
	"github.com/signalnine/perfwatch/internal/metrics"
	"github.com/signalnine/perfwatch/internal/model"
	"github.com/signalnine/perfwatch/internal/report"
	"github.com/signalnine/perfwatch/internal/store"
)

// Collector takes one reading of the host.
type Collector interface {
	Collect(ctx context.Context) (model.SystemSample, model.ProcessSnapshot, error)
}

// Store is the persistence the loop writes through.
type Store interface {
	analysis.HistorySource
	InsertSample(ctx context.Context, s model.SystemSample) error
	InsertProcesses(ctx context.Context, ts time.Time, procs []model.Process) error
	InsertAnomaly(ctx context.Context, a *model.Anomaly) error
	RecentRecommendations(ctx context.Context, since time.Time) ([]model.Recommendation, error)
	Baselines(ctx context.Context) ([]model.Baseline, error)
	Cleanup(ctx context.Context, now time.Time, retentionDays, eventRetentionDays int) (store.CleanupResult, error)
	SizeMB(ctx context.Context) (float64, error)
}

// Baselines is the learned-baseline cache.
type Baselines interface {
	Load(rows []model.Baseline) int
	Refresh(ctx context.Context, src analysis.HistorySource, historyDays int) int
	Len() int
}

// Detector flags anomalies in one sample.
type Detector interface {
	Evaluate(s model.SystemSample) []*model.Anomaly
}

// Explainer attaches a root cause to an anomaly.
type Explainer interface {
	Explain(ctx context.Context, a *model.Anomaly, current model.ProcessSnapshot) *model.RootCause
}

// Recommender turns one cycle's state into remediation advice.
type Recommender interface {
	Generate(ctx context.Context, s model.SystemSample, procs model.ProcessSnapshot) []*model.Recommendation
}

// Dashboard draws one frame of the live console view.
type Dashboard interface {
	Dashboard(d report.DashboardData) error
}

// Deps wires the loop's collaborators. Dashboard may be nil.
type Deps struct {
	Config      *config.Config
	Collector   Collector
	Store       Store
	Baselines   Baselines
	Detector    Detector
	Explainer   Explainer
	Recommender Recommender
	Dashboard   Dashboard
	Logger      *zap.Logger
	Clock       clock.Clock
}

// Agent runs the collect → store → detect → explain → recommend cycle.
type Agent struct {
	Deps
	log    *zap.Logger
	cycles atomic.Int64

	lastRefresh time.Time
}

// New creates an agent.
func New(d Deps) *Agent {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	return &Agent{Deps: d, log: d.Logger.Named("agent")}
}

// Cycles returns how many cycles completed a collection.
func (a *Agent) Cycles() int { return int(a.cycles.Load()) }

// Run loads baselines, runs one cycle immediately and then one per
// collection interval until ctx is done. Cycles never overlap.
func (a *Agent) Run(ctx context.Context) error {
	interval := a.Config.Collection.Interval
	a.log.Info("monitor starting",
		zap.Duration("interval", interval), zap.String("state_dir", a.Config.Storage.StateDir))

	a.loadBaselines(ctx)

	ticker := a.Clock.Ticker(interval)
	defer ticker.Stop()

	// Run immediately on start
	a.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("monitor shutting down", zap.Int("cycles", a.Cycles()))
			return nil
		case <-ticker.C:
			a.cycle(ctx)
		}
	}
}

func (a *Agent) loadBaselines(ctx context.Context) {
	rows, err := a.Store.Baselines(ctx)
	if err != nil {
		a.log.Warn("load baselines failed", zap.Error(err))
	}
	n := a.Baselines.Load(rows)
	a.log.Info("baselines loaded", zap.Int("count", n))
	if n == 0 {
		a.refreshBaselines(ctx)
	} else {
		a.lastRefresh = a.Clock.Now()
	}
	metrics.BaselinesLoaded.Set(float64(a.Baselines.Len()))
}

func (a *Agent) refreshBaselines(ctx context.Context) {
	a.Baselines.Refresh(ctx, a.Store, a.Config.Analysis.BaselineHistoryDays)
	a.lastRefresh = a.Clock.Now()
	metrics.BaselineRefreshes.Inc()
	metrics.BaselinesLoaded.Set(float64(a.Baselines.Len()))
}

func (a *Agent) cycle(ctx context.Context) {
	started := a.Clock.Now()

	sample, procs, err := a.Collector.Collect(ctx)
	if err != nil {
		a.log.Error("collection failed, skipping cycle", zap.Error(err))
		metrics.CyclesTotal.WithLabelValues("collect_error").Inc()
		return
	}
	n := a.cycles.Add(1)
	observeSample(sample)

	a.persist(ctx, sample, procs)

	anomalies := a.Detector.Evaluate(sample)
	for _, an := range anomalies {
		a.Explainer.Explain(ctx, an, procs)
		if err := a.Store.InsertAnomaly(ctx, an); err != nil {
			a.log.Error("store anomaly failed", zap.String("type", string(an.Type)), zap.Error(err))
			metrics.StoreErrorsTotal.WithLabelValues("anomaly").Inc()
		}
		metrics.AnomaliesTotal.WithLabelValues(string(an.Type), string(an.Severity)).Inc()
	}

	for _, rec := range a.Recommender.Generate(ctx, sample, procs) {
		metrics.RecommendationsTotal.WithLabelValues(rec.Type).Inc()
	}

	now := a.Clock.Now()
	if now.Sub(a.lastRefresh) >= a.Config.Analysis.BaselineRefreshInterval {
		a.refreshBaselines(ctx)
	}

	sizeMB, err := a.Store.SizeMB(ctx)
	if err != nil {
		a.log.Debug("database size unavailable", zap.Error(err))
	}
	metrics.DatabaseSizeMB.Set(sizeMB)

	if a.Dashboard != nil && a.Config.Display.Dashboard {
		a.render(ctx, int(n), sample, procs, anomalies, sizeMB, now)
	}

	a.maybeCleanup(ctx, now)

	metrics.CyclesTotal.WithLabelValues("ok").Inc()
	metrics.CycleDuration.Observe(a.Clock.Since(started).Seconds())
}

func (a *Agent) persist(ctx context.Context, sample model.SystemSample, procs model.ProcessSnapshot) {
	if err := a.Store.InsertSample(ctx, sample); err != nil {
		a.log.Error("store sample failed", zap.Error(err))
		metrics.StoreErrorsTotal.WithLabelValues("sample").Inc()
		return
	}
	if len(procs) == 0 {
		return
	}
	top := procs[:min(len(procs), a.Config.Collection.StoredProcesses)]
	if err := a.Store.InsertProcesses(ctx, sample.Timestamp, top); err != nil {
		a.log.Error("store processes failed", zap.Int("count", len(top)), zap.Error(err))
		metrics.StoreErrorsTotal.WithLabelValues("processes").Inc()
	}
}

func (a *Agent) render(ctx context.Context, cycle int, sample model.SystemSample, procs model.ProcessSnapshot,
	anomalies []*model.Anomaly, sizeMB float64, now time.Time) {
	recs, err := a.Store.RecentRecommendations(ctx, now.Add(-24*time.Hour))
	if err != nil {
		a.log.Debug("recent recommendations unavailable", zap.Error(err))
	}
	err = a.Dashboard.Dashboard(report.DashboardData{
		Cycle:           cycle,
		Sample:          sample,
		Processes:       procs,
		Anomalies:       anomalies,
		Recommendations: recs,
		DBSizeMB:        sizeMB,
	})
	if err != nil {
		a.log.Warn("dashboard render failed", zap.Error(err))
	}
}

// maybeCleanup applies retention once per cleanup interval. The last run is
// persisted so restarts keep the cadence.
func (a *Agent) maybeCleanup(ctx context.Context, now time.Time) {
	path := filepath.Join(a.Config.Storage.StateDir, lastCleanupFile)
	last, err := ReadTimestamp(path)
	if err != nil {
		a.log.Warn("read cleanup state failed", zap.Error(err))
	}
	if !last.IsZero() && now.Sub(last) < a.Config.Storage.CleanupInterval {
		return
	}

	res, err := a.Store.Cleanup(ctx, now, a.Config.Storage.RetentionDays, a.Config.Storage.EventRetentionDays)
	if err != nil {
		a.log.Error("retention cleanup failed", zap.Error(err))
		metrics.StoreErrorsTotal.WithLabelValues("cleanup").Inc()
		return
	}
	metrics.CleanupRowsDeleted.WithLabelValues("system_metrics").Add(float64(res.Samples))
	metrics.CleanupRowsDeleted.WithLabelValues("process_metrics").Add(float64(res.Processes))
	metrics.CleanupRowsDeleted.WithLabelValues("anomalies").Add(float64(res.Anomalies))
	metrics.CleanupRowsDeleted.WithLabelValues("recommendations").Add(float64(res.Recommendations))

	if err := WriteTimestamp(path, now); err != nil {
		a.log.Warn("write cleanup state failed", zap.Error(err))
	}
}

func observeSample(s model.SystemSample) {
	if s.CPUPercent != nil {
		metrics.HostCPUPercent.Set(*s.CPUPercent)
	}
	if s.MemoryPercent != nil {
		metrics.HostMemoryPercent.Set(*s.MemoryPercent)
	}
	if s.SwapPercent != nil {
		metrics.HostSwapPercent.Set(*s.SwapPercent)
	}
}
