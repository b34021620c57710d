// internal/analysis/rootcause.go
package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/signalnine/perfwatch/internal/model"
)

const (
	timelineSpan     = 30 * time.Second
	previousOffset   = 30 * time.Second
	contributorScan  = 20
	contributorLimit = 10
)

// TimelineSource returns the samples recorded in [start, end].
type TimelineSource interface {
	Range(ctx context.Context, start, end time.Time) ([]model.SystemSample, error)
}

// ProcessHistory returns the process snapshot recorded closest to ts.
type ProcessHistory interface {
	SnapshotAt(ctx context.Context, ts time.Time) (model.ProcessSnapshot, error)
}

// Reconstructor explains anomalies in terms of the processes running at
// the time.
type Reconstructor struct {
	timeline  TimelineSource
	processes ProcessHistory
	log       *zap.Logger
}

// NewReconstructor returns a Reconstructor backed by the given history.
func NewReconstructor(t TimelineSource, p ProcessHistory, opts ...Option) *Reconstructor {
	o := buildOptions(opts)
	return &Reconstructor{
		timeline:  t,
		processes: p,
		log:       o.log.Named("rootcause"),
	}
}

// Explain builds a RootCause for a, attaches it and returns it. It never
// fails: errors end up in the summary of an otherwise empty RootCause.
func (r *Reconstructor) Explain(ctx context.Context, a *model.Anomaly, current model.ProcessSnapshot) (rc *model.RootCause) {
	defer func() {
		if p := recover(); p != nil {
			rc = failedRootCause(fmt.Errorf("panic: %v", p))
			r.log.Error("root cause analysis panicked", zap.Any("panic", p))
		}
		a.RootCause = rc
	}()

	rc, err := r.explain(ctx, a, current)
	if err != nil {
		r.log.Error("root cause analysis failed", zap.String("anomaly_type", string(a.Type)), zap.Error(err))
		return failedRootCause(err)
	}
	return rc
}

func failedRootCause(err error) *model.RootCause {
	return &model.RootCause{Summary: fmt.Sprintf("Root cause analysis failed: %v", err)}
}

func (r *Reconstructor) explain(ctx context.Context, a *model.Anomaly, current model.ProcessSnapshot) (*model.RootCause, error) {
	rc := &model.RootCause{}
	rc.Timeline = r.buildTimeline(ctx, a)

	if len(current) > 0 {
		contributors, err := r.rankContributors(ctx, a, current)
		if err != nil {
			return nil, err
		}
		rc.TopContributors = contributors
		if len(contributors) > 0 {
			rc.ProcessTree = buildProcessTree(contributors[0].Pid, current.ByPid())
		}
	}

	if a.Type == model.IOBottleneck || a.Type == model.SwapThrashing {
		rc.IOAnalysis = analyzeIO(current)
	}

	rc.Summary = summarize(a, rc)
	return rc, nil
}

// buildTimeline collects readings of the anomaly's metric within 30s either
// side of it. Query errors degrade to an empty timeline.
func (r *Reconstructor) buildTimeline(ctx context.Context, a *model.Anomaly) []model.TimelinePoint {
	if a.MetricName == "" {
		return nil
	}
	samples, err := r.timeline.Range(ctx, a.Timestamp.Add(-timelineSpan), a.Timestamp.Add(timelineSpan))
	if err != nil {
		r.log.Debug("timeline query failed", zap.Error(err))
		return nil
	}
	var out []model.TimelinePoint
	for _, s := range samples {
		if v, ok := s.Value(a.MetricName); ok {
			out = append(out, model.TimelinePoint{Timestamp: s.Timestamp, Value: v})
		}
	}
	return out
}

func contributionMetric(t model.AnomalyType) string {
	switch {
	case t.IsCPU():
		return "cpu_percent"
	case t.IsMemory(), t.IsIOOrSwap():
		return "memory_rss"
	}
	return "cpu_percent"
}

func processValue(p model.Process, metric string) float64 {
	if metric == "memory_rss" {
		return float64(p.MemoryRSS)
	}
	return p.CPUPercent
}

// rankContributors compares the first processes of the current snapshot
// with the snapshot from 30s earlier.
func (r *Reconstructor) rankContributors(ctx context.Context, a *model.Anomaly, current model.ProcessSnapshot) ([]model.Contributor, error) {
	metric := contributionMetric(a.Type)

	prev, err := r.processes.SnapshotAt(ctx, a.Timestamp.Add(-previousOffset))
	if err != nil {
		return nil, fmt.Errorf("previous process snapshot: %w", err)
	}
	prevByPid := prev.ByPid()

	scan := current
	if len(scan) > contributorScan {
		scan = scan[:contributorScan]
	}

	out := make([]model.Contributor, 0, len(scan))
	for _, p := range scan {
		cur := processValue(p, metric)
		var before float64
		old, seen := prevByPid[p.Pid]
		if seen {
			before = processValue(old, metric)
		}
		c := model.Contributor{
			Pid:           p.Pid,
			Name:          p.Name,
			Metric:        metric,
			CurrentValue:  cur,
			PreviousValue: before,
			Delta:         cur - before,
			IsNewProcess:  !seen,
		}
		c.Display = contributorDisplay(c)
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].CurrentValue) > math.Abs(out[j].CurrentValue)
	})
	if len(out) > contributorLimit {
		out = out[:contributorLimit]
	}
	return out, nil
}

// buildProcessTree walks ppid links up from pid and returns the chain root
// first. Each pid is visited at most once.
func buildProcessTree(pid int32, byPid map[int32]model.Process) []model.TreeNode {
	var chain []model.TreeNode
	visited := make(map[int32]bool)

	for pid != 0 && !visited[pid] {
		visited[pid] = true
		p, ok := byPid[pid]
		if !ok {
			break
		}
		chain = append(chain, model.TreeNode{
			Pid:        p.Pid,
			Name:       p.Name,
			CPUPercent: p.CPUPercent,
			MemoryRSS:  p.MemoryRSS,
		})
		pid = p.PPid
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
