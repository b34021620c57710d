// internal/analysis/baseline.go
package analysis

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/signalnine/perfwatch/internal/model"
)

const (
	// MinBaselineSamples is the fewest values a baseline may be learned from.
	MinBaselineSamples = 10
	// MinStdDev floors every learned standard deviation.
	MinStdDev = 0.01
)

// MonitoredMetrics are evaluated against baselines, in this order.
var MonitoredMetrics = []string{
	model.MetricCPUPercent,
	model.MetricMemoryPercent,
	model.MetricSwapPercent,
}

// HistorySource yields historical values of a metric whose timestamps fall
// in the given context.
type HistorySource interface {
	ValuesForContext(ctx context.Context, metric string, tc model.TimeContext, since time.Time) ([]float64, error)
}

// BaselineWriter persists a refreshed baseline.
type BaselineWriter interface {
	UpsertBaseline(ctx context.Context, b model.Baseline) error
}

// BaselineReader is the read side the detector needs.
type BaselineReader interface {
	Get(metric string, tc model.TimeContext) (model.Baseline, bool)
}

type baselineKey struct {
	metric string
	tc     model.TimeContext
}

// BaselineStore caches one Baseline per (metric, context). Entries are
// replaced whole under the lock so readers never see a partial update.
type BaselineStore struct {
	mu        sync.RWMutex
	baselines map[baselineKey]model.Baseline

	log    *zap.Logger
	clock  clock.Clock
	writer BaselineWriter
}

// NewBaselineStore returns an empty store.
func NewBaselineStore(opts ...Option) *BaselineStore {
	o := buildOptions(opts)
	return &BaselineStore{
		baselines: make(map[baselineKey]model.Baseline),
		log:       o.log.Named("baseline"),
		clock:     o.clock,
		writer:    o.writer,
	}
}

// Load seeds the cache from persisted rows and returns how many were kept.
// Rows learned from too few samples are ignored.
func (s *BaselineStore) Load(rows []model.Baseline) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, b := range rows {
		if b.SampleCount < MinBaselineSamples {
			continue
		}
		if b.StdDev < MinStdDev {
			b.StdDev = MinStdDev
		}
		s.baselines[baselineKey{b.MetricName, b.Context}] = b
		n++
	}
	return n
}

// Refresh relearns every (monitored metric, context) pair from the trailing
// historyDays of data and returns the number of pairs updated. Pairs with
// fewer than MinBaselineSamples values keep their previous baseline. A
// failing pair is logged and does not stop the others.
func (s *BaselineStore) Refresh(ctx context.Context, src HistorySource, historyDays int) int {
	now := s.clock.Now()
	since := now.AddDate(0, 0, -historyDays)

	updated := 0
	for _, metric := range MonitoredMetrics {
		for _, tc := range model.AllContexts {
			if ctx.Err() != nil {
				return updated
			}
			values, err := src.ValuesForContext(ctx, metric, tc, since)
			if err != nil {
				s.log.Warn("baseline history query failed",
					zap.String("metric", metric), zap.String("context", string(tc)), zap.Error(err))
				continue
			}
			b, ok := computeBaseline(metric, tc, values, now)
			if !ok {
				continue
			}

			s.mu.Lock()
			s.baselines[baselineKey{metric, tc}] = b
			s.mu.Unlock()
			updated++

			if s.writer != nil {
				if err := s.writer.UpsertBaseline(ctx, b); err != nil {
					s.log.Warn("persist baseline failed",
						zap.String("metric", metric), zap.String("context", string(tc)), zap.Error(err))
				}
			}
		}
	}

	s.log.Info("baselines refreshed", zap.Int("updated", updated), zap.Int("history_days", historyDays))
	return updated
}

func computeBaseline(metric string, tc model.TimeContext, values []float64, now time.Time) (model.Baseline, bool) {
	if len(values) < MinBaselineSamples {
		return model.Baseline{}, false
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if math.IsNaN(std) || std < MinStdDev {
		std = MinStdDev
	}
	return model.Baseline{
		MetricName:  metric,
		Context:     tc,
		Mean:        mean,
		StdDev:      std,
		Min:         floats.Min(values),
		Max:         floats.Max(values),
		SampleCount: len(values),
		LastUpdated: now,
	}, true
}

// Get returns the cached baseline for (metric, tc).
func (s *BaselineStore) Get(metric string, tc model.TimeContext) (model.Baseline, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.baselines[baselineKey{metric, tc}]
	return b, ok
}

// All returns every cached baseline sorted by metric then context.
func (s *BaselineStore) All() []model.Baseline {
	s.mu.RLock()
	out := make([]model.Baseline, 0, len(s.baselines))
	for _, b := range s.baselines {
		out = append(out, b)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].MetricName != out[j].MetricName {
			return out[i].MetricName < out[j].MetricName
		}
		return out[i].Context < out[j].Context
	})
	return out
}

// Len returns the number of cached baselines.
func (s *BaselineStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.baselines)
}
