// internal/recommend/recommend.go
package recommend

import (
	"context"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/signalnine/perfwatch/internal/config"
	"github.com/signalnine/perfwatch/internal/model"
)

// Store records recommendations and answers cooldown queries.
type Store interface {
	HasRecentRecommendation(ctx context.Context, recType string, since time.Time) (bool, error)
	InsertRecommendation(ctx context.Context, r *model.Recommendation) error
}

// check inspects one cycle's state and returns a recommendation or nil.
type check struct {
	name string
	fn   func(in input) *model.Recommendation
}

type input struct {
	now    time.Time
	sample model.SystemSample
	procs  model.ProcessSnapshot
}

// Recommender runs rule-based heuristics over each sample and keeps each
// recommendation type quiet for a cooldown after it fires.
type Recommender struct {
	cfg    config.RecommendationConfig
	store  Store
	log    *zap.Logger
	clock  clock.Clock
	checks []check
}

// Option configures a Recommender.
type Option func(*Recommender)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Recommender) { r.log = l }
}

// WithClock sets the clock used for cooldowns and process runtimes.
func WithClock(c clock.Clock) Option {
	return func(r *Recommender) { r.clock = c }
}

// New returns a Recommender persisting through store.
func New(cfg config.RecommendationConfig, store Store, opts ...Option) *Recommender {
	r := &Recommender{
		cfg:   cfg,
		store: store,
		log:   zap.NewNop(),
		clock: clock.New(),
		checks: []check{
			{TypeDatabaseIndex, checkDatabaseIndex},
			{TypeMemoryUpgrade, checkMemoryUpgrade},
			{TypeChromeTabs, checkChromeTabs},
			{TypeDockerLimits, checkDockerLimits},
			{TypeBuildOptimization, checkBuildOptimization},
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generate runs every heuristic and returns the recommendations that were
// stored. A type already recommended within the cooldown is skipped.
func (r *Recommender) Generate(ctx context.Context, sample model.SystemSample, procs model.ProcessSnapshot) []*model.Recommendation {
	if !r.cfg.Enabled {
		return nil
	}
	now := r.clock.Now()
	since := now.Add(-time.Duration(r.cfg.CooldownHours) * time.Hour)
	in := input{now: now, sample: sample, procs: procs}

	var out []*model.Recommendation
	for _, c := range r.checks {
		rec := r.run(c, in)
		if rec == nil {
			continue
		}
		recent, err := r.store.HasRecentRecommendation(ctx, rec.Type, since)
		if err != nil {
			r.log.Warn("cooldown lookup failed", zap.String("type", rec.Type), zap.Error(err))
			continue
		}
		if recent {
			continue
		}
		if err := r.store.InsertRecommendation(ctx, rec); err != nil {
			r.log.Warn("store recommendation failed", zap.String("type", rec.Type), zap.Error(err))
			continue
		}
		r.log.Info("new recommendation",
			zap.String("priority", strings.ToUpper(string(rec.Priority))), zap.String("type", rec.Type))
		out = append(out, rec)
	}
	return out
}

func (r *Recommender) run(c check, in input) (rec *model.Recommendation) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Debug("heuristic failed", zap.String("check", c.name), zap.Any("panic", p))
			rec = nil
		}
	}()
	rec = c.fn(in)
	if rec != nil {
		rec.Timestamp = in.sample.Timestamp
		rec.Status = "active"
	}
	return rec
}
