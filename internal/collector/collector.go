// internal/collector/collector.go
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/signalnine/perfwatch/internal/config"
	"github.com/signalnine/perfwatch/internal/model"
)

// ErrNothingCollected is returned when every metric group failed.
var ErrNothingCollected = errors.New("no metrics could be collected")

// Collector samples host and process counters. Disk and per-process CPU
// figures are deltas against the previous call, so a Collector must not be
// shared between loops.
type Collector struct {
	cfg         config.CollectionConfig
	log         *zap.Logger
	clock       clock.Clock
	cpuInterval time.Duration

	prevDisk   *diskTotals
	prevDiskAt time.Time
	prevCPU    map[int32]cpuSeen
}

type cpuSeen struct {
	seconds float64
	created int64
	at      time.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Collector) { c.log = l }
}

// WithClock sets the clock used for timestamps and rates.
func WithClock(cl clock.Clock) Option {
	return func(c *Collector) { c.clock = cl }
}

// WithCPUInterval sets how long system CPU usage is measured over. Zero
// compares against the previous call instead of blocking.
func WithCPUInterval(d time.Duration) Option {
	return func(c *Collector) { c.cpuInterval = d }
}

// New returns a Collector for the given settings.
func New(cfg config.CollectionConfig, opts ...Option) *Collector {
	c := &Collector{
		cfg:         cfg,
		log:         zap.NewNop(),
		clock:       clock.New(),
		cpuInterval: time.Second,
		prevCPU:     make(map[int32]cpuSeen),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect takes one SystemSample and, when enabled, one ProcessSnapshot.
// Each metric group fails on its own; its fields are then left unset.
func (c *Collector) Collect(ctx context.Context) (model.SystemSample, model.ProcessSnapshot, error) {
	sample := model.SystemSample{Timestamp: c.clock.Now()}

	groups := []struct {
		name string
		fn   func(context.Context, *model.SystemSample) error
	}{
		{"cpu", c.collectCPU},
		{"load", c.collectLoad},
		{"memory", c.collectMemory},
		{"swap", c.collectSwap},
		{"disk_io", c.collectDiskIO},
		{"disk_usage", c.collectDiskUsage},
	}
	ok := 0
	for _, g := range groups {
		if err := g.fn(ctx, &sample); err != nil {
			c.log.Debug("metric group failed", zap.String("group", g.name), zap.Error(err))
			continue
		}
		ok++
	}
	if err := ctx.Err(); err != nil {
		return model.SystemSample{}, nil, err
	}
	if ok == 0 {
		return model.SystemSample{}, nil, ErrNothingCollected
	}

	if !c.cfg.EnableProcessMetrics {
		return sample, model.ProcessSnapshot{}, nil
	}
	snap, err := c.collectProcesses(ctx, sample.Timestamp)
	if err != nil {
		c.log.Warn("process collection failed", zap.Error(err))
		return sample, model.ProcessSnapshot{}, nil
	}
	return sample, snap, nil
}

// SystemInfo describes the host for the startup banner.
func (c *Collector) SystemInfo(ctx context.Context) (model.SystemInfo, error) {
	var info model.SystemInfo

	h, err := hostInfo(ctx)
	if err != nil {
		return info, fmt.Errorf("host info: %w", err)
	}
	info.Platform = h.Platform
	if info.Platform == "" {
		info.Platform = h.OS
	}
	info.PlatformVersion = h.PlatformVersion
	info.Processor = h.KernelArch

	if cpus, err := cpuInfo(ctx); err == nil && len(cpus) > 0 && cpus[0].ModelName != "" {
		info.Processor = cpus[0].ModelName
	}
	if n, err := cpuCounts(ctx, true); err == nil {
		info.CPUCountLogical = n
	}
	if n, err := cpuCounts(ctx, false); err == nil {
		info.CPUCountPhysical = n
	}
	return info, nil
}
