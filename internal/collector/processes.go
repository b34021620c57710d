// internal/collector/processes.go
package collector

import (
	"context"
	"sort"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/signalnine/perfwatch/internal/model"
)

// rawProcess is a process as read from the OS, before CPU usage is derived.
type rawProcess struct {
	model.Process
	cpuSeconds float64
	createdMs  int64
}

// readProcesses is replaced in tests.
var readProcesses = readAllProcesses

func readAllProcesses(ctx context.Context, withIO bool) ([]rawProcess, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]rawProcess, 0, len(procs))
	for _, p := range procs {
		// a process that vanished or denies access is skipped
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		mi, err := p.MemoryInfoWithContext(ctx)
		if err != nil {
			continue
		}
		rp := rawProcess{Process: model.Process{
			Pid:       p.Pid,
			Name:      name,
			MemoryRSS: mi.RSS,
			MemoryVMS: mi.VMS,
		}}
		if t, err := p.TimesWithContext(ctx); err == nil {
			rp.cpuSeconds = t.User + t.System
		}
		if ppid, err := p.PpidWithContext(ctx); err == nil {
			rp.PPid = ppid
		}
		if user, err := p.UsernameWithContext(ctx); err == nil {
			rp.Username = user
		}
		if st, err := p.StatusWithContext(ctx); err == nil && len(st) > 0 {
			rp.Status = st[0]
		}
		if pct, err := p.MemoryPercentWithContext(ctx); err == nil {
			rp.MemoryPercent = float64(pct)
		}
		if n, err := p.NumThreadsWithContext(ctx); err == nil {
			rp.NumThreads = n
		}
		if ms, err := p.CreateTimeWithContext(ctx); err == nil {
			rp.createdMs = ms
			rp.CreateTime = time.UnixMilli(ms)
		}
		if withIO {
			if io, err := p.IOCountersWithContext(ctx); err == nil {
				rp.IO = &model.IOCounters{
					ReadBytes:  io.ReadBytes,
					WriteBytes: io.WriteBytes,
					ReadCount:  io.ReadCount,
					WriteCount: io.WriteCount,
				}
			}
		}
		out = append(out, rp)
	}
	return out, nil
}

// collectProcesses reads every process, derives CPU usage from CPU time
// consumed since the previous call and keeps the busiest ones.
func (c *Collector) collectProcesses(ctx context.Context, now time.Time) (model.ProcessSnapshot, error) {
	raw, err := readProcesses(ctx, c.cfg.EnableIOMetrics)
	if err != nil {
		return nil, err
	}

	seen := make(map[int32]cpuSeen, len(raw))
	snap := make(model.ProcessSnapshot, 0, len(raw))
	for _, rp := range raw {
		p := rp.Process
		// a reused pid has a different create time
		if prev, ok := c.prevCPU[p.Pid]; ok && prev.created == rp.createdMs {
			if wall := now.Sub(prev.at).Seconds(); wall > 0 && rp.cpuSeconds >= prev.seconds {
				p.CPUPercent = (rp.cpuSeconds - prev.seconds) * 100 / wall
			}
		}
		seen[p.Pid] = cpuSeen{seconds: rp.cpuSeconds, created: rp.createdMs, at: now}
		snap = append(snap, p)
	}
	c.prevCPU = seen

	sort.SliceStable(snap, func(i, j int) bool { return snap[i].CPUPercent > snap[j].CPUPercent })
	if limit := c.cfg.MaxProcessesTracked; limit > 0 && len(snap) > limit {
		snap = snap[:limit]
	}
	return snap, nil
}
