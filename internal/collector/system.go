// internal/collector/system.go
package collector

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/signalnine/perfwatch/internal/model"
)

// gopsutil entry points, replaced in tests.
var (
	cpuPercent    = cpu.PercentWithContext
	cpuCounts     = cpu.CountsWithContext
	cpuInfo       = cpu.InfoWithContext
	loadAvg       = load.AvgWithContext
	virtualMemory = mem.VirtualMemoryWithContext
	swapMemory    = mem.SwapMemoryWithContext
	diskIO        = disk.IOCountersWithContext
	diskUsage     = disk.UsageWithContext
	hostInfo      = host.InfoWithContext
)

func (c *Collector) collectCPU(ctx context.Context, s *model.SystemSample) error {
	pct, err := cpuPercent(ctx, c.cpuInterval, false)
	if err != nil {
		return err
	}
	if len(pct) == 0 {
		return fmt.Errorf("cpu percent: empty result")
	}
	s.CPUPercent = model.Float(pct[0])

	if n, err := cpuCounts(ctx, true); err == nil {
		s.CPUCountLogical = model.Int(n)
	}
	if n, err := cpuCounts(ctx, false); err == nil {
		s.CPUCountPhysical = model.Int(n)
	}
	return nil
}

func (c *Collector) collectLoad(ctx context.Context, s *model.SystemSample) error {
	avg, err := loadAvg(ctx)
	if err != nil {
		return err
	}
	s.LoadAvg1 = model.Float(avg.Load1)
	s.LoadAvg5 = model.Float(avg.Load5)
	s.LoadAvg15 = model.Float(avg.Load15)
	return nil
}

func (c *Collector) collectMemory(ctx context.Context, s *model.SystemSample) error {
	vm, err := virtualMemory(ctx)
	if err != nil {
		return err
	}
	s.MemoryTotal = model.Uint(vm.Total)
	s.MemoryAvailable = model.Uint(vm.Available)
	s.MemoryUsed = model.Uint(vm.Used)
	s.MemoryPercent = model.Float(vm.UsedPercent)
	s.MemoryCached = model.Uint(vm.Cached)
	s.MemoryBuffers = model.Uint(vm.Buffers)
	return nil
}

func (c *Collector) collectSwap(ctx context.Context, s *model.SystemSample) error {
	sw, err := swapMemory(ctx)
	if err != nil {
		return err
	}
	s.SwapTotal = model.Uint(sw.Total)
	s.SwapUsed = model.Uint(sw.Used)
	s.SwapPercent = model.Float(sw.UsedPercent)
	return nil
}

type diskTotals struct {
	readBytes, writeBytes uint64
	readOps, writeOps     uint64
}

// collectDiskIO sums counters over all devices and reports the change since
// the previous call. The first call reports zero.
func (c *Collector) collectDiskIO(ctx context.Context, s *model.SystemSample) error {
	counters, err := diskIO(ctx)
	if err != nil {
		return err
	}
	var cur diskTotals
	for _, d := range counters {
		cur.readBytes += d.ReadBytes
		cur.writeBytes += d.WriteBytes
		cur.readOps += d.ReadCount
		cur.writeOps += d.WriteCount
	}

	var delta diskTotals
	var elapsed float64
	if c.prevDisk != nil {
		delta = diskTotals{
			readBytes:  counterDelta(cur.readBytes, c.prevDisk.readBytes),
			writeBytes: counterDelta(cur.writeBytes, c.prevDisk.writeBytes),
			readOps:    counterDelta(cur.readOps, c.prevDisk.readOps),
			writeOps:   counterDelta(cur.writeOps, c.prevDisk.writeOps),
		}
		elapsed = s.Timestamp.Sub(c.prevDiskAt).Seconds()
	}
	c.prevDisk = &cur
	c.prevDiskAt = s.Timestamp

	s.DiskReadBytesDelta = model.Uint(delta.readBytes)
	s.DiskWriteBytesDelta = model.Uint(delta.writeBytes)
	s.DiskReadOpsDelta = model.Uint(delta.readOps)
	s.DiskWriteOpsDelta = model.Uint(delta.writeOps)
	var rr, wr float64
	if elapsed > 0 {
		rr = float64(delta.readBytes) / elapsed
		wr = float64(delta.writeBytes) / elapsed
	}
	s.DiskReadRate = model.Float(rr)
	s.DiskWriteRate = model.Float(wr)
	return nil
}

// counterDelta treats a decreasing counter as a reset.
func counterDelta(cur, prev uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}

func (c *Collector) collectDiskUsage(ctx context.Context, s *model.SystemSample) error {
	path := c.cfg.DiskPath
	if path == "" {
		path = "/"
	}
	u, err := diskUsage(ctx, path)
	if err != nil {
		return err
	}
	s.DiskTotal = model.Uint(u.Total)
	s.DiskUsed = model.Uint(u.Used)
	s.DiskPercent = model.Float(u.UsedPercent)
	return nil
}
