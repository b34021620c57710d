// internal/store/samples.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/signalnine/perfwatch/internal/model"
)

const sampleColumns = `timestamp, cpu_percent, cpu_count_logical, cpu_count_physical,
	load_avg_1min, load_avg_5min, load_avg_15min,
	memory_total, memory_available, memory_used, memory_percent, memory_cached, memory_buffers,
	swap_total, swap_used, swap_percent,
	disk_read_bytes_delta, disk_write_bytes_delta, disk_read_ops_delta, disk_write_ops_delta,
	disk_read_rate, disk_write_rate, disk_total, disk_used, disk_percent`

// metricColumns whitelists the metrics that may be queried by name.
var metricColumns = map[string]string{
	model.MetricCPUPercent:    "cpu_percent",
	model.MetricMemoryPercent: "memory_percent",
	model.MetricMemoryUsed:    "memory_used",
	model.MetricSwapPercent:   "swap_percent",
	model.MetricSwapUsed:      "swap_used",
	model.MetricDiskPercent:   "disk_percent",
	"load_avg_1min":           "load_avg_1min",
	"memory_available":        "memory_available",
	"disk_read_bytes_delta":   "disk_read_bytes_delta",
	"disk_write_bytes_delta":  "disk_write_bytes_delta",
}

func metricColumn(metric string) (string, error) {
	col, ok := metricColumns[metric]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}
	return col, nil
}

// InsertSample stores one system sample. A second sample in the same second
// is ignored.
func (s *Store) InsertSample(ctx context.Context, m model.SystemSample) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO system_metrics (`+sampleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTS(m.Timestamp), nullF(m.CPUPercent), nullI(m.CPUCountLogical), nullI(m.CPUCountPhysical),
		nullF(m.LoadAvg1), nullF(m.LoadAvg5), nullF(m.LoadAvg15),
		nullU(m.MemoryTotal), nullU(m.MemoryAvailable), nullU(m.MemoryUsed), nullF(m.MemoryPercent),
		nullU(m.MemoryCached), nullU(m.MemoryBuffers),
		nullU(m.SwapTotal), nullU(m.SwapUsed), nullF(m.SwapPercent),
		nullU(m.DiskReadBytesDelta), nullU(m.DiskWriteBytesDelta), nullU(m.DiskReadOpsDelta), nullU(m.DiskWriteOpsDelta),
		nullF(m.DiskReadRate), nullF(m.DiskWriteRate), nullU(m.DiskTotal), nullU(m.DiskUsed), nullF(m.DiskPercent),
	)
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

// Range returns the samples in [start, end] in time order.
func (s *Store) Range(ctx context.Context, start, end time.Time) ([]model.SystemSample, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sampleColumns+` FROM system_metrics
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp`, formatTS(start), formatTS(end))
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []model.SystemSample
	for rows.Next() {
		m, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Latest returns the most recent sample.
func (s *Store) Latest(ctx context.Context) (model.SystemSample, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sampleColumns+` FROM system_metrics ORDER BY timestamp DESC LIMIT 1`)
	m, err := scanSample(row)
	if err == sql.ErrNoRows {
		return model.SystemSample{}, false, nil
	}
	if err != nil {
		return model.SystemSample{}, false, fmt.Errorf("latest sample: %w", err)
	}
	return m, true, nil
}

// ValuesForContext returns the non-null values of metric recorded since the
// given time whose local timestamp falls in tc.
func (s *Store) ValuesForContext(ctx context.Context, metric string, tc model.TimeContext, since time.Time) ([]float64, error) {
	col, err := metricColumn(metric)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT timestamp, `+col+` FROM system_metrics
		WHERE timestamp >= ? AND `+col+` IS NOT NULL
		ORDER BY timestamp`, formatTS(since))
	if err != nil {
		return nil, fmt.Errorf("query %s history: %w", metric, err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var ts string
		var v float64
		if err := rows.Scan(&ts, &v); err != nil {
			return nil, fmt.Errorf("scan %s history: %w", metric, err)
		}
		if model.ContextFor(parseTS(ts)) == tc {
			out = append(out, v)
		}
	}
	return out, rows.Err()
}

// AverageMetric returns the mean of metric since the given time. ok is false
// when there is no data.
func (s *Store) AverageMetric(ctx context.Context, metric string, since time.Time) (avg float64, ok bool, err error) {
	col, err := metricColumn(metric)
	if err != nil {
		return 0, false, err
	}
	var v sql.NullFloat64
	err = s.db.QueryRowContext(ctx, `SELECT AVG(`+col+`) FROM system_metrics WHERE timestamp >= ?`, formatTS(since)).Scan(&v)
	if err != nil {
		return 0, false, fmt.Errorf("average %s: %w", metric, err)
	}
	return v.Float64, v.Valid, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSample(sc scanner) (model.SystemSample, error) {
	var (
		ts                                                       string
		cpu, load1, load5, load15, memPct, swapPct, rRate, wRate sql.NullFloat64
		diskPct                                                  sql.NullFloat64
		cpuLogical, cpuPhysical                                  sql.NullInt64
		memTotal, memAvail, memUsed, memCached, memBuffers       sql.NullInt64
		swapTotal, swapUsed                                      sql.NullInt64
		rBytes, wBytes, rOps, wOps, diskTotal, diskUsed          sql.NullInt64
	)
	err := sc.Scan(&ts, &cpu, &cpuLogical, &cpuPhysical,
		&load1, &load5, &load15,
		&memTotal, &memAvail, &memUsed, &memPct, &memCached, &memBuffers,
		&swapTotal, &swapUsed, &swapPct,
		&rBytes, &wBytes, &rOps, &wOps,
		&rRate, &wRate, &diskTotal, &diskUsed, &diskPct)
	if err != nil {
		return model.SystemSample{}, err
	}
	return model.SystemSample{
		Timestamp:           parseTS(ts),
		CPUPercent:          fromF(cpu),
		CPUCountLogical:     fromI(cpuLogical),
		CPUCountPhysical:    fromI(cpuPhysical),
		LoadAvg1:            fromF(load1),
		LoadAvg5:            fromF(load5),
		LoadAvg15:           fromF(load15),
		MemoryTotal:         fromU(memTotal),
		MemoryAvailable:     fromU(memAvail),
		MemoryUsed:          fromU(memUsed),
		MemoryPercent:       fromF(memPct),
		MemoryCached:        fromU(memCached),
		MemoryBuffers:       fromU(memBuffers),
		SwapTotal:           fromU(swapTotal),
		SwapUsed:            fromU(swapUsed),
		SwapPercent:         fromF(swapPct),
		DiskReadBytesDelta:  fromU(rBytes),
		DiskWriteBytesDelta: fromU(wBytes),
		DiskReadOpsDelta:    fromU(rOps),
		DiskWriteOpsDelta:   fromU(wOps),
		DiskReadRate:        fromF(rRate),
		DiskWriteRate:       fromF(wRate),
		DiskTotal:           fromU(diskTotal),
		DiskUsed:            fromU(diskUsed),
		DiskPercent:         fromF(diskPct),
	}, nil
}

func nullF(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullU(p *uint64) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func nullI(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func fromF(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return model.Float(v.Float64)
}

func fromU(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	return model.Uint(uint64(v.Int64))
}

func fromI(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	return model.Int(int(v.Int64))
}
