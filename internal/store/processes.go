// internal/store/processes.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/signalnine/perfwatch/internal/model"
)

// snapshotTolerance is how far before the requested time SnapshotAt will
// look for a stored snapshot.
const snapshotTolerance = 15 * time.Second

const processColumns = `pid, ppid, name, username, status, cpu_percent, memory_rss, memory_vms,
	memory_percent, num_threads, create_time, io_read_bytes, io_write_bytes, io_read_count, io_write_count`

// InsertProcesses stores a process snapshot taken at ts in one transaction.
// The sample for ts must already be stored.
func (s *Store) InsertProcesses(ctx context.Context, ts time.Time, procs []model.Process) error {
	if len(procs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin process insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO process_metrics (timestamp, `+processColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare process insert: %w", err)
	}
	defer stmt.Close()

	stamp := formatTS(ts)
	for _, p := range procs {
		var rb, wb, rc, wc any
		if p.IO != nil {
			rb, wb = int64(p.IO.ReadBytes), int64(p.IO.WriteBytes)
			rc, wc = int64(p.IO.ReadCount), int64(p.IO.WriteCount)
		}
		var created any
		if !p.CreateTime.IsZero() {
			created = formatTS(p.CreateTime)
		}
		_, err := stmt.ExecContext(ctx, stamp, p.Pid, p.PPid, p.Name, p.Username, p.Status,
			p.CPUPercent, int64(p.MemoryRSS), int64(p.MemoryVMS), p.MemoryPercent, p.NumThreads,
			created, rb, wb, rc, wc)
		if err != nil {
			return fmt.Errorf("insert process %d: %w", p.Pid, err)
		}
	}
	return tx.Commit()
}

// SnapshotAt returns the latest snapshot taken at or before ts, no more than
// 15s earlier, ordered by CPU descending. It is empty when none matches.
func (s *Store) SnapshotAt(ctx context.Context, ts time.Time) (model.ProcessSnapshot, error) {
	var at sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(timestamp) FROM process_metrics
		WHERE timestamp <= ? AND timestamp >= ?`,
		formatTS(ts), formatTS(ts.Add(-snapshotTolerance))).Scan(&at)
	if err != nil {
		return nil, fmt.Errorf("locate snapshot: %w", err)
	}
	if !at.Valid {
		return model.ProcessSnapshot{}, nil
	}
	return s.queryProcesses(ctx, `SELECT `+processColumns+` FROM process_metrics
		WHERE timestamp = ? ORDER BY cpu_percent DESC`, at.String)
}

// TopProcessesByCPU returns the busiest processes of the snapshot at ts.
func (s *Store) TopProcessesByCPU(ctx context.Context, ts time.Time, limit int) (model.ProcessSnapshot, error) {
	return s.queryProcesses(ctx, `SELECT `+processColumns+` FROM process_metrics
		WHERE timestamp = ? ORDER BY cpu_percent DESC LIMIT ?`, formatTS(ts), limit)
}

// TopProcessesByMemory returns the largest processes of the snapshot at ts.
func (s *Store) TopProcessesByMemory(ctx context.Context, ts time.Time, limit int) (model.ProcessSnapshot, error) {
	return s.queryProcesses(ctx, `SELECT `+processColumns+` FROM process_metrics
		WHERE timestamp = ? ORDER BY memory_rss DESC LIMIT ?`, formatTS(ts), limit)
}

// ProcessPoint is one stored reading of a single process.
type ProcessPoint struct {
	Timestamp time.Time
	model.Process
}

// ProcessHistory returns every stored reading of pid since the given time.
func (s *Store) ProcessHistory(ctx context.Context, pid int32, since time.Time) ([]ProcessPoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT timestamp, `+processColumns+` FROM process_metrics
		WHERE pid = ? AND timestamp >= ? ORDER BY timestamp`, pid, formatTS(since))
	if err != nil {
		return nil, fmt.Errorf("query process history: %w", err)
	}
	defer rows.Close()

	var out []ProcessPoint
	for rows.Next() {
		var ts string
		p, err := scanProcess(rows, &ts)
		if err != nil {
			return nil, fmt.Errorf("scan process history: %w", err)
		}
		out = append(out, ProcessPoint{Timestamp: parseTS(ts), Process: p})
	}
	return out, rows.Err()
}

func (s *Store) queryProcesses(ctx context.Context, query string, args ...any) (model.ProcessSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processes: %w", err)
	}
	defer rows.Close()

	out := model.ProcessSnapshot{}
	for rows.Next() {
		p, err := scanProcess(rows)
		if err != nil {
			return nil, fmt.Errorf("scan process: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// scanProcess reads processColumns, preceded by the given extra columns.
func scanProcess(sc scanner, extra ...any) (model.Process, error) {
	var (
		p                  model.Process
		name, user, status sql.NullString
		created            sql.NullString
		ppid, threads      sql.NullInt64
		rss, vms           sql.NullInt64
		cpu, memPct        sql.NullFloat64
		rb, wb, rc, wc     sql.NullInt64
	)
	dest := append(extra, &p.Pid, &ppid, &name, &user, &status, &cpu, &rss, &vms,
		&memPct, &threads, &created, &rb, &wb, &rc, &wc)
	if err := sc.Scan(dest...); err != nil {
		return model.Process{}, err
	}

	p.PPid = int32(ppid.Int64)
	p.Name = name.String
	p.Username = user.String
	p.Status = status.String
	p.CPUPercent = cpu.Float64
	p.MemoryRSS = uint64(rss.Int64)
	p.MemoryVMS = uint64(vms.Int64)
	p.MemoryPercent = memPct.Float64
	p.NumThreads = int32(threads.Int64)
	if created.Valid {
		p.CreateTime = parseTS(created.String)
	}
	if rb.Valid && wb.Valid {
		p.IO = &model.IOCounters{
			ReadBytes:  uint64(rb.Int64),
			WriteBytes: uint64(wb.Int64),
			ReadCount:  uint64(rc.Int64),
			WriteCount: uint64(wc.Int64),
		}
	}
	return p, nil
}
