// internal/store/maintenance.go
package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Tables lists every table, in display order.
var Tables = []string{"system_metrics", "process_metrics", "anomalies", "recommendations", "baselines"}

// CleanupResult counts the rows removed by Cleanup.
type CleanupResult struct {
	Samples         int64
	Processes       int64
	Anomalies       int64
	Recommendations int64
}

// Cleanup deletes samples and processes older than retentionDays and
// anomalies and recommendations older than eventRetentionDays.
func (s *Store) Cleanup(ctx context.Context, now time.Time, retentionDays, eventRetentionDays int) (CleanupResult, error) {
	var res CleanupResult
	dataCutoff := formatTS(now.AddDate(0, 0, -retentionDays))
	eventCutoff := formatTS(now.AddDate(0, 0, -eventRetentionDays))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin cleanup: %w", err)
	}
	defer tx.Rollback()

	steps := []struct {
		query  string
		cutoff string
		count  *int64
	}{
		{`DELETE FROM process_metrics WHERE timestamp < ?`, dataCutoff, &res.Processes},
		{`DELETE FROM system_metrics WHERE timestamp < ?`, dataCutoff, &res.Samples},
		{`DELETE FROM anomalies WHERE timestamp < ?`, eventCutoff, &res.Anomalies},
		{`DELETE FROM recommendations WHERE timestamp < ?`, eventCutoff, &res.Recommendations},
	}
	for _, step := range steps {
		r, err := tx.ExecContext(ctx, step.query, step.cutoff)
		if err != nil {
			return CleanupResult{}, fmt.Errorf("cleanup: %w", err)
		}
		*step.count, _ = r.RowsAffected()
	}
	if err := tx.Commit(); err != nil {
		return CleanupResult{}, fmt.Errorf("commit cleanup: %w", err)
	}

	s.log.Info("cleanup complete",
		zap.Int("retention_days", retentionDays),
		zap.Int("event_retention_days", eventRetentionDays),
		zap.Int64("samples", res.Samples),
		zap.Int64("processes", res.Processes),
		zap.Int64("anomalies", res.Anomalies),
		zap.Int64("recommendations", res.Recommendations))
	return res, nil
}

// Vacuum compacts the database file.
func (s *Store) Vacuum(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

// SizeMB returns the size of the main database file in MiB.
func (s *Store) SizeMB(ctx context.Context) (float64, error) {
	var pages, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pages); err != nil {
		return 0, fmt.Errorf("page count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("page size: %w", err)
	}
	return float64(pages*pageSize) / (1024 * 1024), nil
}

// RowCounts returns the number of rows in each table.
func (s *Store) RowCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(Tables))
	for _, table := range Tables {
		var n int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
