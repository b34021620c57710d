// internal/store/baselines.go
package store

import (
	"context"
	"fmt"

	"github.com/signalnine/perfwatch/internal/model"
)

// UpsertBaseline inserts or replaces the baseline for (metric, context).
func (s *Store) UpsertBaseline(ctx context.Context, b model.Baseline) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO baselines (metric_name, context, mean_value, std_dev, min_value, max_value, sample_count, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(metric_name, context) DO UPDATE SET
			mean_value = excluded.mean_value,
			std_dev = excluded.std_dev,
			min_value = excluded.min_value,
			max_value = excluded.max_value,
			sample_count = excluded.sample_count,
			last_updated = excluded.last_updated`,
		b.MetricName, string(b.Context), b.Mean, b.StdDev, b.Min, b.Max, b.SampleCount, formatTS(b.LastUpdated))
	if err != nil {
		return fmt.Errorf("upsert baseline %s/%s: %w", b.MetricName, b.Context, err)
	}
	return nil
}

// Baselines returns every stored baseline.
func (s *Store) Baselines(ctx context.Context) ([]model.Baseline, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT metric_name, context, mean_value, std_dev, min_value, max_value, sample_count, last_updated
		FROM baselines ORDER BY metric_name, context`)
	if err != nil {
		return nil, fmt.Errorf("query baselines: %w", err)
	}
	defer rows.Close()

	var out []model.Baseline
	for rows.Next() {
		var b model.Baseline
		var tc, updated string
		if err := rows.Scan(&b.MetricName, &tc, &b.Mean, &b.StdDev, &b.Min, &b.Max, &b.SampleCount, &updated); err != nil {
			return nil, fmt.Errorf("scan baseline: %w", err)
		}
		b.Context = model.TimeContext(tc)
		b.LastUpdated = parseTS(updated)
		out = append(out, b)
	}
	return out, rows.Err()
}
