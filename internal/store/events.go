// internal/store/events.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/signalnine/perfwatch/internal/model"
)

// InsertAnomaly stores a and sets its ID. The root cause is kept as JSON.
func (s *Store) InsertAnomaly(ctx context.Context, a *model.Anomaly) error {
	var rootCause any
	if a.RootCause != nil {
		data, err := json.Marshal(a.RootCause)
		if err != nil {
			return fmt.Errorf("marshal root cause: %w", err)
		}
		rootCause = string(data)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO anomalies (timestamp, anomaly_type, severity, metric_name, metric_value,
			baseline_mean, baseline_stddev, z_score, description, root_cause)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTS(a.Timestamp), string(a.Type), string(a.Severity), a.MetricName, a.MetricValue,
		a.BaselineMean, a.BaselineStdDev, a.ZScore, a.Description, rootCause)
	if err != nil {
		return fmt.Errorf("insert anomaly: %w", err)
	}
	a.ID, _ = res.LastInsertId()
	return nil
}

// AnomaliesBetween returns anomalies in [start, end], newest first.
func (s *Store) AnomaliesBetween(ctx context.Context, start, end time.Time) ([]model.Anomaly, error) {
	return s.queryAnomalies(ctx, `WHERE timestamp >= ? AND timestamp <= ?`, formatTS(start), formatTS(end))
}

// RecentAnomalies returns anomalies recorded since the given time, newest first.
func (s *Store) RecentAnomalies(ctx context.Context, since time.Time) ([]model.Anomaly, error) {
	return s.queryAnomalies(ctx, `WHERE timestamp >= ?`, formatTS(since))
}

func (s *Store) queryAnomalies(ctx context.Context, where string, args ...any) ([]model.Anomaly, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, anomaly_type, severity, metric_name, metric_value,
			baseline_mean, baseline_stddev, z_score, description, root_cause
		FROM anomalies `+where+`
		ORDER BY timestamp DESC, id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query anomalies: %w", err)
	}
	defer rows.Close()

	var out []model.Anomaly
	for rows.Next() {
		var a model.Anomaly
		var ts, typ, sev string
		var metric, desc, rootCause sql.NullString
		var value, mean, std, z sql.NullFloat64

		if err := rows.Scan(&a.ID, &ts, &typ, &sev, &metric, &value, &mean, &std, &z, &desc, &rootCause); err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		a.Timestamp = parseTS(ts)
		a.Type = model.AnomalyType(typ)
		a.Severity = model.Severity(sev)
		a.MetricName = metric.String
		a.MetricValue = value.Float64
		a.BaselineMean = mean.Float64
		a.BaselineStdDev = std.Float64
		a.ZScore = z.Float64
		a.Description = desc.String
		if rootCause.Valid && rootCause.String != "" {
			var rc model.RootCause
			if err := json.Unmarshal([]byte(rootCause.String), &rc); err == nil {
				a.RootCause = &rc
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// InsertRecommendation stores r and sets its ID. An empty status is stored
// as "active".
func (s *Store) InsertRecommendation(ctx context.Context, r *model.Recommendation) error {
	if r.Status == "" {
		r.Status = "active"
	}
	var pid any
	if r.TargetPid != nil {
		pid = *r.TargetPid
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO recommendations (timestamp, recommendation_type, target_process, target_pid,
			issue_description, recommendation, estimated_impact, priority, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTS(r.Timestamp), r.Type, r.TargetProcess, pid,
		r.IssueDescription, r.Recommendation, r.EstimatedImpact, string(r.Priority), r.Status)
	if err != nil {
		return fmt.Errorf("insert recommendation: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	return nil
}

// ActiveRecommendations returns every active recommendation, newest first.
func (s *Store) ActiveRecommendations(ctx context.Context) ([]model.Recommendation, error) {
	return s.queryRecommendations(ctx, `WHERE status = 'active'`)
}

// RecentRecommendations returns recommendations made since the given time.
func (s *Store) RecentRecommendations(ctx context.Context, since time.Time) ([]model.Recommendation, error) {
	return s.queryRecommendations(ctx, `WHERE timestamp >= ?`, formatTS(since))
}

// HasRecentRecommendation reports whether a recommendation of this type was
// made since the given time.
func (s *Store) HasRecentRecommendation(ctx context.Context, recType string, since time.Time) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recommendations
		WHERE recommendation_type = ? AND timestamp >= ?`, recType, formatTS(since)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check recent recommendation: %w", err)
	}
	return n > 0, nil
}

func (s *Store) queryRecommendations(ctx context.Context, where string, args ...any) ([]model.Recommendation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, recommendation_type, target_process, target_pid,
			issue_description, recommendation, estimated_impact, priority, status
		FROM recommendations `+where+`
		ORDER BY timestamp DESC, id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	defer rows.Close()

	var out []model.Recommendation
	for rows.Next() {
		var r model.Recommendation
		var ts string
		var target, issue, text, impact, prio, status sql.NullString
		var pid sql.NullInt64
		if err := rows.Scan(&r.ID, &ts, &r.Type, &target, &pid, &issue, &text, &impact, &prio, &status); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		r.Timestamp = parseTS(ts)
		r.TargetProcess = target.String
		if pid.Valid {
			p := int32(pid.Int64)
			r.TargetPid = &p
		}
		r.IssueDescription = issue.String
		r.Recommendation = text.String
		r.EstimatedImpact = impact.String
		r.Priority = model.Severity(prio.String)
		r.Status = status.String
		out = append(out, r)
	}
	return out, rows.Err()
}
