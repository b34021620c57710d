// internal/store/db.go
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ErrUnknownMetric is returned when a metric name has no column.
var ErrUnknownMetric = errors.New("unknown metric")

const schema = `
CREATE TABLE IF NOT EXISTS system_metrics (
	timestamp              TEXT PRIMARY KEY,
	cpu_percent            REAL,
	cpu_count_logical      INTEGER,
	cpu_count_physical     INTEGER,
	load_avg_1min          REAL,
	load_avg_5min          REAL,
	load_avg_15min         REAL,
	memory_total           INTEGER,
	memory_available       INTEGER,
	memory_used            INTEGER,
	memory_percent         REAL,
	memory_cached          INTEGER,
	memory_buffers         INTEGER,
	swap_total             INTEGER,
	swap_used              INTEGER,
	swap_percent           REAL,
	disk_read_bytes_delta  INTEGER,
	disk_write_bytes_delta INTEGER,
	disk_read_ops_delta    INTEGER,
	disk_write_ops_delta   INTEGER,
	disk_read_rate         REAL,
	disk_write_rate        REAL,
	disk_total             INTEGER,
	disk_used              INTEGER,
	disk_percent           REAL
);

CREATE TABLE IF NOT EXISTS process_metrics (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp      TEXT NOT NULL REFERENCES system_metrics(timestamp) ON DELETE CASCADE,
	pid            INTEGER NOT NULL,
	ppid           INTEGER,
	name           TEXT,
	username       TEXT,
	status         TEXT,
	cpu_percent    REAL,
	memory_rss     INTEGER,
	memory_vms     INTEGER,
	memory_percent REAL,
	num_threads    INTEGER,
	create_time    TEXT,
	io_read_bytes  INTEGER,
	io_write_bytes INTEGER,
	io_read_count  INTEGER,
	io_write_count INTEGER
);

CREATE TABLE IF NOT EXISTS anomalies (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp       TEXT NOT NULL,
	anomaly_type    TEXT NOT NULL,
	severity        TEXT NOT NULL,
	metric_name     TEXT,
	metric_value    REAL,
	baseline_mean   REAL,
	baseline_stddev REAL,
	z_score         REAL,
	description     TEXT,
	root_cause      TEXT
);

CREATE TABLE IF NOT EXISTS recommendations (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp           TEXT NOT NULL,
	recommendation_type TEXT NOT NULL,
	target_process      TEXT,
	target_pid          INTEGER,
	issue_description   TEXT,
	recommendation      TEXT,
	estimated_impact    TEXT,
	priority            TEXT,
	status              TEXT DEFAULT 'active'
);

CREATE TABLE IF NOT EXISTS baselines (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	metric_name  TEXT NOT NULL,
	context      TEXT NOT NULL,
	mean_value   REAL,
	std_dev      REAL,
	min_value    REAL,
	max_value    REAL,
	sample_count INTEGER,
	last_updated TEXT
);

CREATE INDEX IF NOT EXISTS idx_process_timestamp ON process_metrics(timestamp);
CREATE INDEX IF NOT EXISTS idx_process_pid ON process_metrics(pid);
CREATE INDEX IF NOT EXISTS idx_process_name ON process_metrics(name);
CREATE INDEX IF NOT EXISTS idx_anomaly_timestamp ON anomalies(timestamp);
CREATE INDEX IF NOT EXISTS idx_anomaly_type ON anomalies(anomaly_type);
CREATE INDEX IF NOT EXISTS idx_rec_timestamp ON recommendations(timestamp);
CREATE INDEX IF NOT EXISTS idx_rec_status ON recommendations(status);
CREATE UNIQUE INDEX IF NOT EXISTS idx_baseline ON baselines(metric_name, context);
`

// Store is the SQLite-backed metric history.
type Store struct {
	db   *sql.DB
	path string
	log  *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps per-connection pragmas in force and serialises writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{db: db, path: path, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Timestamps are stored in UTC at second precision so that string order
// matches time order.
const tsLayout = time.RFC3339

func formatTS(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(tsLayout)
}

func parseTS(s string) time.Time {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t.Local()
}
