// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full perfwatch configuration.
type Config struct {
	Collection      CollectionConfig     `yaml:"collection"`
	Storage         StorageConfig        `yaml:"storage"`
	Analysis        AnalysisConfig       `yaml:"analysis"`
	Recommendations RecommendationConfig `yaml:"recommendations"`
	Display         DisplayConfig        `yaml:"display"`
	Logging         LoggingConfig        `yaml:"logging"`
	Server          ServerConfig         `yaml:"server"`
}

// CollectionConfig controls the metrics collector
type CollectionConfig struct {
	Interval             time.Duration `yaml:"interval"`
	EnableProcessMetrics bool          `yaml:"enable_process_metrics"`
	EnableIOMetrics      bool          `yaml:"enable_io_metrics"`
	MaxProcessesTracked  int           `yaml:"max_processes_tracked"`
	StoredProcesses      int           `yaml:"stored_processes"` // top N persisted per sample
	DiskPath             string        `yaml:"disk_path"`
}

// StorageConfig controls the SQLite store and retention
type StorageConfig struct {
	DatabasePath       string        `yaml:"database_path"`
	RetentionDays      int           `yaml:"retention_days"`
	EventRetentionDays int           `yaml:"event_retention_days"` // anomalies and recommendations
	StateDir           string        `yaml:"state_dir"`
	CleanupInterval    time.Duration `yaml:"cleanup_interval"`
}

// AnalysisConfig controls baselines and anomaly severity
type AnalysisConfig struct {
	BaselineHistoryDays     int                `yaml:"baseline_history_days"`
	BaselineRefreshInterval time.Duration      `yaml:"baseline_refresh_interval"`
	SeverityLevels          map[string]float64 `yaml:"anomaly_severity_levels"`
}

// RecommendationConfig controls the rule-based recommender
type RecommendationConfig struct {
	Enabled       bool `yaml:"enabled"`
	CooldownHours int  `yaml:"cooldown_hours"`
}

// DisplayConfig controls console output
type DisplayConfig struct {
	Dashboard        bool `yaml:"dashboard"`
	ShowTopProcesses int  `yaml:"show_top_processes"`
	UseColors        bool `yaml:"use_colors"`
}

// LoggingConfig controls the zap logger and optional rotated log file
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// ServerConfig controls the optional HTTP status server
type ServerConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
	TLSCert    string `yaml:"tls_cert"`
	TLSKey     string `yaml:"tls_key"`
	APIKey     string `yaml:"-"` // from env only
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Collection: CollectionConfig{
			Interval:             5 * time.Second,
			EnableProcessMetrics: true,
			EnableIOMetrics:      true,
			MaxProcessesTracked:  500,
			StoredProcesses:      50,
			DiskPath:             "/",
		},
		Storage: StorageConfig{
			DatabasePath:       "./performance.db",
			RetentionDays:      7,
			EventRetentionDays: 30,
			StateDir:           "./.perfwatch",
			CleanupInterval:    24 * time.Hour,
		},
		Analysis: AnalysisConfig{
			BaselineHistoryDays:     7,
			BaselineRefreshInterval: time.Hour,
			SeverityLevels: map[string]float64{
				"low":      1.5,
				"medium":   2.0,
				"high":     2.5,
				"critical": 3.0,
			},
		},
		Recommendations: RecommendationConfig{
			Enabled:       true,
			CooldownHours: 24,
		},
		Display: DisplayConfig{
			Dashboard:        true,
			ShowTopProcesses: 10,
			UseColors:        true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 14,
			Compress:   true,
		},
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:9321",
		},
	}
}

// Load reads a YAML config over the defaults. Keys missing from the file keep
// their default and unknown keys are ignored. The returned config is always
// usable: on a read or parse failure it is the defaults and err says why.
func Load(path string) (*Config, error) {
	cfg := Default()
	var loadErr error

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("read config: %w", err)
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			cfg = Default()
			loadErr = fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	cfg.fillZeroes()
	return cfg, loadErr
}

func applyEnv(cfg *Config) {
	if p := os.Getenv("PERFWATCH_DB_PATH"); p != "" {
		cfg.Storage.DatabasePath = p
	}
	if lvl := os.Getenv("PERFWATCH_LOG_LEVEL"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if key := os.Getenv("PERFWATCH_API_KEY"); key != "" {
		cfg.Server.APIKey = key
	}
}

// fillZeroes restores defaults for values a file explicitly zeroed where
// zero makes no sense (a zero interval would spin the loop).
func (c *Config) fillZeroes() {
	def := Default()
	if c.Collection.Interval <= 0 {
		c.Collection.Interval = def.Collection.Interval
	}
	if c.Collection.MaxProcessesTracked <= 0 {
		c.Collection.MaxProcessesTracked = def.Collection.MaxProcessesTracked
	}
	if c.Collection.StoredProcesses <= 0 {
		c.Collection.StoredProcesses = def.Collection.StoredProcesses
	}
	if c.Storage.RetentionDays <= 0 {
		c.Storage.RetentionDays = def.Storage.RetentionDays
	}
	if c.Storage.EventRetentionDays <= 0 {
		c.Storage.EventRetentionDays = def.Storage.EventRetentionDays
	}
	if c.Storage.CleanupInterval <= 0 {
		c.Storage.CleanupInterval = def.Storage.CleanupInterval
	}
	if c.Analysis.BaselineHistoryDays <= 0 {
		c.Analysis.BaselineHistoryDays = def.Analysis.BaselineHistoryDays
	}
	if c.Analysis.BaselineRefreshInterval <= 0 {
		c.Analysis.BaselineRefreshInterval = def.Analysis.BaselineRefreshInterval
	}
	if c.Analysis.SeverityLevels == nil {
		c.Analysis.SeverityLevels = def.Analysis.SeverityLevels
	}
	if c.Display.ShowTopProcesses <= 0 {
		c.Display.ShowTopProcesses = def.Display.ShowTopProcesses
	}
}
