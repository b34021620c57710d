// internal/model/anomaly.go
package model

import (
	"strings"
	"time"
)

// Severity of an anomaly. Normal and Low are classification results only;
// anomalies are never emitted with them.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities: normal=0 ... critical=4.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// AnomalyType names what kind of abnormal behaviour was seen.
type AnomalyType string

const (
	CPUSpike       AnomalyType = "cpu_spike"
	CPUDrop        AnomalyType = "cpu_drop"
	MemoryPressure AnomalyType = "memory_pressure"
	MemoryDrop     AnomalyType = "memory_drop"
	SwapPressure   AnomalyType = "swap_pressure"
	SwapDrop       AnomalyType = "swap_drop"
	MemoryLeak     AnomalyType = "memory_leak"
	SwapThrashing  AnomalyType = "swap_thrashing"
	IOBottleneck   AnomalyType = "io_bottleneck"
	UnknownAnomaly AnomalyType = "unknown"
)

// IsCPU reports whether the type belongs to the CPU family.
func (t AnomalyType) IsCPU() bool { return strings.Contains(string(t), "cpu") }

// IsMemory reports whether the type belongs to the memory family.
func (t AnomalyType) IsMemory() bool { return strings.Contains(string(t), "memory") }

// IsIOOrSwap reports whether the type belongs to the I/O or swap family.
func (t AnomalyType) IsIOOrSwap() bool {
	s := string(t)
	return strings.Contains(s, "io") || strings.Contains(s, "swap")
}

// Baseline is the learned distribution of one metric within one TimeContext.
type Baseline struct {
	MetricName  string      `json:"metric_name"`
	Context     TimeContext `json:"context"`
	Mean        float64     `json:"mean"`
	StdDev      float64     `json:"std_dev"`
	Min         float64     `json:"min"`
	Max         float64     `json:"max"`
	SampleCount int         `json:"sample_count"`
	LastUpdated time.Time   `json:"last_updated"`
}

// Anomaly is one abnormal reading. RootCause stays nil until explained.
type Anomaly struct {
	ID             int64       `json:"id,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
	Type           AnomalyType `json:"anomaly_type"`
	Severity       Severity    `json:"severity"`
	MetricName     string      `json:"metric_name"`
	MetricValue    float64     `json:"metric_value"`
	BaselineMean   float64     `json:"baseline_mean"`
	BaselineStdDev float64     `json:"baseline_stddev"`
	ZScore         float64     `json:"z_score"`
	Description    string      `json:"description"`
	RootCause      *RootCause  `json:"root_cause"`
}

// TimelinePoint is one metric reading near an anomaly.
type TimelinePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Contributor is a process ranked by how much it adds to an anomaly.
type Contributor struct {
	Pid           int32   `json:"pid"`
	Name          string  `json:"name"`
	Metric        string  `json:"metric"`
	CurrentValue  float64 `json:"current_value"`
	PreviousValue float64 `json:"previous_value"`
	Delta         float64 `json:"delta"`
	IsNewProcess  bool    `json:"is_new_process"`
	Display       string  `json:"display"`
}

// TreeNode is one ancestor in a process chain.
type TreeNode struct {
	Pid        int32   `json:"pid"`
	Name       string  `json:"name"`
	CPUPercent float64 `json:"cpu_percent"`
	MemoryRSS  uint64  `json:"memory_rss"`
}

// IOProcess is a process ranked by total bytes transferred.
type IOProcess struct {
	Pid        int32  `json:"pid"`
	Name       string `json:"name"`
	ReadBytes  uint64 `json:"io_read_bytes"`
	WriteBytes uint64 `json:"io_write_bytes"`
	ReadCount  uint64 `json:"io_read_count"`
	WriteCount uint64 `json:"io_write_count"`
	TotalIO    uint64 `json:"total_io"`
}

// IOPattern classifies how a process reads.
type IOPattern struct {
	Pid            int32   `json:"pid"`
	Name           string  `json:"name"`
	AvgReadSize    float64 `json:"avg_read_size"`
	Classification string  `json:"classification"`
	LikelyIssue    string  `json:"likely_issue,omitempty"`
}

// IOAnalysis groups the heaviest I/O consumers and their read patterns.
type IOAnalysis struct {
	TopIOProcesses []IOProcess `json:"top_io_processes"`
	Patterns       []IOPattern `json:"patterns"`
}

// RootCause is the reconstructed explanation attached to an Anomaly.
type RootCause struct {
	Timeline        []TimelinePoint `json:"timeline"`
	TopContributors []Contributor   `json:"top_contributors"`
	ProcessTree     []TreeNode      `json:"process_tree"`
	IOAnalysis      *IOAnalysis     `json:"io_analysis"`
	Summary         string          `json:"summary"`
}

// Recommendation is a remediation produced by a rule-based heuristic.
type Recommendation struct {
	ID               int64     `json:"id,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	Type             string    `json:"recommendation_type"`
	TargetProcess    string    `json:"target_process"`
	TargetPid        *int32    `json:"target_pid,omitempty"`
	IssueDescription string    `json:"issue_description"`
	Recommendation   string    `json:"recommendation"`
	EstimatedImpact  string    `json:"estimated_impact"`
	Priority         Severity  `json:"priority"`
	Status           string    `json:"status"`
}
