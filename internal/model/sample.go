// internal/model/sample.go
package model

import "time"

// Names of the SystemSample fields that are looked up by name.
const (
	MetricCPUPercent    = "cpu_percent"
	MetricMemoryPercent = "memory_percent"
	MetricMemoryUsed    = "memory_used"
	MetricSwapPercent   = "swap_percent"
	MetricSwapUsed      = "swap_used"
	MetricDiskPercent   = "disk_percent"
)

// SystemSample is one reading of host-wide counters. Nil fields were not
// available when the sample was taken and are skipped, never treated as zero.
type SystemSample struct {
	Timestamp time.Time `json:"timestamp"`

	CPUPercent       *float64 `json:"cpu_percent,omitempty"`
	CPUCountLogical  *int     `json:"cpu_count_logical,omitempty"`
	CPUCountPhysical *int     `json:"cpu_count_physical,omitempty"`
	LoadAvg1         *float64 `json:"load_avg_1min,omitempty"`
	LoadAvg5         *float64 `json:"load_avg_5min,omitempty"`
	LoadAvg15        *float64 `json:"load_avg_15min,omitempty"`

	MemoryTotal     *uint64  `json:"memory_total,omitempty"`
	MemoryAvailable *uint64  `json:"memory_available,omitempty"`
	MemoryUsed      *uint64  `json:"memory_used,omitempty"`
	MemoryPercent   *float64 `json:"memory_percent,omitempty"`
	MemoryCached    *uint64  `json:"memory_cached,omitempty"`
	MemoryBuffers   *uint64  `json:"memory_buffers,omitempty"`

	SwapTotal   *uint64  `json:"swap_total,omitempty"`
	SwapUsed    *uint64  `json:"swap_used,omitempty"`
	SwapPercent *float64 `json:"swap_percent,omitempty"`

	DiskReadBytesDelta  *uint64  `json:"disk_read_bytes_delta,omitempty"`
	DiskWriteBytesDelta *uint64  `json:"disk_write_bytes_delta,omitempty"`
	DiskReadOpsDelta    *uint64  `json:"disk_read_ops_delta,omitempty"`
	DiskWriteOpsDelta   *uint64  `json:"disk_write_ops_delta,omitempty"`
	DiskReadRate        *float64 `json:"disk_read_rate,omitempty"`
	DiskWriteRate       *float64 `json:"disk_write_rate,omitempty"`

	DiskTotal   *uint64  `json:"disk_total,omitempty"`
	DiskUsed    *uint64  `json:"disk_used,omitempty"`
	DiskPercent *float64 `json:"disk_percent,omitempty"`
}

// Value returns the named field as a float64. ok is false when the field is
// unknown or was not sampled.
func (s SystemSample) Value(name string) (float64, bool) {
	switch name {
	case MetricCPUPercent:
		return f64(s.CPUPercent)
	case MetricMemoryPercent:
		return f64(s.MemoryPercent)
	case MetricMemoryUsed:
		return u64(s.MemoryUsed)
	case "memory_total":
		return u64(s.MemoryTotal)
	case "memory_available":
		return u64(s.MemoryAvailable)
	case MetricSwapPercent:
		return f64(s.SwapPercent)
	case MetricSwapUsed:
		return u64(s.SwapUsed)
	case "swap_total":
		return u64(s.SwapTotal)
	case "load_avg_1min":
		return f64(s.LoadAvg1)
	case "load_avg_5min":
		return f64(s.LoadAvg5)
	case "load_avg_15min":
		return f64(s.LoadAvg15)
	case "disk_read_bytes_delta":
		return u64(s.DiskReadBytesDelta)
	case "disk_write_bytes_delta":
		return u64(s.DiskWriteBytesDelta)
	case MetricDiskPercent:
		return f64(s.DiskPercent)
	}
	return 0, false
}

func f64(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func u64(p *uint64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return float64(*p), true
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Uint returns a pointer to v.
func Uint(v uint64) *uint64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Deref returns *p, or 0 for nil.
func Deref[T int | uint64 | float64](p *T) T {
	if p == nil {
		return 0
	}
	return *p
}

// SystemInfo is static host information shown at startup.
type SystemInfo struct {
	Platform         string `json:"platform"`
	PlatformVersion  string `json:"platform_version"`
	Processor        string `json:"processor"`
	CPUCountLogical  int    `json:"cpu_count_logical"`
	CPUCountPhysical int    `json:"cpu_count_physical"`
}
