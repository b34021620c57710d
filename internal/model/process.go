// internal/model/process.go
package model

import "time"

// IOCounters are cumulative per-process I/O counters.
type IOCounters struct {
	ReadBytes  uint64 `json:"read_bytes"`
	WriteBytes uint64 `json:"write_bytes"`
	ReadCount  uint64 `json:"read_count"`
	WriteCount uint64 `json:"write_count"`
}

// Process is one process record inside a snapshot.
type Process struct {
	Pid           int32       `json:"pid"`
	PPid          int32       `json:"ppid"`
	Name          string      `json:"name"`
	Username      string      `json:"username"`
	Status        string      `json:"status"`
	CPUPercent    float64     `json:"cpu_percent"`
	MemoryRSS     uint64      `json:"memory_rss"`
	MemoryVMS     uint64      `json:"memory_vms"`
	MemoryPercent float64     `json:"memory_percent"`
	NumThreads    int32       `json:"num_threads"`
	CreateTime    time.Time   `json:"create_time"`
	IO            *IOCounters `json:"io,omitempty"` // nil when counters were unreadable
}

// ProcessSnapshot is every process seen in one sampling interval, sorted by
// CPU usage descending.
type ProcessSnapshot []Process

// ByPid indexes the snapshot by pid. With duplicate pids the first wins.
func (s ProcessSnapshot) ByPid() map[int32]Process {
	idx := make(map[int32]Process, len(s))
	for _, p := range s {
		if _, ok := idx[p.Pid]; !ok {
			idx[p.Pid] = p
		}
	}
	return idx
}
