// internal/analysis/io.go
package analysis

import (
	"sort"
	"strings"

	"github.com/signalnine/perfwatch/internal/model"
)

const (
	ioTopLimit     = 10
	ioPatternLimit = 5
	smallReadBytes = 32 * 1024
	largeReadBytes = 1024 * 1024
)

var (
	databaseNames = []string{"postgres", "mysql", "mongod", "mariadb"}
	browserNames  = []string{"chrome", "firefox", "edge"}
)

// analyzeIO ranks processes by bytes transferred and classifies the read
// pattern of the heaviest ones. Returns nil for an empty snapshot.
func analyzeIO(snapshot model.ProcessSnapshot) *model.IOAnalysis {
	if len(snapshot) == 0 {
		return nil
	}

	var procs []model.IOProcess
	for _, p := range snapshot {
		if p.IO == nil {
			continue
		}
		procs = append(procs, model.IOProcess{
			Pid:        p.Pid,
			Name:       p.Name,
			ReadBytes:  p.IO.ReadBytes,
			WriteBytes: p.IO.WriteBytes,
			ReadCount:  p.IO.ReadCount,
			WriteCount: p.IO.WriteCount,
			TotalIO:    p.IO.ReadBytes + p.IO.WriteBytes,
		})
	}
	sort.SliceStable(procs, func(i, j int) bool { return procs[i].TotalIO > procs[j].TotalIO })

	res := &model.IOAnalysis{
		TopIOProcesses: procs[:min(len(procs), ioTopLimit)],
		Patterns:       []model.IOPattern{},
	}
	for _, p := range procs[:min(len(procs), ioPatternLimit)] {
		if p.ReadCount == 0 {
			continue
		}
		res.Patterns = append(res.Patterns, classifyReads(p))
	}
	return res
}

func classifyReads(p model.IOProcess) model.IOPattern {
	avg := float64(p.ReadBytes) / float64(p.ReadCount)
	pat := model.IOPattern{Pid: p.Pid, Name: p.Name, AvgReadSize: avg}

	switch {
	case avg < smallReadBytes:
		pat.Classification = "small random reads (inefficient)"
		pat.LikelyIssue = likelyIssue(strings.ToLower(p.Name))
	case avg > largeReadBytes:
		pat.Classification = "large sequential reads (efficient)"
	default:
		pat.Classification = "mixed I/O pattern"
	}
	return pat
}

func likelyIssue(name string) string {
	switch {
	case containsAny(name, databaseNames):
		return "Missing database index (table scan)"
	case containsAny(name, browserNames):
		return "Browser cache thrashing"
	}
	return "Fragmented I/O pattern"
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
