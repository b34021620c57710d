// internal/recommend/heuristics.go
package recommend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/signalnine/perfwatch/internal/model"
)

// Recommendation types.
const (
	TypeDatabaseIndex     = "database_index"
	TypeMemoryUpgrade     = "memory_upgrade"
	TypeChromeTabs        = "chrome_tab_management"
	TypeDockerLimits      = "docker_resource_limits"
	TypeBuildOptimization = "build_optimization"
)

const gib = 1 << 30

var (
	databaseEngines = []string{"postgres", "postgresql", "mysql", "mysqld", "mongod", "mongodb", "mariadb", "sqlservr"}
	dockerNames     = []string{"docker", "containerd", "dockerd", "moby"}
	compilerNames   = map[string]bool{
		"gcc": true, "g++": true, "clang": true, "clang++": true, "cc": true, "c++": true,
		"make": true, "ninja": true, "msbuild": true, "cl": true, "javac": true, "rustc": true,
	}
	ramSizesGB = []int{8, 16, 24, 32, 48, 64, 128}
)

func nameContains(p model.Process, subs []string) bool {
	name := strings.ToLower(p.Name)
	for _, s := range subs {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

func byRSS(procs []model.Process) []model.Process {
	out := append([]model.Process(nil), procs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MemoryRSS > out[j].MemoryRSS })
	return out
}

func totalRSS(procs []model.Process) uint64 {
	var sum uint64
	for _, p := range procs {
		sum += p.MemoryRSS
	}
	return sum
}

// checkDatabaseIndex flags a database engine doing many small reads, the
// signature of table scans.
func checkDatabaseIndex(in input) *model.Recommendation {
	for _, p := range in.procs {
		if !nameContains(p, databaseEngines) || p.IO == nil {
			continue
		}
		if p.IO.ReadCount < 10000 {
			continue
		}
		avg := float64(p.IO.ReadBytes) / float64(p.IO.ReadCount)
		if avg >= 16*1024 {
			continue
		}

		name := strings.ToLower(p.Name)
		pid := p.Pid
		return &model.Recommendation{
			Type:          TypeDatabaseIndex,
			TargetProcess: fmt.Sprintf("%s (PID %d)", name, pid),
			TargetPid:     &pid,
			IssueDescription: fmt.Sprintf("Database '%s' performing inefficient I/O pattern characteristic of table scans. "+
				"Read operations: %s/sample, Average read size: %s.",
				name, humanize.Comma(int64(p.IO.ReadCount)), humanize.IBytes(uint64(avg))),
			Recommendation: "Your database is performing table scans (many small random reads). " +
				"This usually indicates missing indexes on frequently queried columns.\n\n" +
				"Actions to take:\n" +
				"1. Review database slow query log to identify expensive queries\n" +
				"2. Look for queries without WHERE clause indexes\n" +
				"3. Add indexes on columns used in WHERE, JOIN, ORDER BY clauses\n" +
				fmt.Sprintf("4. Monitor %s after adding indexes for improvement", name),
			EstimatedImpact: "70-95% query speedup, major I/O reduction",
			Priority:        model.SeverityHigh,
		}
	}
	return nil
}

// checkMemoryUpgrade suggests more RAM when memory is nearly full and the
// host is already swapping.
func checkMemoryUpgrade(in input) *model.Recommendation {
	memPct := model.Deref(in.sample.MemoryPercent)
	if memPct < 85 {
		return nil
	}
	swapGB := float64(model.Deref(in.sample.SwapUsed)) / gib
	if swapGB < 0.5 {
		return nil
	}
	totalGB := float64(model.Deref(in.sample.MemoryTotal)) / gib
	usedGB := float64(model.Deref(in.sample.MemoryUsed)) / gib

	want := usedGB * 1.3
	size := ramSizesGB[len(ramSizesGB)-1]
	for _, s := range ramSizesGB {
		if float64(s) >= want {
			size = s
			break
		}
	}

	var consumers []string
	top := byRSS(in.procs)
	for _, p := range top[:min(len(top), 5)] {
		consumers = append(consumers, fmt.Sprintf("  - %s: %s", p.Name, humanize.IBytes(p.MemoryRSS)))
	}

	return &model.Recommendation{
		Type:          TypeMemoryUpgrade,
		TargetProcess: "system",
		IssueDescription: fmt.Sprintf("System consistently operating near memory capacity. "+
			"Current RAM: %.0f GB, Usage: %.1f GB (%.1f%%), Swap: %.1f GB.", totalGB, usedGB, memPct, swapGB),
		Recommendation: fmt.Sprintf("Upgrade to %d GB RAM.\n\n"+
			"Current memory usage: %.1f / %.0f GB (%.1f%%)\n"+
			"Swap usage: %.1f GB\n\n"+
			"Top memory consumers:\n%s\n\n"+
			"Expected benefits:\n"+
			"- Eliminate swap usage entirely (major speed boost)\n"+
			"- Reduce memory pressure events\n"+
			"- Faster application switching\n"+
			"- Ability to run additional services",
			size, usedGB, totalGB, memPct, swapGB, strings.Join(consumers, "\n")),
		EstimatedImpact: "Eliminate swapping, major system responsiveness improvement",
		Priority:        model.SeverityHigh,
	}
}

// checkChromeTabs flags a browser holding a lot of memory for a long time.
func checkChromeTabs(in input) *model.Recommendation {
	var chrome []model.Process
	for _, p := range in.procs {
		if nameContains(p, []string{"chrome"}) {
			chrome = append(chrome, p)
		}
	}
	if len(chrome) == 0 {
		return nil
	}
	memGB := float64(totalRSS(chrome)) / gib
	if memGB < 2.0 {
		return nil
	}
	tabs := max(1, len(chrome)/3)

	var runtimeHours float64
	for _, p := range chrome {
		if p.CreateTime.IsZero() {
			continue
		}
		if h := in.now.Sub(p.CreateTime).Hours(); h > runtimeHours {
			runtimeHours = h
		}
	}

	if memGB < 3.0 && tabs < 30 && runtimeHours < 48 {
		return nil
	}

	return &model.Recommendation{
		Type:          TypeChromeTabs,
		TargetProcess: fmt.Sprintf("chrome (%d processes)", len(chrome)),
		IssueDescription: fmt.Sprintf("Chrome browser consuming excessive memory: %.1f GB across %d processes (~%d tabs). Runtime: %.0f hours.",
			memGB, len(chrome), tabs, runtimeHours),
		Recommendation: "Optimize Chrome browser memory usage:\n\n" +
			fmt.Sprintf("1. Restart Chrome (%.0fh runtime → accumulated memory leaks)\n", runtimeHours) +
			fmt.Sprintf("   Expected savings: ~%.1f GB\n\n", memGB*0.25) +
			fmt.Sprintf("2. Close unused tabs (estimated ~%d open)\n", tabs) +
			fmt.Sprintf("   Expected savings: ~%.1f GB\n\n", memGB*0.4) +
			"3. Install a tab suspender extension\n" +
			"   Auto-suspends inactive tabs, saves ~60-70% memory\n\n" +
			"4. Keep active tabs under 15-20\n\n" +
			"5. Restart browser every few days to prevent memory leaks",
		EstimatedImpact: fmt.Sprintf("Reclaim %.1f-%.1f GB RAM", memGB*0.5, memGB*0.7),
		Priority:        model.SeverityMedium,
	}
}

// checkDockerLimits flags container runtimes holding a large share of RAM.
func checkDockerLimits(in input) *model.Recommendation {
	var docker []model.Process
	for _, p := range in.procs {
		if nameContains(p, dockerNames) {
			docker = append(docker, p)
		}
	}
	if len(docker) == 0 {
		return nil
	}
	rss := totalRSS(docker)
	memGB := float64(rss) / gib
	var pct float64
	if total := model.Deref(in.sample.MemoryTotal); total > 0 {
		pct = float64(rss) / float64(total) * 100
	}
	if pct < 30 && memGB < 6 {
		return nil
	}

	var lines []string
	top := byRSS(docker)
	for _, p := range top[:min(len(top), 5)] {
		lines = append(lines, fmt.Sprintf("  - %s (PID %d): %s", p.Name, p.Pid, humanize.IBytes(p.MemoryRSS)))
	}

	return &model.Recommendation{
		Type:          TypeDockerLimits,
		TargetProcess: "docker containers",
		IssueDescription: fmt.Sprintf("Docker containers consuming %.1f GB (%.0f%% of RAM) across %d processes without apparent resource limits.",
			memGB, pct, len(docker)),
		Recommendation: "Configure Docker resource limits:\n\n" +
			fmt.Sprintf("Docker memory usage: %.1f GB (%.0f%% of RAM)\n\n", memGB, pct) +
			fmt.Sprintf("Top containers:\n%s\n\n", strings.Join(lines, "\n")) +
			"Actions:\n" +
			"1. Set memory limits: docker run --memory=2g --memory-swap=2g <container>\n" +
			"2. In docker-compose.yml:\n" +
			"   services:\n" +
			"     app:\n" +
			"       mem_limit: 2g\n" +
			"       mem_reservation: 1.5g\n\n" +
			"3. Set CPU limits: --cpus=2.0\n" +
			"4. Monitor: docker stats",
		EstimatedImpact: "Prevent system-wide memory exhaustion, improve stability",
		Priority:        model.SeverityHigh,
	}
}

// checkBuildOptimization flags compilers running while most CPU is idle.
func checkBuildOptimization(in input) *model.Recommendation {
	var compilers []model.Process
	for _, p := range in.procs {
		if compilerNames[strings.ToLower(p.Name)] {
			compilers = append(compilers, p)
		}
	}
	if len(compilers) == 0 {
		return nil
	}
	cpuPct := model.Deref(in.sample.CPUPercent)
	if cpuPct/100 > 0.5 {
		return nil
	}
	cores := model.Deref(in.sample.CPUCountLogical)
	if cores <= 0 {
		cores = 1
	}

	var names []string
	for _, p := range compilers[:min(len(compilers), 3)] {
		names = append(names, p.Name)
	}
	joined := strings.Join(names, ", ")
	pid := compilers[0].Pid

	return &model.Recommendation{
		Type:          TypeBuildOptimization,
		TargetProcess: fmt.Sprintf("compiler (%s)", joined),
		TargetPid:     &pid,
		IssueDescription: fmt.Sprintf("Build system not utilizing available CPU cores efficiently. "+
			"CPU usage: %.0f%% with %d cores available. Detected compiler processes: %s.", cpuPct, cores, joined),
		Recommendation: "Enable parallel compilation:\n\n" +
			fmt.Sprintf("Available CPU cores: %d\n", cores) +
			fmt.Sprintf("Current CPU utilization: %.0f%%\n\n", cpuPct) +
			"Actions:\n" +
			fmt.Sprintf("1. Use make with -j flag: make -j%d\n", cores) +
			fmt.Sprintf("2. For CMake: cmake --build . -j%d\n", cores) +
			fmt.Sprintf("3. For Ninja: ninja -j%d\n\n", cores) +
			"Expected improvement:\n" +
			fmt.Sprintf("- Build time reduction: ~%dx faster\n", cores-1) +
			fmt.Sprintf("- CPU utilization: %.0f%% → 90%%+\n\n", cpuPct) +
			"Bonus: Install ccache for faster recompilation",
		EstimatedImpact: fmt.Sprintf("%d-%dx faster builds", cores-1, cores),
		Priority:        model.SeverityMedium,
	}
}
