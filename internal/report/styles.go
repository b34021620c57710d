// internal/report/styles.go
package report

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/signalnine/perfwatch/internal/model"
)

const (
	ruleWidth = 65
	barWidth  = 24
)

var titleCaser = cases.Title(language.English)

type styles struct {
	rule   lipgloss.Style
	title  lipgloss.Style
	bold   lipgloss.Style
	dim    lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	crit   lipgloss.Style
	high   lipgloss.Style
	low    lipgloss.Style
	plain  lipgloss.Style
	banner lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	var (
		red    = lipgloss.Color("#FF5555")
		yellow = lipgloss.Color("#F1FA8C")
		green  = lipgloss.Color("#50FA7B")
		cyan   = lipgloss.Color("#8BE9FD")
		blue   = lipgloss.Color("#6272A4")
		white  = lipgloss.Color("#F8F8F2")
		orange = lipgloss.Color("#FFB86C")
	)
	return styles{
		rule:   r.NewStyle().Foreground(cyan).Bold(true),
		title:  r.NewStyle().Foreground(white).Bold(true),
		bold:   r.NewStyle().Bold(true),
		dim:    r.NewStyle().Faint(true),
		ok:     r.NewStyle().Foreground(green),
		warn:   r.NewStyle().Foreground(yellow),
		crit:   r.NewStyle().Foreground(red).Bold(true),
		high:   r.NewStyle().Foreground(red),
		low:    r.NewStyle().Foreground(blue),
		plain:  r.NewStyle(),
		banner: r.NewStyle().Foreground(orange).Bold(true),
	}
}

// level picks ok/warn/crit for value against two inclusive thresholds.
func (s styles) level(value, warnAt, critAt float64) lipgloss.Style {
	switch {
	case value >= critAt:
		return s.crit
	case value >= warnAt:
		return s.warn
	}
	return s.ok
}

func (s styles) severity(sev model.Severity) lipgloss.Style {
	switch sev {
	case model.SeverityCritical:
		return s.crit
	case model.SeverityHigh:
		return s.high
	case model.SeverityMedium:
		return s.warn
	case model.SeverityLow:
		return s.low
	}
	return s.plain
}

func rule() string { return strings.Repeat("═", ruleWidth) }

// bar renders a bracketed fill bar for a 0-100 percentage.
func bar(pct float64) string {
	pct = max(0, min(100, pct))
	filled := int(pct / 100 * barWidth)
	return "[" + strings.Repeat("█", filled) + strings.Repeat(" ", barWidth-filled) + "]"
}

// label turns an identifier like "memory_leak" into "Memory Leak".
func label(id string) string {
	return titleCaser.String(strings.ReplaceAll(id, "_", " "))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
