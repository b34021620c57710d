// internal/analysis/severity.go
package analysis

import "github.com/signalnine/perfwatch/internal/model"

// SeverityLevels holds the |z| cutoff for each tier. Cutoffs are inclusive.
type SeverityLevels struct {
	Low      float64
	Medium   float64
	High     float64
	Critical float64
}

// DefaultSeverityLevels returns the stock cutoffs 1.5/2.0/2.5/3.0.
func DefaultSeverityLevels() SeverityLevels {
	return SeverityLevels{Low: 1.5, Medium: 2.0, High: 2.5, Critical: 3.0}
}

// LevelsFromMap builds cutoffs from a config map keyed by tier name. Missing
// keys keep their default and unknown keys are ignored.
func LevelsFromMap(m map[string]float64) SeverityLevels {
	l := DefaultSeverityLevels()
	if v, ok := m["low"]; ok {
		l.Low = v
	}
	if v, ok := m["medium"]; ok {
		l.Medium = v
	}
	if v, ok := m["high"]; ok {
		l.High = v
	}
	if v, ok := m["critical"]; ok {
		l.Critical = v
	}
	return l
}

// Classify maps an absolute z-score to the highest tier whose cutoff it meets.
func (l SeverityLevels) Classify(absZ float64) model.Severity {
	switch {
	case absZ >= l.Critical:
		return model.SeverityCritical
	case absZ >= l.High:
		return model.SeverityHigh
	case absZ >= l.Medium:
		return model.SeverityMedium
	case absZ >= l.Low:
		return model.SeverityLow
	}
	return model.SeverityNormal
}
