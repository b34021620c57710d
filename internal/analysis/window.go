// internal/analysis/window.go
package analysis

import "time"

type point struct {
	ts    time.Time
	value float64
}

// window is a chronological buffer that drops points older than maxAge.
type window struct {
	maxAge time.Duration
	points []point
}

func newWindow(maxAge time.Duration) *window {
	return &window{maxAge: maxAge}
}

func (w *window) add(ts time.Time, v float64) {
	w.points = append(w.points, point{ts: ts, value: v})
}

// prune evicts from the front every point older than now-maxAge.
func (w *window) prune(now time.Time) {
	cutoff := now.Add(-w.maxAge)
	i := 0
	for i < len(w.points) && w.points[i].ts.Before(cutoff) {
		i++
	}
	if i == 0 {
		return
	}
	// copy down so the backing array does not grow without bound
	n := copy(w.points, w.points[i:])
	w.points = w.points[:n]
}

func (w *window) len() int { return len(w.points) }
