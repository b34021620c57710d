// internal/server/handler.go
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/signalnine/perfwatch/internal/metrics"
	"github.com/signalnine/perfwatch/internal/model"
)

const (
	defaultHours = 24
	maxHours     = 720
)

// Source is the read side of the metric store the API serves.
type Source interface {
	RecentAnomalies(ctx context.Context, since time.Time) ([]model.Anomaly, error)
	RecentRecommendations(ctx context.Context, since time.Time) ([]model.Recommendation, error)
}

// BaselineLister exposes the cached baselines.
type BaselineLister interface {
	All() []model.Baseline
}

// API serves health, Prometheus metrics and read-only JSON views of
// anomalies, baselines and recommendations.
type API struct {
	src       Source
	baselines BaselineLister
	apiKey    string
	log       *zap.Logger
	clock     clock.Clock
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *API) { a.log = l }
}

// WithClock sets the clock the ?hours window is measured from.
func WithClock(c clock.Clock) Option {
	return func(a *API) { a.clock = c }
}

// NewAPI creates the handler set. An empty apiKey leaves /api open.
func NewAPI(src Source, baselines BaselineLister, apiKey string, opts ...Option) *API {
	a := &API{
		src:       src,
		baselines: baselines,
		apiKey:    apiKey,
		log:       zap.NewNop(),
		clock:     clock.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Routes returns the mux with every endpoint registered.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/api/anomalies", a.auth(http.HandlerFunc(a.anomalies)))
	mux.Handle("/api/baselines", a.auth(http.HandlerFunc(a.listBaselines)))
	mux.Handle("/api/recommendations", a.auth(http.HandlerFunc(a.recommendations)))
	return instrument(mux)
}

// routes are the only path labels recorded; anything else counts as "other"
// so unknown paths cannot grow the series set.
var routes = map[string]bool{
	"/health":              true,
	"/metrics":             true,
	"/api/anomalies":       true,
	"/api/baselines":       true,
	"/api/recommendations": true,
}

func routeLabel(path string) string {
	if routes[path] {
		return path
	}
	return "other"
}

func (a *API) auth(next http.Handler) http.Handler {
	if a.apiKey == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(a.apiKey)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) anomalies(w http.ResponseWriter, r *http.Request) {
	hours, ok := parseHours(w, r)
	if !ok {
		return
	}
	since := a.clock.Now().Add(-time.Duration(hours) * time.Hour)
	list, err := a.src.RecentAnomalies(r.Context(), since)
	if err != nil {
		a.log.Error("query anomalies failed", zap.Error(err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []model.Anomaly{}
	}
	a.writeJSON(w, map[string]any{"hours": hours, "count": len(list), "anomalies": list})
}

func (a *API) recommendations(w http.ResponseWriter, r *http.Request) {
	hours, ok := parseHours(w, r)
	if !ok {
		return
	}
	since := a.clock.Now().Add(-time.Duration(hours) * time.Hour)
	list, err := a.src.RecentRecommendations(r.Context(), since)
	if err != nil {
		a.log.Error("query recommendations failed", zap.Error(err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []model.Recommendation{}
	}
	a.writeJSON(w, map[string]any{"hours": hours, "count": len(list), "recommendations": list})
}

func (a *API) listBaselines(w http.ResponseWriter, r *http.Request) {
	list := a.baselines.All()
	a.writeJSON(w, map[string]any{"count": len(list), "baselines": list})
}

// parseHours reads ?hours, writing a 400 when it is malformed or out of range.
func parseHours(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("hours")
	if raw == "" {
		return defaultHours, true
	}
	h, err := strconv.Atoi(raw)
	if err != nil || h < 1 || h > maxHours {
		http.Error(w, "hours must be an integer between 1 and 720", http.StatusBadRequest)
		return 0, false
	}
	return h, true
}

func (a *API) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Debug("write response failed", zap.Error(err))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.HTTPRequestsTotal.WithLabelValues(routeLabel(r.URL.Path), strconv.Itoa(rec.code)).Inc()
	})
}
