// Package metrics exposes Prometheus instrumentation for the HTTP surface
// and the chore engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var requestCount = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chorebank_requests_total",
		Help: "HTTP requests processed, partitioned by status code, method and route pattern.",
	},
	[]string{"code", "method", "pattern"},
)

var requestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "chorebank_request_duration_seconds",
		Help: "HTTP request latencies in seconds.",
	},
	[]string{"code", "method", "pattern"},
)

var generationRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chorebank_generation_runs_total",
		Help: "Generation cycles executed, partitioned by dry-run flag.",
	},
	[]string{"dry_run"},
)

var assignmentsGenerated = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "chorebank_assignments_generated_total",
		Help: "Assignments created by generation cycles.",
	},
)

var penaltiesApplied = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "chorebank_penalties_applied_total",
		Help: "Streak penalties debited by generation cycles.",
	},
)

var bidsPlaced = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "chorebank_bids_placed_total",
		Help: "Bids accepted on competitive assignments.",
	},
)

var completionsDecided = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chorebank_completions_decided_total",
		Help: "Guardian decisions on completions, partitioned by outcome.",
	},
	[]string{"status"},
)

var collectors = []prometheus.Collector{
	requestCount,
	requestDuration,
	generationRuns,
	assignmentsGenerated,
	penaltiesApplied,
	bidsPlaced,
	completionsDecided,
}

// Register adds all collectors to the default registry.
func Register() error {
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Unregister removes all collectors, needed for a clean shutdown and for
// tests that register twice.
func Unregister() {
	for _, c := range collectors {
		prometheus.Unregister(c)
	}
}

// Handler serves the scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordGenerationRun accounts one cycle's totals.
func RecordGenerationRun(dryRun bool, assignments, penalties int) {
	generationRuns.WithLabelValues(strconv.FormatBool(dryRun)).Inc()
	assignmentsGenerated.Add(float64(assignments))
	penaltiesApplied.Add(float64(penalties))
}

// RecordBid accounts one accepted bid.
func RecordBid() {
	bidsPlaced.Inc()
}

// RecordDecision accounts one guardian decision.
func RecordDecision(status string) {
	completionsDecided.WithLabelValues(status).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware instruments a handler. The route pattern, not the raw path,
// keeps label cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, req)

		pattern := req.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		code := strconv.Itoa(rec.status)
		elapsed := time.Since(start).Seconds()
		requestCount.WithLabelValues(code, req.Method, pattern).Inc()
		requestDuration.WithLabelValues(code, req.Method, pattern).Observe(elapsed)
	})
}
