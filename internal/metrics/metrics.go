package metrics

import (
    "net/http"
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    filesAnalyzed = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "ravianalyzer",
            Name:      "files_analyzed_total",
            Help:      "Uploaded files analysed by result (ok, empty, rejected, error)",
        },
        []string{"result"},
    )

    matchesFound = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "ravianalyzer",
            Name:      "matches_total",
            Help:      "Reported matches by status and source (keyword, refined)",
        },
        []string{"status", "source"},
    )

    providerReqs = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "ravianalyzer",
            Name:      "provider_requests_total",
            Help:      "Total refinement provider requests by provider, model and result",
        },
        []string{"provider", "model", "result"},
    )

    providerLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "ravianalyzer",
            Name:      "provider_request_duration_seconds",
            Help:      "Duration of refinement provider requests by provider and model",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"provider", "model"},
    )

    refinements = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "ravianalyzer",
            Name:      "refinements_total",
            Help:      "Refinement passes by outcome (replaced, kept)",
        },
        []string{"outcome"},
    )

    analyzeLatency = prometheus.NewHistogram(
        prometheus.HistogramOpts{
            Namespace: "ravianalyzer",
            Name:      "analyze_duration_seconds",
            Help:      "Duration of analyze requests",
            Buckets:   prometheus.DefBuckets,
        },
    )

    registerOnce sync.Once
)

// Init registers collectors. Safe to call more than once.
func Init() {
    registerOnce.Do(func() {
        prometheus.MustRegister(filesAnalyzed, matchesFound, providerReqs, providerLatency, refinements, analyzeLatency)
    })
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func IncFile(result string) { filesAnalyzed.WithLabelValues(result).Inc() }

func IncMatch(status, source string) { matchesFound.WithLabelValues(status, source).Inc() }

func ObserveProvider(provider, model, result string, dur time.Duration) {
    providerReqs.WithLabelValues(provider, model, result).Inc()
    providerLatency.WithLabelValues(provider, model).Observe(dur.Seconds())
}

func IncRefinement(outcome string) { refinements.WithLabelValues(outcome).Inc() }

func ObserveAnalyze(dur time.Duration) { analyzeLatency.Observe(dur.Seconds()) }
