package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Analyses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rugguard_analyses_total",
		Help: "Account analyses by outcome",
	}, []string{"outcome"})
	DegradedStages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rugguard_degraded_stages_total",
		Help: "Feature or scoring stages that fell back to a default",
	}, []string{"stage"})
	TrustDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rugguard_trust_decisions_total",
		Help: "Trust classifications by level",
	}, []string{"level"})
	ReportTiers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rugguard_report_tiers_total",
		Help: "Composed reports by truncation tier",
	}, []string{"tier"})
	TrustedRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rugguard_trusted_refreshes_total",
		Help: "Successful trusted-list refreshes",
	})
	TrustedRefreshErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rugguard_trusted_refresh_errors_total",
		Help: "Failed trusted-list refreshes",
	})
	TrustedSetSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rugguard_trusted_set_size",
		Help: "Usernames in the active trusted set",
	})
	RepliesPosted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rugguard_replies_total",
		Help: "Replies by result (posted, dry_run, budget, error)",
	}, []string{"result"})
	APIRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rugguard_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rugguard_analysis_duration_seconds",
		Help:    "End-to-end analysis duration",
		Buckets: prometheus.DefBuckets,
	})
	CommandRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rugguard_command_runs_total",
		Help: "CLI command invocations",
	}, []string{"command"})
	CommandErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rugguard_command_errors_total",
		Help: "CLI command failures",
	}, []string{"command"})
	RiskScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rugguard_risk_score",
		Help:    "Distribution of computed risk scores",
		Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})
)

// Handler serves /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return mux
}

// NewServer returns an unstarted metrics server on addr (e.g., ":9090").
func NewServer(addr string) *http.Server {
	return &http.Server{Addr: addr, Handler: Handler(), ReadHeaderTimeout: 5 * time.Second}
}

func ObserveAnalysisDuration(start time.Time) {
	AnalysisDuration.Observe(time.Since(start).Seconds())
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }
