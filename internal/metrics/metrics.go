package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "littlex_actions_total",
		Help: "Total dispatched actions by operation and outcome",
	}, []string{"op", "outcome"})
	ActionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "littlex_action_duration_seconds",
		Help:    "Action duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "littlex_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
	NotificationsRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "littlex_notifications_recorded_total",
		Help: "Total entries appended to the notification log",
	})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "littlex_command_runs_total",
		Help: "Total CLI command invocations",
	}, []string{"cmd"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "littlex_command_errors_total",
		Help: "Total CLI command failures",
	}, []string{"cmd"})
)

func init() {
	prometheus.MustRegister(ActionsTotal, ActionDuration, APIRetries, NotificationsRecorded, CommandRuns, CommandErrors)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("LITTLEX_METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// IncAction increments the action counter for an op and outcome.
func IncAction(op, outcome string) { ActionsTotal.WithLabelValues(op, outcome).Inc() }

// ObserveActionDuration records how long an action took end to end.
func ObserveActionDuration(start time.Time) {
	ActionDuration.Observe(time.Since(start).Seconds())
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

// IncCommandRun and IncCommandError count CLI command outcomes.
func IncCommandRun(cmd string) { CommandRuns.WithLabelValues(cmd).Inc() }

func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
