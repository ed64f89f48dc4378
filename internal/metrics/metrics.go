// Package metrics records token, request and reconciliation counters and
// writes them in the Prometheus text format for node_exporter's textfile
// collector.
package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spiffcs/linksync/internal/auth"
	"github.com/spiffcs/linksync/internal/ghclient"
	"github.com/spiffcs/linksync/internal/reconcile"
)

// Recorder holds the linksync counters on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	tokens    *prometheus.CounterVec
	requests  *prometheus.CounterVec
	issues    *prometheus.CounterVec
	reports   *prometheus.CounterVec
	remaining prometheus.Gauge
}

var (
	_ auth.Observer            = (*Recorder)(nil)
	_ ghclient.RequestObserver = (*Recorder)(nil)
	_ reconcile.Observer       = (*Recorder)(nil)
)

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linksync_token_acquisitions_total",
				Help: "Access token requests by strategy, cache use and result",
			},
			[]string{"strategy", "cached", "result"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linksync_api_requests_total",
				Help: "GitHub API requests by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		issues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linksync_issues_reconciled_total",
				Help: "Issues processed by reconciliation outcome",
			},
			[]string{"outcome"},
		),
		reports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linksync_reports_generated_total",
				Help: "Synchronization reports generated per repository",
			},
			[]string{"repository"},
		),
		remaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "linksync_rate_limit_remaining",
			Help: "Most recently observed remaining GitHub API quota",
		}),
	}
	r.registry.MustRegister(r.tokens, r.requests, r.issues, r.reports, r.remaining)
	return r
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// TokenAcquired implements auth.Observer.
func (r *Recorder) TokenAcquired(strategy string, cached bool, err error) {
	r.tokens.WithLabelValues(strategy, strconv.FormatBool(cached), result(err)).Inc()
}

// RequestCompleted implements ghclient.RequestObserver.
func (r *Recorder) RequestCompleted(method string, status int, err error) {
	r.requests.WithLabelValues(method, requestOutcome(status, err)).Inc()
}

// IssueReconciled implements reconcile.Observer.
func (r *Recorder) IssueReconciled(outcome string) {
	r.issues.WithLabelValues(outcome).Inc()
}

// ReportGenerated implements reconcile.Observer.
func (r *Recorder) ReportGenerated(repository string) {
	r.reports.WithLabelValues(repository).Inc()
}

// SetRateLimitRemaining records the remaining API quota.
func (r *Recorder) SetRateLimitRemaining(remaining int) {
	r.remaining.Set(float64(remaining))
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return errors.New("metrics file path is empty")
	}
	return prometheus.WriteToTextfile(path, r.registry)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func requestOutcome(status int, err error) string {
	switch {
	case err != nil:
		return "error"
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "ok"
	}
}
