package observability

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/postconfctl/internal/postconf"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "postconfctl",
			Subsystem: "reconcile",
			Name:      "total",
			Help:      "Parameter reconciliations by intent and outcome.",
		},
		[]string{"state", "outcome", "check_mode"},
	)
	reconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "postconfctl",
			Subsystem: "reconcile",
			Name:      "duration_seconds",
			Help:      "Parameter reconciliation duration in seconds, postconf calls included.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"state"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "postconfctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Agent HTTP requests by route and status.",
		},
		[]string{"method", "route", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "postconfctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Agent HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(reconcileTotal, reconcileDuration, httpRequests, httpDuration)
	})
}

// Outcome labels a reconciliation result for metrics.
func Outcome(res postconf.Result, err error) string {
	switch {
	case err == nil && res.Changed:
		return "changed"
	case err == nil:
		return "ok"
	case errors.Is(err, postconf.ErrUnknownParameter):
		return "unknown_parameter"
	case errors.Is(err, postconf.ErrInvalidIntent):
		return "invalid_state"
	case errors.Is(err, postconf.ErrMutationFailed):
		return "update_failed"
	case errors.Is(err, postconf.ErrQuery):
		return "query_failed"
	default:
		return "error"
	}
}

func RecordReconcile(state string, outcome string, checkMode bool, duration time.Duration) {
	RegisterMetrics()
	reconcileTotal.WithLabelValues(state, outcome, strconv.FormatBool(checkMode)).Inc()
	reconcileDuration.WithLabelValues(state).Observe(duration.Seconds())
}

func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	RegisterMetrics()
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ReconcileMetrics records every reconciliation it observes. CheckMode
// labels failed runs, whose zero Result carries no dry-run flag.
type ReconcileMetrics struct {
	CheckMode bool
}

var _ postconf.Observer = ReconcileMetrics{}

func (m ReconcileMetrics) Observe(_ context.Context, req postconf.Request, res postconf.Result, err error, elapsed time.Duration) {
	RecordReconcile(string(req.Intent), Outcome(res, err), m.CheckMode || res.DryRun, elapsed)
}

// WriteTextfile dumps the default registry in node_exporter textfile format.
func WriteTextfile(path string) error {
	RegisterMetrics()
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
