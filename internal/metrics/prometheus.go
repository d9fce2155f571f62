// Package metrics exposes ledger activity to Prometheus.
//
// A nil *Collector is valid and records nothing, so services can be built without metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry           *prometheus.Registry
	transitions        *prometheus.CounterVec
	conflicts          *prometheus.CounterVec
	transfersCreated   prometheus.Counter
	recurrenceGen      prometheus.Counter
	recurrenceDone     prometheus.Counter
	overdueSwept       prometheus.Counter
	alertsRaised       *prometheus.CounterVec
	reconciled         *prometheus.CounterVec
	schedulerRunTiming *prometheus.HistogramVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_status_transitions_total",
			Help: "Transaction status transitions applied",
		}, []string{"from", "to"}),
		conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_conflicts_total",
			Help: "Operations rejected by optimistic concurrency checks",
		}, []string{"operation"}),
		transfersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_transfers_created_total",
			Help: "Transfer pairs committed",
		}),
		recurrenceGen: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_recurrence_generated_total",
			Help: "Transactions materialized from recurrence rules",
		}),
		recurrenceDone: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_recurrence_exhausted_total",
			Help: "Recurrence rules deactivated by their stop condition",
		}),
		overdueSwept: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_overdue_swept_total",
			Help: "Transactions moved to overdue by the periodic sweep",
		}),
		alertsRaised: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_alerts_raised_total",
			Help: "Alerts created by the alert engine",
		}, []string{"type"}),
		reconciled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_statement_lines_total",
			Help: "Statement lines processed by reconciliation",
		}, []string{"result"}),
		schedulerRunTiming: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_scheduler_run_duration_seconds",
			Help:    "Duration of background ledger jobs",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
	}
}

func (c *Collector) ObserveTransition(from, to string) {
	if c == nil || from == to {
		return
	}

	c.transitions.WithLabelValues(from, to).Inc()
}

func (c *Collector) ObserveConflict(operation string) {
	if c == nil {
		return
	}

	c.conflicts.WithLabelValues(operation).Inc()
}

func (c *Collector) ObserveTransfer() {
	if c == nil {
		return
	}

	c.transfersCreated.Inc()
}

func (c *Collector) ObserveGenerated(n int, exhausted bool) {
	if c == nil {
		return
	}

	c.recurrenceGen.Add(float64(n))

	if exhausted {
		c.recurrenceDone.Inc()
	}
}

func (c *Collector) ObserveSwept(n int) {
	if c == nil {
		return
	}

	c.overdueSwept.Add(float64(n))
}

func (c *Collector) ObserveAlert(alertType string) {
	if c == nil {
		return
	}

	c.alertsRaised.WithLabelValues(alertType).Inc()
}

func (c *Collector) ObserveReconciliation(matched, unmatched int) {
	if c == nil {
		return
	}

	c.reconciled.WithLabelValues("matched").Add(float64(matched))
	c.reconciled.WithLabelValues("unmatched").Add(float64(unmatched))
}

func (c *Collector) ObserveJob(job string, seconds float64) {
	if c == nil {
		return
	}

	c.schedulerRunTiming.WithLabelValues(job).Observe(seconds)
}

// Handler serves the collector's registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
