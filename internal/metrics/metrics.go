package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nwkr_events_total",
			Help: "Notification events by terminal classification",
		},
		[]string{"classification"}, // delivered|malformed|permanent_failure|transient_failure
	)

	AuditAppendFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nwkr_audit_append_failures_total",
			Help: "Audit store appends that failed (best-effort, never fatal)",
		},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		EventsProcessed,
		AuditAppendFailures,
	)
}
