// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scans counts scan decisions by operation and result (success or denied).
	Scans = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classroom_access",
		Name:      "scans_total",
		Help:      "Scan decisions by operation and result.",
	}, []string{"operation", "result"})

	// SessionTransitions counts session state changes by target state.
	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classroom_access",
		Name:      "session_transitions_total",
		Help:      "Class session transitions by target state.",
	}, []string{"to"})

	// AttendanceWrites counts attendance rows written by resulting status.
	AttendanceWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classroom_access",
		Name:      "attendance_writes_total",
		Help:      "Attendance rows created or advanced, by resulting status.",
	}, []string{"status"})

	EarlyArrivalsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "classroom_access",
		Name:      "early_arrivals_expired_total",
		Help:      "Early arrival rows moved to Early Scan|Absent by cleanup.",
	})

	AuditFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "classroom_access",
		Name:      "audit_write_failures_total",
		Help:      "Access log entries that could not be written.",
	})

	Debounced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "classroom_access",
		Name:      "scans_debounced_total",
		Help:      "Repeated reader scans rejected inside the debounce window.",
	})
)
