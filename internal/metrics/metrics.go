// Package metrics holds the Prometheus collectors of the editor bridge.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// eventsTotal counts inbound editor events by entry point.
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "editorbridge_events_total",
		Help: "Total number of inbound editor events by entry point",
	}, []string{"event"})

	// droppedEventsTotal counts inbound events discarded before reaching the session.
	droppedEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "editorbridge_dropped_events_total",
		Help: "Total number of inbound editor events dropped by the transport",
	}, []string{"transport", "reason"})

	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "editorbridge_commands_total",
		Help: "Total number of commands sent to the editor surface",
	}, []string{"command"})

	commandErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "editorbridge_command_errors_total",
		Help: "Total number of commands the transport refused",
	}, []string{"command"})

	// evaluateDuration tracks read-path round trips, successful or not.
	evaluateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "editorbridge_evaluate_duration_seconds",
		Help:    "Histogram of read-path evaluation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"accessor"})

	evaluateFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "editorbridge_evaluate_failures_total",
		Help: "Total number of read-path evaluations that produced no result",
	}, []string{"accessor"})
)

// RecordEvent counts one inbound event.
func RecordEvent(event string) {
	eventsTotal.WithLabelValues(event).Inc()
}

// RecordDroppedEvent counts one inbound event a transport could not deliver.
func RecordDroppedEvent(transport, reason string) {
	droppedEventsTotal.WithLabelValues(transport, reason).Inc()
}

// RecordCommand counts one command and, when err is non-nil, one refusal.
func RecordCommand(command string, err error) {
	commandsTotal.WithLabelValues(command).Inc()
	if err != nil {
		commandErrorsTotal.WithLabelValues(command).Inc()
	}
}

// ObserveEvaluate records one read-path round trip.
func ObserveEvaluate(accessor string, duration time.Duration, err error) {
	evaluateDuration.WithLabelValues(accessor).Observe(duration.Seconds())
	if err != nil {
		evaluateFailuresTotal.WithLabelValues(accessor).Inc()
	}
}
