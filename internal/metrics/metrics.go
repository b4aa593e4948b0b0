// Package metrics exposes Prometheus counters for the tracking engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "weekcheck"

// Metrics groups the engine's collectors. A nil *Metrics is a no-op.
type Metrics struct {
	// IntakeOutcomes counts handled events.
	// Labels: outcome (completed, no_completion, duplicate, late, ...)
	IntakeOutcomes *prometheus.CounterVec

	// ClassifierCalls counts classifier invocations.
	// Labels: result (yes, no, error)
	ClassifierCalls *prometheus.CounterVec

	// MessagesSent counts outbound messages.
	// Labels: kind (congratulation, reminder, auto_reply), result (success, error)
	MessagesSent *prometheus.CounterVec

	// ActiveGroups is the size of the directory's active set
	ActiveGroups prometheus.Gauge

	// SnapshotWrites counts persistence attempts.
	// Labels: snapshot, result (success, error)
	SnapshotWrites *prometheus.CounterVec
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		IntakeOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "intake",
				Name:      "events_total",
				Help:      "Total number of inbound events by outcome",
			},
			[]string{"outcome"},
		),
		ClassifierCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "classifier",
				Name:      "calls_total",
				Help:      "Total number of classifier calls by result",
			},
			[]string{"result"},
		),
		MessagesSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "messages_sent_total",
				Help:      "Total number of outbound messages by kind and result",
			},
			[]string{"kind", "result"},
		),
		ActiveGroups: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "directory",
				Name:      "active_groups",
				Help:      "Number of groups currently monitored",
			},
		),
		SnapshotWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "snapshot_writes_total",
				Help:      "Total number of snapshot writes by snapshot and result",
			},
			[]string{"snapshot", "result"},
		),
	}
}

// Outcome records one intake outcome
func (m *Metrics) Outcome(outcome string) {
	if m == nil {
		return
	}
	m.IntakeOutcomes.WithLabelValues(outcome).Inc()
}

// Classified records one classifier call
func (m *Metrics) Classified(result string) {
	if m == nil {
		return
	}
	m.ClassifierCalls.WithLabelValues(result).Inc()
}

// Sent records one outbound message
func (m *Metrics) Sent(kind string, err error) {
	if m == nil {
		return
	}
	m.MessagesSent.WithLabelValues(kind, result(err)).Inc()
}

// SetActiveGroups updates the active group gauge
func (m *Metrics) SetActiveGroups(n int) {
	if m == nil {
		return
	}
	m.ActiveGroups.Set(float64(n))
}

// Persisted records one snapshot write
func (m *Metrics) Persisted(snapshot string, err error) {
	if m == nil {
		return
	}
	m.SnapshotWrites.WithLabelValues(snapshot, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
