// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "contributions"

// Metrics holds the collectors updated by the crawler, the aggregator and the syncer.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	pagesFetched     *prometheus.CounterVec
	commitsFetched   prometheus.Counter
	checkpointWrites *prometheus.CounterVec
	skippedWrites    *prometheus.CounterVec
	runs             *prometheus.CounterVec
}

// New creates the collectors and registers them on reg when reg is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawler",
			Name:      "pages_fetched_total",
			Help:      "GraphQL pages fetched, by resource.",
		}, []string{"resource"}),
		commitsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawler",
			Name:      "commits_fetched_total",
			Help:      "Commits returned by the history API.",
		}),
		checkpointWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "writes_total",
			Help:      "Items written to storage, by kind.",
		}, []string{"kind"}),
		skippedWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "writes_skipped_total",
			Help:      "Writes skipped because the serialized state did not change, by kind.",
		}, []string{"kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "syncer",
			Name:      "runs_total",
			Help:      "Sync runs, by result (changed, unchanged, error).",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.pagesFetched, m.commitsFetched, m.checkpointWrites, m.skippedWrites, m.runs)
	}
	return m
}

func (m *Metrics) PageFetched(resource string) {
	if m == nil {
		return
	}
	m.pagesFetched.WithLabelValues(resource).Inc()
}

func (m *Metrics) CommitsFetched(n int) {
	if m == nil {
		return
	}
	m.commitsFetched.Add(float64(n))
}

func (m *Metrics) Write(kind string) {
	if m == nil {
		return
	}
	m.checkpointWrites.WithLabelValues(kind).Inc()
}

func (m *Metrics) WriteSkipped(kind string) {
	if m == nil {
		return
	}
	m.skippedWrites.WithLabelValues(kind).Inc()
}

func (m *Metrics) Run(result string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
}
