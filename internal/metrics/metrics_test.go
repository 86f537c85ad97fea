// internal/metrics/metrics_test.go
package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.PageFetched("history")
	m.PageFetched("history")
	m.CommitsFetched(150)
	m.Write("checkpoint")
	m.WriteSkipped("checkpoint")
	m.Run("changed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.pagesFetched.WithLabelValues("history")))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.commitsFetched))

	expected := `
# HELP contributions_syncer_runs_total Sync runs, by result (changed, unchanged, error).
# TYPE contributions_syncer_runs_total counter
contributions_syncer_runs_total{result="changed"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "contributions_syncer_runs_total"))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.PageFetched("history")
		m.CommitsFetched(1)
		m.Write("checkpoint")
		m.WriteSkipped("checkpoint")
		m.Run("error")
	})
}
