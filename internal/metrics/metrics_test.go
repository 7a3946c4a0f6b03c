package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matchLabels(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.ObserveRequest("models.search", 200, 15*time.Millisecond)
	m.ObserveRequest("models.search", 500, 5*time.Millisecond)
	m.ObserveRequest("models.search", 500, 5*time.Millisecond)
	m.SearchApplied(SourceLocal)
	m.SearchDiscarded()
	m.Submission("party", "success")

	assert.Equal(t, 1.0, counterValue(t, m, MetricRequestsTotal, map[string]string{"op": "models.search", "status": "200"}))
	assert.Equal(t, 2.0, counterValue(t, m, MetricRequestsTotal, map[string]string{"op": "models.search", "status": "500"}))
	assert.Equal(t, 1.0, counterValue(t, m, MetricSearchesTotal, map[string]string{"source": SourceLocal}))
	assert.Equal(t, 1.0, counterValue(t, m, MetricStaleSearchesTotal, nil))
	assert.Equal(t, 1.0, counterValue(t, m, MetricSubmissionsTotal, map[string]string{"form": "party", "outcome": "success"}))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("x", 200, time.Millisecond)
		m.SearchApplied(SourceRemote)
		m.SearchDiscarded()
		m.Submission("party", "failure")
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.SearchApplied(SourceRemote)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), MetricSearchesTotal)
}
