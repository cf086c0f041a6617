package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := NewCollector()

	c.ObserveAnalysis(OutcomeOK, 20*time.Millisecond)
	c.ObserveAnalysis(OutcomeOK, 5*time.Millisecond)
	c.ObserveAnalysis(OutcomeInvalid, time.Millisecond)
	c.ObserveMetric("ANOVA", "complete")
	c.ObserveMetric("", "no_data")
	c.ObservePersist(nil)
	c.ObservePersist(errors.New("db down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.analysesTotal.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.analysesTotal.WithLabelValues(OutcomeInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metricsTotal.WithLabelValues("none", "no_data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsPersisted.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.analysisDuration))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveAnalysis(OutcomeOK, time.Second)
		c.ObserveMetric("ANOVA", "complete")
		c.ObservePersist(nil)
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.ObserveMetric("Kruskal-Wallis", "complete")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gocompare_metric_reports_total{kind="complete",test="Kruskal-Wallis"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
