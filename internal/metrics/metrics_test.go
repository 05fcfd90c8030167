package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_ObserveReload(t *testing.T) {
	c := NewCollector()

	c.ObserveReload(nil, 12, 7)
	c.ObserveReload(errors.New("boom"), 0, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.reloadsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reloadsTotal.WithLabelValues("error")))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.graphCourses))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.graphEdges))
}

func TestCollector_ObservePlan(t *testing.T) {
	c := NewCollector()

	c.ObservePlan(true, 3, 10*time.Millisecond)
	c.ObservePlan(false, 0, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.plansTotal.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.plansTotal.WithLabelValues("false")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.planDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(c.planCandidates))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveReload(nil, 1, 1)
		c.ObservePlan(true, 1, time.Second)
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.ObserveReload(nil, 2, 1)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "gradplan_graph_courses 2")
	assert.Contains(t, string(body), `gradplan_graph_reloads_total{status="success"} 1`)
}
