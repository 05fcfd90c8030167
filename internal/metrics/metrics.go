// Package metrics exposes Prometheus collectors for graph reloads and plan
// requests on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector captures engine metrics.
type Collector struct {
	registry       *prometheus.Registry
	reloadsTotal   *prometheus.CounterVec
	graphCourses   prometheus.Gauge
	graphEdges     prometheus.Gauge
	plansTotal     *prometheus.CounterVec
	planCandidates prometheus.Histogram
	planDuration   prometheus.Histogram
}

// NewCollector initializes a new metrics registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	c := &Collector{
		registry: registry,
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "gradplan_graph_reloads_total", Help: "Total number of curriculum graph reloads"},
			[]string{"status"},
		),
		graphCourses: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "gradplan_graph_courses", Help: "Courses in the published curriculum graph"},
		),
		graphEdges: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "gradplan_graph_edges", Help: "Prerequisite edges in the published curriculum graph"},
		),
		plansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "gradplan_plans_total", Help: "Total number of plan requests"},
			[]string{"program_found"},
		),
		planCandidates: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gradplan_plan_candidates",
				Help:    "Eligible candidates per plan request",
				Buckets: prometheus.LinearBuckets(0, 5, 10),
			},
		),
		planDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gradplan_plan_duration_seconds",
				Help:    "Plan computation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	registry.MustRegister(c.reloadsTotal, c.graphCourses, c.graphEdges, c.plansTotal, c.planCandidates, c.planDuration)
	return c
}

// ObserveReload records a reload outcome and, on success, the graph size.
func (c *Collector) ObserveReload(err error, courses, edges int) {
	if c == nil {
		return
	}
	if err != nil {
		c.reloadsTotal.WithLabelValues("error").Inc()
		return
	}
	c.reloadsTotal.WithLabelValues("success").Inc()
	c.graphCourses.Set(float64(courses))
	c.graphEdges.Set(float64(edges))
}

// ObservePlan records a plan request.
func (c *Collector) ObservePlan(programFound bool, candidates int, duration time.Duration) {
	if c == nil {
		return
	}
	c.plansTotal.WithLabelValues(strconv.FormatBool(programFound)).Inc()
	c.planCandidates.Observe(float64(candidates))
	c.planDuration.Observe(duration.Seconds())
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
