// Package telemetry exports audit results as Prometheus metrics.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/starford/refgraph/internal/audit"
	"github.com/starford/refgraph/internal/linkgraph"
)

const namespace = "refgraph"

// Metrics holds the audit gauges on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	documents   prometheus.Gauge
	declaring   prometheus.Gauge
	edges       prometheus.Gauge
	density     prometheus.Gauge
	coverage    prometheus.Gauge
	orphans     prometheus.Gauge
	isolated    prometheus.Gauge
	circular    prometheus.Gauge
	passed      prometheus.Gauge
	findings    *prometheus.GaugeVec
	runs        *prometheus.CounterVec
	duration    prometheus.Histogram
	lastAuditTS prometheus.Gauge
}

// New registers the audit metrics on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
		reg.MustRegister(g)
		return g
	}

	m := &Metrics{
		registry:    reg,
		documents:   gauge("documents", "Documents in the audited corpus."),
		declaring:   gauge("declaring_documents", "Documents carrying a related-articles declaration."),
		edges:       gauge("edges", "Reference edges in the link graph."),
		density:     gauge("density", "Average references per declaring document."),
		coverage:    gauge("coverage_ratio", "Share of documents carrying a declaration."),
		orphans:     gauge("orphans", "Declaring documents no other document links to."),
		isolated:    gauge("isolated_categories", "Categories linking to too few other categories."),
		circular:    gauge("circular_pairs", "Document pairs that only reference each other."),
		passed:      gauge("audit_passed", "1 when the last audit passed its policy, else 0."),
		lastAuditTS: gauge("last_audit_timestamp_seconds", "Unix time of the last completed audit."),
		findings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "findings",
			Help:      "Structural findings of the last audit by kind.",
		}, []string{"kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audits_total",
			Help:      "Completed audits by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "audit_duration_seconds",
			Help:      "Wall time of load plus audit.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
	reg.MustRegister(m.findings, m.runs, m.duration)
	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Observe records a completed audit.
func (m *Metrics) Observe(r *audit.Report, v audit.Verdict, took time.Duration) {
	mt := r.Metrics
	m.documents.Set(float64(mt.TotalDocuments))
	m.declaring.Set(float64(mt.DeclaringDocuments))
	m.edges.Set(float64(mt.EdgeCount))
	m.density.Set(mt.Density)
	m.coverage.Set(mt.Coverage)
	m.orphans.Set(float64(mt.OrphanCount))
	m.isolated.Set(float64(len(mt.IsolatedCategories)))
	m.circular.Set(float64(len(mt.CircularPairs)))

	counts := r.ErrorCounts()
	for _, k := range linkgraph.AllKinds {
		m.findings.WithLabelValues(string(k)).Set(float64(counts[k]))
	}

	outcome := "failed"
	if v.Passed {
		outcome = "passed"
		m.passed.Set(1)
	} else {
		m.passed.Set(0)
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.duration.Observe(took.Seconds())
	m.lastAuditTS.SetToCurrentTime()
}
