package metrics

import (
	"fmt"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "assembler"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	reg           *prom.Registry
	buildDuration *prom.HistogramVec
	buildOutcome  *prom.CounterVec
	flushDuration prom.Histogram
	runOutcome    *prom.CounterVec
	runDuration   prom.Histogram
	routes        prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{reg: reg}
	pr.once.Do(func() {
		pr.buildDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of individual builder invocations",
			Buckets:   prom.DefBuckets,
		}, []string{"builder", "outcome"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Builder invocations by outcome",
		}, []string{"builder", "outcome"})
		pr.flushDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "flush_duration_seconds",
			Help:      "Time spent waiting for queued artifact writes",
			Buckets:   prom.DefBuckets,
		})
		pr.runOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Assembly runs by final status",
		}, []string{"outcome"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total assembly run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.routes = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "routes",
			Help:      "Number of routes in the last written output descriptor",
		})
		reg.MustRegister(pr.buildDuration, pr.buildOutcome, pr.flushDuration, pr.runOutcome, pr.runDuration, pr.routes)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(builder string, d time.Duration, outcome OutcomeLabel) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.WithLabelValues(builder, string(outcome)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(builder string, outcome OutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(builder, string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveFlushDuration(d time.Duration) {
	if p == nil || p.flushDuration == nil {
		return
	}
	p.flushDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome OutcomeLabel) {
	if p == nil || p.runOutcome == nil {
		return
	}
	p.runOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetRoutes(n int) {
	if p == nil || p.routes == nil {
		return
	}
	p.routes.Set(float64(n))
}

// WriteTextfile writes the registry in the text exposition format for the
// node_exporter textfile collector. The write goes through a temporary file
// so the collector never reads a partial file.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if p == nil || p.reg == nil {
		return nil
	}
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
