package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	buildDuration  prom.Histogram
	passDuration   prom.Histogram
	buildOutcome   *prom.CounterVec
	buildTrigger   *prom.CounterVec
	lastBuildStamp prom.Gauge
	lastBuildPages prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "reportbuild",
			Name:      "build_duration_seconds",
			Help:      "Total build duration across all engine passes",
			Buckets:   prom.DefBuckets,
		})
		pr.passDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "reportbuild",
			Name:      "pass_duration_seconds",
			Help:      "Duration of individual engine passes",
			Buckets:   prom.DefBuckets,
		})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "reportbuild",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.buildTrigger = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "reportbuild",
			Name:      "build_triggers_total",
			Help:      "Build triggers by origin",
		}, []string{"trigger"})
		pr.lastBuildStamp = prom.NewGauge(prom.GaugeOpts{
			Namespace: "reportbuild",
			Name:      "last_build_timestamp_seconds",
			Help:      "Unix timestamp of the last completed build",
		})
		pr.lastBuildPages = prom.NewGauge(prom.GaugeOpts{
			Namespace: "reportbuild",
			Name:      "last_build_pages",
			Help:      "Page count of the last successful build",
		})
		reg.MustRegister(pr.buildDuration, pr.passDuration, pr.buildOutcome, pr.buildTrigger, pr.lastBuildStamp, pr.lastBuildPages)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObservePassDuration(d time.Duration) {
	if p == nil || p.passDuration == nil {
		return
	}
	p.passDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncTrigger(trigger string) {
	if p == nil || p.buildTrigger == nil {
		return
	}
	p.buildTrigger.WithLabelValues(trigger).Inc()
}

func (p *PrometheusRecorder) SetLastBuildTimestamp(t time.Time) {
	if p == nil || p.lastBuildStamp == nil {
		return
	}
	p.lastBuildStamp.Set(float64(t.Unix()))
}

func (p *PrometheusRecorder) SetLastBuildPages(pages int) {
	if p == nil || p.lastBuildPages == nil {
		return
	}
	p.lastBuildPages.Set(float64(pages))
}

// HTTPHandler returns an http.Handler serving Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
