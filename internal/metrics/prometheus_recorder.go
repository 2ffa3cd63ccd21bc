package metrics

import (
	"fmt"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	generations   *prom.CounterVec
	duration      prom.Histogram
	urls          prom.Gauge
	verifyResults *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		generations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitemap",
			Name:      "generations_total",
			Help:      "Sitemap generations by outcome",
		}, []string{"outcome"}),
		duration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "sitemap",
			Name:      "generation_duration_seconds",
			Help:      "Time to walk the site and render the sitemap",
			Buckets:   prom.DefBuckets,
		}),
		urls: prom.NewGauge(prom.GaugeOpts{
			Namespace: "sitemap",
			Name:      "urls",
			Help:      "URLs in the last successful sitemap",
		}),
		verifyResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitemap",
			Name:      "verify_results_total",
			Help:      "Verified sitemap URLs by result",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.generations, pr.duration, pr.urls, pr.verifyResults)
	return pr
}

func (p *PrometheusRecorder) ObserveGeneration(d time.Duration, urls int, outcome Outcome) {
	if p == nil {
		return
	}
	p.generations.WithLabelValues(string(outcome)).Inc()
	p.duration.Observe(d.Seconds())
	if outcome == OutcomeSuccess {
		p.urls.Set(float64(urls))
	}
}

func (p *PrometheusRecorder) IncVerifyResult(ok bool) {
	if p == nil {
		return
	}
	res := "broken"
	if ok {
		res = "ok"
	}
	p.verifyResults.WithLabelValues(res).Inc()
}

// HTTPHandler returns an http.Handler that serves the metrics of reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// WriteTextfile writes the metrics of g to path in the text exposition
// format read by node_exporter's textfile collector. The file is replaced
// atomically.
func WriteTextfile(path string, g prom.Gatherer) error {
	if err := prom.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
