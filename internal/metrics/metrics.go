// Package metrics exposes onboarding activity to Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/onboarding"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "onboarding"

// Recorder counts lifecycle events and samples the registry on scrape.
type Recorder struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
}

// NewRecorder builds a recorder with its own registry. stats is sampled on
// every scrape; extra gauges can be added with Gauge.
func NewRecorder(stats func() onboarding.RegistryStats) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Onboarding lifecycle events by type.",
			},
			[]string{"type"},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.events,
	)

	if stats != nil {
		r.Gauge("joins_in_flight", "Join events currently being handled.", func() float64 { return float64(stats().Processing) })
		r.Gauge("pending_follow_ups", "Follow-ups waiting for their due time.", func() float64 { return float64(stats().Pending) })
		r.Gauge("active_prompts", "Interactive prompts that have not expired.", func() float64 { return float64(stats().Prompts) })
		r.Gauge("recent_joins", "Join stamps inside the suppression window.", func() float64 { return float64(stats().Recent) })
	}
	return r
}

// Gauge registers a gauge sampled from fn on every scrape.
func (r *Recorder) Gauge(name, help string, fn func() float64) {
	r.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		},
		fn,
	))
}

// Publish implements onboarding.EventSink.
func (r *Recorder) Publish(_ context.Context, e onboarding.Event) {
	r.events.WithLabelValues(string(e.Type)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry is exposed for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

var _ onboarding.EventSink = (*Recorder)(nil)
