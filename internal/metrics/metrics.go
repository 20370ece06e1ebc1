// Package metrics exposes Prometheus counters for the watch daemon.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/softvol/internal/events"
)

// Recorder tracks apply activity from bus events.
type Recorder struct {
	registry *prometheus.Registry

	patches   prometheus.Counter
	fallbacks prometheus.Counter
	restarts  prometheus.Counter
	failures  prometheus.Counter

	unsubs []func()
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		patches: factory.NewCounter(prometheus.CounterOpts{
			Name: "softvol_patches_applied_total",
			Help: "Mixer profile files rewritten by apply runs.",
		}),
		fallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "softvol_fallback_snippets_total",
			Help: "Soft-mixer fallback snippets written by apply runs.",
		}),
		restarts: factory.NewCounter(prometheus.CounterOpts{
			Name: "softvol_service_restarts_total",
			Help: "Audio service restart passes triggered by apply runs.",
		}),
		failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "softvol_apply_failures_total",
			Help: "Apply runs that ended in an error.",
		}),
	}
}

// Bind subscribes the recorder to apply events.
func (r *Recorder) Bind(bus *events.Bus) {
	r.unsubs = append(r.unsubs,
		bus.Subscribe(func(events.PatchAppliedEvent) { r.patches.Inc() }),
		bus.Subscribe(func(events.FallbackAppliedEvent) { r.fallbacks.Inc() }),
		bus.Subscribe(func(events.ServiceRestartedEvent) { r.restarts.Inc() }),
		bus.Subscribe(func(events.ApplyFailedEvent) { r.failures.Inc() }),
	)
}

// Unbind removes all bus subscriptions.
func (r *Recorder) Unbind() {
	for _, unsub := range r.unsubs {
		unsub()
	}
	r.unsubs = nil
}

// Handler serves the recorder's registry in Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
