// Package metrics exposes the store's Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	CartsStarted  prometheus.Counter
	Transitions   *prometheus.CounterVec
	Escalations   *prometheus.CounterVec
	Expired       prometheus.Counter
	WebhookEvents *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the counters on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		CartsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "robux_store",
			Name:      "carts_started_total",
			Help:      "Carts opened with a dedicated thread.",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "robux_store",
			Name:      "cart_transitions_total",
			Help:      "Cart status transitions by target status.",
		}, []string{"status"}),
		Escalations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "robux_store",
			Name:      "escalations_total",
			Help:      "Admin escalations by kind.",
		}, []string{"kind"}),
		Expired: f.NewCounter(prometheus.CounterOpts{
			Namespace: "robux_store",
			Name:      "carts_expired_total",
			Help:      "Carts closed by the expiry deadline.",
		}),
		WebhookEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "robux_store",
			Name:      "payment_webhook_events_total",
			Help:      "Payment webhook deliveries by outcome.",
		}, []string{"outcome"}),
		gatherer: reg,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
