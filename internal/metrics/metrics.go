package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	OrdersProcessed prometheus.Counter
	TradesExecuted  prometheus.Counter
	MatchingLatency prometheus.Histogram
	BookDepth       *prometheus.GaugeVec
}

func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,

		OrdersProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_processed_total",
			Help:      "Total number of orders processed",
		}),
		TradesExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_executed_total",
			Help:      "Total number of trades executed",
		}),
		MatchingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "matching_latency_seconds",
			Help:      "Order placement latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		BookDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orderbook_depth",
			Help:      "Current order book depth by side",
		}, []string{"symbol", "side"}),
	}
	registry.MustRegister(
		m.OrdersProcessed,
		m.TradesExecuted,
		m.MatchingLatency,
		m.BookDepth,
	)
	return m
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
