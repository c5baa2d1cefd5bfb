package events

import (
	"github.com/Poursadegh/blockChainFullStack/internal/domain"
	"github.com/Poursadegh/blockChainFullStack/internal/metrics"
)

// MetricsSink folds engine events into the Prometheus collectors.
type MetricsSink struct {
	m *metrics.Metrics
}

func NewMetricsSink(m *metrics.Metrics) *MetricsSink {
	return &MetricsSink{m: m}
}

func (s *MetricsSink) PublishTrade(t *domain.Trade) {
	s.m.TradesExecuted.Inc()
}

func (s *MetricsSink) PublishBook(snap *domain.BookSnapshot) {
	s.m.BookDepth.WithLabelValues(snap.Symbol, string(domain.Buy)).Set(float64(len(snap.Bids)))
	s.m.BookDepth.WithLabelValues(snap.Symbol, string(domain.Sell)).Set(float64(len(snap.Asks)))
}
