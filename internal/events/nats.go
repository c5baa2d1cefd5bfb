package events

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"github.com/Poursadegh/blockChainFullStack/internal/domain"
)

const (
	tradeSubjectPrefix = "exchange.trades."
	bookSubjectPrefix  = "exchange.orderbook."
)

// natsConn is the part of *nats.Conn the publisher uses.
type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher mirrors engine events onto NATS subjects, one per symbol.
// Publishes are fire-and-forget; failures are logged and never reach the
// matching path.
type NATSPublisher struct {
	nc natsConn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{nc: nc}, nil
}

func (p *NATSPublisher) PublishTrade(t *domain.Trade) {
	p.publish(tradeSubjectPrefix+t.Symbol, NewTradeEnvelope(t))
}

func (p *NATSPublisher) PublishBook(snap *domain.BookSnapshot) {
	p.publish(bookSubjectPrefix+snap.Symbol, NewBookEnvelope(snap))
}

func (p *NATSPublisher) publish(subject string, env Envelope) {
	b, err := json.Marshal(env)
	if err != nil {
		log.Printf("nats: marshal %s: %v", subject, err)
		return
	}
	if err := p.nc.Publish(subject, b); err != nil {
		log.Printf("nats: publish %s: %v", subject, err)
	}
}

func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		log.Printf("nats: drain: %v", err)
	}
}
