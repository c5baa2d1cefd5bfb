package events

import (
	"log"

	"github.com/Poursadegh/blockChainFullStack/internal/domain"
	"github.com/Poursadegh/blockChainFullStack/internal/port"
)

// MultiSink fans events out to several sinks. A panicking sink is isolated
// and logged; the remaining sinks still receive the event.
type MultiSink struct {
	sinks []port.EventSink
}

func NewMultiSink(sinks ...port.EventSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) PublishTrade(t *domain.Trade) {
	for _, s := range m.sinks {
		deliver(func() { s.PublishTrade(t) })
	}
}

func (m *MultiSink) PublishBook(snap *domain.BookSnapshot) {
	for _, s := range m.sinks {
		deliver(func() { s.PublishBook(snap) })
	}
}

func deliver(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("event sink panic: %v", r)
		}
	}()
	fn()
}
