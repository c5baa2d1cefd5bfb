package events

import (
	"sync"

	"github.com/Poursadegh/blockChainFullStack/internal/domain"
)

// Hub is the in-process pubsub feeding websocket clients and gRPC streams.
// Publishes never block: a subscriber whose channel is full misses the
// message. Subscribing with symbol "" receives every symbol.
type Hub struct {
	mu        sync.RWMutex
	tradeSubs map[string]map[chan *domain.Trade]struct{}
	bookSubs  map[string]map[chan *domain.BookSnapshot]struct{}
}

func NewHub() *Hub {
	return &Hub{
		tradeSubs: make(map[string]map[chan *domain.Trade]struct{}),
		bookSubs:  make(map[string]map[chan *domain.BookSnapshot]struct{}),
	}
}

func (h *Hub) SubscribeTrades(symbol string) chan *domain.Trade {
	ch := make(chan *domain.Trade, 16)
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.tradeSubs[symbol]; !ok {
		h.tradeSubs[symbol] = make(map[chan *domain.Trade]struct{})
	}
	h.tradeSubs[symbol][ch] = struct{}{}
	return ch
}

func (h *Hub) UnsubscribeTrades(symbol string, ch chan *domain.Trade) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.tradeSubs[symbol]; ok {
		if _, ok := m[ch]; ok {
			delete(m, ch)
			close(ch)
		}
	}
}

func (h *Hub) SubscribeBook(symbol string) chan *domain.BookSnapshot {
	ch := make(chan *domain.BookSnapshot, 4)
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.bookSubs[symbol]; !ok {
		h.bookSubs[symbol] = make(map[chan *domain.BookSnapshot]struct{})
	}
	h.bookSubs[symbol][ch] = struct{}{}
	return ch
}

func (h *Hub) UnsubscribeBook(symbol string, ch chan *domain.BookSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.bookSubs[symbol]; ok {
		if _, ok := m[ch]; ok {
			delete(m, ch)
			close(ch)
		}
	}
}

func (h *Hub) PublishTrade(t *domain.Trade) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.tradeSubs[t.Symbol] {
		select {
		case ch <- t:
		default:
		}
	}
	for ch := range h.tradeSubs[""] {
		select {
		case ch <- t:
		default:
		}
	}
}

func (h *Hub) PublishBook(snap *domain.BookSnapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.bookSubs[snap.Symbol] {
		select {
		case ch <- snap:
		default:
		}
	}
	for ch := range h.bookSubs[""] {
		select {
		case ch <- snap:
		default:
		}
	}
}
