package port

import "github.com/Poursadegh/blockChainFullStack/internal/domain"

// EventSink receives engine notifications. Delivery is best effort:
// implementations must not block the caller and report no errors back.
type EventSink interface {
	PublishTrade(t *domain.Trade)
	PublishBook(snap *domain.BookSnapshot)
}
