package events

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Poursadegh/blockChainFullStack/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func tradeFor(symbol string) *domain.Trade {
	return &domain.Trade{ID: "t1", Symbol: symbol, Price: dec("100"), Amount: dec("1")}
}

func TestHubDeliversPerSymbol(t *testing.T) {
	h := NewHub()
	btc := h.SubscribeTrades("BTC/USDT")
	eth := h.SubscribeTrades("ETH/USDT")
	defer h.UnsubscribeTrades("BTC/USDT", btc)
	defer h.UnsubscribeTrades("ETH/USDT", eth)

	tr := tradeFor("BTC/USDT")
	h.PublishTrade(tr)

	select {
	case got := <-btc:
		assert.Equal(t, tr, got)
	default:
		t.Fatal("expected a trade on the BTC/USDT subscription")
	}
	assert.Empty(t, eth, "other symbols stay quiet")
}

func TestHubWildcardReceivesAll(t *testing.T) {
	h := NewHub()
	all := h.SubscribeTrades("")
	defer h.UnsubscribeTrades("", all)

	h.PublishTrade(tradeFor("BTC/USDT"))
	h.PublishTrade(tradeFor("ETH/USDT"))

	assert.Len(t, all, 2)
}

func TestHubDropsWhenSubscriberFull(t *testing.T) {
	h := NewHub()
	ch := h.SubscribeTrades("BTC/USDT")
	defer h.UnsubscribeTrades("BTC/USDT", ch)

	// publishing past the buffer must not block
	for i := 0; i < cap(ch)+5; i++ {
		h.PublishTrade(tradeFor("BTC/USDT"))
	}
	assert.Len(t, ch, cap(ch))
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	ch := h.SubscribeTrades("BTC/USDT")
	h.UnsubscribeTrades("BTC/USDT", ch)

	_, open := <-ch
	assert.False(t, open)

	// publishing after unsubscribe must not panic
	h.PublishTrade(tradeFor("BTC/USDT"))
	// double unsubscribe is a no-op
	h.UnsubscribeTrades("BTC/USDT", ch)
}

func TestHubBookFanout(t *testing.T) {
	h := NewHub()
	ch := h.SubscribeBook("BTC/USDT")
	all := h.SubscribeBook("")
	defer h.UnsubscribeBook("BTC/USDT", ch)
	defer h.UnsubscribeBook("", all)

	snap := &domain.BookSnapshot{Symbol: "BTC/USDT", Volume24h: dec("3")}
	h.PublishBook(snap)

	select {
	case got := <-ch:
		require.NotNil(t, got)
		assert.Equal(t, "3", got.Volume24h.String())
	default:
		t.Fatal("expected a snapshot on the symbol subscription")
	}
	assert.Len(t, all, 1)
}
