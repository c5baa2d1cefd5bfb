package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Poursadegh/blockChainFullStack/internal/domain"
)

type fakeConn struct {
	published  map[string][]byte
	drained    bool
	publishErr error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	if f.published == nil {
		f.published = make(map[string][]byte)
	}
	f.published[subject] = data
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestNATSPublisherSubjectsAndPayload(t *testing.T) {
	fc := &fakeConn{}
	p := &NATSPublisher{nc: fc}

	p.PublishTrade(tradeFor("BTC/USDT"))
	payload, ok := fc.published["exchange.trades.BTC/USDT"]
	require.True(t, ok, "trades publish on a per-symbol subject")
	assert.Contains(t, string(payload), `"type":"trade_executed"`)

	p.PublishBook(&domain.BookSnapshot{Symbol: "BTC/USDT", Volume24h: dec("3")})
	payload, ok = fc.published["exchange.orderbook.BTC/USDT"]
	require.True(t, ok)
	assert.Contains(t, string(payload), `"type":"order_book_updated"`)

	p.Close()
	assert.True(t, fc.drained, "close drains the connection")
}

func TestNATSPublisherSurvivesPublishFailure(t *testing.T) {
	p := &NATSPublisher{nc: &fakeConn{publishErr: errors.New("connection down")}}

	assert.NotPanics(t, func() { p.PublishTrade(tradeFor("BTC/USDT")) })
	assert.NotPanics(t, func() { p.PublishBook(&domain.BookSnapshot{Symbol: "BTC/USDT"}) })
}
