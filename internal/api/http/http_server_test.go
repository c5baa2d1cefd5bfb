package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Poursadegh/blockChainFullStack/internal/adapter/memory"
	"github.com/Poursadegh/blockChainFullStack/internal/api/dto"
	"github.com/Poursadegh/blockChainFullStack/internal/core"
	"github.com/Poursadegh/blockChainFullStack/internal/domain"
	"github.com/Poursadegh/blockChainFullStack/internal/events"
	"github.com/Poursadegh/blockChainFullStack/internal/metrics"
	"github.com/Poursadegh/blockChainFullStack/internal/port"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type flakyStore struct {
	port.Store
	allowMatches int
	matches      int
}

func (f *flakyStore) SaveMatch(ctx context.Context, taker, maker *domain.Order, tr *domain.Trade, book *domain.OrderBook) error {
	f.matches++
	if f.matches > f.allowMatches {
		return errors.New("store down")
	}
	return f.Store.SaveMatch(ctx, taker, maker, tr, book)
}

func newTestServerWith(t *testing.T, st port.Store) (*gin.Engine, *core.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rateLimitInterval = 0
	hub := events.NewHub()
	eng := core.NewEngine(st, memory.NewCache(), hub, []string{"BTC/USDT", "ETH/USDT"})
	return NewServer(eng, hub, metrics.New("test")).Router(), eng
}

func newTestServer(t *testing.T) (*gin.Engine, *core.Engine) {
	return newTestServerWith(t, memory.NewStore())
}

func doJSON(t *testing.T, router *gin.Engine, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func placeReq(symbol, side, price, amount string) dto.PlaceOrderRequest {
	return dto.PlaceOrderRequest{Symbol: symbol, Side: side, Price: dec(price), Amount: dec(amount)}
}

func TestPlaceOrderEndpoint(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/orders", "1", placeReq("BTC/USDT", "buy", "100", "2"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.PlaceOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Order.ID)
	assert.Equal(t, "pending", resp.Order.Status)
	assert.Empty(t, resp.Trades)

	w = doJSON(t, router, http.MethodPost, "/api/v1/orders", "2", placeReq("BTC/USDT", "sell", "100", "1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "filled", resp.Order.Status)
	require.Len(t, resp.Trades, 1)
	assert.Equal(t, "100", resp.Trades[0].Price.String())
	assert.Equal(t, int64(2), resp.Trades[0].SellerID)
	assert.Equal(t, int64(1), resp.Trades[0].BuyerID)
}

func TestPlaceOrderRequiresIdentity(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/orders", "", placeReq("BTC/USDT", "buy", "100", "1"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/orders", "not-a-number", placeReq("BTC/USDT", "buy", "100", "1"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPlaceOrderRejectsBadInput(t *testing.T) {
	router, _ := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"missing fields", map[string]string{"symbol": "BTC/USDT"}},
		{"invalid side", placeReq("BTC/USDT", "hold", "100", "1")},
		{"unknown symbol", placeReq("DOGE/USDT", "buy", "100", "1")},
		{"zero amount", placeReq("BTC/USDT", "buy", "100", "0")},
		{"negative price", placeReq("BTC/USDT", "buy", "-5", "1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/v1/orders", "1", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestCancelOrderEndpoint(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/orders", "1", placeReq("BTC/USDT", "buy", "100", "1"))
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.PlaceOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	w = doJSON(t, router, http.MethodDelete, "/api/v1/orders/"+resp.Order.ID, "2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "non-owner cannot cancel")

	w = doJSON(t, router, http.MethodDelete, "/api/v1/orders/"+resp.Order.ID, "1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"success"`)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/orders/"+resp.Order.ID, "1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "second cancel fails closed")

	w = doJSON(t, router, http.MethodDelete, "/api/v1/orders/00000000-0000-0000-0000-000000000000", "1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderBookEndpoint(t *testing.T) {
	router, _ := newTestServer(t)

	doJSON(t, router, http.MethodPost, "/api/v1/orders", "1", placeReq("BTC/USDT", "buy", "100.5", "2"))

	w := doJSON(t, router, http.MethodGet, "/api/v1/orderbook?symbol=BTC/USDT", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var book dto.OrderBookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &book))
	assert.Equal(t, "BTC/USDT", book.Symbol)
	require.Len(t, book.Bids, 1)
	assert.Equal(t, "100.5", book.Bids[0].Price.String())
	assert.Empty(t, book.Asks)
	assert.False(t, book.LastPrice.Valid)

	raw := w.Body.String()
	assert.Contains(t, raw, `"price":"100.5"`, "decimals travel as strings")
	assert.Contains(t, raw, `"last_price":null`)

	w = doJSON(t, router, http.MethodGet, "/api/v1/orderbook?symbol=DOGE/USDT", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserOrdersEndpoint(t *testing.T) {
	router, _ := newTestServer(t)

	doJSON(t, router, http.MethodPost, "/api/v1/orders", "1", placeReq("BTC/USDT", "buy", "99", "1"))
	doJSON(t, router, http.MethodPost, "/api/v1/orders", "1", placeReq("BTC/USDT", "buy", "98", "1"))
	doJSON(t, router, http.MethodPost, "/api/v1/orders", "2", placeReq("BTC/USDT", "sell", "200", "1"))

	w := doJSON(t, router, http.MethodGet, "/api/v1/orders", "1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.GetOrdersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Orders, 2)
	assert.Equal(t, "98", resp.Orders[0].Price.String(), "newest first")

	w = doJSON(t, router, http.MethodGet, "/api/v1/orders?status=pending", "1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Orders, 2)

	w = doJSON(t, router, http.MethodGet, "/api/v1/orders?status=bogus", "1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserTradesEndpoint(t *testing.T) {
	router, _ := newTestServer(t)

	doJSON(t, router, http.MethodPost, "/api/v1/orders", "1", placeReq("BTC/USDT", "buy", "100", "1"))
	doJSON(t, router, http.MethodPost, "/api/v1/orders", "2", placeReq("BTC/USDT", "sell", "100", "1"))

	w := doJSON(t, router, http.MethodGet, "/api/v1/trades", "1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.GetTradesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Trades, 1)
	assert.Equal(t, "100", resp.Trades[0].Price.String())

	w = doJSON(t, router, http.MethodGet, "/api/v1/trades?symbol=ETH/USDT", "1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Trades)
}

func TestPlaceOrderPersistenceFailureReturnsPartialResult(t *testing.T) {
	router, _ := newTestServerWith(t, &flakyStore{Store: memory.NewStore(), allowMatches: 1})

	doJSON(t, router, http.MethodPost, "/api/v1/orders", "1", placeReq("BTC/USDT", "sell", "100", "1"))
	doJSON(t, router, http.MethodPost, "/api/v1/orders", "2", placeReq("BTC/USDT", "sell", "100", "1"))

	w := doJSON(t, router, http.MethodPost, "/api/v1/orders", "3", placeReq("BTC/USDT", "buy", "100", "2"))
	require.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())

	var resp struct {
		Error  string      `json:"error"`
		Order  dto.Order   `json:"order"`
		Trades []dto.Trade `json:"trades"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
	require.Len(t, resp.Trades, 1, "committed fills are reported")
	assert.Equal(t, "partially_filled", resp.Order.Status)
	assert.Equal(t, "1", resp.Order.FilledAmount.String())
}

func TestHealthzEndpoint(t *testing.T) {
	router, _ := newTestServer(t)
	w := doJSON(t, router, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestServer(t)

	doJSON(t, router, http.MethodPost, "/api/v1/orders", "1", placeReq("BTC/USDT", "buy", "100", "1"))

	w := doJSON(t, router, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_orders_processed_total 1")
}

func TestTradingStream(t *testing.T) {
	router, eng := newTestServer(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/trading?symbol=BTC/USDT"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readEnvelope := func() string {
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&env))
		return env.Type
	}

	// a subscribe message is answered with the current book
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe"}))
	assert.Equal(t, events.KindOrderBookUpdated, readEnvelope())

	// a resting placement pushes one book update
	_, err = eng.PlaceOrder(context.Background(), &domain.Order{
		UserID: 1, Symbol: "BTC/USDT", Side: domain.Buy, Price: dec("100"), Amount: dec("1"),
	})
	require.NoError(t, err)
	assert.Equal(t, events.KindOrderBookUpdated, readEnvelope())

	// a fill pushes a trade event and a book update, in either order
	_, err = eng.PlaceOrder(context.Background(), &domain.Order{
		UserID: 2, Symbol: "BTC/USDT", Side: domain.Sell, Price: dec("100"), Amount: dec("1"),
	})
	require.NoError(t, err)
	kinds := map[string]bool{readEnvelope(): true, readEnvelope(): true}
	assert.True(t, kinds[events.KindTradeExecuted], "missing trade event, got %v", kinds)
	assert.True(t, kinds[events.KindOrderBookUpdated], "missing book event, got %v", kinds)
}
