package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Poursadegh/blockChainFullStack/internal/api/dto"
	"github.com/Poursadegh/blockChainFullStack/internal/core"
	"github.com/Poursadegh/blockChainFullStack/internal/domain"
	"github.com/Poursadegh/blockChainFullStack/internal/events"
	"github.com/Poursadegh/blockChainFullStack/internal/metrics"
	"github.com/Poursadegh/blockChainFullStack/internal/middleware"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Minimum spacing between requests from one user on authenticated routes.
var rateLimitInterval = 100 * time.Millisecond

type Server struct {
	eng     *core.Engine
	hub     *events.Hub
	metrics *metrics.Metrics
}

func NewServer(eng *core.Engine, hub *events.Hub, m *metrics.Metrics) *Server {
	return &Server{eng: eng, hub: hub, metrics: m}
}

// Router wires all routes. The caller owns the listening socket so it can
// shut the server down gracefully.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	r.GET("/ws/trading", s.streamTrading)

	v1 := r.Group("/api/v1")
	v1.GET("/orderbook", s.getOrderBook)

	rl := middleware.NewRateLimiter(rateLimitInterval)
	authed := v1.Group("", middleware.UserIdentity(), rl.Middleware())
	authed.POST("/orders", s.placeOrder)
	authed.DELETE("/orders/:id", s.cancelOrder)
	authed.GET("/orders", s.getUserOrders)
	authed.GET("/trades", s.getUserTrades)

	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "symbols": s.eng.Symbols()})
}

func (s *Server) placeOrder(c *gin.Context) {
	var req dto.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o := &domain.Order{
		UserID: middleware.UserID(c),
		Symbol: req.Symbol,
		Side:   domain.Side(req.Side),
		Price:  req.Price,
		Amount: req.Amount,
	}

	start := time.Now()
	trades, err := s.eng.PlaceOrder(c.Request.Context(), o)
	s.metrics.MatchingLatency.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, core.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, core.ErrPersistence):
		// Fills committed before the failure are final and must be reported.
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  err.Error(),
			"order":  convertOrder(o),
			"trades": convertTrades(trades),
		})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.metrics.OrdersProcessed.Inc()
	c.JSON(http.StatusOK, dto.PlaceOrderResponse{
		Order:  convertOrder(o),
		Trades: convertTrades(trades),
	})
}

func (s *Server) cancelOrder(c *gin.Context) {
	ok, err := s.eng.CancelOrder(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found or cannot be cancelled"})
		return
	}
	c.JSON(http.StatusOK, dto.CancelOrderResponse{Status: "success"})
}

func (s *Server) getOrderBook(c *gin.Context) {
	snap, err := s.eng.OrderBook(c.Request.Context(), c.Query("symbol"))
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, convertBook(snap))
}

func (s *Server) getUserOrders(c *gin.Context) {
	status := domain.OrderStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
		return
	}
	orders, err := s.eng.UserOrders(c.Request.Context(), middleware.UserID(c), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.GetOrdersResponse{Orders: convertOrders(orders)})
}

func (s *Server) getUserTrades(c *gin.Context) {
	trades, err := s.eng.UserTrades(c.Request.Context(), middleware.UserID(c), c.Query("symbol"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.GetTradesResponse{Trades: convertTrades(trades)})
}

// streamTrading upgrades to a websocket and pushes trade and order book
// events for the requested symbol. An empty symbol subscribes to every
// symbol. A client message {"type": "subscribe"} answers with the current
// book so late joiners do not wait for the next update.
func (s *Server) streamTrading(c *gin.Context) {
	symbol := c.Query("symbol")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	trades := s.hub.SubscribeTrades(symbol)
	books := s.hub.SubscribeBook(symbol)
	defer s.hub.UnsubscribeTrades(symbol, trades)
	defer s.hub.UnsubscribeBook(symbol, books)

	done := make(chan struct{})
	snapshots := make(chan struct{}, 1)
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(msg, &req) != nil || req.Type != "subscribe" {
				continue
			}
			select {
			case snapshots <- struct{}{}:
			default:
			}
		}
	}()

	// Single writer; the reader goroutine never touches the connection's
	// write side.
	for {
		select {
		case <-done:
			return
		case <-snapshots:
			if symbol == "" {
				continue
			}
			snap, err := s.eng.OrderBook(c.Request.Context(), symbol)
			if err != nil {
				continue
			}
			if conn.WriteJSON(events.NewBookEnvelope(snap)) != nil {
				return
			}
		case t := <-trades:
			if conn.WriteJSON(events.NewTradeEnvelope(t)) != nil {
				return
			}
		case snap := <-books:
			if conn.WriteJSON(events.NewBookEnvelope(snap)) != nil {
				return
			}
		}
	}
}

func convertOrder(o *domain.Order) dto.Order {
	return dto.Order{
		ID:           o.ID,
		Symbol:       o.Symbol,
		Side:         string(o.Side),
		Price:        o.Price,
		Amount:       o.Amount,
		FilledAmount: o.FilledAmount,
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt,
	}
}

func convertOrders(orders []*domain.Order) []dto.Order {
	res := make([]dto.Order, len(orders))
	for i, o := range orders {
		res[i] = convertOrder(o)
	}
	return res
}

func convertTrades(trades []*domain.Trade) []dto.Trade {
	res := make([]dto.Trade, len(trades))
	for i, t := range trades {
		res[i] = dto.Trade{
			ID:          t.ID,
			Symbol:      t.Symbol,
			Price:       t.Price,
			Amount:      t.Amount,
			BuyerID:     t.BuyerID,
			SellerID:    t.SellerID,
			BuyOrderID:  t.BuyOrderID,
			SellOrderID: t.SellOrderID,
			Timestamp:   t.CreatedAt,
		}
	}
	return res
}

func convertBook(snap *domain.BookSnapshot) dto.OrderBookResponse {
	levels := func(entries []domain.BookEntry) []dto.BookLevel {
		res := make([]dto.BookLevel, len(entries))
		for i, e := range entries {
			res[i] = dto.BookLevel{Price: e.Price, Amount: e.Amount}
		}
		return res
	}
	return dto.OrderBookResponse{
		Symbol:    snap.Symbol,
		LastPrice: snap.LastPrice,
		Volume24h: snap.Volume24h,
		High24h:   snap.High24h,
		Low24h:    snap.Low24h,
		Bids:      levels(snap.Bids),
		Asks:      levels(snap.Asks),
		UpdatedAt: snap.UpdatedAt,
	}
}
