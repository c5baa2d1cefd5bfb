package grpc

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/Poursadegh/blockChainFullStack/internal/core"
	"github.com/Poursadegh/blockChainFullStack/internal/domain"
	"github.com/Poursadegh/blockChainFullStack/internal/events"
	pb "github.com/Poursadegh/blockChainFullStack/proto"
)

type Server struct {
	pb.UnimplementedExchangeServer
	eng *core.Engine
	hub *events.Hub
}

func NewServer(eng *core.Engine, hub *events.Hub) *Server {
	return &Server{eng: eng, hub: hub}
}

func (s *Server) PlaceOrder(ctx context.Context, req *pb.PlaceOrderRequest) (*pb.PlaceOrderResponse, error) {
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid price: %v", err)
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid amount: %v", err)
	}

	o := &domain.Order{
		UserID: req.UserId,
		Symbol: req.Symbol,
		Side:   domain.Side(req.Side),
		Price:  price,
		Amount: amount,
	}

	trades, err := s.eng.PlaceOrder(ctx, o)
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	case errors.Is(err, core.ErrPersistence):
		return nil, status.Errorf(codes.Unavailable, "%v", err)
	case err != nil:
		return nil, status.Errorf(codes.Internal, "place failed: %v", err)
	}

	return &pb.PlaceOrderResponse{
		Order:  convertOrderToPb(o),
		Trades: convertTradesToPb(trades),
	}, nil
}

func (s *Server) CancelOrder(ctx context.Context, req *pb.CancelOrderRequest) (*pb.CancelOrderResponse, error) {
	ok, err := s.eng.CancelOrder(ctx, req.OrderId, req.UserId)
	switch {
	case errors.Is(err, core.ErrPersistence):
		return nil, status.Errorf(codes.Unavailable, "%v", err)
	case err != nil:
		return nil, status.Errorf(codes.Internal, "cancel failed: %v", err)
	}
	return &pb.CancelOrderResponse{Cancelled: ok}, nil
}

func (s *Server) GetOrderBook(ctx context.Context, req *pb.GetOrderBookRequest) (*pb.OrderBook, error) {
	snap, err := s.eng.OrderBook(ctx, req.Symbol)
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			return nil, status.Errorf(codes.InvalidArgument, "%v", err)
		}
		return nil, status.Errorf(codes.Internal, "order book failed: %v", err)
	}
	return convertBookToPb(snap), nil
}

func (s *Server) GetUserOrders(ctx context.Context, req *pb.GetUserOrdersRequest) (*pb.GetUserOrdersResponse, error) {
	st := domain.OrderStatus(req.Status)
	if st != "" && !st.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "invalid status filter: %s", req.Status)
	}
	orders, err := s.eng.UserOrders(ctx, req.UserId, st)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get orders failed: %v", err)
	}
	res := make([]*pb.Order, 0, len(orders))
	for _, o := range orders {
		res = append(res, convertOrderToPb(o))
	}
	return &pb.GetUserOrdersResponse{Orders: res}, nil
}

func (s *Server) GetUserTrades(ctx context.Context, req *pb.GetUserTradesRequest) (*pb.GetUserTradesResponse, error) {
	trades, err := s.eng.UserTrades(ctx, req.UserId, req.Symbol)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get trades failed: %v", err)
	}
	return &pb.GetUserTradesResponse{Trades: convertTradesToPb(trades)}, nil
}

func (s *Server) StreamTrades(req *pb.StreamRequest, stream pb.Exchange_StreamTradesServer) error {
	ch := s.hub.SubscribeTrades(req.Symbol)
	defer s.hub.UnsubscribeTrades(req.Symbol, ch)

	for {
		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		case t := <-ch:
			if err := stream.Send(convertTradeToPb(t)); err != nil {
				return err
			}
		}
	}
}

func (s *Server) StreamOrderBook(req *pb.StreamRequest, stream pb.Exchange_StreamOrderBookServer) error {
	ch := s.hub.SubscribeBook(req.Symbol)
	defer s.hub.UnsubscribeBook(req.Symbol, ch)

	for {
		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		case snap := <-ch:
			if err := stream.Send(convertBookToPb(snap)); err != nil {
				return err
			}
		}
	}
}

func convertOrderToPb(o *domain.Order) *pb.Order {
	return &pb.Order{
		Id:           o.ID,
		UserId:       o.UserID,
		Symbol:       o.Symbol,
		Side:         string(o.Side),
		Price:        o.Price.String(),
		Amount:       o.Amount.String(),
		FilledAmount: o.FilledAmount.String(),
		Status:       string(o.Status),
		CreatedAt:    timestamppb.New(o.CreatedAt),
	}
}

func convertTradeToPb(t *domain.Trade) *pb.Trade {
	return &pb.Trade{
		Id:          t.ID,
		Symbol:      t.Symbol,
		Price:       t.Price.String(),
		Amount:      t.Amount.String(),
		BuyerId:     t.BuyerID,
		SellerId:    t.SellerID,
		BuyOrderId:  t.BuyOrderID,
		SellOrderId: t.SellOrderID,
		CreatedAt:   timestamppb.New(t.CreatedAt),
	}
}

func convertTradesToPb(trades []*domain.Trade) []*pb.Trade {
	res := make([]*pb.Trade, 0, len(trades))
	for _, t := range trades {
		res = append(res, convertTradeToPb(t))
	}
	return res
}

func convertBookToPb(snap *domain.BookSnapshot) *pb.OrderBook {
	levels := func(entries []domain.BookEntry) []*pb.BookLevel {
		res := make([]*pb.BookLevel, 0, len(entries))
		for _, e := range entries {
			res = append(res, &pb.BookLevel{Price: e.Price.String(), Amount: e.Amount.String()})
		}
		return res
	}
	return &pb.OrderBook{
		Symbol:    snap.Symbol,
		LastPrice: nullString(snap.LastPrice),
		Volume:    snap.Volume24h.String(),
		High:      nullString(snap.High24h),
		Low:       nullString(snap.Low24h),
		Bids:      levels(snap.Bids),
		Asks:      levels(snap.Asks),
		UpdatedAt: timestamppb.New(snap.UpdatedAt),
	}
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
