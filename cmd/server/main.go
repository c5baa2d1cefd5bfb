package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/Poursadegh/blockChainFullStack/internal/adapter/cache"
	"github.com/Poursadegh/blockChainFullStack/internal/adapter/pg"
	grpcapi "github.com/Poursadegh/blockChainFullStack/internal/api/grpc"
	httpapi "github.com/Poursadegh/blockChainFullStack/internal/api/http"
	"github.com/Poursadegh/blockChainFullStack/internal/config"
	"github.com/Poursadegh/blockChainFullStack/internal/core"
	"github.com/Poursadegh/blockChainFullStack/internal/events"
	"github.com/Poursadegh/blockChainFullStack/internal/metrics"
	"github.com/Poursadegh/blockChainFullStack/internal/port"
	pb "github.com/Poursadegh/blockChainFullStack/proto"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	var store port.Store
	if cfg.PostgresURL != "" {
		pgStore, err := pg.NewStore(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatalf("failed to connect to Postgres: %v", err)
		}
		defer pgStore.Close()
		if err := pgStore.InitSchema(ctx); err != nil {
			log.Fatalf("failed to initialize schema: %v", err)
		}
		store = pgStore
	} else {
		log.Println("POSTGRES_URL empty, running without persistence")
	}

	var snapCache port.SnapshotCache
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SnapshotTTL)
		if err := redisCache.Ping(ctx); err != nil {
			log.Fatalf("failed to connect to Redis: %v", err)
		}
		defer redisCache.Close()
		snapCache = redisCache
	} else {
		log.Println("REDIS_ADDR empty, running without snapshot cache")
	}

	m := metrics.New("exchange")
	hub := events.NewHub()
	sinks := []port.EventSink{hub, events.NewMetricsSink(m)}
	if cfg.NATSURL != "" {
		natsPub, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
		defer natsPub.Close()
		sinks = append(sinks, natsPub)
	}

	engine := core.NewEngine(store, snapCache, events.NewMultiSink(sinks...), cfg.Symbols)
	if err := engine.Restore(ctx); err != nil {
		log.Fatalf("failed to restore engine state: %v", err)
	}

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.NewServer(engine, hub, m).Router(),
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	grpcSrv := grpc.NewServer()
	pb.RegisterExchangeServer(grpcSrv, grpcapi.NewServer(engine, hub))
	go func() {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("failed to listen on %s: %v", cfg.GRPCAddr, err)
		}
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			log.Fatalf("gRPC server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("received signal %s, shutting down", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	grpcSrv.GracefulStop()
	log.Println("shutdown complete")
}
