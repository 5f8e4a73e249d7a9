// Command orchestrator runs the single-process order fulfillment saga: an
// HTTP transport in front of the Inventory, Order, Payment, and Shipment
// bounded contexts, choreographed over an in-process event bus.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kyungseok/orderflow-saga/internal/common/config"
	"github.com/kyungseok/orderflow-saga/internal/common/logger"
	"github.com/kyungseok/orderflow-saga/internal/domain/inventory"
	"github.com/kyungseok/orderflow-saga/internal/domain/order"
	"github.com/kyungseok/orderflow-saga/internal/domain/payment"
	"github.com/kyungseok/orderflow-saga/internal/domain/shipment"
	"github.com/kyungseok/orderflow-saga/internal/eventbus"
	"github.com/kyungseok/orderflow-saga/internal/eventbus/kafkabridge"
	"github.com/kyungseok/orderflow-saga/internal/eventstore"
	eventstorepg "github.com/kyungseok/orderflow-saga/internal/eventstore/postgres"
	"github.com/kyungseok/orderflow-saga/internal/idempotency"
	"github.com/kyungseok/orderflow-saga/internal/idempotency/redisstore"
	"github.com/kyungseok/orderflow-saga/internal/locking"
	"github.com/kyungseok/orderflow-saga/internal/saga"
	"github.com/kyungseok/orderflow-saga/internal/transport/httpapi"
)

func main() {
	log, err := logger.New("orchestrator", true)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	cfg := config.Load()

	store := buildEventStore(cfg, log)
	if closer, ok := store.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	idemStore := buildIdempotencyStore(cfg, log)

	bus := eventbus.New(log)

	if cfg.EnableKafkaBridge {
		bridge, err := kafkabridge.New(cfg.KafkaBrokers, "orderflow.events.v1", log)
		if err != nil {
			log.Fatal("failed to create kafka audit bridge", zap.Error(err))
		}
		defer bridge.Close()
		bridge.Attach(bus)
		log.Info("kafka audit bridge attached")
	}

	locks := locking.NewSKULocks()

	productRepo := inventory.NewMemoryProductRepository()
	reservationRepo := inventory.NewMemoryReservationRepository()
	orderRepo := order.NewMemoryRepository()
	paymentRepo := payment.NewMemoryRepository()
	shipmentRepo := shipment.NewMemoryRepository()

	catalog := inventory.NewCatalogService(productRepo, locks)
	reserveStock := inventory.NewReserveStockService(productRepo, reservationRepo, locks, bus, log)
	releaseStock := inventory.NewReleaseStockService(productRepo, reservationRepo, locks, bus, log)

	orderSvc := order.NewService(orderRepo, bus, idemStore, log)

	gateway := payment.NewMockGateway(cfg.PaymentSuccessRate, time.Duration(cfg.PaymentGatewayDelayMillis)*time.Millisecond)
	processPayment := payment.NewProcessPaymentService(paymentRepo, gateway, bus, log)

	createShipment := shipment.NewCreateShipmentService(shipmentRepo, bus, log)

	saga.Register(bus, store, saga.Services{
		Orders:         orderSvc,
		ReserveStock:   reserveStock,
		ReleaseStock:   releaseStock,
		ProcessPayment: processPayment,
		CreateShipment: createShipment,
	}, log)

	httpHandler := httpapi.NewHandler(catalog, orderSvc, store, log)
	server := &http.Server{
		Addr:    ":" + cfg.ServicePort,
		Handler: httpHandler.Routes(),
	}

	go func() {
		log.Info("http server starting", zap.String("port", cfg.ServicePort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

// buildEventStore selects the in-memory store by default, or the Postgres
// adapter when StoragePath names a DSN instead of "memory".
func buildEventStore(cfg config.Config, log *zap.Logger) eventstore.Store {
	if cfg.StoragePath == "" || cfg.StoragePath == "memory" {
		log.Info("using in-memory event store")
		return eventstore.NewMemoryStore()
	}

	pg, err := eventstorepg.Open(cfg.StoragePath)
	if err != nil {
		log.Fatal("failed to open postgres event store", zap.Error(err))
	}
	log.Info("using postgres event store")
	return pg
}

// buildIdempotencyStore selects the in-memory store by default, or the
// Redis-backed adapter when explicitly enabled.
func buildIdempotencyStore(cfg config.Config, log *zap.Logger) idempotency.Store {
	if !cfg.EnableRedisIdempotency {
		log.Info("using in-memory idempotency store")
		return idempotency.NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	log.Info("using redis idempotency store", zap.String("addr", cfg.RedisAddr))
	return redisstore.New(client, "orchestrator")
}
