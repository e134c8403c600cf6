package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	catalogapp "github.com/fadhriza/indobat/internal/catalog/application"
	cataloghttp "github.com/fadhriza/indobat/internal/catalog/infrastructure/http"
	catalogpg "github.com/fadhriza/indobat/internal/catalog/infrastructure/postgres"
	"github.com/fadhriza/indobat/internal/config"
	"github.com/fadhriza/indobat/internal/memstore"
	orderapp "github.com/fadhriza/indobat/internal/order/application"
	orderhttp "github.com/fadhriza/indobat/internal/order/infrastructure/http"
	orderpg "github.com/fadhriza/indobat/internal/order/infrastructure/postgres"
	orderredis "github.com/fadhriza/indobat/internal/order/infrastructure/redis"
	"github.com/fadhriza/indobat/internal/platform/database"
	"github.com/fadhriza/indobat/internal/platform/health"
	"github.com/fadhriza/indobat/internal/platform/kafka"
	"github.com/fadhriza/indobat/internal/server"
	"github.com/fadhriza/indobat/pkg/idempotency"
	"github.com/fadhriza/indobat/pkg/logging"
	"github.com/fadhriza/indobat/pkg/outbox"
	"github.com/fadhriza/indobat/pkg/shutdown"
	"github.com/fadhriza/indobat/pkg/tracing"
)

type stores struct {
	products catalogapp.ProductRepository
	orders   orderapp.OrderRepository
	query    orderapp.OrderQuery
	ping     server.Pinger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel).With("service", config.ServiceName)

	ctx, cancel := shutdown.WithSignals(context.Background(), log)
	defer cancel()

	tp, err := tracing.Init(ctx, config.ServiceName, cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	var st stores
	switch cfg.StoreDriver {
	case config.DriverMemory:
		mem := memstore.New()
		st = stores{products: mem, orders: mem, query: mem, ping: func(context.Context) error { return nil }}
		log.Info("using in-memory store")
	default:
		pool, err := database.Connect(ctx, cfg.PGURL, cfg.PGMaxConns)
		if err != nil {
			log.Error("pg connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			log.Error("pg migrate failed", "err", err)
			os.Exit(1)
		}
		orders := orderpg.NewRepository(log, pool, cfg.LockTimeout)
		st = stores{
			products: catalogpg.NewRepository(log, pool, cfg.LockTimeout),
			orders:   orders,
			query:    orders,
			ping:     pool.Ping,
		}

		if len(cfg.KafkaBrokers) > 0 {
			writer := kafka.NewWriter(cfg.KafkaBrokers)
			defer writer.Close()
			dispatch := outbox.NewDispatcher(log, writer, cfg.OutboxTopic)
			relay := outbox.NewRelay(log, outbox.NewPGStore(log, pool), dispatch, config.ServiceName+"-relay",
				outbox.WithBatchSize(cfg.RelayBatchSize),
				outbox.WithInterval(cfg.RelayInterval),
			)
			go func() {
				if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("relay stopped with error", "err", err)
				}
			}()
		}
	}

	opts := []orderapp.Option{orderapp.WithConflictRetries(cfg.ConflictRetries)}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		cache := orderredis.NewReceiptCache(idempotency.NewStore(rdb, "order", cfg.IdempotencyTTL))
		opts = append(opts, orderapp.WithReceiptCache(cache))
	}

	products := cataloghttp.NewHandler(log, catalogapp.NewService(log, st.products))
	orders := orderhttp.NewHandler(log, orderapp.NewService(log, st.orders, st.query, opts...))

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      server.NewRouter(log, products, orders, st.ping, cfg.CORSOrigins),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	hs := health.New(log, config.ServiceName, st.ping, 5*time.Second)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error("grpc listen failed", "err", err)
		os.Exit(1)
	}
	go hs.Watch(ctx, config.ServiceName)
	go func() {
		if err := hs.Serve(lis); err != nil {
			log.Error("grpc server error", "err", err)
			cancel()
		}
	}()

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	hs.Stop()
	log.Info("inventory-service shutdown complete")
}
