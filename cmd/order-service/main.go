package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/eshopd/ordering/internal/ordering/adapters/natsbroker"
	"github.com/eshopd/ordering/internal/ordering/adapters/postgres"
	sqlitestore "github.com/eshopd/ordering/internal/ordering/adapters/sqlite"
	"github.com/eshopd/ordering/internal/ordering/app"
	"github.com/eshopd/ordering/internal/ordering/domain"
	"github.com/eshopd/ordering/internal/ordering/httpx"
	"github.com/eshopd/ordering/internal/ordering/integration"
	"github.com/eshopd/ordering/internal/ordering/outbox"
	"github.com/eshopd/ordering/internal/ordering/unitofwork"
	"github.com/eshopd/ordering/internal/pkg/cache"
	"github.com/eshopd/ordering/internal/pkg/config"
	"github.com/eshopd/ordering/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.InitLogger(cfg.Telemetry.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, cfg.Telemetry.ServiceName)
	if err != nil {
		logger.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Error("tracer shutdown error", "error", err)
		}
	}()

	repo, txStore, outboxStore, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	publisher, err := natsbroker.NewPublisher(natsbroker.Config{URL: cfg.Broker.URL}, watermill.NewSlogLogger(logger))
	if err != nil {
		logger.Error("failed to connect to NATS", "url", cfg.Broker.URL, "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	dispatcher := unitofwork.NewDispatcher(logger)
	broker := integration.NewWatermillBroker(publisher)
	if err := integration.RegisterAll(dispatcher, broker, logger); err != nil {
		logger.Error("failed to register event translators", "error", err)
		os.Exit(1)
	}

	var uowOpts []unitofwork.Option
	if cfg.Outbox.Enabled {
		uowOpts = append(uowOpts, unitofwork.WithOutbox(integration.EncodeOutbox))
	}
	newUoW := func() *unitofwork.UnitOfWork {
		return unitofwork.New(txStore, dispatcher, logger, uowOpts...)
	}

	redisCache := cache.NewRedisCache(cfg.Redis.Addr, cfg.Telemetry.ServiceName)
	service := app.NewService(repo, newUoW, redisCache, logger)
	handler := httpx.NewHandler(service)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      httpx.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("order service listening", "addr", cfg.Server.Addr, "store", cfg.Store.Driver, "outbox", cfg.Outbox.Enabled)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Outbox.Enabled {
		relay := outbox.NewRelay(outboxStore, publisher, logger, outbox.Config{
			PollInterval: cfg.Outbox.PollInterval,
			BatchSize:    cfg.Outbox.BatchSize,
		})
		g.Go(func() error {
			if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("order service stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("order service shut down")
}

// openStore builds the persistence trio for the configured driver: the read
// repository, the transactional store for the unit of work, and the outbox
// store polled by the relay.
func openStore(ctx context.Context, cfg config.StoreConfig) (domain.Repository, unitofwork.TxStore, outbox.Store, func(), error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, nil, err
		}
		store := postgres.NewStore(pool)
		return store, store, store, pool.Close, nil
	default:
		store, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return store, store, store, func() { _ = store.Close() }, nil
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
