package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/events"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	sessionIdle   = 30 * time.Minute
	sweepInterval = 5 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer closeStore()
	log.Info("storage ready", zap.String("driver", cfg.Storage.Driver))

	client, err := api.NewClient(cfg.APIURL, api.Options{Timeout: cfg.RequestTimeout}, log)
	if err != nil {
		log.Fatal("failed to build api client", zap.Error(err))
	}

	var notifier checkout.OrderNotifier
	if cfg.Kafka.Enabled() {
		publisher := events.NewPublisher(cfg.Kafka.Topic, log, cfg.Kafka.Brokers...)
		defer publisher.Close()
		notifier = publisher
		log.Info("order events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	var confirmer payment.Confirmer
	if cfg.PaymentDemo {
		confirmer = payment.StaticConfirmer{}
		log.Warn("payment demo mode: card payments are confirmed without the processor")
	}

	registry := session.NewRegistry(store, client, sessionIdle, log)
	go registry.Run(ctx, sweepInterval)

	router := h.NewRouter(h.RouterConfig{
		Registry:       registry,
		Catalog:        catalog.NewService(client, log),
		Checkout:       client,
		Notifier:       notifier,
		Confirmer:      confirmer,
		Logger:         log,
		RequestTimeout: cfg.RequestTimeout,
		SecureCookies:  cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("storefront starting", zap.String("port", cfg.HTTPPort), zap.String("api_url", cfg.APIURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("server exited")
}

// openStorage connects the configured client state backend. The returned
// func releases its connections.
func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Storage, func(), error) {
	sc := cfg.Storage
	switch sc.Driver {
	case config.DriverMemory:
		return storage.NewMemoryStorage(), func() {}, nil

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     sc.RedisAddr,
			Password: sc.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return storage.NewRedisStorage(client, sc.StateTTL), func() { client.Close() }, nil

	case config.DriverMongo:
		db, err := storage.ConnectMongoDB(ctx, sc.MongoURI, sc.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		ms := storage.NewMongoStorage(db, sc.StateTTL)
		if err := ms.CreateIndexes(ctx); err != nil {
			log.Warn("client state indexes not created", zap.Error(err))
		}
		return ms, func() { db.Client().Disconnect(context.Background()) }, nil

	case config.DriverPostgres:
		db, err := storage.OpenPostgres(sc.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		ps := storage.NewPostgresStorage(db)
		if err := ps.RunMigrations(); err != nil {
			ps.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		if sc.StateTTL > 0 {
			go purgeIdle(ctx, ps, sc.StateTTL, log)
		}
		return ps, func() { ps.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
}

func purgeIdle(ctx context.Context, ps *storage.PostgresStorage, ttl time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := ps.PurgeIdle(ctx, ttl)
			if err != nil {
				log.Warn("purging idle client state failed", zap.Error(err))
				continue
			}
			log.Debug("idle client state purged", zap.Int64("rows", n))
		case <-ctx.Done():
			return
		}
	}
}
