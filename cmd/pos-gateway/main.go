package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/backend"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/catalog"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/events"
	h "github.com/SleepAsSinDev/sleepassin-pos-app/internal/http"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/journal"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/pos"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/reporting"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/session"
	"github.com/SleepAsSinDev/sleepassin-pos-app/pkg/circuitbreaker"
	"github.com/SleepAsSinDev/sleepassin-pos-app/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := loadConfig()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if err := run(cfg, log); err != nil {
		log.Fatal("pos gateway failed", zap.Error(err))
	}
}

func run(cfg *Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:        "backend",
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
		Ignore:      backend.IsClientError,
		OnStateChange: func(name, from, to string) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name), zap.String("from", from), zap.String("to", to))
		},
	})
	client, err := backend.NewClient(backend.Config{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.BackendTimeout,
		Breaker: breaker,
	}, log.Named("backend"))
	if err != nil {
		return err
	}
	log.Info("backend configured", zap.String("url", cfg.BackendURL))

	store, err := newSessionStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	repo, err := journal.NewRepository(cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer repo.Close()
	if cfg.MigrationsPath != "" {
		err = repo.RunMigrations(cfg.MigrationsPath)
	} else {
		err = repo.RunEmbeddedMigrations()
	}
	if err != nil {
		return fmt.Errorf("migrate journal: %w", err)
	}
	log.Info("journal ready", zap.String("path", cfg.JournalPath))

	products := catalog.New(client, cfg.CatalogTTL, log.Named("catalog"))
	reports := reporting.NewService(client, products, cfg.OrdersTTL, log.Named("reporting"))
	service := pos.NewService(store, products, client, repo, log.Named("pos"))

	var wg sync.WaitGroup
	if len(cfg.KafkaBrokers) > 0 {
		poller := events.NewOutboxPoller(repo, cfg.KafkaTopic, log.Named("outbox"), cfg.KafkaBrokers...)
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(ctx)
			if err := poller.Close(); err != nil {
				log.Warn("failed to close kafka writer", zap.Error(err))
			}
		}()
		log.Info("order events enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	} else {
		log.Info("order events disabled, KAFKA_BROKERS not set")
	}

	router := h.NewRouter(h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		AllowedOrigins:     cfg.AllowedOrigins,
	}, h.Handlers{
		POS:      h.NewPOSHandler(service, products, reports, cfg.RequestTimeout, log.Named("http")),
		Products: h.NewProductHandler(client, products, cfg.RequestTimeout, cfg.MaxImageSize, log.Named("http")),
		Orders:   h.NewOrdersHandler(reports, cfg.RequestTimeout),
		Journal:  h.NewJournalHandler(repo, cfg.RequestTimeout),
	}, log.Named("http"))

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("POS gateway starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		stop()
		wg.Wait()
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	wg.Wait()

	log.Info("server exited")
	return nil
}

// newSessionStore uses Redis when REDIS_ADDR is set so several gateways can share
// sessions, and an in-process store otherwise.
func newSessionStore(ctx context.Context, cfg *Config, log *zap.Logger) (session.Store, error) {
	if cfg.RedisAddr == "" {
		log.Info("using in-memory session store", zap.Duration("ttl", cfg.SessionTTL))
		return session.NewMemoryStore(cfg.SessionTTL), nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	log.Info("using redis session store", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.SessionTTL))
	return session.NewRedisStore(redisClient, cfg.SessionTTL), nil
}
