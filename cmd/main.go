// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/config"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/database"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/directory"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/handler"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/logger"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/messaging"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/repository"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/service"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/stats"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type publisher interface {
	service.Publisher
	Close() error
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("service stopped")
	}
}

func run() error {
	logger.InitWithWriter(os.Stderr, "info", "console")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Storage ───────────────────────────────────────────────────────
	var (
		store    repository.Store
		registry directory.Registry
	)
	switch cfg.Storage {
	case config.StorageMemory:
		store = repository.NewMemoryStore()
		registry = directory.NewMemory()
		log.Warn().Msg("using in-memory storage; data is lost on restart")

	default:
		pool, err := database.NewPool(ctx, cfg.DB)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		log.Info().Msg("connected to PostgreSQL")

		db, err := database.OpenSQL(cfg.DB.DSN())
		if err != nil {
			return err
		}
		defer db.Close()
		if cfg.DB.Migrate {
			if err := database.Migrate(ctx, db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}

		store = repository.NewPgStore(pool)
		registry = directory.NewSQLDirectory(db)
	}

	// ── 2. Collaborators ─────────────────────────────────────────────────
	var lookup directory.Directory = registry
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable; directory cache will fall through")
		}
		lookup = directory.NewCached(registry, rdb, cfg.Redis.TTL)
	}

	statsClient := stats.NewClient(cfg.Stats.URL, cfg.Stats.App, cfg.Stats.Timeout)

	var pub publisher = messaging.NoopPublisher{}
	if cfg.Rabbit.URL != "" {
		p, err := messaging.NewPublisher(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			return fmt.Errorf("rabbitmq: %w", err)
		}
		pub = p
	}
	defer pub.Close()

	// ── 3. Wire up layers ────────────────────────────────────────────────
	opts := []service.Option{service.WithPublisher(pub), service.WithHitRecorder(statsClient)}
	eventSvc := service.NewEventService(store, lookup, lookup, statsClient, opts...)
	requestSvc := service.NewRequestService(store, lookup, opts...)

	rl := handler.RateLimit{}
	if cfg.RateLimit.Enabled {
		rl = handler.RateLimit{Limit: cfg.RateLimit.Limit, Window: cfg.RateLimit.Window}
	}
	router := handler.NewRouter(
		handler.NewEventHandler(eventSvc),
		handler.NewRequestHandler(requestSvc),
		handler.NewDirectoryHandler(registry),
		rl,
	)

	// ── 4. Start server with graceful shutdown ───────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTP.Port).Str("storage", cfg.Storage).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

