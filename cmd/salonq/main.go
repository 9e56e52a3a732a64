package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salonq/internal/cache"
	"salonq/internal/config"
	"salonq/internal/httpapi"
	"salonq/internal/logging"
	"salonq/internal/metrics"
	"salonq/internal/store"
	"salonq/internal/store/memory"
	"salonq/internal/store/postgres"
	"salonq/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	metrics.Register()

	shutdownTelemetry, err := telemetry.Setup(context.Background(), "salonq", cfg.OTLPEndpoint, cfg.OTLPInsecure)
	if err != nil {
		logger.Warn().Err(err).Msg("tracing disabled")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	var st store.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("db connect")
		}
		defer pool.Close()
		st = postgres.NewStore(pool)
		logger.Info().Msg("using postgres store")
	} else {
		st = memory.NewStore()
		logger.Warn().Msg("DB_DSN not set, using in-memory store")
	}

	var statusCache *cache.QueueStatusCache
	if cfg.RedisAddr != "" {
		client := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := cache.Ping(ctx, client)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("redis unreachable, queue status cache disabled")
		} else {
			statusCache = cache.NewQueueStatusCache(client, cfg.QueueStatusTTL)
			logger.Info().Str("addr", cfg.RedisAddr).Msg("queue status cache enabled")
		}
	}

	handler := httpapi.NewHandler(st, httpapi.Options{
		Cache:      statusCache,
		SessionTTL: cfg.SessionTTL,
	})
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:   cfg.RateLimitPerMinute,
		IPBurst:       cfg.RateLimitBurst,
		UserPerMinute: cfg.UserRateLimitPerMinute,
		UserBurst:     cfg.UserRateLimitBurst,
	})

	chain := httpapi.AuthMiddleware(st, handler.Routes())
	chain = limiter.Middleware(chain)
	chain = httpapi.LoggingMiddleware(logger, chain)
	otelHandler := otelhttp.NewHandler(chain, "salonq")

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("salonq listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}
