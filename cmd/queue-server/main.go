package main

import (
	"context"
	"expvar"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/bus"
	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/config"
	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/httpapi"
	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/realtime"
	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/relay"
	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/store/postgres"
	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := config.Load()
	shutdownTelemetry, err := telemetry.Init(context.Background(), "queue-server")
	if err != nil {
		log.Fatalf("telemetry init: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis connect: %v", err)
	}

	eventBus := bus.NewRedisBus(redisClient)

	var announcer relay.Announcer
	if cfg.AMQPURL != "" {
		a := bus.NewAnnouncer(cfg.AMQPURL)
		defer a.Close()
		announcer = a
	}

	st := postgres.NewStore(pool, postgres.Options{
		FallbackPrefix: cfg.FallbackPrefix,
		OutboxGrace:    cfg.RelayGrace,
	})

	outboxRelay := relay.New(st, eventBus, announcer, relay.Options{
		Interval:  cfg.RelayInterval,
		BatchSize: cfg.RelayBatchSize,
		Retention: cfg.RelayRetention,
	})

	handler := httpapi.NewHandler(st, st)
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:     cfg.RateLimitPerMinute,
		IPBurst:         cfg.RateLimitBurst,
		BranchPerMinute: cfg.BranchRateLimitPerMinute,
		BranchBurst:     cfg.BranchRateLimitBurst,
	})
	gateway := realtime.NewGateway(eventBus)

	mux := http.NewServeMux()
	mux.Handle("/metrics", expvar.Handler())
	mux.Handle("/realtime/", gateway.Handler("/realtime"))
	mux.Handle("/", limiter.Middleware(handler.Routes()))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(httpapi.LoggingMiddleware(mux), "queue-server"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	relayCtx, cancelRelay := context.WithCancel(context.Background())
	defer cancelRelay()
	go outboxRelay.Run(relayCtx)

	go func() {
		log.Printf("queue-server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	cancelRelay()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
