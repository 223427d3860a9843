package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"

	"github.com/relieflink/relief-gateway/internal/api"
	"github.com/relieflink/relief-gateway/internal/config"
	"github.com/relieflink/relief-gateway/internal/downstream"
	"github.com/relieflink/relief-gateway/internal/events"
	"github.com/relieflink/relief-gateway/internal/logger"
	"github.com/relieflink/relief-gateway/internal/session"
	"github.com/relieflink/relief-gateway/internal/tracing"
	"github.com/relieflink/relief-gateway/middleware"
)

func main() {
	cfg := config.Load()

	logger.Init()
	zlog.Info().Msg("logger initialized")

	ctx := context.Background()

	tracerProvider, err := tracing.InitTracing(ctx, tracing.Config{
		ServiceName:    "relief-gateway",
		ServiceVersion: "1.0.0",
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		zlog.Fatal().Err(err).Msg("tracing init failed")
	}
	defer tracerProvider.Shutdown(ctx)

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			zlog.Warn().Err(err).Msg("redis unreachable, rate limiting degrades to fail-open")
		}
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		conn, ch, err := events.NewRabbitMQConnection(cfg.RabbitMQURL)
		if err != nil {
			zlog.Warn().Err(err).Msg("rabbitmq unreachable, events disabled")
		} else {
			defer conn.Close()
			defer ch.Close()
			publisher = events.NewRabbitMQPublisher(ch)
		}
	}

	httpClient := downstream.NewClient(downstream.ClientConfig{
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 5 * time.Second,
		Transport:    &middleware.TracingTransport{},
	})
	relief := downstream.NewReliefClient(cfg.ReliefServiceURL, httpClient)
	geocoder := downstream.NewGeocodeClient(cfg.GeocodeServiceURL)

	sessions := session.NewManager(relief, logger.Log)

	router := api.NewRouter(api.Deps{
		Cfg:      cfg,
		Log:      logger.Log,
		Relief:   relief,
		Geocoder: geocoder,
		Sessions: sessions,
		Redis:    rdb,
		Events:   publisher,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zlog.Info().Str("port", cfg.Port).Msg("relief gateway starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("shutdown failed")
	}
	zlog.Info().Msg("relief gateway stopped")
}
