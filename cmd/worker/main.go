package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/telehealth-api/internal/config"
	"github.com/jwalitptl/telehealth-api/internal/email"
	"github.com/jwalitptl/telehealth-api/internal/handler/health"
	"github.com/jwalitptl/telehealth-api/internal/handler/prometheus"
	"github.com/jwalitptl/telehealth-api/internal/repository/postgres"
	"github.com/jwalitptl/telehealth-api/internal/service/notification"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
	"github.com/jwalitptl/telehealth-api/pkg/messaging/redis"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
)

// setupHealthCheck serves liveness, readiness and worker metrics.
func setupHealthCheck(port int, db health.Pinger, promHandler *prometheus.Handler, l zerolog.Logger) *http.Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	health.NewHandler(db).RegisterRoutes(engine)
	engine.GET("/metrics", promHandler.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Error().Err(err).Msg("health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	l := logger.WithFields(
		logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty}),
		map[string]interface{}{"service": "notification-worker"},
	)
	gin.SetMode(gin.ReleaseMode)

	if cfg.Redis.URL == "" {
		l.Fatal().Msg("redis.url is required for the worker")
	}

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis broker
	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, l)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create Redis broker")
	}
	defer broker.Close()

	promHandler := prometheus.New()
	m := metrics.New("telehealth_worker", promHandler.Registerer())

	emailSvc := email.NewService(email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, l)

	notifier := notification.NewNotifier(
		postgres.NewUserRepository(db),
		emailSvc,
		broker,
		notification.Config{
			Channel:       cfg.Redis.Channel,
			RetryAttempts: cfg.Worker.RetryAttempts,
			RetryDelay:    cfg.Worker.RetryDelay,
		},
		l,
		m,
	)

	// Setup health check endpoints
	healthSrv := setupHealthCheck(cfg.Worker.HealthPort, db, promHandler, l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info().Msg("shutting down...")
		cancel()
	}()

	if err := notifier.Start(ctx); err != nil {
		l.Error().Err(err).Msg("notifier stopped")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("health server forced to shutdown")
	}
}
