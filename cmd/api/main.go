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
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/telehealth-api/internal/config"
	adminHandler "github.com/jwalitptl/telehealth-api/internal/handler/admin"
	appointmentHandler "github.com/jwalitptl/telehealth-api/internal/handler/appointment"
	authHandler "github.com/jwalitptl/telehealth-api/internal/handler/auth"
	doctorHandler "github.com/jwalitptl/telehealth-api/internal/handler/doctor"
	"github.com/jwalitptl/telehealth-api/internal/handler/health"
	patientHandler "github.com/jwalitptl/telehealth-api/internal/handler/patient"
	"github.com/jwalitptl/telehealth-api/internal/handler/prometheus"
	"github.com/jwalitptl/telehealth-api/internal/middleware"
	"github.com/jwalitptl/telehealth-api/internal/repository/postgres"
	"github.com/jwalitptl/telehealth-api/internal/router"
	adminService "github.com/jwalitptl/telehealth-api/internal/service/admin"
	appointmentService "github.com/jwalitptl/telehealth-api/internal/service/appointment"
	authService "github.com/jwalitptl/telehealth-api/internal/service/auth"
	doctorService "github.com/jwalitptl/telehealth-api/internal/service/doctor"
	"github.com/jwalitptl/telehealth-api/pkg/auth"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
	"github.com/jwalitptl/telehealth-api/pkg/messaging"
	"github.com/jwalitptl/telehealth-api/pkg/messaging/redis"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
	"github.com/jwalitptl/telehealth-api/pkg/security"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	l := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)

	// Events go to Redis when configured; otherwise they are dropped.
	broker := messaging.NewNoopBroker()
	if cfg.Redis.URL != "" {
		broker, err = redis.NewRedisBroker(redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, l)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
	} else {
		log.Warn().Msg("redis.url not set, appointment events will not be published")
	}
	defer broker.Close()

	promHandler := prometheus.New()
	m := metrics.New("telehealth", promHandler.Registerer())

	// Initialize services
	hasher := security.NewBcryptHasher(bcrypt.DefaultCost)
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry())

	authSvc := authService.NewService(userRepo, hasher, jwtSvc)
	appointmentSvc := appointmentService.NewService(appointmentRepo, userRepo, broker, m, appointmentService.Options{
		AllowDeleteResolved: cfg.Policy.AllowDeleteResolved,
		Channel:             cfg.Redis.Channel,
	})
	doctorSvc := doctorService.NewService(userRepo, doctorRepo, doctorService.Options{
		StrictAvailability: cfg.Policy.StrictAvailability,
	})
	adminSvc := adminService.NewService(userRepo, appointmentRepo)

	// Initialize handlers
	authH := authHandler.NewHandler(authSvc, authHandler.CookieConfig{
		Name:   cfg.JWT.CookieName,
		Secure: cfg.JWT.CookieSecure,
	})
	appointmentH := appointmentHandler.NewHandler(appointmentSvc)
	patientH := patientHandler.NewHandler(appointmentSvc)
	doctorH := doctorHandler.NewHandler(doctorSvc)
	adminH := adminHandler.NewHandler(adminSvc)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	// Setup router
	r, err := router.NewRouter(
		middleware.NewAuthMiddleware(authSvc, cfg.JWT.CookieName),
		health.NewHandler(db),
		promHandler,
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			RateClientTTL:    cfg.RateLimit.ClientTTL,
			CORSConfig:       middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins),
			Security:         middleware.DefaultSecurityConfig(cfg.IsProduction()),
			MetricsPath:      metricsPath,
			Metrics:          m,
		},
		authH,
		appointmentH,
		patientH,
		doctorH,
		adminH,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("env", cfg.Server.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
