package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/telehealth-api/internal/handler/health"
	"github.com/jwalitptl/telehealth-api/internal/handler/prometheus"
	"github.com/jwalitptl/telehealth-api/internal/middleware"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
	"github.com/jwalitptl/telehealth-api/pkg/validator"
)

// Handler registers its routes under /api. authenticate is the session gate.
type Handler interface {
	RegisterRoutes(r *gin.RouterGroup, authenticate gin.HandlerFunc)
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	health   *health.Handler
	promH    *prometheus.Handler
	handlers []Handler
	config   RouterConfig
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	RateClientTTL    time.Duration
	CORSConfig       middleware.CORSConfig
	Security         middleware.SecurityConfig
	// MetricsPath is empty when /metrics is disabled.
	MetricsPath string
	Metrics     *metrics.Metrics
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	healthH *health.Handler,
	promH *prometheus.Handler,
	config RouterConfig,
	handlers ...Handler,
) (*Router, error) {
	if err := validator.Register(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	engine := gin.New()
	r := &Router{
		engine:   engine,
		auth:     auth,
		health:   healthH,
		promH:    promH,
		handlers: handlers,
		config:   config,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
	)
	if config.Metrics != nil {
		engine.Use(middleware.Metrics(config.Metrics))
	}
	engine.Use(
		middleware.CORS(config.CORSConfig),
		middleware.SecurityHeaders(config.Security),
	)

	if config.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:      config.RateLimit,
			Burst:     config.RateBurst,
			ClientTTL: config.RateClientTTL,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r, nil
}

func (r *Router) Setup() {
	if r.health != nil {
		r.health.RegisterRoutes(r.engine)
	}
	if r.promH != nil && r.config.MetricsPath != "" {
		r.engine.GET(r.config.MetricsPath, r.promH.Handler())
	}

	api := r.engine.Group("/api")
	authenticate := r.auth.Authenticate()
	for _, h := range r.handlers {
		h.RegisterRoutes(api, authenticate)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
