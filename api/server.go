// Package api exposes the dashboard's REST routes, the push-channel upgrade and
// the operational endpoints on one gin engine.
package api

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	limiter "github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memory "github.com/ulule/limiter/v3/drivers/store/memory"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/Aidin1998/energydesk/api/handlers"
	"github.com/Aidin1998/energydesk/api/responses"
	"github.com/Aidin1998/energydesk/internal/config"
	"github.com/Aidin1998/energydesk/pkg/metrics"
	"github.com/Aidin1998/energydesk/pkg/validation"
)

// WSHandler upgrades a request to a push channel
type WSHandler interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// Server represents the API server
type Server struct {
	cfg     config.ServerConfig
	router  *gin.Engine
	http    *http.Server
	logger  *zap.Logger
	started time.Time
}

// NewServer builds the engine and registers every route
func NewServer(cfg config.ServerConfig, logger *zap.Logger, h *handlers.Handler, hub WSHandler) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		logger:  logger.Named("http"),
		started: time.Now(),
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.CustomRecoveryWithZap(logger, true, func(c *gin.Context, _ any) {
		responses.InternalServerError(c, "internal server error")
	}))
	router.Use(otelgin.Middleware("energydesk"))
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	router.Use(instrument())

	router.GET("/health", s.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request)
	})

	apiGroup := router.Group("/api")
	if cfg.RateLimit != "" {
		rl, err := rateLimiter(cfg.RateLimit)
		if err != nil {
			return nil, err
		}
		apiGroup.Use(rl)
	}
	apiGroup.Use(validation.BodyMiddleware(cfg.MaxBodyBytes, s.logger))
	h.Register(apiGroup)

	router.NoRoute(func(c *gin.Context) {
		responses.NotFound(c, "route not found")
	})

	s.router = router
	s.http = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

// Router returns the internal Gin engine for testing purposes
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("Starting API server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) healthCheck(c *gin.Context) {
	responses.Success(c, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// rateLimiter limits /api requests per client IP; format is "<limit>-<period>", e.g. "600-M"
func rateLimiter(formatted string) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	return ginlimiter.NewMiddleware(
		limiter.New(memory.NewStore(), rate),
		ginlimiter.WithLimitReachedHandler(func(c *gin.Context) {
			responses.TooManyRequests(c, "rate limit exceeded")
		}),
	), nil
}

// instrument records request counts and latency by route template
func instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
