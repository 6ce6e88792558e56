package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/cloudkitchen/services/ordering/config"
	"example.com/cloudkitchen/services/ordering/internal/api/handlers"
	"example.com/cloudkitchen/services/ordering/internal/api/middleware"
	"example.com/cloudkitchen/services/ordering/internal/metrics"
	"example.com/cloudkitchen/services/ordering/internal/services"
	"example.com/cloudkitchen/services/ordering/internal/tracing"
)

// Server represents the HTTP server
type Server struct {
	config     config.Config
	router     *gin.Engine
	httpServer *http.Server
	ordering   *services.OrderingService
	metrics    *metrics.Metrics
	tracer     tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(cfg config.Config, ordering *services.OrderingService, metricsCollector *metrics.Metrics, tracer tracing.Tracer) *Server {
	server := &Server{
		config:   cfg,
		ordering: ordering,
		metrics:  metricsCollector,
		tracer:   tracer,
	}

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := server.setupRouter()
	server.router = router

	httpServer := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router,
		ReadTimeout:  cfg.ServerTimeout,
		WriteTimeout: cfg.ServerTimeout,
	}
	server.httpServer = httpServer

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	orderingHandler := handlers.NewOrderingHandler(s.ordering, s.tracer)
	orderingHandler.RegisterRoutes(router)

	ordersHandler := handlers.NewOrdersHandler(s.ordering, s.tracer)
	ordersHandler.RegisterRoutes(router)

	metricsHandler := handlers.NewMetricsHandler(s.metrics, s.tracer)
	metricsHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
