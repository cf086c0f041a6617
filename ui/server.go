package ui

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gocompare/app"
	"gocompare/internal/logging"
	"gocompare/internal/metrics"
)

// Options configures the HTTP server.
type Options struct {
	MaxUploadBytes int64
	Metrics        *metrics.Collector
	Logger         *zap.Logger
}

// Server exposes the analysis service over HTTP.
type Server struct {
	router   *gin.Engine
	service  *app.AnalysisService
	metrics  *metrics.Collector
	logger   *zap.Logger
	maxBytes int64
	server   *http.Server
}

// NewServer creates a new web server instance
func NewServer(service *app.AnalysisService, opts Options) *Server {
	maxBytes := opts.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}

	s := &Server{
		router:   gin.New(),
		service:  service,
		metrics:  opts.Metrics,
		logger:   logging.OrNop(opts.Logger),
		maxBytes: maxBytes,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := s.router.Group("/api")
	{
		api.POST("/analyze", s.handleAnalyze)
		api.POST("/inspect", s.handleInspect)
		api.GET("/runs", s.handleListRuns)
		api.GET("/runs/:id", s.handleGetRun)
	}

	s.router.NoRoute(s.handleNotFound)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", zap.String("addr", addr))
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down HTTP server")
		return s.server.Shutdown(shutdownCtx)
	}
}
