package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/fitplan/pkg/usecase/rag"
	"github.com/m-mizutani/fitplan/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Planner is the pipeline the HTTP API exposes
type Planner interface {
	GeneratePlan(ctx context.Context, userID model.UserID, input string) (*model.GeneratedPlan, error)
	SyncEmbeddings(ctx context.Context, userID model.UserID) (*rag.SyncResult, error)
}

// Server is the HTTP entry point of the plan generator
type Server struct {
	router  *gin.Engine
	planner Planner
	metrics *metrics
	logger  *slog.Logger
	mcp     http.Handler

	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
}

type Option func(*Server)

// WithLogger sets the base logger attached to every request
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithTimeouts sets the read and write timeouts of the HTTP server. The write
// timeout bounds a whole plan generation request.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
	}
}

// WithMCPHandler mounts a streamable MCP handler at /mcp
func WithMCPHandler(h http.Handler) Option {
	return func(s *Server) {
		s.mcp = h
	}
}

// New creates a Server serving planner
func New(planner Planner, opts ...Option) *Server {
	s := &Server{
		router:          gin.New(),
		planner:         planner,
		metrics:         newMetrics("fitplan"),
		logger:          logging.Default(),
		readTimeout:     10 * time.Second,
		writeTimeout:    2 * time.Minute,
		shutdownTimeout: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(s.logger))
	s.router.Use(s.metrics.middleware())

	s.router.GET("/health", s.health)
	s.router.GET("/metrics", s.metrics.handler())

	if s.mcp != nil {
		s.router.Any("/mcp", gin.WrapH(s.mcp))
	}

	api := s.router.Group("/api")
	{
		api.POST("/generate-plan", s.generatePlan)
		api.POST("/embeddings/sync", s.syncEmbeddings)
	}

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on addr until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: s.readTimeout,
		ReadTimeout:       s.readTimeout,
		WriteTimeout:      s.writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return goerr.Wrap(err, "HTTP server failed", goerr.V("addr", addr))

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down HTTP server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return goerr.Wrap(err, "failed to shut down HTTP server")
		}
		return nil
	}
}
