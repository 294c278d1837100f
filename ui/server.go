package ui

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"gouplift/internal"
	"gouplift/ports"

	"github.com/gin-gonic/gin"
)

// Server is the read-only report server over the run store
type Server struct {
	router    *gin.Engine
	repo      ports.RunRepository
	templates *template.Template
	metrics   *Metrics
	logger    *internal.Logger
	http      *http.Server
}

// NewServer creates a report server. Gin mode must be set by the caller
// before construction.
func NewServer(repo ports.RunRepository, logger *internal.Logger) (*Server, error) {
	if repo == nil {
		return nil, errors.New("run repository cannot be nil")
	}
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:    gin.New(),
		repo:      repo,
		templates: templates,
		metrics:   NewMetrics(),
		logger:    logger.With("ReportServer"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.router.Group("/api")
	api.GET("/runs", s.handleListRuns)
	api.GET("/runs/:id", s.handleGetRun)

	s.router.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/runs") })
	s.router.GET("/runs", s.handleRunsPage)
	s.router.GET("/runs/:id", s.handleRunPage)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("serving reports on http://%s", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
