// Package api serves the question loop over HTTP. Each session id gets
// its own controller, so concurrent sessions never share turn state.
package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/kg-road/roadrag/internal/observability"
	"github.com/kg-road/roadrag/internal/rag"
	"github.com/kg-road/roadrag/internal/types"
	"github.com/kg-road/roadrag/pkg/version"
)

// Asker answers questions for one session.
type Asker interface {
	Run(ctx context.Context, question string) (*rag.TurnResult, error)
	Session() *rag.SessionState
}

// ControllerFactory builds the controller for a new session.
type ControllerFactory func() (Asker, error)

// HealthFunc reports the health of one dependency.
type HealthFunc func(ctx context.Context) types.HealthStatus

// Config configures the HTTP server.
type Config struct {
	Listen          string
	SessionTTL      time.Duration
	ShutdownTimeout time.Duration
	ServiceName     string
}

// Option configures a Server.
type Option func(*Server)

// WithHealthCheck adds a dependency to GET /healthz.
func WithHealthCheck(name string, fn HealthFunc) Option {
	return func(s *Server) { s.checks[name] = fn }
}

// WithMetricsHandler serves h at path.
func WithMetricsHandler(path string, h http.Handler) Option {
	return func(s *Server) {
		s.metricsPath = path
		s.metricsHandler = h
	}
}

// WithLogger sets the server logger.
func WithLogger(l *observability.TracedLogger) Option {
	return func(s *Server) { s.logger = l }
}

// Server is the HTTP front end.
type Server struct {
	cfg     Config
	factory ControllerFactory
	router  *gin.Engine
	logger  *observability.TracedLogger

	mu       sync.Mutex
	sessions *cache.Cache

	checks         map[string]HealthFunc
	metricsPath    string
	metricsHandler http.Handler
}

// NewServer creates a Server and registers its routes.
func NewServer(cfg Config, factory ControllerFactory, opts ...Option) *Server {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "roadrag"
	}

	s := &Server{
		cfg:      cfg,
		factory:  factory,
		sessions: cache.New(cfg.SessionTTL, cfg.SessionTTL/2),
		checks:   make(map[string]HealthFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = observability.NewTracedLogger(nil, "api")
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery(), otelgin.Middleware(cfg.ServiceName))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.handleHealth)
	if s.metricsHandler != nil {
		s.router.GET(s.metricsPath, gin.WrapH(s.metricsHandler))
	}

	v1 := s.router.Group("/v1")
	v1.POST("/ask", s.handleAsk)
	v1.POST("/sessions", s.handleCreateSession)
	v1.GET("/sessions/:id", s.handleGetSession)
	v1.DELETE("/sessions/:id", s.handleDeleteSession)
	v1.POST("/sessions/:id/link", s.handleSetLink)
	v1.POST("/sessions/:id/road", s.handleSetRoad)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http api listening", "addr", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// session returns the controller for id. A missing session is created
// when create is set. Every access extends the session's lifetime.
func (s *Server) session(id string, create bool) (Asker, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.sessions.Get(id); ok {
		ctrl := v.(Asker)
		s.sessions.SetDefault(id, ctrl)
		return ctrl, true, nil
	}
	if !create {
		return nil, false, nil
	}

	ctrl, err := s.factory()
	if err != nil {
		return nil, false, err
	}
	s.sessions.SetDefault(id, ctrl)
	return ctrl, true, nil
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	return s.sessions.ItemCount()
}

func (s *Server) handleHealth(c *gin.Context) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := types.HealthStateHealthy
	components := make(map[string]types.HealthStatus, len(names))
	for _, name := range names {
		st := s.checks[name](c.Request.Context())
		components[name] = st
		switch st.State {
		case types.HealthStateUnhealthy:
			overall = types.HealthStateUnhealthy
		case types.HealthStateDegraded:
			if overall == types.HealthStateHealthy {
				overall = types.HealthStateDegraded
			}
		}
	}

	code := http.StatusOK
	if overall == types.HealthStateUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, HealthResponse{
		Status:     overall,
		Version:    version.Version,
		Sessions:   s.SessionCount(),
		Components: components,
	})
}

func newSessionID() string {
	return uuid.NewString()
}
