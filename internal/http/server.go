// Package http provides the HTTP control surface for nyx.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/nyx/internal/assistant"
	"github.com/fyrsmithlabs/nyx/internal/learning"
	"github.com/fyrsmithlabs/nyx/internal/logging"
)

// DefaultRecipient addresses feedback requests for commands that arrive over HTTP.
const DefaultRecipient = "http"

// Assistant handles commands and feedback answers.
type Assistant interface {
	HandleCommand(ctx context.Context, recipient, message string) (assistant.Response, error)
	HandleFeedback(ctx context.Context, id string, response learning.Response) (assistant.Ack, error)
}

// StatsSource reports reward table statistics.
type StatsSource interface {
	Stats() learning.Stats
}

// PendingSource reports outstanding feedback requests.
type PendingSource interface {
	PendingCount() int
}

// Server provides HTTP endpoints for nyx.
type Server struct {
	echo      *echo.Echo
	assistant Assistant
	stats     StatsSource
	pending   PendingSource
	modules   []string
	metrics   *HTTPMetrics
	logger    *logging.Logger
	config    *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// RateLimit is the sustained requests per second allowed per client on
	// /api/v1. Zero disables limiting.
	RateLimit float64
	RateBurst int
}

// Option configures a Server.
type Option func(*Server)

// WithStats enables GET /api/v1/stats reward figures.
func WithStats(s StatsSource) Option {
	return func(srv *Server) { srv.stats = s }
}

// WithPending reports the pending feedback count in /api/v1/stats.
func WithPending(p PendingSource) Option {
	return func(srv *Server) { srv.pending = p }
}

// WithModules lists the registered modules in /health.
func WithModules(names []string) Option {
	return func(srv *Server) { srv.modules = append([]string(nil), names...) }
}

// WithMetrics installs the OpenTelemetry request metrics middleware.
func WithMetrics(m *HTTPMetrics) Option {
	return func(srv *Server) { srv.metrics = m }
}

// NewServer creates a new HTTP server.
func NewServer(a Assistant, logger *logging.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if a == nil {
		return nil, fmt.Errorf("assistant cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9191,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		assistant: a,
		logger:    logger,
		config:    cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger)
	if s.metrics != nil {
		e.Use(s.metrics.MetricsMiddleware())
	}

	s.registerRoutes()
	return s, nil
}

// requestLogger tags the request context and logs each request once it completes.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		requestID := c.Response().Header().Get(echo.HeaderXRequestID)

		ctx := logging.WithRequestID(c.Request().Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.SetRequest(c.Request().WithContext(ctx))

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		s.logger.Info(ctx, "http request",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	}
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	if s.config.RateLimit > 0 {
		burst := s.config.RateBurst
		if burst <= 0 {
			burst = int(s.config.RateLimit) + 1
		}
		v1.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(s.config.RateLimit),
				Burst:     burst,
				ExpiresIn: 3 * time.Minute,
			}),
		}))
	}
	v1.GET("/stats", s.handleStats)
	v1.POST("/process", s.handleProcess)
	v1.POST("/feedback/:id", s.handleFeedback)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string   `json:"status"`
	Modules []string `json:"modules,omitempty"`
}

// StatsResponse is the response body for GET /api/v1/stats.
type StatsResponse struct {
	learning.Stats
	PendingFeedback int `json:"pending_feedback"`
}

// ProcessRequest is the request body for POST /api/v1/process.
type ProcessRequest struct {
	Text      string `json:"text"`
	Recipient string `json:"recipient,omitempty"`
}

// FeedbackRequest is the request body for POST /api/v1/feedback/:id.
type FeedbackRequest struct {
	Action        learning.Action `json:"action"`
	CorrectIntent string          `json:"correct_intent,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Modules: s.modules})
}

func (s *Server) handleStats(c echo.Context) error {
	var resp StatsResponse
	if s.stats != nil {
		resp.Stats = s.stats.Stats()
	}
	if s.pending != nil {
		resp.PendingFeedback = s.pending.PendingCount()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleProcess(c echo.Context) error {
	ctx := c.Request().Context()

	var req ProcessRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(ctx, "invalid process request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text field is required")
	}
	recipient := req.Recipient
	if recipient == "" {
		recipient = DefaultRecipient
	}

	resp, err := s.assistant.HandleCommand(ctx, recipient, req.Text)
	if err != nil {
		s.logger.Error(ctx, "processing command", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to process command")
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleFeedback(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	var req FeedbackRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(ctx, "invalid feedback request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ack, err := s.assistant.HandleFeedback(ctx, id, learning.Response{
		Action:        req.Action,
		CorrectIntent: req.CorrectIntent,
	})
	switch {
	case errors.Is(err, learning.ErrUnknownAction), errors.Is(err, learning.ErrMissingCorrectIntent):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, learning.ErrPersistFailed):
		s.logger.Error(ctx, "feedback applied but not persisted", zap.String("feedback_id", id), zap.Error(err))
	case err != nil:
		s.logger.Error(ctx, "resolving feedback", zap.String("feedback_id", id), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve feedback")
	}
	if !ack.Resolved {
		return echo.NewHTTPError(http.StatusNotFound, "feedback request not found")
	}
	return c.JSON(http.StatusOK, ack)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
