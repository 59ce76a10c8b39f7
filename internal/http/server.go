// Package http provides the HTTP API for gapd: gap detection runs, semantic
// search, recommendations, and proactive suggestions.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/gapd/internal/config"
	"github.com/fyrsmithlabs/gapd/internal/gapdetect"
	"github.com/fyrsmithlabs/gapd/internal/logging"
	"github.com/fyrsmithlabs/gapd/internal/ranking"
)

// Server provides HTTP endpoints for gapd.
type Server struct {
	echo     *echo.Echo
	detector *gapdetect.Detector
	ranker   *ranking.Ranker
	logger   *logging.Logger
	cfg      config.ServerConfig
}

// NewServer creates the HTTP server with routes and middleware registered.
func NewServer(detector *gapdetect.Detector, ranker *ranking.Ranker, logger *logging.Logger, cfg config.ServerConfig) (*Server, error) {
	if detector == nil {
		return nil, fmt.Errorf("detector cannot be nil")
	}
	if ranker == nil {
		return nil, fmt.Errorf("ranker cannot be nil")
	}
	if logger == nil {
		logger = logging.Nop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestIDContext())
	e.Use(requestLogger(logger))
	e.Use(NewHTTPMetrics(logger).Middleware())

	s := &Server{
		echo:     e,
		detector: detector,
		ranker:   ranker,
		logger:   logger,
		cfg:      cfg,
	}
	s.registerRoutes()
	return s, nil
}

// safeRequestID matches IDs the logging layer accepts. Client-supplied
// X-Request-ID values that fail this are dropped, not trusted.
var safeRequestID = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

// requestIDContext copies the echo request ID into the request context so
// log lines carry it.
func requestIDContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			if safeRequestID.MatchString(id) {
				ctx := logging.WithRequestID(c.Request().Context(), id)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}

func requestLogger(logger *logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return err
		}
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/gaps/detect", s.handleDetect)
	v1.POST("/search", s.handleSearch)
	v1.POST("/recommend", s.handleRecommend)
	v1.POST("/suggest", s.handleSuggest)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleDetect runs one detection pass and returns its report.
func (s *Server) handleDetect(c echo.Context) error {
	ctx := c.Request().Context()
	report, err := s.detector.Run(ctx)
	if err != nil {
		s.logger.Error(ctx, "detection run failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "detection run failed")
	}
	return c.JSON(http.StatusOK, report)
}

// SearchRequest is the request body for POST /api/v1/search.
type SearchRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleSearch(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := s.ranker.Search(c.Request().Context(), req.Query)
	if err != nil {
		if errors.Is(err, ranking.ErrEmptyQuery) {
			return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
		}
		s.logger.Error(c.Request().Context(), "search failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleRecommend(c echo.Context) error {
	var req ranking.UserContext
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := s.ranker.Recommend(c.Request().Context(), req)
	if err != nil {
		s.logger.Error(c.Request().Context(), "recommend failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "recommendation failed")
	}
	return c.JSON(http.StatusOK, result)
}

// SuggestRequest is the request body for POST /api/v1/suggest.
type SuggestRequest struct {
	Conversation string `json:"conversation"`
}

func (s *Server) handleSuggest(c echo.Context) error {
	var req SuggestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := s.ranker.Suggest(c.Request().Context(), req.Conversation)
	if err != nil {
		if errors.Is(err, ranking.ErrEmptyQuery) {
			return echo.NewHTTPError(http.StatusBadRequest, "conversation field is required")
		}
		s.logger.Error(c.Request().Context(), "suggest failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "suggestion failed")
	}
	return c.JSON(http.StatusOK, result)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
