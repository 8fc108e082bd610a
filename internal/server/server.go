// Package server provides the HTTP server and Echo setup for the callback endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/memohai/frontline/internal/boot"
	"github.com/memohai/frontline/internal/logger"
)

// Server is the HTTP server (Echo) with signature validation and registered handlers.
type Server struct {
	echo   *echo.Echo
	addr   string
	logger *slog.Logger
}

// Handler registers routes on the Echo instance.
type Handler interface {
	Register(e *echo.Echo)
}

// NewServer builds the Echo server with recovery, request ids, request logging,
// Twilio signature validation on /callbacks and the given handlers.
func NewServer(log *slog.Logger, rc boot.RuntimeConfig, handlers ...Handler) *Server {
	addr := rc.ServerAddr
	if addr == "" {
		addr = ":8080"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = rc.ReadTimeout
	e.Server.WriteTimeout = rc.WriteTimeout
	e.HTTPErrorHandler = errorHandler(log, e.DefaultHTTPErrorHandler)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqLog := log.With(slog.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
			c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context(), reqLog)))
			return next(c)
		}
	})
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.FromContext(c.Request().Context()).Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", c.RealIP()),
			)
			return nil
		},
	}))
	if rc.ValidateSignature {
		e.Use(SignatureMiddleware(rc.TwilioAuthToken, rc.PublicURL, func(c echo.Context) bool {
			return !strings.HasPrefix(c.Request().URL.Path, "/callbacks/")
		}))
	}

	for _, h := range handlers {
		if h != nil {
			h.Register(e)
		}
	}

	return &Server{
		echo:   e,
		addr:   addr,
		logger: log.With(slog.String("component", "server")),
	}
}

// Start starts the HTTP server (blocks until shutdown).
func (s *Server) Start() error {
	s.logger.Info("listening", slog.String("addr", s.addr))
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server using the given context.
func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP exposes the router, mainly for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// errorHandler logs server errors before delegating to Echo's JSON error response.
func errorHandler(log *slog.Logger, next echo.HTTPErrorHandler) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code >= http.StatusInternalServerError {
			logger.FromContext(c.Request().Context()).Error("request failed",
				slog.String("uri", c.Request().RequestURI),
				slog.Any("error", err),
			)
		}
		next(err, c)
	}
}
