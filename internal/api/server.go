// Package api serves GitHub webhook deliveries over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/Third-Cult/agile-automation-playground-sub000/internal/notify"
	"github.com/Third-Cult/agile-automation-playground-sub000/internal/provider_input/github"
	"github.com/Third-Cult/agile-automation-playground-sub000/pkg/models"
)

// EventHandler applies one classified event.
type EventHandler interface {
	Handle(ctx context.Context, ev models.Event) (*notify.Outcome, error)
}

// Server represents the webhook server
type Server struct {
	echo     *echo.Echo
	addr     string
	webhooks *github.WebhookProvider
	handler  EventHandler
	logger   zerolog.Logger
}

// NewServer creates a new webhook server
func NewServer(addr string, webhooks *github.WebhookProvider, handler EventHandler, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogMethod:  true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	server := &Server{
		echo:     e,
		addr:     addr,
		webhooks: webhooks,
		handler:  handler,
		logger:   logger,
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all endpoints
func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	s.echo.POST("/webhooks/github", s.handleGitHubWebhook)
}

// ServeHTTP lets the server be mounted or exercised directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.addr).Bool("signed", s.webhooks.SignatureRequired()).Msg("webhook server listening")
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info().Msg("shutting down webhook server")
	return s.echo.Shutdown(shutdownCtx)
}
