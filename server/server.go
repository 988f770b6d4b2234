// Package server assembles the HTTP server from the profile, store, and
// generation client.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/pkg/errors"

	"github.com/toolhub/toolhub/plugin/llm"
	"github.com/toolhub/toolhub/server/profile"
	apiv1 "github.com/toolhub/toolhub/server/router/api/v1"
	"github.com/toolhub/toolhub/server/summarizer"
	"github.com/toolhub/toolhub/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	httpServer *http.Server
	sweeper    *summarizer.Sweeper
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	var llmClient *llm.Client
	if profile.LLMAPIKey != "" {
		client, err := llm.NewClient(profile.LLMAPIKey, profile.LLMBaseURL, profile.LLMModel)
		if err != nil {
			return nil, errors.Wrap(err, "create llm client")
		}
		llmClient = client
	} else {
		slog.Warn("no LLM API key configured; chat and summarization endpoints are disabled")
	}

	apiV1Service := apiv1.NewAPIV1Service(profile.Secret, profile, store, llmClient)
	apiV1Service.RegisterRoutes(e)

	e.GET("/healthz", func(c *echo.Context) error {
		if err := store.Ping(c.Request().Context()); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return c.String(http.StatusOK, "Service ready.")
	})

	s := &Server{
		Profile:    profile,
		Store:      store,
		echoServer: e,
	}
	if apiV1Service.Summarizer != nil && profile.SummarizeInterval > 0 {
		s.sweeper = summarizer.NewSweeper(store, apiV1Service.Summarizer, profile.SummarizeInterval)
	}
	return s, nil
}

// Start blocks serving HTTP until the listener fails or Shutdown runs.
func (s *Server) Start(ctx context.Context) error {
	if s.sweeper != nil {
		s.sweeper.Start()
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port),
		Handler:           s.echoServer,
		ReadHeaderTimeout: 30 * time.Second,
	}
	slog.Info("server started", "addr", s.httpServer.Addr, "driver", s.Profile.Driver)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			slog.Warn("failed to shut down http server", "err", err)
		}
	}
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	if err := s.Store.Close(); err != nil {
		slog.Warn("failed to close store", "err", err)
	}
	slog.Info("server stopped")
}
