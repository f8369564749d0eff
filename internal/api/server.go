// Package api exposes the workflow over HTTP: start a run, list runs,
// inspect one, and deliver a review decision.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/signalpost/signalpost/internal/engine"
	"github.com/signalpost/signalpost/internal/instance"
)

// Logger is the minimal logging surface the server needs.
type Logger interface {
	Printf(format string, args ...any)
}

// Server holds the dependencies for the API.
type Server struct {
	engine *engine.Engine
	store  instance.Store
	logger Logger

	echo *echo.Echo
}

// NewServer wires the handlers to the engine and instance store.
func NewServer(eng *engine.Engine, store instance.Store, logger Logger) *Server {
	s := &Server{engine: eng, store: store, logger: logger}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/healthz", s.Health)
	v1 := e.Group("/api/v1")
	v1.POST("/instances", s.StartInstance)
	v1.GET("/instances", s.ListInstances)
	v1.GET("/instances/:id", s.GetInstance)
	v1.POST("/instances/:id/resume", s.ResumeInstance)

	s.echo = e
	return s
}

// Handler returns the HTTP handler (tests drive it directly).
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until the context is canceled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context, listen string) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.echo.Start(listen)
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

// Health reports liveness.
// (GET /healthz)
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// StartRequest is the intake payload.
type StartRequest struct {
	Links     []string           `json:"links"`
	Overrides instance.Overrides `json:"overrides"`
}

// StartInstance starts a workflow run and advances it until it suspends or
// terminates.
// (POST /api/v1/instances)
func (s *Server) StartInstance(c echo.Context) error {
	var req StartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if len(req.Links) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "links is required")
	}

	in, err := s.engine.Start(c.Request().Context(), req.Links, req.Overrides)
	if err != nil {
		s.logf("api: start failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, in)
}

// ListInstances returns stored runs, optionally filtered by ?status=.
// (GET /api/v1/instances)
func (s *Server) ListInstances(c echo.Context) error {
	instances, err := s.store.List()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if want := c.QueryParam("status"); want != "" {
		filtered := instances[:0]
		for _, in := range instances {
			if string(in.Status) == want {
				filtered = append(filtered, in)
			}
		}
		instances = filtered
	}
	if instances == nil {
		instances = []instance.Instance{}
	}
	return c.JSON(http.StatusOK, instances)
}

// GetInstance returns one run.
// (GET /api/v1/instances/:id)
func (s *Server) GetInstance(c echo.Context) error {
	in, err := s.store.Load(c.Param("id"))
	if err != nil {
		if errors.Is(err, instance.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "instance not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, in)
}

// ResumeInstance delivers a review decision to a suspended run.
// (POST /api/v1/instances/:id/resume)
func (s *Server) ResumeInstance(c echo.Context) error {
	var resolution instance.Resolution
	if err := c.Bind(&resolution); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	in, err := s.engine.Resume(c.Request().Context(), c.Param("id"), resolution)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, in)
	case errors.Is(err, instance.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "instance not found")
	case errors.Is(err, engine.ErrInvalidResumeState):
		return echo.NewHTTPError(http.StatusConflict, "instance is not awaiting review")
	case errors.Is(err, engine.ErrInvalidDecision):
		return echo.NewHTTPError(http.StatusBadRequest, "decision must be approve, edit, or reject")
	default:
		s.logf("api: resume %s failed: %v", c.Param("id"), err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
