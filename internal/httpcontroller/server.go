// Package httpcontroller exposes the preview and control API: the current
// frame, device status and toggles, the start-list table and the result
// listing.
package httpcontroller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/lanecast/lanecast/internal/conf"
	"github.com/lanecast/lanecast/internal/observability"
	"github.com/lanecast/lanecast/internal/pipeline"
)

// Server wraps the echo instance serving the control API.
type Server struct {
	echo     *echo.Echo
	pipeline *pipeline.Pipeline
	listen   string
	logger   *slog.Logger
}

// New builds the server and its routes.
func New(settings *conf.HTTPSettings, p *pipeline.Pipeline, metrics *observability.Metrics, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		pipeline: p,
		listen:   settings.Listen,
		logger:   logger,
	}

	api := e.Group("/api/v1")
	api.GET("/frame", s.getFrame)
	api.GET("/devices", s.getDevices)
	api.POST("/devices/:id/enabled", s.setDeviceEnabled)
	api.GET("/events", s.getEvents)
	api.GET("/results", s.getResults)
	api.GET("/status", s.getStatus)
	api.POST("/scoreboard", s.updateScoreboard)

	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}
	return s
}

// Start serves until Shutdown; it returns http.ErrServerClosed on a clean
// stop.
func (s *Server) Start() error {
	s.logger.Info("control api listening", "addr", s.listen)
	return s.echo.Start(s.listen)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) getFrame(c echo.Context) error {
	frame := s.pipeline.Frame()
	if len(frame) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no frame rendered yet")
	}
	return c.Blob(http.StatusOK, "image/png", frame)
}

func (s *Server) getDevices(c echo.Context) error {
	return c.JSON(http.StatusOK, s.pipeline.Devices())
}

type enabledRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) setDeviceEnabled(c echo.Context) error {
	var req enabledRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if !s.pipeline.SetDeviceEnabled(c.Param("id"), req.Enabled) {
		return echo.NewHTTPError(http.StatusNotFound, "unknown device")
	}
	return c.NoContent(http.StatusNoContent)
}

type eventResponse struct {
	Event       int    `json:"event"`
	Description string `json:"description"`
	Heats       int    `json:"heats"`
}

func (s *Server) getEvents(c echo.Context) error {
	entries := s.pipeline.Events()
	out := make([]eventResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, eventResponse{
			Event:       e.EventNum,
			Description: e.Description,
			Heats:       e.Heats,
		})
	}
	return c.JSON(http.StatusOK, out)
}

type resultResponse struct {
	Meet  string    `json:"meet"`
	Event int       `json:"event"`
	Heat  int       `json:"heat"`
	Time  time.Time `json:"time"`
}

func (s *Server) getResults(c echo.Context) error {
	summaries, err := s.pipeline.Results()
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "result directory unavailable")
	}
	out := make([]resultResponse, 0, len(summaries))
	for _, r := range summaries {
		out = append(out, resultResponse{
			Meet: r.Meet, Event: r.Event, Heat: r.Heat, Time: r.ModTime,
		})
	}
	return c.JSON(http.StatusOK, out)
}

type scoreboardRequest struct {
	Title *string `json:"title"`
	Lanes *int    `json:"lanes"`
}

type scoreboardResponse struct {
	Title string `json:"title"`
	Lanes int    `json:"lanes"`
}

// updateScoreboard changes scoreboard appearance at runtime. The mutation
// goes through the shared settings snapshot so it takes the same path as a
// config file edit: validate, install, notify subscribers, re-render.
func (s *Server) updateScoreboard(c echo.Context) error {
	var req scoreboardRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Title == nil && req.Lanes == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "nothing to update")
	}
	if err := conf.Update(func(st *conf.Settings) {
		if req.Title != nil {
			st.Realtime.Scoreboard.Title = *req.Title
		}
		if req.Lanes != nil {
			st.Realtime.Scoreboard.Lanes = *req.Lanes
		}
	}); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	sb := conf.Setting().Realtime.Scoreboard
	return c.JSON(http.StatusOK, scoreboardResponse{Title: sb.Title, Lanes: sb.Lanes})
}

type statusResponse struct {
	Events      int       `json:"events"`
	Devices     int       `json:"devices"`
	LastDrop    string    `json:"last_drop,omitempty"`
	LastDropAt  time.Time `json:"last_drop_at,omitzero"`
	HasFrame    bool      `json:"has_frame"`
	GeneratedAt time.Time `json:"generated_at"`
}

func (s *Server) getStatus(c echo.Context) error {
	dropped, droppedAt := s.pipeline.LastDrop()
	return c.JSON(http.StatusOK, statusResponse{
		Events:      len(s.pipeline.Events()),
		Devices:     len(s.pipeline.Devices()),
		LastDrop:    dropped,
		LastDropAt:  droppedAt,
		HasFrame:    len(s.pipeline.Frame()) > 0,
		GeneratedAt: time.Now(),
	})
}
