// ABOUTME: HTTP and WebSocket surface for pulse-server built on echo.
// ABOUTME: Wires store, hub, respond registry and handles graceful shutdown.

package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pulsehq/pulse/internal/config"
	"github.com/pulsehq/pulse/internal/hub"
	"github.com/pulsehq/pulse/internal/respond"
	"github.com/pulsehq/pulse/internal/store"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP front of the sync core. All JSON responses use the
// uniform envelope; live updates flow over the /ws channel.
type Server struct {
	cfg      *config.Config
	store    *store.Store
	hub      *hub.Hub
	registry *respond.Registry
	logger   *slog.Logger

	echo     *echo.Echo
	upgrader websocket.Upgrader
}

// New creates a server with all routes registered.
func New(cfg *config.Config, st *store.Store, h *hub.Hub, registry *respond.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		cfg:      cfg,
		store:    st,
		hub:      h,
		registry: registry,
		logger:   logger.With("component", "server"),
		echo:     e,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo

	e.GET("/healthz", s.handleHealthz)
	e.GET("/ws", s.handleWebSocket)

	api := e.Group("/api")
	api.POST("/agents", s.handleCreateAgent)
	api.GET("/agents", s.handleListAgents)
	api.GET("/agents/:id", s.handleGetAgent)
	api.PUT("/agents/:id", s.handleUpdateAgent)
	api.DELETE("/agents/:id", s.handleDeleteAgent)
	api.POST("/agents/:id/start", s.handleStartAgent)
	api.POST("/agents/:id/stop", s.handleStopAgent)
	api.POST("/agents/:id/metrics", s.handleRecordMetrics)

	api.GET("/system", s.handleGetSystem)

	api.POST("/sessions", s.handleCreateSession)
	api.GET("/sessions", s.handleListSessions)
	api.GET("/sessions/:id", s.handleGetSession)
	api.DELETE("/sessions/:id", s.handleDeleteSession)
	api.POST("/sessions/:id/messages", s.handleAppendMessage)
}

// Handler exposes the route tree, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves HTTP until the context is cancelled, then shuts down
// gracefully and closes the hub.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.cfg.Server.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.logger.Info("http server listening", "addr", s.cfg.Server.HTTPAddr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.hub.Close()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": s.hub.ConnCount(),
	})
}

// handleWebSocket upgrades the request and hands the socket to the hub.
// The bootstrap snapshot pair is queued by Register before any broadcast
// can reach this channel.
func (s *Server) handleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return err
	}

	conn, err := s.hub.Register(ws, c.RealIP())
	if err != nil {
		ws.Close()
		return nil
	}

	go conn.Run()
	return nil
}
