// ABOUTME: System snapshot handler.

package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pulsehq/pulse/internal/protocol"
)

func (s *Server) handleGetSystem(c echo.Context) error {
	return c.JSON(http.StatusOK, protocol.OK(s.store.Snapshot()))
}
