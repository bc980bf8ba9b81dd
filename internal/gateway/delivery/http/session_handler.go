package http

import (
	"net/http"

	"golang-analyst-gateway/internal/gateway/service"
	"golang-analyst-gateway/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SessionHandler handles HTTP requests for session management.
type SessionHandler struct {
	gateway service.ChatGateway
	logger  *logger.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(gateway service.ChatGateway, logger *logger.Logger) *SessionHandler {
	return &SessionHandler{gateway: gateway, logger: logger}
}

// RegisterRoutes registers the session routes to the Echo group.
func (h *SessionHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/:id", h.GetSessionInfo)
	g.DELETE("/:id", h.ClearSession)
}

// GetSessionInfo godoc
// @Summary Get session info
// @Description Get a read-only snapshot of a session's state
// @Tags sessions
// @Produce  json
// @Param   id  path    string true    "Session ID"
// @Success 200 {object} dto.SessionInfoResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSessionInfo(c echo.Context) error {
	info := h.gateway.SessionInfo(c.Param("id"))
	if info == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Session not found"})
	}
	return c.JSON(http.StatusOK, info)
}

// ClearSession godoc
// @Summary Clear a session
// @Description Reset a session's history and context. Warnings and blocks survive.
// @Tags sessions
// @Produce  json
// @Param   id  path    string true    "Session ID"
// @Success 200 {object} map[string]bool
// @Router /sessions/{id} [delete]
func (h *SessionHandler) ClearSession(c echo.Context) error {
	cleared := h.gateway.ClearSession(c.Param("id"))
	return c.JSON(http.StatusOK, echo.Map{"cleared": cleared})
}
