package http

import (
	"net/http"

	"golang-analyst-gateway/internal/gateway/dto"
	"golang-analyst-gateway/internal/gateway/service"
	"golang-analyst-gateway/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ChatHandler handles HTTP requests for the conversational endpoint.
type ChatHandler struct {
	gateway service.ChatGateway
	logger  *logger.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(gateway service.ChatGateway, logger *logger.Logger) *ChatHandler {
	return &ChatHandler{gateway: gateway, logger: logger}
}

// RegisterRoutes registers the chat routes to the Echo group.
func (h *ChatHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Chat)
}

// Chat godoc
// @Summary Process a chat message
// @Description Run one conversational turn through the gateway pipeline
// @Tags chat
// @Accept  json
// @Produce  json
// @Param   request  body    dto.ChatRequest   true    "Chat message"
// @Success 200 {object} dto.ChatResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /chat [post]
func (h *ChatHandler) Chat(c echo.Context) error {
	var req dto.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}

	resp := h.gateway.ProcessMessage(c.Request().Context(), &req)
	return c.JSON(http.StatusOK, resp)
}
