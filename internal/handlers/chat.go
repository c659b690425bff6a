package handlers

import (
	"net/http"

	"solana-chat-api/internal/models"
	"solana-chat-api/internal/services"
	"solana-chat-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ChatHandler handles chat requests
type ChatHandler struct {
	chatService services.ChatServiceInterface
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(chatService services.ChatServiceInterface) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// HandleChat processes POST /api/chat
func (h *ChatHandler) HandleChat(c *gin.Context) {
	log := logger.GetLogger().WithContext(c.Request.Context())

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.HandleError(c, models.NewAppErrorWithCause(
			models.ErrorCodeMalformedJSON, "Request body must be valid JSON", err), log.Logger)
		return
	}

	resp, err := h.chatService.ProcessChat(c.Request.Context(), &req, c.ClientIP())
	if err != nil {
		models.HandleError(c, err, log.Logger)
		return
	}

	c.JSON(http.StatusOK, resp)
}
