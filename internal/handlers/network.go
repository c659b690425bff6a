package handlers

import (
	"net/http"

	"solana-chat-api/internal/services"

	"github.com/gin-gonic/gin"
)

// NetworkHandler handles network information requests
type NetworkHandler struct {
	chatService services.ChatServiceInterface
}

// NewNetworkHandler creates a new NetworkHandler
func NewNetworkHandler(chatService services.ChatServiceInterface) *NetworkHandler {
	return &NetworkHandler{chatService: chatService}
}

// HandleNetworkInfo processes GET /api/network-info
func (h *NetworkHandler) HandleNetworkInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.chatService.GetNetworkInfo(c.Request.Context()))
}
