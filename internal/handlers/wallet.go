package handlers

import (
	"net/http"

	"solana-chat-api/internal/models"
	"solana-chat-api/internal/services"
	"solana-chat-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet validation requests
type WalletHandler struct {
	chatService services.ChatServiceInterface
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(chatService services.ChatServiceInterface) *WalletHandler {
	return &WalletHandler{chatService: chatService}
}

// HandleValidateWallet processes POST /api/validate-wallet. Validation
// failures are reported in the response body with a 200 status; only a
// malformed request body is an HTTP-level error.
func (h *WalletHandler) HandleValidateWallet(c *gin.Context) {
	log := logger.GetLogger().WithContext(c.Request.Context())

	var req models.ValidateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.HandleError(c, models.NewAppErrorWithCause(
			models.ErrorCodeMalformedJSON, "Request body must be valid JSON", err), log.Logger)
		return
	}

	result := h.chatService.ValidateWallet(c.Request.Context(), req.Address)
	c.JSON(http.StatusOK, result)
}
