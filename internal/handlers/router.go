package handlers

import (
	"time"

	"solana-chat-api/internal/middleware"
	"solana-chat-api/internal/services"
	"solana-chat-api/pkg/logger"
	"solana-chat-api/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter assembles the Gin engine with the full middleware stack and all
// routes
func NewRouter(chatService services.ChatServiceInterface, checker *services.HealthChecker, collector *metrics.MetricsCollector) *gin.Engine {
	router := gin.New()

	router.Use(logger.RecoveryMiddleware())
	router.Use(logger.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware(collector))
	router.Use(middleware.PerformanceMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"X-Correlation-ID", "X-Request-ID", "X-Response-Time"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	chatHandler := NewChatHandler(chatService)
	walletHandler := NewWalletHandler(chatService)
	networkHandler := NewNetworkHandler(chatService)
	healthHandler := NewHealthHandler(checker, collector)

	api := router.Group("/api")
	{
		api.POST("/chat", chatHandler.HandleChat)
		api.POST("/validate-wallet", walletHandler.HandleValidateWallet)
		api.GET("/network-info", networkHandler.HandleNetworkInfo)
	}

	router.GET("/health", healthHandler.HandleHealth)
	router.GET("/health/live", healthHandler.HandleLive)
	router.GET("/health/ready", healthHandler.HandleReady)
	router.GET("/status", healthHandler.HandleStatus)
	router.GET("/metrics", healthHandler.HandleMetrics)

	return router
}
