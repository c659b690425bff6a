package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solana-chat-api/internal/config"
	"solana-chat-api/internal/handlers"
	"solana-chat-api/internal/services"
	"solana-chat-api/pkg/cache"
	"solana-chat-api/pkg/logger"
	"solana-chat-api/pkg/metrics"
	"solana-chat-api/pkg/mutex"
	"solana-chat-api/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Missing .env is fine; production supplies real environment variables.
	_ = godotenv.Load()

	cfg := config.LoadConfig()

	if err := logger.Initialize(&logger.Config{
		Level:       cfg.Logging.Level,
		Environment: cfg.Logging.Environment,
		OutputPaths: cfg.Logging.OutputPaths,
	}); err != nil {
		panic(err)
	}
	log := logger.GetLogger()
	defer log.Sync()

	if cfg.Logging.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Starting solana-chat-api",
		zap.String("network", string(cfg.Network.Network)),
		zap.String("port", cfg.Server.Port),
		zap.Bool("transfers_enabled", cfg.Network.TransferAmount > 0),
		zap.Bool("ai_configured", cfg.AI.APIKey != ""),
		zap.Bool("payment_configured", cfg.Network.PrivateKey != ""),
	)

	collector := metrics.NewMetricsCollector()
	snapshotCache := cache.New(cfg.Cache.TTL)
	defer snapshotCache.Stop()
	walletMutex := mutex.New(cfg.RateLimit.CleanupInterval)
	defer walletMutex.Stop()

	limiter := ratelimiter.New(ratelimiter.Config{
		Enabled:        cfg.RateLimit.Enabled,
		WalletCooldown: cfg.RateLimit.WalletCooldown,
		IPWindow:       cfg.RateLimit.IPWindow,
		IPMaxRequests:  cfg.RateLimit.IPMaxRequests,
		DailyLimit:     cfg.Network.DailyTransferLimit,
	})

	solanaClient := services.NewSolanaClient(&cfg.RPC, &cfg.Network, collector)
	oracle := services.NewBalanceOracle(solanaClient, &cfg.Network, snapshotCache)
	transfers := services.NewTransferService(solanaClient, oracle, &cfg.Network, walletMutex, collector)
	aiClient := services.NewMistralClient(&cfg.AI, collector)
	chatService := services.NewChatService(aiClient, transfers, oracle, solanaClient, limiter, &cfg.Network, collector)
	checker := services.NewHealthChecker(solanaClient, &cfg.AI, &cfg.Network, collector)

	router := handlers.NewRouter(chatService, checker, collector)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Periodic sweep of stale rate-limit entries.
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.RateLimit.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Cleanup()
			case <-cleanupDone:
				return
			}
		}
	}()

	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	close(cleanupDone)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}
