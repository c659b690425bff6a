package handlers

import (
	"net/http"
	"time"

	"solana-chat-api/internal/services"
	"solana-chat-api/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health and status requests
type HealthHandler struct {
	checker *services.HealthChecker
	metrics *metrics.MetricsCollector
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(checker *services.HealthChecker, collector *metrics.MetricsCollector) *HealthHandler {
	return &HealthHandler{checker: checker, metrics: collector}
}

// HandleHealth processes GET /health. It is a cheap liveness probe; the
// detailed dependency checks live under /status.
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// HandleLive processes GET /health/live. Liveness only asserts the process
// is serving requests.
func (h *HealthHandler) HandleLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
	})
}

// HandleReady processes GET /health/ready. Readiness requires the RPC
// endpoint to answer; a failed probe maps to 503.
func (h *HealthHandler) HandleReady(c *gin.Context) {
	check := h.checker.CheckRPC(c.Request.Context())

	status := http.StatusOK
	if check.Status == services.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":    check.Status,
		"rpc":       check,
		"timestamp": time.Now().UTC(),
	})
}

// HandleStatus processes GET /status with per-dependency health checks.
// An unhealthy dependency maps to 503 so load balancers can act on it.
func (h *HealthHandler) HandleStatus(c *gin.Context) {
	health := h.checker.GetDetailedHealth(c.Request.Context())

	status := http.StatusOK
	if health["status"] == services.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, health)
}

// HandleMetrics processes GET /metrics
func (h *HealthHandler) HandleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"metrics":               h.metrics.GetMetrics(),
		"uptime":                h.metrics.GetUptime().String(),
		"success_rate":          h.metrics.GetSuccessRate(),
		"transfer_success_rate": h.metrics.GetTransferSuccessRate(),
		"timestamp":             time.Now().UTC(),
	})
}
