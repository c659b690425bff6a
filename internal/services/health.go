package services

import (
	"context"
	"time"

	"solana-chat-api/internal/config"
	"solana-chat-api/pkg/metrics"
)

// HealthStatus represents the health state of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents the result of a single component check
type HealthCheck struct {
	Status    HealthStatus  `json:"status"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ns"`
	CheckedAt time.Time     `json:"checked_at"`
}

// HealthChecker probes the service's external dependencies
type HealthChecker struct {
	ledger  LedgerClient
	aiCfg   *config.AIConfig
	netCfg  *config.NetworkConfig
	metrics *metrics.MetricsCollector
}

// NewHealthChecker creates a new HealthChecker
func NewHealthChecker(ledger LedgerClient, aiCfg *config.AIConfig, netCfg *config.NetworkConfig, collector *metrics.MetricsCollector) *HealthChecker {
	return &HealthChecker{
		ledger:  ledger,
		aiCfg:   aiCfg,
		netCfg:  netCfg,
		metrics: collector,
	}
}

// CheckRPC probes the ledger RPC endpoint
func (h *HealthChecker) CheckRPC(ctx context.Context) HealthCheck {
	start := time.Now()
	err := h.ledger.IsHealthy(ctx)
	check := HealthCheck{
		Status:    HealthStatusHealthy,
		Latency:   time.Since(start),
		CheckedAt: time.Now().UTC(),
	}
	if err != nil {
		check.Status = HealthStatusUnhealthy
		check.Message = err.Error()
	}
	return check
}

// checkConfiguration reports whether the credential-gated integrations are
// configured. Missing credentials degrade the service rather than failing it:
// the process is up, but paid features will return service-unavailable.
func (h *HealthChecker) checkConfiguration() HealthCheck {
	check := HealthCheck{
		Status:    HealthStatusHealthy,
		CheckedAt: time.Now().UTC(),
	}

	switch {
	case h.aiCfg.APIKey == "" && h.netCfg.PrivateKey == "":
		check.Status = HealthStatusDegraded
		check.Message = "MISTRAL_API_KEY and SOLANA_PRIVATE_KEY are not configured"
	case h.aiCfg.APIKey == "":
		check.Status = HealthStatusDegraded
		check.Message = "MISTRAL_API_KEY is not configured"
	case h.netCfg.PrivateKey == "":
		check.Status = HealthStatusDegraded
		check.Message = "SOLANA_PRIVATE_KEY is not configured"
	}

	return check
}

// GetDetailedHealth runs every component check and aggregates an overall
// status: unhealthy if any check is unhealthy, degraded if any is degraded.
func (h *HealthChecker) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	checks := map[string]HealthCheck{
		"rpc":           h.CheckRPC(ctx),
		"configuration": h.checkConfiguration(),
	}

	overall := HealthStatusHealthy
	for _, check := range checks {
		if check.Status == HealthStatusUnhealthy {
			overall = HealthStatusUnhealthy
			break
		}
		if check.Status == HealthStatusDegraded {
			overall = HealthStatusDegraded
		}
	}

	return map[string]interface{}{
		"status":    overall,
		"network":   h.netCfg.Network,
		"checks":    checks,
		"uptime":    h.metrics.GetUptime().String(),
		"timestamp": time.Now().UTC(),
	}
}
