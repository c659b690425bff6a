package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds performance metrics for the application
type Metrics struct {
	// Request metrics
	TotalRequests      int64 `json:"total_requests"`
	SuccessfulRequests int64 `json:"successful_requests"`
	FailedRequests     int64 `json:"failed_requests"`

	// Response time metrics
	AverageResponseTime time.Duration `json:"average_response_time"`
	MinResponseTime     time.Duration `json:"min_response_time"`
	MaxResponseTime     time.Duration `json:"max_response_time"`

	// Rate limit metrics
	RateLimitDenials int64 `json:"rate_limit_denials"`

	// AI completion metrics
	AICalls       int64         `json:"ai_calls"`
	AIFailures    int64         `json:"ai_failures"`
	AverageAITime time.Duration `json:"average_ai_time"`

	// Ledger RPC metrics
	RPCCalls       int64         `json:"rpc_calls"`
	RPCFailures    int64         `json:"rpc_failures"`
	AverageRPCTime time.Duration `json:"average_rpc_time"`

	// Disbursement metrics
	TransferAttempts  int64 `json:"transfer_attempts"`
	TransferSuccesses int64 `json:"transfer_successes"`
	TransferFailures  int64 `json:"transfer_failures"`

	// Concurrency metrics
	ActiveRequests int64 `json:"active_requests"`

	// Internal fields for calculations
	totalResponseTime time.Duration
	totalAITime       time.Duration
	totalRPCTime      time.Duration
	mutex             sync.RWMutex
}

// MetricsCollector provides thread-safe metrics collection
type MetricsCollector struct {
	metrics   *Metrics
	startTime time.Time
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics: &Metrics{
			MinResponseTime: time.Duration(^uint64(0) >> 1), // Max duration
		},
		startTime: time.Now(),
	}
}

// RecordRequest records a new request
func (mc *MetricsCollector) RecordRequest() {
	atomic.AddInt64(&mc.metrics.TotalRequests, 1)
	atomic.AddInt64(&mc.metrics.ActiveRequests, 1)
}

// RecordRequestComplete records request completion
func (mc *MetricsCollector) RecordRequestComplete(duration time.Duration, success bool) {
	atomic.AddInt64(&mc.metrics.ActiveRequests, -1)

	if success {
		atomic.AddInt64(&mc.metrics.SuccessfulRequests, 1)
	} else {
		atomic.AddInt64(&mc.metrics.FailedRequests, 1)
	}

	mc.metrics.mutex.Lock()
	defer mc.metrics.mutex.Unlock()

	mc.metrics.totalResponseTime += duration

	if duration < mc.metrics.MinResponseTime {
		mc.metrics.MinResponseTime = duration
	}

	if duration > mc.metrics.MaxResponseTime {
		mc.metrics.MaxResponseTime = duration
	}

	totalRequests := atomic.LoadInt64(&mc.metrics.TotalRequests)
	if totalRequests > 0 {
		mc.metrics.AverageResponseTime = mc.metrics.totalResponseTime / time.Duration(totalRequests)
	}
}

// RecordRateLimitDenial records a request rejected by any rate limit
func (mc *MetricsCollector) RecordRateLimitDenial() {
	atomic.AddInt64(&mc.metrics.RateLimitDenials, 1)
}

// RecordAICall records an AI completion call
func (mc *MetricsCollector) RecordAICall(duration time.Duration, success bool) {
	atomic.AddInt64(&mc.metrics.AICalls, 1)

	if !success {
		atomic.AddInt64(&mc.metrics.AIFailures, 1)
	}

	mc.metrics.mutex.Lock()
	defer mc.metrics.mutex.Unlock()

	mc.metrics.totalAITime += duration

	totalCalls := atomic.LoadInt64(&mc.metrics.AICalls)
	if totalCalls > 0 {
		mc.metrics.AverageAITime = mc.metrics.totalAITime / time.Duration(totalCalls)
	}
}

// RecordRPCCall records a ledger RPC call
func (mc *MetricsCollector) RecordRPCCall(duration time.Duration, success bool) {
	atomic.AddInt64(&mc.metrics.RPCCalls, 1)

	if !success {
		atomic.AddInt64(&mc.metrics.RPCFailures, 1)
	}

	mc.metrics.mutex.Lock()
	defer mc.metrics.mutex.Unlock()

	mc.metrics.totalRPCTime += duration

	totalRPCCalls := atomic.LoadInt64(&mc.metrics.RPCCalls)
	if totalRPCCalls > 0 {
		mc.metrics.AverageRPCTime = mc.metrics.totalRPCTime / time.Duration(totalRPCCalls)
	}
}

// RecordTransferAttempt records a disbursement attempt and its outcome
func (mc *MetricsCollector) RecordTransferAttempt(success bool) {
	atomic.AddInt64(&mc.metrics.TransferAttempts, 1)

	if success {
		atomic.AddInt64(&mc.metrics.TransferSuccesses, 1)
	} else {
		atomic.AddInt64(&mc.metrics.TransferFailures, 1)
	}
}

// GetMetrics returns a copy of current metrics
func (mc *MetricsCollector) GetMetrics() *Metrics {
	mc.metrics.mutex.RLock()
	defer mc.metrics.mutex.RUnlock()

	return &Metrics{
		TotalRequests:       atomic.LoadInt64(&mc.metrics.TotalRequests),
		SuccessfulRequests:  atomic.LoadInt64(&mc.metrics.SuccessfulRequests),
		FailedRequests:      atomic.LoadInt64(&mc.metrics.FailedRequests),
		AverageResponseTime: mc.metrics.AverageResponseTime,
		MinResponseTime:     mc.metrics.MinResponseTime,
		MaxResponseTime:     mc.metrics.MaxResponseTime,
		RateLimitDenials:    atomic.LoadInt64(&mc.metrics.RateLimitDenials),
		AICalls:             atomic.LoadInt64(&mc.metrics.AICalls),
		AIFailures:          atomic.LoadInt64(&mc.metrics.AIFailures),
		AverageAITime:       mc.metrics.AverageAITime,
		RPCCalls:            atomic.LoadInt64(&mc.metrics.RPCCalls),
		RPCFailures:         atomic.LoadInt64(&mc.metrics.RPCFailures),
		AverageRPCTime:      mc.metrics.AverageRPCTime,
		TransferAttempts:    atomic.LoadInt64(&mc.metrics.TransferAttempts),
		TransferSuccesses:   atomic.LoadInt64(&mc.metrics.TransferSuccesses),
		TransferFailures:    atomic.LoadInt64(&mc.metrics.TransferFailures),
		ActiveRequests:      atomic.LoadInt64(&mc.metrics.ActiveRequests),
	}
}

// GetUptime returns the uptime since metrics collection started
func (mc *MetricsCollector) GetUptime() time.Duration {
	return time.Since(mc.startTime)
}

// GetSuccessRate returns the request success rate as a percentage
func (mc *MetricsCollector) GetSuccessRate() float64 {
	successful := atomic.LoadInt64(&mc.metrics.SuccessfulRequests)
	total := atomic.LoadInt64(&mc.metrics.TotalRequests)

	if total == 0 {
		return 0.0
	}

	return float64(successful) / float64(total) * 100.0
}

// GetTransferSuccessRate returns the disbursement success rate as a percentage
func (mc *MetricsCollector) GetTransferSuccessRate() float64 {
	successful := atomic.LoadInt64(&mc.metrics.TransferSuccesses)
	total := atomic.LoadInt64(&mc.metrics.TransferAttempts)

	if total == 0 {
		return 0.0
	}

	return float64(successful) / float64(total) * 100.0
}

// Reset resets all metrics
func (mc *MetricsCollector) Reset() {
	mc.metrics.mutex.Lock()
	defer mc.metrics.mutex.Unlock()

	atomic.StoreInt64(&mc.metrics.TotalRequests, 0)
	atomic.StoreInt64(&mc.metrics.SuccessfulRequests, 0)
	atomic.StoreInt64(&mc.metrics.FailedRequests, 0)
	atomic.StoreInt64(&mc.metrics.RateLimitDenials, 0)
	atomic.StoreInt64(&mc.metrics.AICalls, 0)
	atomic.StoreInt64(&mc.metrics.AIFailures, 0)
	atomic.StoreInt64(&mc.metrics.RPCCalls, 0)
	atomic.StoreInt64(&mc.metrics.RPCFailures, 0)
	atomic.StoreInt64(&mc.metrics.TransferAttempts, 0)
	atomic.StoreInt64(&mc.metrics.TransferSuccesses, 0)
	atomic.StoreInt64(&mc.metrics.TransferFailures, 0)
	atomic.StoreInt64(&mc.metrics.ActiveRequests, 0)

	mc.metrics.AverageResponseTime = 0
	mc.metrics.MinResponseTime = time.Duration(^uint64(0) >> 1)
	mc.metrics.MaxResponseTime = 0
	mc.metrics.AverageAITime = 0
	mc.metrics.AverageRPCTime = 0
	mc.metrics.totalResponseTime = 0
	mc.metrics.totalAITime = 0
	mc.metrics.totalRPCTime = 0

	mc.startTime = time.Now()
}
