package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"solana-chat-api/internal/config"
	"solana-chat-api/internal/models"
	"solana-chat-api/pkg/logger"
	"solana-chat-api/pkg/metrics"
	"solana-chat-api/pkg/ratelimiter"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatService orchestrates the per-request pipeline: validation, rate
// limiting, AI completion, then the disbursement attempt.
type ChatService struct {
	ai        AIClient
	transfers *TransferService
	oracle    *BalanceOracle
	validator WalletValidator
	limiter   *ratelimiter.Limiter
	netCfg    *config.NetworkConfig
	metrics   *metrics.MetricsCollector
}

// NewChatService creates a new ChatService
func NewChatService(ai AIClient, transfers *TransferService, oracle *BalanceOracle, validator WalletValidator, limiter *ratelimiter.Limiter, netCfg *config.NetworkConfig, collector *metrics.MetricsCollector) *ChatService {
	return &ChatService{
		ai:        ai,
		transfers: transfers,
		oracle:    oracle,
		validator: validator,
		limiter:   limiter,
		netCfg:    netCfg,
		metrics:   collector,
	}
}

// ProcessChat runs the full chat pipeline. The AI reply is the product and
// the disbursement is best-effort: once a reply has been generated, most
// transfer failures still produce a 200 response carrying the failed
// transaction. The exceptions are insufficient funds, which maps to a
// payment-required error, and missing credentials, which map to
// service-unavailable.
//
// Ordering is deliberate: rate limits run before the AI call so denied
// requests never spend completion tokens, and the daily counter increments
// only after a confirmed transfer success.
func (s *ChatService) ProcessChat(ctx context.Context, req *models.ChatRequest, clientIP string) (*models.ChatResponse, error) {
	log := logger.GetLogger().WithContext(ctx).WithFields(map[string]interface{}{
		"wallet_address": req.WalletAddress,
		"client_ip":      clientIP,
	})

	if strings.TrimSpace(req.Message) == "" {
		return nil, models.NewAppError(models.ErrorCodeEmptyMessage, "Message cannot be empty")
	}
	if !isValidSolanaAddress(req.WalletAddress) {
		return nil, models.NewAppError(models.ErrorCodeInvalidWallet, "Invalid Solana wallet address")
	}

	// IP window first, then daily quota, then wallet cooldown. The wallet
	// check records its timestamp on allow, so it runs last: a request
	// bounced by the IP window or the daily gate must not consume the
	// wallet's cooldown.
	if !s.limiter.CheckIP(clientIP) {
		s.metrics.RecordRateLimitDenial()
		log.Warn("Request denied: IP rate limit exceeded")
		return nil, models.NewAppError(models.ErrorCodeRateLimitExceeded,
			"Too many requests from this IP. Please try again later.")
	}

	if !s.limiter.CheckDaily() {
		s.metrics.RecordRateLimitDenial()
		log.Warn("Request denied: daily transfer limit reached")
		return nil, models.NewAppError(models.ErrorCodeRateLimitExceeded,
			"Daily transfer limit reached. Please try again tomorrow.")
	}

	if allowed, waitSeconds := s.limiter.CheckWallet(req.WalletAddress); !allowed {
		s.metrics.RecordRateLimitDenial()
		log.Warn("Request denied: wallet cooldown active",
			zap.Float64("wait_seconds", waitSeconds),
		)
		return nil, models.NewAppError(models.ErrorCodeRateLimitExceeded,
			"Please wait before sending another message.").WithWaitTime(waitSeconds)
	}

	// AI completion. A failure here aborts the request before any transfer
	// is attempted: no reply means nothing to pay for.
	reply, err := s.ai.GenerateReply(ctx, req.Message, req.ConversationHistory)
	if err != nil {
		if errors.Is(err, ErrAIUnconfigured) {
			return nil, models.NewAppErrorWithCause(models.ErrorCodeServiceUnavailable,
				"AI service is not configured. Please add MISTRAL_API_KEY.", err)
		}
		log.Error("AI completion failed", zap.Error(err))
		return nil, models.NewAppErrorWithCause(models.ErrorCodeInternalError,
			"Failed to generate response", err)
	}

	tx, err := s.transfers.Transfer(ctx, req.WalletAddress)
	if err != nil {
		if errors.Is(err, ErrPaymentUnconfigured) || errors.Is(err, ErrInvalidPrivateKey) {
			return nil, models.NewAppErrorWithCause(models.ErrorCodeServiceUnavailable,
				"Payment service is not configured. Please add SOLANA_PRIVATE_KEY.", err)
		}
		log.Error("Transfer failed unexpectedly", zap.Error(err))
		return nil, models.NewAppErrorWithCause(models.ErrorCodeInternalError,
			"Failed to process transfer", err)
	}

	if tx.Status == models.StatusFailed && tx.ErrorKind == models.TransferErrInsufficient {
		return nil, models.NewAppError(models.ErrorCodeInsufficientFunds, tx.Error)
	}

	if tx.Status == models.StatusSuccess {
		s.limiter.RecordTransfer()
	}

	return &models.ChatResponse{
		Message: models.Message{
			ID:        uuid.New().String(),
			Role:      models.RoleAssistant,
			Content:   reply,
			Timestamp: time.Now().UnixMilli(),
		},
		Transaction: tx,
	}, nil
}

// ValidateWallet delegates to the ledger-backed validator
func (s *ChatService) ValidateWallet(ctx context.Context, address string) *models.ValidateWalletResponse {
	return s.validator.ValidateWallet(ctx, address)
}

// GetNetworkInfo assembles the public network information: cluster, transfer
// amount in USDC, explorer base, sender balances, and remaining daily quota.
// Balances come from the oracle snapshot so repeated polling stays cheap.
func (s *ChatService) GetNetworkInfo(ctx context.Context) *models.NetworkInfoResponse {
	balances := s.oracle.Snapshot(ctx)

	return &models.NetworkInfoResponse{
		Network:        string(s.netCfg.Network),
		TransferAmount: config.FormatUsdcAmount(s.netCfg.TransferAmount),
		ExplorerURL:    s.netCfg.ExplorerBaseURL,
		SenderBalance: models.SenderBalance{
			Sol:  balances.SolBalance,
			Usdc: balances.UsdcBalance,
		},
		DailyLimit: models.DailyLimitInfo{
			Remaining: s.limiter.DailyRemaining(),
		},
	}
}

// isValidSolanaAddress checks address shape and base58 decodability without
// touching the network
func isValidSolanaAddress(address string) bool {
	if len(address) < 32 || len(address) > 44 {
		return false
	}
	_, err := solana.PublicKeyFromBase58(address)
	return err == nil
}
