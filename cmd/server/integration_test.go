package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"solana-chat-api/internal/config"
	"solana-chat-api/internal/handlers"
	"solana-chat-api/internal/models"
	"solana-chat-api/internal/services"
	"solana-chat-api/pkg/cache"
	"solana-chat-api/pkg/metrics"
	"solana-chat-api/pkg/mutex"
	"solana-chat-api/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"

// stubLedger implements services.LedgerClient against canned responses
type stubLedger struct {
	readyErr        error
	solBalance      float64
	usdcBalance     float64
	hasTokenAccount bool
	signature       string
	submitErr       error
	healthErr       error
}

func (s *stubLedger) Ready() error { return s.readyErr }
func (s *stubLedger) SenderSolBalance(ctx context.Context) (float64, error) {
	return s.solBalance, nil
}
func (s *stubLedger) SenderUsdcBalance(ctx context.Context) (float64, error) {
	return s.usdcBalance, nil
}
func (s *stubLedger) RecipientHasTokenAccount(ctx context.Context, recipient string) (bool, error) {
	return s.hasTokenAccount, nil
}
func (s *stubLedger) SubmitTransfer(ctx context.Context, recipient string, amount uint64) (string, error) {
	return s.signature, s.submitErr
}
func (s *stubLedger) IsHealthy(ctx context.Context) error { return s.healthErr }

// stubAI implements services.AIClient
type stubAI struct {
	reply string
	err   error
}

func (s *stubAI) GenerateReply(ctx context.Context, message string, history []models.Message) (string, error) {
	return s.reply, s.err
}

// stubValidator implements services.WalletValidator without network probes
type stubValidator struct{}

func (s *stubValidator) ValidateWallet(ctx context.Context, address string) *models.ValidateWalletResponse {
	if len(address) < 32 || len(address) > 44 {
		return &models.ValidateWalletResponse{Valid: false, Error: "Invalid wallet address length"}
	}
	return &models.ValidateWalletResponse{Valid: true}
}

func newTestServer(t *testing.T, ledger *stubLedger, ai *stubAI, limiterCfg ratelimiter.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	netCfg := &config.NetworkConfig{
		Network:            config.NetworkDevnet,
		UsdcMint:           "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU",
		ExplorerBaseURL:    "https://solscan.io/tx",
		ConfirmationLevel:  "confirmed",
		TransferAmount:     1000,
		MinSolBalance:      0.00005,
		MinUsdcBuffer:      0.01,
		DailyTransferLimit: 1000,
		PrivateKey:         "configured",
	}
	aiCfg := &config.AIConfig{APIKey: "configured"}

	collector := metrics.NewMetricsCollector()
	snapshotCache := cache.New(10 * time.Second)
	t.Cleanup(snapshotCache.Stop)
	walletMutex := mutex.New(time.Minute)
	t.Cleanup(walletMutex.Stop)

	oracle := services.NewBalanceOracle(ledger, netCfg, snapshotCache)
	transfers := services.NewTransferService(ledger, oracle, netCfg, walletMutex, collector)
	limiter := ratelimiter.New(limiterCfg)
	chatService := services.NewChatService(ai, transfers, oracle, &stubValidator{}, limiter, netCfg, collector)
	checker := services.NewHealthChecker(ledger, aiCfg, netCfg, collector)

	return handlers.NewRouter(chatService, checker, collector)
}

func fundedLedger() *stubLedger {
	return &stubLedger{
		solBalance:      0.5,
		usdcBalance:     10.0,
		hasTokenAccount: true,
		signature:       "3GwSignature111111111111111111111111111111111111111111111111111111111111111111111111",
	}
}

func postChat(router *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestChatEndToEndSuccess(t *testing.T) {
	ledger := fundedLedger()
	router := newTestServer(t, ledger, &stubAI{reply: "Thanks for chatting!"}, ratelimiter.Config{Enabled: false})

	w := postChat(router, models.ChatRequest{Message: "hello", WalletAddress: testWallet})
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, models.RoleAssistant, resp.Message.Role)
	assert.Equal(t, "Thanks for chatting!", resp.Message.Content)
	require.NotNil(t, resp.Transaction)
	assert.Equal(t, models.StatusSuccess, resp.Transaction.Status)
	assert.Equal(t, ledger.signature, resp.Transaction.Signature)
	assert.Equal(t, 0.001, resp.Transaction.Amount)
	assert.Contains(t, resp.Transaction.ExplorerURL, "cluster=devnet")
}

func TestChatEndToEndValidation(t *testing.T) {
	router := newTestServer(t, fundedLedger(), &stubAI{reply: "x"}, ratelimiter.Config{Enabled: false})

	t.Run("empty message", func(t *testing.T) {
		w := postChat(router, models.ChatRequest{Message: "", WalletAddress: testWallet})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var errResp models.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
		assert.Equal(t, models.ErrorCodeEmptyMessage, errResp.Error.Code)
	})

	t.Run("invalid wallet", func(t *testing.T) {
		w := postChat(router, models.ChatRequest{Message: "hi", WalletAddress: "nope"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var errResp models.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
		assert.Equal(t, models.ErrorCodeInvalidWallet, errResp.Error.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestChatEndToEndWalletCooldown(t *testing.T) {
	router := newTestServer(t, fundedLedger(), &stubAI{reply: "x"}, ratelimiter.Config{
		Enabled:        true,
		WalletCooldown: time.Minute,
		IPWindow:       time.Minute,
		IPMaxRequests:  100,
		DailyLimit:     100,
	})

	w := postChat(router, models.ChatRequest{Message: "hi", WalletAddress: testWallet})
	require.Equal(t, http.StatusOK, w.Code)

	w = postChat(router, models.ChatRequest{Message: "hi again", WalletAddress: testWallet})
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, models.ErrorCodeRateLimitExceeded, errResp.Error.Code)
	require.NotNil(t, errResp.WaitTime)
	assert.Greater(t, *errResp.WaitTime, 0.0)
}

func TestChatEndToEndInsufficientFunds(t *testing.T) {
	ledger := fundedLedger()
	ledger.usdcBalance = 0.002
	router := newTestServer(t, ledger, &stubAI{reply: "x"}, ratelimiter.Config{Enabled: false})

	w := postChat(router, models.ChatRequest{Message: "hi", WalletAddress: testWallet})
	require.Equal(t, http.StatusPaymentRequired, w.Code)

	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, models.ErrorCodeInsufficientFunds, errResp.Error.Code)
	assert.Contains(t, errResp.Error.Message, "Insufficient USDC")
}

func TestChatEndToEndUnconfiguredServices(t *testing.T) {
	t.Run("missing AI key", func(t *testing.T) {
		router := newTestServer(t, fundedLedger(), &stubAI{err: services.ErrAIUnconfigured}, ratelimiter.Config{Enabled: false})

		w := postChat(router, models.ChatRequest{Message: "hi", WalletAddress: testWallet})
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var errResp models.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
		assert.Contains(t, errResp.Error.Message, "MISTRAL_API_KEY")
	})

	t.Run("missing private key", func(t *testing.T) {
		router := newTestServer(t, &stubLedger{readyErr: services.ErrPaymentUnconfigured}, &stubAI{reply: "x"}, ratelimiter.Config{Enabled: false})

		w := postChat(router, models.ChatRequest{Message: "hi", WalletAddress: testWallet})
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var errResp models.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
		assert.Contains(t, errResp.Error.Message, "SOLANA_PRIVATE_KEY")
	})
}

func TestChatEndToEndPartialSuccess(t *testing.T) {
	ledger := fundedLedger()
	ledger.submitErr = errors.New("blockhash not found")
	router := newTestServer(t, ledger, &stubAI{reply: "Reply survives"}, ratelimiter.Config{Enabled: false})

	w := postChat(router, models.ChatRequest{Message: "hi", WalletAddress: testWallet})
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Reply survives", resp.Message.Content)
	require.NotNil(t, resp.Transaction)
	assert.Equal(t, models.StatusFailed, resp.Transaction.Status)
	assert.Empty(t, resp.Transaction.Signature)
	assert.NotEmpty(t, resp.Transaction.Error)
}

func TestSupportingEndpoints(t *testing.T) {
	router := newTestServer(t, fundedLedger(), &stubAI{reply: "x"}, ratelimiter.Config{Enabled: false})

	t.Run("health", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("liveness", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("readiness", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("network info", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/network-info", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var info models.NetworkInfoResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
		assert.Equal(t, "devnet", info.Network)
		assert.Equal(t, 0.001, info.TransferAmount)
		assert.Equal(t, 0.5, info.SenderBalance.Sol)
	})

	t.Run("validate wallet", func(t *testing.T) {
		var buf bytes.Buffer
		_ = json.NewEncoder(&buf).Encode(models.ValidateWalletRequest{Address: testWallet})
		req := httptest.NewRequest(http.MethodPost, "/api/validate-wallet", &buf)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var resp models.ValidateWalletResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Valid)
	})

	t.Run("metrics", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestReadinessReportsRPCFailure(t *testing.T) {
	ledger := fundedLedger()
	ledger.healthErr = errors.New("RPC health check failed: connection refused")
	router := newTestServer(t, ledger, &stubAI{reply: "x"}, ratelimiter.Config{Enabled: false})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// Liveness stays green while the dependency is down
	req = httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
