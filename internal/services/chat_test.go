package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-chat-api/internal/models"
	"solana-chat-api/pkg/cache"
	"solana-chat-api/pkg/metrics"
	"solana-chat-api/pkg/mutex"
	"solana-chat-api/pkg/ratelimiter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAI implements AIClient for tests
type mockAI struct {
	reply string
	err   error
	calls int
}

func (m *mockAI) GenerateReply(ctx context.Context, message string, history []models.Message) (string, error) {
	m.calls++
	return m.reply, m.err
}

// mockValidator implements WalletValidator for tests
type mockValidator struct {
	response *models.ValidateWalletResponse
}

func (m *mockValidator) ValidateWallet(ctx context.Context, address string) *models.ValidateWalletResponse {
	return m.response
}

type chatFixture struct {
	svc     *ChatService
	ai      *mockAI
	ledger  *mockLedger
	limiter *ratelimiter.Limiter
	cleanup func()
}

func newChatFixture(t *testing.T, ai *mockAI, ledger *mockLedger, limiterCfg ratelimiter.Config) *chatFixture {
	t.Helper()

	netCfg := newTestNetworkConfig()
	snapshotCache := cache.New(10 * time.Second)
	walletMutex := mutex.New(time.Minute)
	collector := metrics.NewMetricsCollector()
	oracle := NewBalanceOracle(ledger, netCfg, snapshotCache)
	transfers := NewTransferService(ledger, oracle, netCfg, walletMutex, collector)
	limiter := ratelimiter.New(limiterCfg)
	validator := &mockValidator{response: &models.ValidateWalletResponse{Valid: true}}

	svc := NewChatService(ai, transfers, oracle, validator, limiter, netCfg, collector)
	return &chatFixture{
		svc:     svc,
		ai:      ai,
		ledger:  ledger,
		limiter: limiter,
		cleanup: func() {
			snapshotCache.Stop()
			walletMutex.Stop()
		},
	}
}

func disabledLimiter() ratelimiter.Config {
	return ratelimiter.Config{Enabled: false}
}

func permissiveLimiter() ratelimiter.Config {
	return ratelimiter.Config{
		Enabled:        true,
		WalletCooldown: time.Minute,
		IPWindow:       time.Minute,
		IPMaxRequests:  100,
		DailyLimit:     100,
	}
}

func healthyLedger() *mockLedger {
	return &mockLedger{
		solBalance:      0.5,
		usdcBalance:     10.0,
		hasTokenAccount: true,
		signature:       "2xTestSignature1111111111111111111111111111111111111111111111111111111111111111111111",
	}
}

func TestProcessChatSuccess(t *testing.T) {
	f := newChatFixture(t, &mockAI{reply: "Hello there!"}, healthyLedger(), disabledLimiter())
	defer f.cleanup()

	resp, err := f.svc.ProcessChat(context.Background(), &models.ChatRequest{
		Message:       "hi",
		WalletAddress: testRecipient,
	}, "192.0.2.1")
	require.NoError(t, err)

	assert.Equal(t, models.RoleAssistant, resp.Message.Role)
	assert.Equal(t, "Hello there!", resp.Message.Content)
	assert.NotEmpty(t, resp.Message.ID)
	require.NotNil(t, resp.Transaction)
	assert.Equal(t, models.StatusSuccess, resp.Transaction.Status)
	assert.NotEmpty(t, resp.Transaction.Signature)
	assert.Equal(t, 0.001, resp.Transaction.Amount)
}

func TestProcessChatEmptyMessage(t *testing.T) {
	f := newChatFixture(t, &mockAI{reply: "x"}, healthyLedger(), disabledLimiter())
	defer f.cleanup()

	_, err := f.svc.ProcessChat(context.Background(), &models.ChatRequest{
		Message:       "   ",
		WalletAddress: testRecipient,
	}, "192.0.2.1")

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorCodeEmptyMessage, appErr.Code)
	assert.Zero(t, f.ai.calls)
}

func TestProcessChatInvalidWallet(t *testing.T) {
	f := newChatFixture(t, &mockAI{reply: "x"}, healthyLedger(), disabledLimiter())
	defer f.cleanup()

	for _, address := range []string{"", "tooshort", "not-base58-ILO0!!!not-base58-ILO0!!!xxxx"} {
		_, err := f.svc.ProcessChat(context.Background(), &models.ChatRequest{
			Message:       "hi",
			WalletAddress: address,
		}, "192.0.2.1")

		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.ErrorCodeInvalidWallet, appErr.Code)
	}
	assert.Zero(t, f.ai.calls)
}

func TestProcessChatWalletCooldownDeniesSecondRequest(t *testing.T) {
	f := newChatFixture(t, &mockAI{reply: "x"}, healthyLedger(), permissiveLimiter())
	defer f.cleanup()

	req := &models.ChatRequest{Message: "hi", WalletAddress: testRecipient}

	_, err := f.svc.ProcessChat(context.Background(), req, "192.0.2.1")
	require.NoError(t, err)

	_, err = f.svc.ProcessChat(context.Background(), req, "192.0.2.1")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorCodeRateLimitExceeded, appErr.Code)
	require.NotNil(t, appErr.WaitSeconds)
	assert.Greater(t, *appErr.WaitSeconds, 0.0)
	assert.LessOrEqual(t, *appErr.WaitSeconds, 60.0)

	// The denied request never reached the AI backend
	assert.Equal(t, 1, f.ai.calls)
}

func TestProcessChatIPLimitDeniesBeforeWalletCheck(t *testing.T) {
	cfg := permissiveLimiter()
	cfg.IPMaxRequests = 1
	f := newChatFixture(t, &mockAI{reply: "x"}, healthyLedger(), cfg)
	defer f.cleanup()

	_, err := f.svc.ProcessChat(context.Background(), &models.ChatRequest{
		Message:       "hi",
		WalletAddress: testRecipient,
	}, "192.0.2.1")
	require.NoError(t, err)

	// Different wallet, same IP: denied without waitTime, and the wallet
	// cooldown for the new wallet is not consumed.
	_, err = f.svc.ProcessChat(context.Background(), &models.ChatRequest{
		Message:       "hi",
		WalletAddress: "11111111111111111111111111111111",
	}, "192.0.2.1")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorCodeRateLimitExceeded, appErr.Code)
	assert.Nil(t, appErr.WaitSeconds)

	allowed, _ := f.limiter.CheckWallet("11111111111111111111111111111111")
	assert.True(t, allowed)
}

func TestProcessChatDailyLimitBlocks(t *testing.T) {
	cfg := permissiveLimiter()
	cfg.DailyLimit = 1
	f := newChatFixture(t, &mockAI{reply: "x"}, healthyLedger(), cfg)
	defer f.cleanup()

	_, err := f.svc.ProcessChat(context.Background(), &models.ChatRequest{
		Message:       "hi",
		WalletAddress: testRecipient,
	}, "192.0.2.1")
	require.NoError(t, err)
	assert.Equal(t, 0, f.limiter.DailyRemaining())

	_, err = f.svc.ProcessChat(context.Background(), &models.ChatRequest{
		Message:       "hi",
		WalletAddress: "11111111111111111111111111111111",
	}, "192.0.2.2")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorCodeRateLimitExceeded, appErr.Code)

	// A daily-gate denial must not start the wallet's cooldown: once the
	// quota resets, the same wallet is admitted immediately.
	allowed, _ := f.limiter.CheckWallet("11111111111111111111111111111111")
	assert.True(t, allowed)
}

func TestProcessChatAIFailureSkipsTransfer(t *testing.T) {
	ledger := healthyLedger()
	f := newChatFixture(t, &mockAI{err: errors.New("upstream 500")}, ledger, disabledLimiter())
	defer f.cleanup()

	_, err := f.svc.ProcessChat(context.Background(), &models.ChatRequest{
		Message:       "hi",
		WalletAddress: testRecipient,
	}, "192.0.2.1")

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorCodeInternalError, appErr.Code)
	assert.Zero(t, ledger.submitCalls)
}

func TestProcessChatAIUnconfigured(t *testing.T) {
	f := newChatFixture(t, &mockAI{err: ErrAIUnconfigured}, healthyLedger(), disabledLimiter())
	defer f.cleanup()

	_, err := f.svc.ProcessChat(context.Background(), &models.ChatRequest{
		Message:       "hi",
		WalletAddress: testRecipient,
	}, "192.0.2.1")

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorCodeServiceUnavailable, appErr.Code)
	assert.Contains(t, appErr.Message, "MISTRAL_API_KEY")
}

func TestProcessChatPaymentUnconfigured(t *testing.T) {
	f := newChatFixture(t, &mockAI{reply: "x"}, &mockLedger{readyErr: ErrPaymentUnconfigured}, disabledLimiter())
	defer f.cleanup()

	_, err := f.svc.ProcessChat(context.Background(), &models.ChatRequest{
		Message:       "hi",
		WalletAddress: testRecipient,
	}, "192.0.2.1")

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorCodeServiceUnavailable, appErr.Code)
	assert.Contains(t, appErr.Message, "SOLANA_PRIVATE_KEY")
}

func TestProcessChatInsufficientFundsIsPaymentRequired(t *testing.T) {
	ledger := healthyLedger()
	ledger.usdcBalance = 0.001
	f := newChatFixture(t, &mockAI{reply: "x"}, ledger, disabledLimiter())
	defer f.cleanup()

	_, err := f.svc.ProcessChat(context.Background(), &models.ChatRequest{
		Message:       "hi",
		WalletAddress: testRecipient,
	}, "192.0.2.1")

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorCodeInsufficientFunds, appErr.Code)
	assert.Contains(t, appErr.Message, "Insufficient USDC")
}

func TestProcessChatTransferFailureStillReturnsReply(t *testing.T) {
	ledger := healthyLedger()
	ledger.submitErr = errors.New("blockhash not found")
	f := newChatFixture(t, &mockAI{reply: "Still here!"}, ledger, disabledLimiter())
	defer f.cleanup()

	resp, err := f.svc.ProcessChat(context.Background(), &models.ChatRequest{
		Message:       "hi",
		WalletAddress: testRecipient,
	}, "192.0.2.1")
	require.NoError(t, err)

	assert.Equal(t, "Still here!", resp.Message.Content)
	require.NotNil(t, resp.Transaction)
	assert.Equal(t, models.StatusFailed, resp.Transaction.Status)
	assert.Equal(t, models.TransferErrTransaction, resp.Transaction.ErrorKind)
	assert.NotEmpty(t, resp.Transaction.Error)
}

func TestProcessChatDailyCounterOnlyOnSuccess(t *testing.T) {
	cfg := permissiveLimiter()

	t.Run("success increments", func(t *testing.T) {
		f := newChatFixture(t, &mockAI{reply: "x"}, healthyLedger(), cfg)
		defer f.cleanup()

		_, err := f.svc.ProcessChat(context.Background(), &models.ChatRequest{
			Message:       "hi",
			WalletAddress: testRecipient,
		}, "192.0.2.1")
		require.NoError(t, err)
		assert.Equal(t, cfg.DailyLimit-1, f.limiter.DailyRemaining())
	})

	t.Run("failed transfer does not increment", func(t *testing.T) {
		ledger := healthyLedger()
		ledger.submitErr = errors.New("blockhash not found")
		f := newChatFixture(t, &mockAI{reply: "x"}, ledger, cfg)
		defer f.cleanup()

		_, err := f.svc.ProcessChat(context.Background(), &models.ChatRequest{
			Message:       "hi",
			WalletAddress: testRecipient,
		}, "192.0.2.1")
		require.NoError(t, err)
		assert.Equal(t, cfg.DailyLimit, f.limiter.DailyRemaining())
	})
}

func TestGetNetworkInfo(t *testing.T) {
	f := newChatFixture(t, &mockAI{reply: "x"}, healthyLedger(), permissiveLimiter())
	defer f.cleanup()

	info := f.svc.GetNetworkInfo(context.Background())

	assert.Equal(t, "devnet", info.Network)
	assert.Equal(t, 0.001, info.TransferAmount)
	assert.Equal(t, "https://solscan.io/tx", info.ExplorerURL)
	assert.Equal(t, 0.5, info.SenderBalance.Sol)
	assert.Equal(t, 10.0, info.SenderBalance.Usdc)
	assert.Equal(t, 100, info.DailyLimit.Remaining)
}

func TestIsValidSolanaAddress(t *testing.T) {
	assert.True(t, isValidSolanaAddress(testRecipient))
	assert.True(t, isValidSolanaAddress("11111111111111111111111111111111"))
	assert.False(t, isValidSolanaAddress(""))
	assert.False(t, isValidSolanaAddress("short"))
	assert.False(t, isValidSolanaAddress("0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl"))
}
