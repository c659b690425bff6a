package services

import (
	"context"
	"fmt"
	"time"

	"solana-chat-api/internal/config"
	"solana-chat-api/internal/models"
	"solana-chat-api/pkg/logger"
	"solana-chat-api/pkg/metrics"
	"solana-chat-api/pkg/mutex"

	"go.uber.org/zap"
)

// TransferService executes USDC disbursements against the ledger with
// balance preconditions and a closed failure taxonomy.
//
// Balance checks are advisory, not a concurrency barrier: concurrent
// requests can each pass the check against a stale read and race to submit;
// the ledger itself rejecting an unfundable transfer is the true safety net.
type TransferService struct {
	ledger      LedgerClient
	oracle      *BalanceOracle
	netCfg      *config.NetworkConfig
	walletMutex *mutex.WalletMutex
	metrics     *metrics.MetricsCollector
}

// NewTransferService creates a new TransferService
func NewTransferService(ledger LedgerClient, oracle *BalanceOracle, netCfg *config.NetworkConfig, walletMutex *mutex.WalletMutex, collector *metrics.MetricsCollector) *TransferService {
	return &TransferService{
		ledger:      ledger,
		oracle:      oracle,
		netCfg:      netCfg,
		walletMutex: walletMutex,
		metrics:     collector,
	}
}

// Transfer attempts a single disbursement to the recipient. Preconditions
// short-circuit in order: kill switch, SOL funds, USDC funds, recipient
// token account. No retries: a blind resubmit risks double payment when the
// first attempt succeeded but the confirmation round-trip errored.
//
// The returned error is non-nil only for configuration problems
// (ErrPaymentUnconfigured, ErrInvalidPrivateKey); every ledger-level failure
// is reported inside the Transaction.
func (t *TransferService) Transfer(ctx context.Context, recipient string) (*models.Transaction, error) {
	log := logger.GetLogger().WithContext(ctx).WithFields(map[string]interface{}{
		"recipient": recipient,
	})

	amount := t.netCfg.TransferAmount
	if amount == 0 {
		log.Info("Transfer skipped: transfers are disabled")
		return t.failed(recipient, models.TransferErrDisabled,
			"Transfers are currently disabled. Set TRANSFERS_ENABLED=true to enable."), nil
	}

	if err := t.ledger.Ready(); err != nil {
		return nil, err
	}

	balances := t.oracle.CheckBalances(ctx)

	if !balances.HasSufficientSol {
		log.Warn("Transfer blocked: insufficient SOL for fees",
			zap.Float64("sol_balance", balances.SolBalance),
			zap.Float64("required", t.netCfg.MinSolBalance),
		)
		return t.failed(recipient, models.TransferErrInsufficient,
			fmt.Sprintf("Insufficient SOL for transaction fees. Current: %.4f SOL, Required: %v SOL",
				balances.SolBalance, t.netCfg.MinSolBalance)), nil
	}

	if !balances.HasSufficientUsdc {
		log.Warn("Transfer blocked: insufficient USDC",
			zap.Float64("usdc_balance", balances.UsdcBalance),
			zap.Float64("required", t.oracle.RequiredUsdc()),
		)
		return t.failed(recipient, models.TransferErrInsufficient,
			fmt.Sprintf("Insufficient USDC balance. Current: %.3f USDC, Required: %.3f USDC",
				balances.UsdcBalance, t.oracle.RequiredUsdc())), nil
	}

	hasAccount, err := t.ledger.RecipientHasTokenAccount(ctx, recipient)
	if err != nil {
		log.Error("Failed to check recipient token account", zap.Error(err))
		return t.failed(recipient, models.TransferErrTransaction,
			classifyLedgerError(err).Friendly()), nil
	}
	if !hasAccount {
		log.Warn("Transfer blocked: recipient has no USDC token account")
		return t.failed(recipient, models.TransferErrRecipientMissing,
			"Recipient does not have a USDC token account. They need to create one first."), nil
	}

	// Serialize concurrent transfers to the same recipient; the lock covers
	// only the submission, not the AI call or balance reads.
	mu := t.walletMutex.GetMutex(recipient)
	mu.Lock()
	signature, err := t.ledger.SubmitTransfer(ctx, recipient, amount)
	mu.Unlock()

	if err != nil {
		ledgerErr := classifyLedgerError(err)
		log.Error("Transfer submission failed",
			zap.Int("ledger_error_kind", int(ledgerErr.Kind)),
			zap.Error(err),
		)
		return t.failed(recipient, models.TransferErrTransaction, ledgerErr.Friendly()), nil
	}

	t.metrics.RecordTransferAttempt(true)

	amountUsdc := config.FormatUsdcAmount(amount)
	log.Info("Transfer succeeded",
		zap.Float64("amount_usdc", amountUsdc),
		zap.String("signature", signature),
	)

	return &models.Transaction{
		Signature:   signature,
		Amount:      amountUsdc,
		Recipient:   recipient,
		Timestamp:   time.Now().UnixMilli(),
		Status:      models.StatusSuccess,
		ExplorerURL: t.netCfg.ExplorerTxURL(signature),
	}, nil
}

// failed builds the failure outcome and records it, so every failure branch
// counts as an attempt in the transfer metrics.
func (t *TransferService) failed(recipient string, kind models.TransferErrorKind, message string) *models.Transaction {
	t.metrics.RecordTransferAttempt(false)
	return &models.Transaction{
		Signature: "",
		Amount:    config.FormatUsdcAmount(t.netCfg.TransferAmount),
		Recipient: recipient,
		Timestamp: time.Now().UnixMilli(),
		Status:    models.StatusFailed,
		Error:     message,
		ErrorKind: kind,
	}
}
