package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"solana-chat-api/internal/config"
	"solana-chat-api/internal/models"
	"solana-chat-api/pkg/logger"
	"solana-chat-api/pkg/metrics"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const lamportsPerSol = 1_000_000_000

// SolanaClient wraps the Solana RPC client with the disbursing account's
// keypair and the configured token mint
type SolanaClient struct {
	client  *rpc.Client
	rpcCfg  *config.RPCConfig
	netCfg  *config.NetworkConfig
	metrics *metrics.MetricsCollector

	keyOnce   sync.Once
	senderKey solana.PrivateKey
	keyErr    error
}

// NewSolanaClient creates a new Solana RPC client. The disbursing keypair is
// decoded lazily on first use so an unconfigured key only fails requests
// that actually need it.
func NewSolanaClient(rpcCfg *config.RPCConfig, netCfg *config.NetworkConfig, collector *metrics.MetricsCollector) *SolanaClient {
	return &SolanaClient{
		client:  rpc.New(rpcCfg.Endpoint),
		rpcCfg:  rpcCfg,
		netCfg:  netCfg,
		metrics: collector,
	}
}

// Ready reports whether the disbursing credentials are configured and parseable
func (s *SolanaClient) Ready() error {
	s.keyOnce.Do(func() {
		if s.netCfg.PrivateKey == "" {
			s.keyErr = ErrPaymentUnconfigured
			return
		}
		key, err := solana.PrivateKeyFromBase58(s.netCfg.PrivateKey)
		if err != nil {
			s.keyErr = ErrInvalidPrivateKey
			return
		}
		s.senderKey = key
	})
	return s.keyErr
}

func (s *SolanaClient) senderPublicKey() (solana.PublicKey, error) {
	if err := s.Ready(); err != nil {
		return solana.PublicKey{}, err
	}
	return s.senderKey.PublicKey(), nil
}

func (s *SolanaClient) usdcMint() (solana.PublicKey, error) {
	mint, err := solana.PublicKeyFromBase58(s.netCfg.UsdcMint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid USDC mint in configuration: %w", err)
	}
	return mint, nil
}

// SenderSolBalance returns the disbursing account's SOL balance
func (s *SolanaClient) SenderSolBalance(ctx context.Context) (float64, error) {
	sender, err := s.senderPublicKey()
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.rpcCfg.Timeout)
	defer cancel()

	start := time.Now()
	result, err := s.client.GetBalance(ctx, sender, s.netCfg.Commitment())
	s.metrics.RecordRPCCall(time.Since(start), err == nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get SOL balance: %w", err)
	}

	return float64(result.Value) / lamportsPerSol, nil
}

// SenderUsdcBalance returns the disbursing account's USDC balance. A missing
// token account yields 0 without an error.
func (s *SolanaClient) SenderUsdcBalance(ctx context.Context) (float64, error) {
	sender, err := s.senderPublicKey()
	if err != nil {
		return 0, err
	}
	mint, err := s.usdcMint()
	if err != nil {
		return 0, err
	}

	tokenAccount, _, err := solana.FindAssociatedTokenAddress(sender, mint)
	if err != nil {
		return 0, fmt.Errorf("failed to derive sender token account: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.rpcCfg.Timeout)
	defer cancel()

	start := time.Now()
	result, err := s.client.GetTokenAccountBalance(ctx, tokenAccount, s.netCfg.Commitment())
	s.metrics.RecordRPCCall(time.Since(start), err == nil)
	if err != nil {
		if isAccountMissing(err) {
			logger.GetLogger().Warn("USDC token account not found for sender",
				zap.String("token_account", tokenAccount.String()),
			)
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get USDC balance: %w", err)
	}

	if result.Value == nil || result.Value.UiAmount == nil {
		return 0, nil
	}
	return *result.Value.UiAmount, nil
}

// RecipientHasTokenAccount reports whether the recipient's associated USDC
// token account exists on the ledger
func (s *SolanaClient) RecipientHasTokenAccount(ctx context.Context, recipient string) (bool, error) {
	recipientKey, err := solana.PublicKeyFromBase58(recipient)
	if err != nil {
		return false, fmt.Errorf("invalid recipient address: %w", err)
	}
	mint, err := s.usdcMint()
	if err != nil {
		return false, err
	}

	tokenAccount, _, err := solana.FindAssociatedTokenAddress(recipientKey, mint)
	if err != nil {
		return false, fmt.Errorf("failed to derive recipient token account: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.rpcCfg.Timeout)
	defer cancel()

	start := time.Now()
	_, err = s.client.GetAccountInfo(ctx, tokenAccount)
	s.metrics.RecordRPCCall(time.Since(start), err == nil || errors.Is(err, rpc.ErrNotFound))
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check recipient token account: %w", err)
	}

	return true, nil
}

// SubmitTransfer moves amount micro-USDC from the sender's token account to
// the recipient's and waits for confirmation at the configured commitment.
func (s *SolanaClient) SubmitTransfer(ctx context.Context, recipient string, amount uint64) (string, error) {
	sender, err := s.senderPublicKey()
	if err != nil {
		return "", err
	}
	recipientKey, err := solana.PublicKeyFromBase58(recipient)
	if err != nil {
		return "", fmt.Errorf("invalid recipient address: %w", err)
	}
	mint, err := s.usdcMint()
	if err != nil {
		return "", err
	}

	sourceAccount, _, err := solana.FindAssociatedTokenAddress(sender, mint)
	if err != nil {
		return "", fmt.Errorf("failed to derive sender token account: %w", err)
	}
	destAccount, _, err := solana.FindAssociatedTokenAddress(recipientKey, mint)
	if err != nil {
		return "", fmt.Errorf("failed to derive recipient token account: %w", err)
	}

	submitCtx, cancel := context.WithTimeout(ctx, s.rpcCfg.Timeout)
	defer cancel()

	blockhash, err := s.client.GetLatestBlockhash(submitCtx, s.netCfg.Commitment())
	if err != nil {
		return "", classifyLedgerError(fmt.Errorf("failed to get latest blockhash: %w", err))
	}

	instruction := token.NewTransferInstruction(
		amount,
		sourceAccount,
		destAccount,
		sender,
		nil,
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{instruction},
		blockhash.Value.Blockhash,
		solana.TransactionPayer(sender),
	)
	if err != nil {
		return "", classifyLedgerError(fmt.Errorf("failed to build transaction: %w", err))
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(sender) {
			return &s.senderKey
		}
		return nil
	})
	if err != nil {
		return "", classifyLedgerError(fmt.Errorf("failed to sign transaction: %w", err))
	}

	start := time.Now()
	sig, err := s.client.SendTransactionWithOpts(submitCtx, tx, rpc.TransactionOpts{
		PreflightCommitment: s.netCfg.Commitment(),
	})
	s.metrics.RecordRPCCall(time.Since(start), err == nil)
	if err != nil {
		return "", classifyLedgerError(err)
	}

	if err := s.awaitConfirmation(ctx, sig); err != nil {
		return "", classifyLedgerError(err)
	}

	return sig.String(), nil
}

// awaitConfirmation polls signature statuses until the configured commitment
// is reached or the confirmation timeout expires
func (s *SolanaClient) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, s.rpcCfg.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(s.rpcCfg.ConfirmPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("transaction %s not confirmed before timeout: %w", sig, ctx.Err())
		case <-ticker.C:
			result, err := s.client.GetSignatureStatuses(ctx, true, sig)
			if err != nil {
				continue // transient; keep polling until the deadline
			}
			if len(result.Value) == 0 || result.Value[0] == nil {
				continue
			}

			status := result.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed on chain: %v", sig, status.Err)
			}
			if s.commitmentReached(status.ConfirmationStatus) {
				return nil
			}
		}
	}
}

func (s *SolanaClient) commitmentReached(status rpc.ConfirmationStatusType) bool {
	switch s.netCfg.Commitment() {
	case rpc.CommitmentFinalized:
		return status == rpc.ConfirmationStatusFinalized
	case rpc.CommitmentProcessed:
		return status != ""
	default:
		return status == rpc.ConfirmationStatusConfirmed || status == rpc.ConfirmationStatusFinalized
	}
}

// ValidateWallet performs the cheap boundary check before any paid work:
// address shape, key parse, then an existence probe. A probe failure on a
// well-formed address does not invalidate it.
func (s *SolanaClient) ValidateWallet(ctx context.Context, address string) *models.ValidateWalletResponse {
	if len(address) < 32 || len(address) > 44 {
		return &models.ValidateWalletResponse{Valid: false, Error: "Invalid wallet address length"}
	}

	pubKey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return &models.ValidateWalletResponse{Valid: false, Error: "Invalid Solana wallet address format"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.rpcCfg.Timeout)
	defer cancel()

	start := time.Now()
	_, err = s.client.GetAccountInfo(ctx, pubKey)
	s.metrics.RecordRPCCall(time.Since(start), err == nil || errors.Is(err, rpc.ErrNotFound))
	if err != nil && !errors.Is(err, rpc.ErrNotFound) {
		logger.GetLogger().Warn("Wallet existence probe failed",
			zap.String("address", address),
			zap.Error(err),
		)
	}

	return &models.ValidateWalletResponse{Valid: true}
}

// IsHealthy checks if the RPC endpoint is responsive
func (s *SolanaClient) IsHealthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized); err != nil {
		return fmt.Errorf("RPC health check failed: %w", err)
	}

	return nil
}

// isAccountMissing detects the RPC responses produced for nonexistent
// accounts across endpoint implementations
func isAccountMissing(err error) bool {
	if errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "could not find account")
}
