package services

import (
	"context"

	"solana-chat-api/internal/models"
)

// LedgerClient defines the interface for Solana ledger operations used by
// the balance oracle and the transfer executor
type LedgerClient interface {
	// Ready reports whether the disbursing credentials are configured and
	// parseable. Errors are ErrPaymentUnconfigured or ErrInvalidPrivateKey.
	Ready() error
	// SenderSolBalance returns the disbursing account's SOL balance
	SenderSolBalance(ctx context.Context) (float64, error)
	// SenderUsdcBalance returns the disbursing account's USDC balance.
	// A missing token account yields 0 without an error.
	SenderUsdcBalance(ctx context.Context) (float64, error)
	// RecipientHasTokenAccount reports whether the recipient's associated
	// USDC token account exists on the ledger
	RecipientHasTokenAccount(ctx context.Context, recipient string) (bool, error)
	// SubmitTransfer moves amount micro-USDC to the recipient's token
	// account and waits for confirmation, returning the signature.
	// Failures are returned as *LedgerError.
	SubmitTransfer(ctx context.Context, recipient string, amount uint64) (string, error)
	// IsHealthy checks if the RPC endpoint is responsive
	IsHealthy(ctx context.Context) error
}

// WalletValidator defines the boundary check performed before any paid work
type WalletValidator interface {
	ValidateWallet(ctx context.Context, address string) *models.ValidateWalletResponse
}

// AIClient defines the interface for the chat completion backend
type AIClient interface {
	GenerateReply(ctx context.Context, message string, history []models.Message) (string, error)
}

// ChatServiceInterface defines the per-request chat pipeline
type ChatServiceInterface interface {
	ProcessChat(ctx context.Context, req *models.ChatRequest, clientIP string) (*models.ChatResponse, error)
	ValidateWallet(ctx context.Context, address string) *models.ValidateWalletResponse
	GetNetworkInfo(ctx context.Context) *models.NetworkInfoResponse
}
