package services

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration errors surfaced as service-unavailable to the caller.
// They are fatal to the request, not to the process.
var (
	ErrPaymentUnconfigured = errors.New("payment service is not configured: SOLANA_PRIVATE_KEY is missing")
	ErrInvalidPrivateKey   = errors.New("invalid SOLANA_PRIVATE_KEY format: must be base58 encoded")
	ErrAIUnconfigured      = errors.New("AI service is not configured: MISTRAL_API_KEY is missing")
)

// LedgerErrorKind classifies ledger-level failures at the client boundary
// so callers never have to inspect raw RPC error strings.
type LedgerErrorKind int

const (
	LedgerErrUnknown LedgerErrorKind = iota
	LedgerErrInsufficientFunds
	LedgerErrAccountNotFound
)

// LedgerError wraps a ledger failure with its classification
type LedgerError struct {
	Kind  LedgerErrorKind
	Cause error
}

// Error implements the error interface
func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger error (kind %d): %v", e.Kind, e.Cause)
}

// Unwrap returns the underlying error
func (e *LedgerError) Unwrap() error {
	return e.Cause
}

// Friendly returns a human-readable cause safe to surface to clients
func (e *LedgerError) Friendly() string {
	switch e.Kind {
	case LedgerErrInsufficientFunds:
		return "Insufficient USDC balance in sender wallet"
	case LedgerErrAccountNotFound:
		return "Token account not found"
	default:
		return "Failed to transfer USDC"
	}
}

// classifyLedgerError wraps an opaque RPC error into a LedgerError. The
// substring matching is a fallback adapter around the third-party client,
// which does not expose typed error codes for simulation failures.
func classifyLedgerError(err error) *LedgerError {
	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) {
		return ledgerErr
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient"):
		return &LedgerError{Kind: LedgerErrInsufficientFunds, Cause: err}
	case strings.Contains(msg, "accountnotfound"), strings.Contains(msg, "could not find account"):
		return &LedgerError{Kind: LedgerErrAccountNotFound, Cause: err}
	default:
		return &LedgerError{Kind: LedgerErrUnknown, Cause: err}
	}
}
