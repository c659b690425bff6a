package services

import (
	"context"

	"solana-chat-api/internal/config"
	"solana-chat-api/pkg/cache"
	"solana-chat-api/pkg/logger"

	"go.uber.org/zap"
)

const balanceSnapshotKey = "sender_balances"

// BalanceStatus reports the disbursing account's balances and whether they
// are sufficient for the next transfer. A query failure is a recoverable,
// reportable condition carried in Error; both sufficiency flags are false
// in that case.
type BalanceStatus struct {
	SolBalance        float64 `json:"solBalance"`
	UsdcBalance       float64 `json:"usdcBalance"`
	HasSufficientSol  bool    `json:"hasSufficientSol"`
	HasSufficientUsdc bool    `json:"hasSufficientUsdc"`
	Error             string  `json:"error,omitempty"`
}

// BalanceOracle queries the disbursing account's balances and computes
// sufficiency against the configured minimums
type BalanceOracle struct {
	ledger LedgerClient
	netCfg *config.NetworkConfig
	cache  *cache.Cache
}

// NewBalanceOracle creates a new BalanceOracle. The cache only serves the
// read-only snapshot path; the transfer path always queries fresh.
func NewBalanceOracle(ledger LedgerClient, netCfg *config.NetworkConfig, snapshotCache *cache.Cache) *BalanceOracle {
	return &BalanceOracle{
		ledger: ledger,
		netCfg: netCfg,
		cache:  snapshotCache,
	}
}

// RequiredUsdc returns the USDC balance required to fund one transfer:
// the transfer amount plus the configured buffer.
func (o *BalanceOracle) RequiredUsdc() float64 {
	return config.FormatUsdcAmount(o.netCfg.TransferAmount) + o.netCfg.MinUsdcBuffer
}

// CheckBalances queries the disbursing account's SOL and USDC balances and
// computes sufficiency booleans. It never returns a Go error: failures are
// reported through the Error field with both flags false.
func (o *BalanceOracle) CheckBalances(ctx context.Context) *BalanceStatus {
	log := logger.GetLogger().WithContext(ctx)

	if err := o.ledger.Ready(); err != nil {
		return &BalanceStatus{Error: err.Error()}
	}

	solBalance, err := o.ledger.SenderSolBalance(ctx)
	if err != nil {
		log.Error("Failed to fetch sender SOL balance", zap.Error(err))
		return &BalanceStatus{Error: err.Error()}
	}

	usdcBalance, err := o.ledger.SenderUsdcBalance(ctx)
	if err != nil {
		log.Error("Failed to fetch sender USDC balance", zap.Error(err))
		return &BalanceStatus{Error: err.Error()}
	}

	status := &BalanceStatus{
		SolBalance:        solBalance,
		UsdcBalance:       usdcBalance,
		HasSufficientSol:  solBalance >= o.netCfg.MinSolBalance,
		HasSufficientUsdc: usdcBalance >= o.RequiredUsdc(),
	}

	o.cache.Set(balanceSnapshotKey, status)

	return status
}

// Snapshot returns a recent balance status, serving from the TTL cache when
// possible. Used by the network-info endpoint; transfers never read this.
func (o *BalanceOracle) Snapshot(ctx context.Context) *BalanceStatus {
	if cached, found := o.cache.Get(balanceSnapshotKey); found {
		if status, ok := cached.(*BalanceStatus); ok {
			return status
		}
	}
	return o.CheckBalances(ctx)
}
