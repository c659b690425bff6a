package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `json:"server"`
	RPC       RPCConfig       `json:"rpc"`
	Network   NetworkConfig   `json:"network"`
	AI        AIConfig        `json:"ai"`
	Cache     CacheConfig     `json:"cache"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Logging   LoggingConfig   `json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	Host         string        `json:"host"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// RPCConfig holds Solana RPC transport configuration
type RPCConfig struct {
	Endpoint       string        `json:"endpoint"`
	Timeout        time.Duration `json:"timeout"`
	ConfirmTimeout time.Duration `json:"confirm_timeout"`
	ConfirmPoll    time.Duration `json:"confirm_poll"`
}

// SolanaNetwork identifies the target cluster
type SolanaNetwork string

const (
	NetworkMainnet SolanaNetwork = "mainnet"
	NetworkDevnet  SolanaNetwork = "devnet"
)

// NetworkConfig holds the disbursement parameters for the selected network.
// It is resolved once at startup and treated as immutable afterwards.
type NetworkConfig struct {
	Network           SolanaNetwork `json:"network"`
	UsdcMint          string        `json:"usdc_mint"`
	ExplorerBaseURL   string        `json:"explorer_base_url"`
	ConfirmationLevel string        `json:"confirmation_level"`
	// TransferAmount is in micro-USDC (1 USDC = 1,000,000 units).
	// Zero means transfers are administratively disabled.
	TransferAmount     uint64  `json:"transfer_amount"`
	MinSolBalance      float64 `json:"min_sol_balance"`
	MinUsdcBuffer      float64 `json:"min_usdc_buffer"`
	DailyTransferLimit int     `json:"daily_transfer_limit"`
	// PrivateKey is the base58-encoded secret key of the disbursing account.
	// Empty means the payment integration is unconfigured.
	PrivateKey string `json:"-"`
}

// AIConfig holds configuration for the chat completion backend
type AIConfig struct {
	APIKey  string        `json:"-"`
	Model   string        `json:"model"`
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// CacheConfig holds balance snapshot cache configuration
type CacheConfig struct {
	TTL             time.Duration `json:"ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// RateLimitConfig holds configuration for the three request limiters
type RateLimitConfig struct {
	Enabled         bool          `json:"enabled"`
	WalletCooldown  time.Duration `json:"wallet_cooldown"`
	IPWindow        time.Duration `json:"ip_window"`
	IPMaxRequests   int           `json:"ip_max_requests"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string   `json:"level"`
	Environment string   `json:"environment"`
	OutputPaths []string `json:"output_paths"`
}

// Base network profiles. Env overrides are layered on top in LoadConfig.
var mainnetProfile = NetworkConfig{
	Network:            NetworkMainnet,
	UsdcMint:           "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	ExplorerBaseURL:    "https://solscan.io/tx",
	ConfirmationLevel:  "confirmed",
	TransferAmount:     1000,
	MinSolBalance:      0.00005,
	MinUsdcBuffer:      1.0,
	DailyTransferLimit: 100,
}

var devnetProfile = NetworkConfig{
	Network:            NetworkDevnet,
	UsdcMint:           "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU",
	ExplorerBaseURL:    "https://solscan.io/tx",
	ConfirmationLevel:  "confirmed",
	TransferAmount:     1000,
	MinSolBalance:      0.00005,
	MinUsdcBuffer:      0.01,
	DailyTransferLimit: 1000,
}

// LoadConfig loads configuration from environment variables with defaults.
// Malformed numeric overrides fall back to the profile defaults silently;
// the TRANSFERS_ENABLED=false kill switch wins over any override.
func LoadConfig() *Config {
	network := resolveNetworkConfig()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		RPC: RPCConfig{
			Endpoint:       getEnv("SOLANA_RPC_ENDPOINT", defaultRPCEndpoint(network.Network)),
			Timeout:        getDurationEnv("SOLANA_RPC_TIMEOUT", 30*time.Second),
			ConfirmTimeout: getDurationEnv("SOLANA_CONFIRM_TIMEOUT", 60*time.Second),
			ConfirmPoll:    getDurationEnv("SOLANA_CONFIRM_POLL", 2*time.Second),
		},
		Network: network,
		AI: AIConfig{
			APIKey:  os.Getenv("MISTRAL_API_KEY"),
			Model:   getEnv("MISTRAL_MODEL", "mistral-small-latest"),
			BaseURL: getEnv("MISTRAL_BASE_URL", "https://api.mistral.ai"),
			Timeout: getDurationEnv("MISTRAL_TIMEOUT", 30*time.Second),
		},
		Cache: CacheConfig{
			TTL:             getDurationEnv("BALANCE_CACHE_TTL", 10*time.Second),
			CleanupInterval: getDurationEnv("BALANCE_CACHE_CLEANUP_INTERVAL", 60*time.Second),
		},
		RateLimit: RateLimitConfig{
			Enabled:         getBoolEnv("RATE_LIMIT_ENABLED", true),
			WalletCooldown:  getDurationEnv("WALLET_COOLDOWN", time.Minute),
			IPWindow:        getDurationEnv("IP_RATE_WINDOW", time.Minute),
			IPMaxRequests:   getIntEnv("IP_RATE_MAX_REQUESTS", 10),
			CleanupInterval: getDurationEnv("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		},
		Logging: LoggingConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Environment: getEnv("LOG_ENVIRONMENT", "development"),
			OutputPaths: getStringSliceEnv("LOG_OUTPUT_PATHS", []string{"stdout"}),
		},
	}
}

// resolveNetworkConfig selects the base profile and layers the optional
// numeric overrides on top of it.
func resolveNetworkConfig() NetworkConfig {
	profile := mainnetProfile
	if SolanaNetwork(os.Getenv("SOLANA_NETWORK")) == NetworkDevnet {
		profile = devnetProfile
	}

	profile.TransferAmount = getUint64Env("TRANSFER_AMOUNT", profile.TransferAmount)
	profile.DailyTransferLimit = getIntEnv("DAILY_TRANSFER_LIMIT", profile.DailyTransferLimit)
	profile.MinUsdcBuffer = getFloatEnv("MIN_USDC_BUFFER", profile.MinUsdcBuffer)
	profile.PrivateKey = os.Getenv("SOLANA_PRIVATE_KEY")

	// Kill switch: forcing the amount to zero disables transfers regardless
	// of any override.
	if !getBoolEnv("TRANSFERS_ENABLED", true) {
		profile.TransferAmount = 0
	}

	return profile
}

func defaultRPCEndpoint(network SolanaNetwork) string {
	if network == NetworkDevnet {
		return rpc.DevNet_RPC
	}
	return rpc.MainNetBeta_RPC
}

// Commitment maps the configured confirmation level to the RPC commitment type
func (nc *NetworkConfig) Commitment() rpc.CommitmentType {
	switch nc.ConfirmationLevel {
	case "processed":
		return rpc.CommitmentProcessed
	case "finalized":
		return rpc.CommitmentFinalized
	default:
		return rpc.CommitmentConfirmed
	}
}

// ExplorerTxURL builds a human-facing explorer link for a transaction signature
func (nc *NetworkConfig) ExplorerTxURL(signature string) string {
	if nc.Network == NetworkDevnet {
		return fmt.Sprintf("%s/%s?cluster=devnet", nc.ExplorerBaseURL, signature)
	}
	return fmt.Sprintf("%s/%s", nc.ExplorerBaseURL, signature)
}

// FormatUsdcAmount converts micro-USDC units to whole USDC
func FormatUsdcAmount(units uint64) float64 {
	return float64(units) / 1_000_000
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getUint64Env(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uint64Value, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uint64Value
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}
