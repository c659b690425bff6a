package models

// Message represents a single chat message in either direction
type Message struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TransactionStatus is the outcome state of a disbursement attempt.
// StatusPending is kept in the schema for forward compatibility with
// asynchronous confirmation; the synchronous executor never returns it.
type TransactionStatus string

const (
	StatusPending TransactionStatus = "pending"
	StatusSuccess TransactionStatus = "success"
	StatusFailed  TransactionStatus = "failed"
)

// TransferErrorKind classifies why a disbursement attempt failed
type TransferErrorKind string

const (
	TransferErrNone             TransferErrorKind = ""
	TransferErrInsufficient     TransferErrorKind = "insufficient_funds"
	TransferErrDisabled         TransferErrorKind = "disabled"
	TransferErrRecipientMissing TransferErrorKind = "recipient_account_missing"
	TransferErrTransaction      TransferErrorKind = "transaction_failed"
)

// Transaction represents the result of a USDC disbursement attempt
type Transaction struct {
	Signature   string            `json:"signature"`
	Amount      float64           `json:"amount"`
	Recipient   string            `json:"recipient"`
	Timestamp   int64             `json:"timestamp"`
	Status      TransactionStatus `json:"status"`
	Error       string            `json:"error,omitempty"`
	ErrorKind   TransferErrorKind `json:"errorType,omitempty"`
	ExplorerURL string            `json:"explorerUrl,omitempty"`
}

// ChatRequest represents the incoming chat request
type ChatRequest struct {
	Message             string    `json:"message"`
	WalletAddress       string    `json:"walletAddress"`
	ConversationHistory []Message `json:"conversationHistory"`
}

// ChatResponse represents the assistant reply plus the optional disbursement
// outcome. The transaction may itself report a failed status; a generated
// reply is returned regardless.
type ChatResponse struct {
	Message     Message      `json:"message"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

// ValidateWalletRequest represents the wallet validation request body
type ValidateWalletRequest struct {
	Address string `json:"address"`
}

// ValidateWalletResponse represents the wallet validation result
type ValidateWalletResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// SenderBalance reports the disbursing account balances
type SenderBalance struct {
	Sol  float64 `json:"sol"`
	Usdc float64 `json:"usdc"`
}

// DailyLimitInfo reports remaining daily transfer quota
type DailyLimitInfo struct {
	Remaining int `json:"remaining"`
}

// NetworkInfoResponse represents the public network information
type NetworkInfoResponse struct {
	Network        string         `json:"network"`
	TransferAmount float64        `json:"transferAmount"`
	ExplorerURL    string         `json:"explorerUrl"`
	SenderBalance  SenderBalance  `json:"senderBalance"`
	DailyLimit     DailyLimitInfo `json:"dailyLimit"`
}
