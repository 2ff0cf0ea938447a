package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type NonceResponse struct {
	Nonce     string `json:"nonce"`
	ExpiresAt string `json:"expires_at"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

type PayURLResponse struct {
	EscrowID string `json:"escrow_id"`
	PayURL   string `json:"pay_url"`
	Amount   string `json:"amount"`
	Status   string `json:"status"`
}

// VerifyPaymentResponse reports a tri-state outcome. Indeterminate means
// the ledger could not be fully inspected and the client should retry.
type VerifyPaymentResponse struct {
	EscrowID      string `json:"escrow_id"`
	Result        string `json:"result"`
	Paid          bool   `json:"paid"`
	Indeterminate bool   `json:"indeterminate"`
}

type ProfileResponse struct {
	User            any `json:"user"`
	Badges          any `json:"badges"`
	CompletedTrades int `json:"completed_trades"`
}
