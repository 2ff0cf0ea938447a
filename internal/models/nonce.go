package models

import (
	"time"

	"github.com/google/uuid"
)

// LoginNonce is a single-use challenge a wallet must sign to log in.
// Consuming it is a conditional update, so a signature can never be
// replayed across sessions.
type LoginNonce struct {
	ID        uuid.UUID `json:"id"`
	Nonce     string    `json:"nonce"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
