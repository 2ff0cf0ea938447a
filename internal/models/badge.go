package models

import (
	"time"

	"github.com/google/uuid"
)

// Badge types
const (
	BadgeTypeBuyer  = "buyer"
	BadgeTypeSeller = "seller"
)

// Badge is an immutable record of a completed trade. Exactly one
// buyer/seller pair is minted per completed escrow.
type Badge struct {
	ID         uuid.UUID      `json:"id"`
	UserWallet string         `json:"user_wallet"`
	Type       string         `json:"type"`
	EscrowID   uuid.UUID      `json:"escrow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	MintedAt   time.Time      `json:"minted_at"`
}
