package models

import (
	"time"

	"github.com/google/uuid"
)

// Escrow statuses
const (
	EscrowStatusPending   = "pending"
	EscrowStatusPaid      = "paid"
	EscrowStatusCompleted = "completed"
	EscrowStatusCancelled = "cancelled"
)

// Valid state transitions: from -> []to.
// Delivery confirmation requires a verified payment first, so there is
// no pending -> completed edge.
var ValidEscrowTransitions = map[string][]string{
	EscrowStatusPending:   {EscrowStatusPaid, EscrowStatusCancelled},
	EscrowStatusPaid:      {EscrowStatusCompleted},
	EscrowStatusCompleted: {},
	EscrowStatusCancelled: {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidEscrowTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

type Escrow struct {
	ID               uuid.UUID `json:"id"`
	ListingID        uuid.UUID `json:"listing_id"`
	BuyerWallet      string    `json:"buyer_wallet"`
	SellerWallet     string    `json:"seller_wallet"`
	Status           string    `json:"status"`
	PaymentReference string    `json:"payment_reference"` // equals the escrow id, embedded in the pay URL
	Amount           string    `json:"amount"`            // numeric as string, SOL
	TxSignature      *string   `json:"tx_signature,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsParty reports whether the wallet is the buyer or the seller of this escrow.
func (e *Escrow) IsParty(wallet string) bool {
	return wallet == e.BuyerWallet || wallet == e.SellerWallet
}

// EscrowWithListing embeds Escrow and adds listing info to avoid N+1 queries.
type EscrowWithListing struct {
	Escrow
	ListingTitle    *string `json:"listing_title,omitempty"`
	ListingImageURL *string `json:"listing_image_url,omitempty"`
	ListingPrice    *string `json:"listing_price,omitempty"`
}
