package models

import (
	"time"

	"github.com/google/uuid"
)

// Listing statuses
const (
	ListingStatusOpen   = "open"
	ListingStatusEscrow = "escrow"
	ListingStatusSold   = "sold"
)

// IsListingStatus reports whether s is one of the known listing statuses.
func IsListingStatus(s string) bool {
	switch s {
	case ListingStatusOpen, ListingStatusEscrow, ListingStatusSold:
		return true
	}
	return false
}

type Listing struct {
	ID           uuid.UUID `json:"id"`
	SellerWallet string    `json:"seller_wallet"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Price        string    `json:"price"` // numeric as string, SOL
	ImageURL     *string   `json:"image_url,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
