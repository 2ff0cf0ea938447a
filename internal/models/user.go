package models

import (
	"time"
)

type User struct {
	WalletAddress string    `json:"wallet_address"`
	DisplayName   string    `json:"display_name"`
	CreatedAt     time.Time `json:"created_at"`
	LastActiveAt  time.Time `json:"last_active_at"`
}
