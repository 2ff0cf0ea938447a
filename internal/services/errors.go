package services

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyReserved   = errors.New("listing already reserved")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotParticipant    = errors.New("wallet is not a party to this escrow")
	ErrOwnListing        = errors.New("cannot buy your own listing")
	ErrInvalidPrice      = errors.New("price must be a positive decimal")
	ErrInvalidAddress    = errors.New("invalid wallet address")
	ErrInvalidNonce      = errors.New("invalid or expired nonce")
	ErrInvalidSignature  = errors.New("signature verification failed")
)

// mapNotFound translates the store's no-rows error into the service
// taxonomy; everything else passes through.
func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
