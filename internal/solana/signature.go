package solana

import (
	"crypto/ed25519"

	"github.com/gagliardetto/solana-go"
)

// VerifySignature checks that message was signed by the private key behind
// the claimed wallet address. Fail-closed: any decode failure or mismatch
// resolves to false, never to an error the caller could distinguish.
func VerifySignature(walletAddress, message, signature string) bool {
	pub, err := solana.PublicKeyFromBase58(walletAddress)
	if err != nil {
		return false
	}
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub[:]), []byte(message), sig[:])
}

// CanonicalAddress decodes a base58 wallet address and re-encodes it, so
// textual variants of the same key bytes collapse to one form. All storage
// and lookups key on the canonical form.
func CanonicalAddress(address string) (string, error) {
	pub, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return "", err
	}
	return pub.String(), nil
}
