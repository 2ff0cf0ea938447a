package solana

import (
	"testing"

	"github.com/gagliardetto/solana-go"
)

func signedFixture(t *testing.T, message string) (wallet, signature string) {
	t.Helper()
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	sig, err := priv.Sign([]byte(message))
	if err != nil {
		t.Fatal(err)
	}
	return priv.PublicKey().String(), sig.String()
}

func TestVerifySignature_Valid(t *testing.T) {
	msg := "PeerProof login: nonce-12345"
	wallet, sig := signedFixture(t, msg)

	if !VerifySignature(wallet, msg, sig) {
		t.Fatal("expected valid signature to verify")
	}
}

func TestVerifySignature_TamperedMessage(t *testing.T) {
	wallet, sig := signedFixture(t, "PeerProof login: nonce-12345")

	if VerifySignature(wallet, "PeerProof login: nonce-12346", sig) {
		t.Fatal("expected tampered message to fail verification")
	}
}

func TestVerifySignature_WrongWallet(t *testing.T) {
	msg := "PeerProof login: nonce-12345"
	_, sig := signedFixture(t, msg)
	otherWallet, _ := signedFixture(t, msg)

	if VerifySignature(otherWallet, msg, sig) {
		t.Fatal("expected signature from another key to fail verification")
	}
}

func TestVerifySignature_FailClosed(t *testing.T) {
	msg := "PeerProof login: nonce-12345"
	wallet, sig := signedFixture(t, msg)

	tests := []struct {
		name      string
		wallet    string
		message   string
		signature string
	}{
		{"malformed wallet", "not-base58-0OIl", msg, sig},
		{"empty wallet", "", msg, sig},
		{"malformed signature", wallet, msg, "not-base58-0OIl"},
		{"empty signature", wallet, msg, ""},
		{"truncated signature", wallet, msg, sig[:20]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifySignature(tt.wallet, tt.message, tt.signature) {
				t.Error("expected verification failure, got success")
			}
		})
	}
}

func TestCanonicalAddress(t *testing.T) {
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	addr := priv.PublicKey().String()

	got, err := CanonicalAddress(addr)
	if err != nil {
		t.Fatalf("expected valid address, got error: %v", err)
	}
	if got != addr {
		t.Errorf("canonical form = %q, want %q", got, addr)
	}

	if _, err := CanonicalAddress("definitely-not-an-address"); err == nil {
		t.Error("expected error for malformed address")
	}
}
