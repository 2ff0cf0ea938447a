package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

var (
	// ErrLedgerUnavailable wraps transient RPC failures. Retryable; callers
	// must never report it as confirmed non-payment.
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	ErrTxNotFound = errors.New("transaction not found")
)

// Ledger is the minimal read-only view of the chain the payment verifier
// needs. Both operations are idempotent and safe to retry.
type Ledger interface {
	RecentSignatures(ctx context.Context, address solana.PublicKey, limit int) ([]solana.Signature, error)
	FetchTransaction(ctx context.Context, sig solana.Signature) ([]byte, error)
}

// Client reads the Solana ledger over JSON-RPC. It holds no mutable state
// beyond the pooled HTTP connection and is safe for concurrent reuse.
type Client struct {
	rpc     *rpc.Client
	timeout time.Duration
	log     *zap.Logger
}

func NewClient(endpoint string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{rpc: rpc.New(endpoint), timeout: timeout, log: log}
}

// RecentSignatures returns up to limit transaction signatures for the
// address, most recent first.
func (c *Client) RecentSignatures(ctx context.Context, address solana.PublicKey, limit int) ([]solana.Signature, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, address, &rpc.GetSignaturesForAddressOpts{
		Limit: &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get signatures for %s: %v", ErrLedgerUnavailable, address, err)
	}

	sigs := make([]solana.Signature, 0, len(out))
	for _, s := range out {
		sigs = append(sigs, s.Signature)
	}
	return sigs, nil
}

// FetchTransaction returns the serialized detail of one transaction. The
// payment reference embedded by the pay URL shows up in this serialized
// form, not in the signature list.
func (c *Client) FetchTransaction(ctx context.Context, sig solana.Signature) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	maxVersion := uint64(0)
	tx, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingJSON,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, ErrTxNotFound
		}
		return nil, fmt.Errorf("%w: get transaction %s: %v", ErrLedgerUnavailable, sig, err)
	}
	if tx == nil {
		return nil, ErrTxNotFound
	}

	raw, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal transaction %s: %v", ErrLedgerUnavailable, sig, err)
	}
	return raw, nil
}
