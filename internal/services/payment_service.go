package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/peerproof/backend/internal/events"
	"github.com/peerproof/backend/internal/models"
	"github.com/peerproof/backend/internal/solana"
	"go.uber.org/zap"
)

// VerificationResult is deliberately tri-state. A ledger that cannot be
// reached proves nothing; callers must treat Indeterminate as "retry
// later", never as confirmed non-payment.
type VerificationResult int

const (
	VerificationIndeterminate VerificationResult = iota
	VerificationNotPaid
	VerificationPaid
)

func (r VerificationResult) String() string {
	switch r {
	case VerificationPaid:
		return "paid"
	case VerificationNotPaid:
		return "not_paid"
	default:
		return "indeterminate"
	}
}

// PaymentService correlates on-chain transactions back to escrows via the
// payment reference embedded in the pay URL.
type PaymentService struct {
	escrows   EscrowStore
	ledger    solana.Ledger
	publisher events.Publisher
	scanLimit int
	log       *zap.Logger
}

func NewPaymentService(escrows EscrowStore, ledger solana.Ledger, publisher events.Publisher, scanLimit int, log *zap.Logger) *PaymentService {
	if scanLimit <= 0 {
		scanLimit = 20
	}
	return &PaymentService{
		escrows:   escrows,
		ledger:    ledger,
		publisher: publisher,
		scanLimit: scanLimit,
		log:       log,
	}
}

// VerifyPayment scans the seller's recent transactions for one whose
// serialized content contains the escrow's payment reference. The scan
// window is bounded: a payment buried deeper than scanLimit recent
// transactions on a busy wallet will not be found. On a match the escrow
// transitions pending -> paid with the signature recorded.
func (s *PaymentService) VerifyPayment(ctx context.Context, escrowID uuid.UUID) (VerificationResult, error) {
	escrow, err := s.escrows.GetByID(ctx, escrowID)
	if err != nil {
		return VerificationIndeterminate, mapNotFound(err)
	}

	switch escrow.Status {
	case models.EscrowStatusPaid, models.EscrowStatusCompleted:
		return VerificationPaid, nil
	case models.EscrowStatusCancelled:
		return VerificationNotPaid, nil
	}

	seller, err := solanago.PublicKeyFromBase58(escrow.SellerWallet)
	if err != nil {
		return VerificationIndeterminate, fmt.Errorf("stored seller wallet is not a valid address: %w", err)
	}

	sigs, err := s.ledger.RecentSignatures(ctx, seller, s.scanLimit)
	if err != nil {
		return VerificationIndeterminate, err
	}

	reference := []byte(escrow.PaymentReference)
	var scanErr error
	for _, sig := range sigs {
		raw, err := s.ledger.FetchTransaction(ctx, sig)
		if err != nil {
			if errors.Is(err, solana.ErrTxNotFound) {
				continue
			}
			// A transient failure mid-scan means the window was not fully
			// inspected; the result can no longer be a confident NotPaid.
			scanErr = err
			continue
		}
		if !bytes.Contains(raw, reference) {
			continue
		}

		return s.confirm(ctx, escrow, sig)
	}

	if scanErr != nil {
		return VerificationIndeterminate, scanErr
	}
	return VerificationNotPaid, nil
}

func (s *PaymentService) confirm(ctx context.Context, escrow *models.Escrow, sig solanago.Signature) (VerificationResult, error) {
	ok, err := s.escrows.MarkPaid(ctx, escrow.ID, sig.String())
	if err != nil {
		return VerificationIndeterminate, err
	}
	if ok {
		if s.publisher != nil {
			_ = s.publisher.Publish(ctx, events.StreamEscrow, events.Event{
				Type: events.EventPaymentVerified,
				Payload: map[string]any{
					"escrow_id":     escrow.ID.String(),
					"buyer_wallet":  escrow.BuyerWallet,
					"seller_wallet": escrow.SellerWallet,
					"tx_signature":  sig.String(),
					"old_status":    models.EscrowStatusPending,
					"new_status":    models.EscrowStatusPaid,
				},
			})
		}
		s.log.Info("payment verified",
			zap.String("escrow_id", escrow.ID.String()),
			zap.String("tx_signature", sig.String()),
		)
	}
	// ok == false means a concurrent verifier recorded it first; the
	// payment is confirmed either way.
	return VerificationPaid, nil
}

// VerifyPending runs one verification pass over escrows still awaiting
// payment. Used by the background poller; errors on individual escrows
// are logged and do not stop the batch.
func (s *PaymentService) VerifyPending(ctx context.Context, batchSize int) {
	pending, err := s.escrows.ListPending(ctx, batchSize)
	if err != nil {
		s.log.Error("failed to list pending escrows", zap.Error(err))
		return
	}

	for _, e := range pending {
		result, err := s.VerifyPayment(ctx, e.ID)
		if err != nil {
			s.log.Warn("verification pass failed",
				zap.String("escrow_id", e.ID.String()),
				zap.String("result", result.String()),
				zap.Error(err),
			)
			continue
		}
		if result == VerificationPaid {
			s.log.Info("poller confirmed payment", zap.String("escrow_id", e.ID.String()))
		}
	}
}
