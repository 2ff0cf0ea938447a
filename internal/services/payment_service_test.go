package services

import (
	"context"
	"errors"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/peerproof/backend/internal/models"
	"github.com/peerproof/backend/internal/solana"
	"go.uber.org/zap"
)

type fakeLedger struct {
	sigs     []solanago.Signature
	sigsErr  error
	txs      map[solanago.Signature][]byte
	fetchErr map[solanago.Signature]error
	calls    int
}

func (l *fakeLedger) RecentSignatures(ctx context.Context, wallet solanago.PublicKey, limit int) ([]solanago.Signature, error) {
	l.calls++
	if l.sigsErr != nil {
		return nil, l.sigsErr
	}
	if len(l.sigs) > limit {
		return l.sigs[:limit], nil
	}
	return l.sigs, nil
}

func (l *fakeLedger) FetchTransaction(ctx context.Context, sig solanago.Signature) ([]byte, error) {
	if err, ok := l.fetchErr[sig]; ok {
		return nil, err
	}
	if raw, ok := l.txs[sig]; ok {
		return raw, nil
	}
	return nil, solana.ErrTxNotFound
}

func sigN(n byte) solanago.Signature {
	var s solanago.Signature
	s[0] = n
	return s
}

func addPendingEscrow(db *fakeDB, seller string) *models.Escrow {
	db.mu.Lock()
	defer db.mu.Unlock()
	id := uuid.New()
	e := &models.Escrow{
		ID:               id,
		ListingID:        uuid.New(),
		BuyerWallet:      "buyer-wallet",
		SellerWallet:     seller,
		Status:           models.EscrowStatusPending,
		PaymentReference: id.String(),
		Amount:           "2.5",
	}
	db.escrows[id] = e
	return e
}

func sellerAddress(t *testing.T) string {
	t.Helper()
	key, err := solanago.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	return key.PublicKey().String()
}

func newTestPaymentService(db *fakeDB, ledger solana.Ledger) *PaymentService {
	return NewPaymentService(&fakeEscrowStore{db: db}, ledger, nil, 20, zap.NewNop())
}

func TestVerifyPayment_ReferenceFound(t *testing.T) {
	db := newFakeDB()
	escrow := addPendingEscrow(db, sellerAddress(t))

	match := sigN(2)
	ledger := &fakeLedger{
		sigs: []solanago.Signature{sigN(1), match, sigN(3)},
		txs: map[solanago.Signature][]byte{
			sigN(1): []byte(`{"memo":"unrelated"}`),
			match:   []byte(`{"memo":"` + escrow.PaymentReference + `"}`),
			sigN(3): []byte(`{"memo":"also unrelated"}`),
		},
	}
	svc := newTestPaymentService(db, ledger)

	result, err := svc.VerifyPayment(context.Background(), escrow.ID)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if result != VerificationPaid {
		t.Fatalf("result = %v, want paid", result)
	}

	stored, _ := (&fakeEscrowStore{db: db}).GetByID(context.Background(), escrow.ID)
	if stored.Status != models.EscrowStatusPaid {
		t.Errorf("escrow status = %q, want paid", stored.Status)
	}
	if stored.TxSignature == nil || *stored.TxSignature != match.String() {
		t.Errorf("tx_signature = %v, want %s", stored.TxSignature, match)
	}
}

func TestVerifyPayment_NoMatchInWindow(t *testing.T) {
	db := newFakeDB()
	escrow := addPendingEscrow(db, sellerAddress(t))

	ledger := &fakeLedger{
		sigs: []solanago.Signature{sigN(1), sigN(2)},
		txs: map[solanago.Signature][]byte{
			sigN(1): []byte(`{"memo":"nothing"}`),
			sigN(2): []byte(`{"memo":"here"}`),
		},
	}
	svc := newTestPaymentService(db, ledger)

	result, err := svc.VerifyPayment(context.Background(), escrow.ID)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if result != VerificationNotPaid {
		t.Fatalf("result = %v, want not_paid", result)
	}

	stored, _ := (&fakeEscrowStore{db: db}).GetByID(context.Background(), escrow.ID)
	if stored.Status != models.EscrowStatusPending {
		t.Errorf("escrow status = %q, want still pending", stored.Status)
	}
}

func TestVerifyPayment_LedgerDownIsIndeterminate(t *testing.T) {
	db := newFakeDB()
	escrow := addPendingEscrow(db, sellerAddress(t))

	ledger := &fakeLedger{sigsErr: solana.ErrLedgerUnavailable}
	svc := newTestPaymentService(db, ledger)

	result, err := svc.VerifyPayment(context.Background(), escrow.ID)
	if err == nil {
		t.Fatal("expected an error from an unreachable ledger")
	}
	if result == VerificationNotPaid {
		t.Fatal("ledger failure must never report not_paid")
	}
	if result != VerificationIndeterminate {
		t.Fatalf("result = %v, want indeterminate", result)
	}
}

func TestVerifyPayment_PartialScanIsIndeterminate(t *testing.T) {
	db := newFakeDB()
	escrow := addPendingEscrow(db, sellerAddress(t))

	// One fetch fails transiently and the rest do not match; the window
	// was not fully inspected, so not_paid would overclaim.
	ledger := &fakeLedger{
		sigs: []solanago.Signature{sigN(1), sigN(2)},
		txs: map[solanago.Signature][]byte{
			sigN(2): []byte(`{"memo":"unrelated"}`),
		},
		fetchErr: map[solanago.Signature]error{
			sigN(1): errors.New("rpc timeout"),
		},
	}
	svc := newTestPaymentService(db, ledger)

	result, err := svc.VerifyPayment(context.Background(), escrow.ID)
	if err == nil {
		t.Fatal("expected the transient fetch error to surface")
	}
	if result != VerificationIndeterminate {
		t.Fatalf("result = %v, want indeterminate", result)
	}
}

func TestVerifyPayment_MatchBeatsLaterFetchError(t *testing.T) {
	db := newFakeDB()
	escrow := addPendingEscrow(db, sellerAddress(t))

	ledger := &fakeLedger{
		sigs: []solanago.Signature{sigN(1), sigN(2)},
		txs: map[solanago.Signature][]byte{
			sigN(1): []byte(`{"memo":"` + escrow.PaymentReference + `"}`),
		},
		fetchErr: map[solanago.Signature]error{
			sigN(2): errors.New("rpc timeout"),
		},
	}
	svc := newTestPaymentService(db, ledger)

	result, err := svc.VerifyPayment(context.Background(), escrow.ID)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if result != VerificationPaid {
		t.Fatalf("result = %v, want paid", result)
	}
}

func TestVerifyPayment_AlreadyPaidSkipsLedger(t *testing.T) {
	db := newFakeDB()
	escrow := addPendingEscrow(db, sellerAddress(t))
	db.mu.Lock()
	db.escrows[escrow.ID].Status = models.EscrowStatusPaid
	db.mu.Unlock()

	ledger := &fakeLedger{}
	svc := newTestPaymentService(db, ledger)

	result, err := svc.VerifyPayment(context.Background(), escrow.ID)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if result != VerificationPaid {
		t.Fatalf("result = %v, want paid", result)
	}
	if ledger.calls != 0 {
		t.Errorf("ledger queried %d times for an already paid escrow", ledger.calls)
	}
}

func TestVerifyPayment_CancelledIsNotPaid(t *testing.T) {
	db := newFakeDB()
	escrow := addPendingEscrow(db, sellerAddress(t))
	db.mu.Lock()
	db.escrows[escrow.ID].Status = models.EscrowStatusCancelled
	db.mu.Unlock()

	svc := newTestPaymentService(db, &fakeLedger{})

	result, err := svc.VerifyPayment(context.Background(), escrow.ID)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if result != VerificationNotPaid {
		t.Fatalf("result = %v, want not_paid", result)
	}
}

func TestVerifyPayment_UnknownEscrow(t *testing.T) {
	svc := newTestPaymentService(newFakeDB(), &fakeLedger{})
	_, err := svc.VerifyPayment(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestVerifyPending_ConfirmsBatch(t *testing.T) {
	db := newFakeDB()
	seller := sellerAddress(t)
	e1 := addPendingEscrow(db, seller)
	e2 := addPendingEscrow(db, seller)

	ledger := &fakeLedger{
		sigs: []solanago.Signature{sigN(1)},
		txs: map[solanago.Signature][]byte{
			sigN(1): []byte(`{"memo":"` + e1.PaymentReference + `"}`),
		},
	}
	svc := newTestPaymentService(db, ledger)

	svc.VerifyPending(context.Background(), 50)

	store := &fakeEscrowStore{db: db}
	got1, _ := store.GetByID(context.Background(), e1.ID)
	got2, _ := store.GetByID(context.Background(), e2.ID)
	if got1.Status != models.EscrowStatusPaid {
		t.Errorf("e1 status = %q, want paid", got1.Status)
	}
	if got2.Status != models.EscrowStatusPending {
		t.Errorf("e2 status = %q, want still pending", got2.Status)
	}
}
