package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/peerproof/backend/internal/config"
	"github.com/peerproof/backend/internal/events"
	"github.com/peerproof/backend/internal/models"
	"github.com/peerproof/backend/internal/repositories"
	"go.uber.org/zap"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *fakePublisher) Publish(ctx context.Context, stream string, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// fakeDB backs the fake stores with the same conditional-write semantics
// the pgx repos provide: status guards under one lock, all-or-nothing.
type fakeDB struct {
	mu       sync.Mutex
	listings map[uuid.UUID]*models.Listing
	escrows  map[uuid.UUID]*models.Escrow
	badges   []models.Badge
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		listings: make(map[uuid.UUID]*models.Listing),
		escrows:  make(map[uuid.UUID]*models.Escrow),
	}
}

func (db *fakeDB) addListing(seller, price, status string) *models.Listing {
	db.mu.Lock()
	defer db.mu.Unlock()
	l := &models.Listing{ID: uuid.New(), SellerWallet: seller, Title: "vintage jacket", Price: price, Status: status}
	db.listings[l.ID] = l
	return l
}

func (db *fakeDB) listingStatus(id uuid.UUID) string {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.listings[id].Status
}

func (db *fakeDB) badgeCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.badges)
}

type fakeListingStore struct{ db *fakeDB }

func (s *fakeListingStore) Create(ctx context.Context, l *models.Listing) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	l.ID = uuid.New()
	cp := *l
	s.db.listings[l.ID] = &cp
	return nil
}

func (s *fakeListingStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	l, ok := s.db.listings[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *l
	return &cp, nil
}

func (s *fakeListingStore) List(ctx context.Context, f repositories.ListingFilter) ([]models.Listing, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Listing
	for _, l := range s.db.listings {
		out = append(out, *l)
	}
	return out, nil
}

type fakeEscrowStore struct{ db *fakeDB }

func (s *fakeEscrowStore) CreateForListing(ctx context.Context, e *models.Escrow) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	l, ok := s.db.listings[e.ListingID]
	if !ok || l.Status != models.ListingStatusOpen {
		return false, nil
	}
	l.Status = models.ListingStatusEscrow
	cp := *e
	s.db.escrows[e.ID] = &cp
	return true, nil
}

func (s *fakeEscrowStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.escrows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (s *fakeEscrowStore) GetWithListing(ctx context.Context, id uuid.UUID) (*models.EscrowWithListing, error) {
	e, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := &models.EscrowWithListing{Escrow: *e}
	if l, ok := s.db.listings[e.ListingID]; ok {
		out.ListingTitle = &l.Title
		out.ListingPrice = &l.Price
	}
	return out, nil
}

func (s *fakeEscrowStore) GetActiveByListingAndBuyer(ctx context.Context, listingID uuid.UUID, buyer string) (*models.Escrow, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, e := range s.db.escrows {
		if e.ListingID == listingID && e.BuyerWallet == buyer &&
			(e.Status == models.EscrowStatusPending || e.Status == models.EscrowStatusPaid) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeEscrowStore) ListByBuyerWithListing(ctx context.Context, buyer string, limit int) ([]models.EscrowWithListing, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.EscrowWithListing
	for _, e := range s.db.escrows {
		if e.BuyerWallet == buyer {
			out = append(out, models.EscrowWithListing{Escrow: *e})
		}
	}
	return out, nil
}

func (s *fakeEscrowStore) ListPending(ctx context.Context, limit int) ([]models.Escrow, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Escrow
	for _, e := range s.db.escrows {
		if e.Status == models.EscrowStatusPending {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *fakeEscrowStore) MarkPaid(ctx context.Context, id uuid.UUID, txSignature string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.escrows[id]
	if !ok || e.Status != models.EscrowStatusPending {
		return false, nil
	}
	e.Status = models.EscrowStatusPaid
	e.TxSignature = &txSignature
	return true, nil
}

func (s *fakeEscrowStore) CompleteWithBadges(ctx context.Context, e *models.Escrow, badges []models.Badge) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cur, ok := s.db.escrows[e.ID]
	if !ok || cur.Status != models.EscrowStatusPaid {
		return false, nil
	}
	cur.Status = models.EscrowStatusCompleted
	if l, ok := s.db.listings[cur.ListingID]; ok {
		l.Status = models.ListingStatusSold
	}
	s.db.badges = append(s.db.badges, badges...)
	return true, nil
}

func (s *fakeEscrowStore) CancelPending(ctx context.Context, e *models.Escrow) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cur, ok := s.db.escrows[e.ID]
	if !ok || cur.Status != models.EscrowStatusPending {
		return false, nil
	}
	cur.Status = models.EscrowStatusCancelled
	if l, ok := s.db.listings[cur.ListingID]; ok && l.Status == models.ListingStatusEscrow {
		l.Status = models.ListingStatusOpen
	}
	return true, nil
}

func testConfig() *config.Config {
	return &config.Config{
		PayLabel:   "PeerProof",
		PayMessage: "Payment for secondhand item",
	}
}

func newTestEscrowService(db *fakeDB) *EscrowService {
	return NewEscrowService(&fakeListingStore{db: db}, &fakeEscrowStore{db: db}, nil, testConfig(), zap.NewNop())
}

func TestCreateEscrow(t *testing.T) {
	db := newFakeDB()
	svc := newTestEscrowService(db)
	listing := db.addListing("seller-wallet", "2.5", models.ListingStatusOpen)

	escrow, err := svc.CreateEscrow(context.Background(), listing.ID, "buyer-wallet")
	if err != nil {
		t.Fatalf("expected escrow, got error: %v", err)
	}

	if escrow.Status != models.EscrowStatusPending {
		t.Errorf("status = %q, want pending", escrow.Status)
	}
	if escrow.PaymentReference != escrow.ID.String() {
		t.Errorf("payment_reference = %q, want escrow id %q", escrow.PaymentReference, escrow.ID)
	}
	if escrow.Amount != "2.5" {
		t.Errorf("amount = %q, want listing price 2.5", escrow.Amount)
	}
	if escrow.SellerWallet != "seller-wallet" || escrow.BuyerWallet != "buyer-wallet" {
		t.Errorf("wallets = %q/%q", escrow.BuyerWallet, escrow.SellerWallet)
	}
	if got := db.listingStatus(listing.ID); got != models.ListingStatusEscrow {
		t.Errorf("listing status = %q, want escrow", got)
	}
}

func TestCreateEscrow_EventNamesParties(t *testing.T) {
	db := newFakeDB()
	pub := &fakePublisher{}
	svc := NewEscrowService(&fakeListingStore{db: db}, &fakeEscrowStore{db: db}, pub, testConfig(), zap.NewNop())
	listing := db.addListing("seller-wallet", "1.0", models.ListingStatusOpen)

	escrow, err := svc.CreateEscrow(context.Background(), listing.ID, "buyer-wallet")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Type != events.EventEscrowCreated {
		t.Errorf("event type = %q, want %q", ev.Type, events.EventEscrowCreated)
	}
	if ev.Payload["escrow_id"] != escrow.ID.String() {
		t.Errorf("escrow_id = %v, want %s", ev.Payload["escrow_id"], escrow.ID)
	}
	if ev.Payload["buyer_wallet"] != "buyer-wallet" || ev.Payload["seller_wallet"] != "seller-wallet" {
		t.Errorf("event must name both parties, got payload %v", ev.Payload)
	}
}

func TestCreateEscrow_ListingNotFound(t *testing.T) {
	svc := newTestEscrowService(newFakeDB())
	_, err := svc.CreateEscrow(context.Background(), uuid.New(), "buyer-wallet")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateEscrow_OwnListing(t *testing.T) {
	db := newFakeDB()
	svc := newTestEscrowService(db)
	listing := db.addListing("seller-wallet", "1.0", models.ListingStatusOpen)

	_, err := svc.CreateEscrow(context.Background(), listing.ID, "seller-wallet")
	if !errors.Is(err, ErrOwnListing) {
		t.Fatalf("err = %v, want ErrOwnListing", err)
	}
}

func TestCreateEscrow_ConcurrentBuyers(t *testing.T) {
	db := newFakeDB()
	svc := newTestEscrowService(db)
	listing := db.addListing("seller-wallet", "1.0", models.ListingStatusOpen)

	const buyers = 8
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateEscrow(context.Background(), listing.ID, "buyer-"+string(rune('a'+i)))
		}(i)
	}
	wg.Wait()

	var won, reserved int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrAlreadyReserved):
			reserved++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 || reserved != buyers-1 {
		t.Fatalf("winners = %d, reserved = %d; want exactly one winner", won, reserved)
	}
	if got := db.listingStatus(listing.ID); got != models.ListingStatusEscrow {
		t.Errorf("listing status = %q, want escrow", got)
	}
}

func TestConfirmDelivery_RequiresPayment(t *testing.T) {
	db := newFakeDB()
	svc := newTestEscrowService(db)
	listing := db.addListing("seller-wallet", "1.0", models.ListingStatusOpen)
	escrow, _ := svc.CreateEscrow(context.Background(), listing.ID, "buyer-wallet")

	_, _, err := svc.ConfirmDelivery(context.Background(), escrow.ID, "seller-wallet")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition for unpaid escrow", err)
	}
	if db.badgeCount() != 0 {
		t.Errorf("badges minted for unpaid escrow: %d", db.badgeCount())
	}
}

func TestConfirmDelivery(t *testing.T) {
	db := newFakeDB()
	store := &fakeEscrowStore{db: db}
	svc := newTestEscrowService(db)
	listing := db.addListing("seller-wallet", "2.5", models.ListingStatusOpen)
	escrow, _ := svc.CreateEscrow(context.Background(), listing.ID, "buyer-wallet")
	if ok, _ := store.MarkPaid(context.Background(), escrow.ID, "tx-sig"); !ok {
		t.Fatal("MarkPaid failed")
	}

	completed, badges, err := svc.ConfirmDelivery(context.Background(), escrow.ID, "seller-wallet")
	if err != nil {
		t.Fatalf("expected completion, got error: %v", err)
	}
	if completed.Status != models.EscrowStatusCompleted {
		t.Errorf("status = %q, want completed", completed.Status)
	}
	if got := db.listingStatus(listing.ID); got != models.ListingStatusSold {
		t.Errorf("listing status = %q, want sold", got)
	}
	if len(badges) != 2 {
		t.Fatalf("badges = %d, want buyer+seller pair", len(badges))
	}
	types := map[string]string{}
	for _, b := range badges {
		types[b.Type] = b.UserWallet
		if b.Metadata["listing_id"] != listing.ID.String() {
			t.Errorf("badge metadata listing_id = %v, want %s", b.Metadata["listing_id"], listing.ID)
		}
	}
	if types[models.BadgeTypeBuyer] != "buyer-wallet" || types[models.BadgeTypeSeller] != "seller-wallet" {
		t.Errorf("badge pair = %v", types)
	}
}

func TestConfirmDelivery_RetryMintsNoExtraBadges(t *testing.T) {
	db := newFakeDB()
	store := &fakeEscrowStore{db: db}
	svc := newTestEscrowService(db)
	listing := db.addListing("seller-wallet", "1.0", models.ListingStatusOpen)
	escrow, _ := svc.CreateEscrow(context.Background(), listing.ID, "buyer-wallet")
	_, _ = store.MarkPaid(context.Background(), escrow.ID, "tx-sig")

	if _, _, err := svc.ConfirmDelivery(context.Background(), escrow.ID, "buyer-wallet"); err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}
	if _, _, err := svc.ConfirmDelivery(context.Background(), escrow.ID, "buyer-wallet"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second confirm err = %v, want ErrInvalidTransition", err)
	}
	if db.badgeCount() != 2 {
		t.Errorf("badges = %d after retry, want 2", db.badgeCount())
	}
}

func TestConfirmDelivery_Stranger(t *testing.T) {
	db := newFakeDB()
	store := &fakeEscrowStore{db: db}
	svc := newTestEscrowService(db)
	listing := db.addListing("seller-wallet", "1.0", models.ListingStatusOpen)
	escrow, _ := svc.CreateEscrow(context.Background(), listing.ID, "buyer-wallet")
	_, _ = store.MarkPaid(context.Background(), escrow.ID, "tx-sig")

	_, _, err := svc.ConfirmDelivery(context.Background(), escrow.ID, "stranger-wallet")
	if !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("err = %v, want ErrNotParticipant", err)
	}
}

func TestCancel(t *testing.T) {
	db := newFakeDB()
	svc := newTestEscrowService(db)
	listing := db.addListing("seller-wallet", "1.0", models.ListingStatusOpen)
	escrow, _ := svc.CreateEscrow(context.Background(), listing.ID, "buyer-wallet")

	cancelled, err := svc.Cancel(context.Background(), escrow.ID, "buyer-wallet")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != models.EscrowStatusCancelled {
		t.Errorf("status = %q, want cancelled", cancelled.Status)
	}
	if got := db.listingStatus(listing.ID); got != models.ListingStatusOpen {
		t.Errorf("listing status = %q, want open again", got)
	}
}

func TestCancel_PaidEscrow(t *testing.T) {
	db := newFakeDB()
	store := &fakeEscrowStore{db: db}
	svc := newTestEscrowService(db)
	listing := db.addListing("seller-wallet", "1.0", models.ListingStatusOpen)
	escrow, _ := svc.CreateEscrow(context.Background(), listing.ID, "buyer-wallet")
	_, _ = store.MarkPaid(context.Background(), escrow.ID, "tx-sig")

	_, err := svc.Cancel(context.Background(), escrow.ID, "buyer-wallet")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition for paid escrow", err)
	}
}

func TestPayURL(t *testing.T) {
	db := newFakeDB()
	svc := newTestEscrowService(db)
	listing := db.addListing("9aE476sH92Vz7DMPyq5WLPkrKWivxeuTKEFKd2sZZcde", "2.5", models.ListingStatusOpen)
	escrow, _ := svc.CreateEscrow(context.Background(), listing.ID, "buyer-wallet")

	active, url, err := svc.PayURL(context.Background(), listing.ID, "buyer-wallet")
	if err != nil {
		t.Fatalf("PayURL failed: %v", err)
	}
	if active.ID != escrow.ID {
		t.Errorf("active escrow = %s, want %s", active.ID, escrow.ID)
	}

	want := "solana:9aE476sH92Vz7DMPyq5WLPkrKWivxeuTKEFKd2sZZcde" +
		"?amount=2.5&reference=" + escrow.ID.String() +
		"&label=PeerProof&message=Payment+for+secondhand+item"
	if url != want {
		t.Errorf("pay url = %q, want %q", url, want)
	}
	if !strings.Contains(url, escrow.PaymentReference) {
		t.Error("pay url must embed the payment reference")
	}
}

func TestPayURL_NoActiveEscrow(t *testing.T) {
	db := newFakeDB()
	svc := newTestEscrowService(db)
	listing := db.addListing("seller-wallet", "1.0", models.ListingStatusOpen)

	_, _, err := svc.PayURL(context.Background(), listing.ID, "buyer-wallet")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
