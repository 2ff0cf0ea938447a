package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/peerproof/backend/internal/config"
	"github.com/peerproof/backend/internal/events"
	"github.com/peerproof/backend/internal/models"
	"github.com/peerproof/backend/internal/solana"
	"go.uber.org/zap"
)

// EscrowStore persists escrows. The conditional methods return false when
// the status guard lost, without writing anything.
type EscrowStore interface {
	CreateForListing(ctx context.Context, e *models.Escrow) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error)
	GetWithListing(ctx context.Context, id uuid.UUID) (*models.EscrowWithListing, error)
	GetActiveByListingAndBuyer(ctx context.Context, listingID uuid.UUID, buyerWallet string) (*models.Escrow, error)
	ListByBuyerWithListing(ctx context.Context, buyerWallet string, limit int) ([]models.EscrowWithListing, error)
	ListPending(ctx context.Context, limit int) ([]models.Escrow, error)
	MarkPaid(ctx context.Context, id uuid.UUID, txSignature string) (bool, error)
	CompleteWithBadges(ctx context.Context, e *models.Escrow, badges []models.Badge) (bool, error)
	CancelPending(ctx context.Context, e *models.Escrow) (bool, error)
}

// EscrowService owns the escrow state machine. Every transition rides a
// conditional write in the store, so concurrent calls cannot interleave
// into an inconsistent state.
type EscrowService struct {
	listings  ListingStore
	escrows   EscrowStore
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
}

func NewEscrowService(
	listings ListingStore,
	escrows EscrowStore,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *EscrowService {
	return &EscrowService{
		listings:  listings,
		escrows:   escrows,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

// CreateEscrow reserves an open listing for the buyer. The payment
// reference embedded in the pay URL is the escrow id itself, assigned
// here so it exists before the row does.
func (s *EscrowService) CreateEscrow(ctx context.Context, listingID uuid.UUID, buyerWallet string) (*models.Escrow, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if listing.SellerWallet == buyerWallet {
		return nil, ErrOwnListing
	}
	if listing.Status != models.ListingStatusOpen {
		return nil, ErrAlreadyReserved
	}

	id := uuid.New()
	escrow := &models.Escrow{
		ID:               id,
		ListingID:        listing.ID,
		BuyerWallet:      buyerWallet,
		SellerWallet:     listing.SellerWallet,
		Status:           models.EscrowStatusPending,
		PaymentReference: id.String(),
		Amount:           listing.Price,
	}

	reserved, err := s.escrows.CreateForListing(ctx, escrow)
	if err != nil {
		return nil, err
	}
	if !reserved {
		// Lost the race: another buyer flipped the listing first.
		return nil, ErrAlreadyReserved
	}

	s.publish(ctx, events.EventEscrowCreated, escrow, "")
	s.log.Info("escrow created",
		zap.String("escrow_id", escrow.ID.String()),
		zap.String("listing_id", listing.ID.String()),
		zap.String("buyer", buyerWallet),
	)
	return escrow, nil
}

// ConfirmDelivery moves a paid escrow to completed, marks the listing
// sold, and mints one buyer badge and one seller badge. Either party may
// confirm. An unpaid escrow cannot be completed.
func (s *EscrowService) ConfirmDelivery(ctx context.Context, escrowID uuid.UUID, confirmerWallet string) (*models.Escrow, []models.Badge, error) {
	escrow, err := s.escrows.GetByID(ctx, escrowID)
	if err != nil {
		return nil, nil, mapNotFound(err)
	}
	if !escrow.IsParty(confirmerWallet) {
		return nil, nil, ErrNotParticipant
	}
	if !models.IsValidTransition(escrow.Status, models.EscrowStatusCompleted) {
		return nil, nil, ErrInvalidTransition
	}

	meta := map[string]any{
		"listing_id": escrow.ListingID.String(),
		"escrow_id":  escrow.ID.String(),
	}
	badges := []models.Badge{
		{UserWallet: escrow.BuyerWallet, Type: models.BadgeTypeBuyer, EscrowID: escrow.ID, Metadata: meta},
		{UserWallet: escrow.SellerWallet, Type: models.BadgeTypeSeller, EscrowID: escrow.ID, Metadata: meta},
	}

	ok, err := s.escrows.CompleteWithBadges(ctx, escrow, badges)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		// Re-checked under the store's guard; a concurrent call got here first.
		return nil, nil, ErrInvalidTransition
	}

	oldStatus := escrow.Status
	escrow.Status = models.EscrowStatusCompleted
	s.publish(ctx, events.EventEscrowStatusChanged, escrow, oldStatus)
	s.log.Info("escrow completed",
		zap.String("escrow_id", escrow.ID.String()),
		zap.String("confirmer", confirmerWallet),
	)
	return escrow, badges, nil
}

// Cancel aborts a pending escrow and reopens the listing. Paid escrows
// cannot be cancelled through this path.
func (s *EscrowService) Cancel(ctx context.Context, escrowID uuid.UUID, actorWallet string) (*models.Escrow, error) {
	escrow, err := s.escrows.GetByID(ctx, escrowID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !escrow.IsParty(actorWallet) {
		return nil, ErrNotParticipant
	}
	if !models.IsValidTransition(escrow.Status, models.EscrowStatusCancelled) {
		return nil, ErrInvalidTransition
	}

	ok, err := s.escrows.CancelPending(ctx, escrow)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	oldStatus := escrow.Status
	escrow.Status = models.EscrowStatusCancelled
	s.publish(ctx, events.EventEscrowStatusChanged, escrow, oldStatus)
	s.log.Info("escrow cancelled", zap.String("escrow_id", escrow.ID.String()))
	return escrow, nil
}

// PayURL builds the Solana Pay URI for the buyer's live escrow on a
// listing. Amount positivity was validated at listing creation.
func (s *EscrowService) PayURL(ctx context.Context, listingID uuid.UUID, buyerWallet string) (*models.Escrow, string, error) {
	escrow, err := s.escrows.GetActiveByListingAndBuyer(ctx, listingID, buyerWallet)
	if err != nil {
		return nil, "", mapNotFound(err)
	}
	url := solana.BuildPayURL(escrow.SellerWallet, escrow.Amount, escrow.PaymentReference, s.cfg.PayLabel, s.cfg.PayMessage)
	return escrow, url, nil
}

func (s *EscrowService) GetEscrow(ctx context.Context, id uuid.UUID) (*models.EscrowWithListing, error) {
	e, err := s.escrows.GetWithListing(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return e, nil
}

func (s *EscrowService) ListPurchases(ctx context.Context, buyerWallet string, limit int) ([]models.EscrowWithListing, error) {
	return s.escrows.ListByBuyerWithListing(ctx, buyerWallet, limit)
}

// publish includes the party wallets so the websocket hub can deliver
// to the buyer and seller instead of broadcasting.
func (s *EscrowService) publish(ctx context.Context, eventType string, e *models.Escrow, oldStatus string) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(ctx, events.StreamEscrow, events.Event{
		Type: eventType,
		Payload: map[string]any{
			"escrow_id":     e.ID.String(),
			"buyer_wallet":  e.BuyerWallet,
			"seller_wallet": e.SellerWallet,
			"old_status":    oldStatus,
			"new_status":    e.Status,
		},
	})
}
