package repositories

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/peerproof/backend/internal/models"
)

// EscrowRepo owns every write that touches listing and escrow status
// together. The status guards are conditional UPDATEs; zero rows affected
// means the guard lost, and the caller maps that to AlreadyReserved or
// InvalidTransition. That conditional-write discipline is the only
// mutual-exclusion mechanism; no in-process locks.
type EscrowRepo struct {
	pool *pgxpool.Pool
}

func NewEscrowRepo(pool *pgxpool.Pool) *EscrowRepo {
	return &EscrowRepo{pool: pool}
}

// CreateForListing atomically flips the listing open -> escrow and inserts
// the escrow row. Returns reserved=false when the listing was not open, in
// which case nothing is written. Two buyers racing on one listing get
// exactly one true.
func (r *EscrowRepo) CreateForListing(ctx context.Context, e *models.Escrow) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE listings SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, models.ListingStatusEscrow, e.ListingID, models.ListingStatusOpen)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO escrows (id, listing_id, buyer_wallet, seller_wallet, status, payment_reference, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, e.ID, e.ListingID, e.BuyerWallet, e.SellerWallet, e.Status, e.PaymentReference, e.Amount,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}

func (r *EscrowRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	return scanEscrow(r.pool.QueryRow(ctx, `
		SELECT id, listing_id, buyer_wallet, seller_wallet, status, payment_reference, amount, tx_signature, created_at, updated_at
		FROM escrows WHERE id = $1
	`, id))
}

// GetActiveByListingAndBuyer finds the buyer's live escrow on a listing.
// At most one row can match: creation requires the listing to be open.
func (r *EscrowRepo) GetActiveByListingAndBuyer(ctx context.Context, listingID uuid.UUID, buyerWallet string) (*models.Escrow, error) {
	return scanEscrow(r.pool.QueryRow(ctx, `
		SELECT id, listing_id, buyer_wallet, seller_wallet, status, payment_reference, amount, tx_signature, created_at, updated_at
		FROM escrows
		WHERE listing_id = $1 AND buyer_wallet = $2 AND status IN ($3, $4)
	`, listingID, buyerWallet, models.EscrowStatusPending, models.EscrowStatusPaid))
}

func (r *EscrowRepo) GetWithListing(ctx context.Context, id uuid.UUID) (*models.EscrowWithListing, error) {
	var e models.EscrowWithListing
	err := r.pool.QueryRow(ctx, `
		SELECT e.id, e.listing_id, e.buyer_wallet, e.seller_wallet, e.status, e.payment_reference,
		       e.amount, e.tx_signature, e.created_at, e.updated_at,
		       l.title, l.image_url, l.price
		FROM escrows e
		JOIN listings l ON l.id = e.listing_id
		WHERE e.id = $1
	`, id).Scan(&e.ID, &e.ListingID, &e.BuyerWallet, &e.SellerWallet, &e.Status, &e.PaymentReference,
		&e.Amount, &e.TxSignature, &e.CreatedAt, &e.UpdatedAt,
		&e.ListingTitle, &e.ListingImageURL, &e.ListingPrice)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EscrowRepo) ListByBuyerWithListing(ctx context.Context, buyerWallet string, limit int) ([]models.EscrowWithListing, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT e.id, e.listing_id, e.buyer_wallet, e.seller_wallet, e.status, e.payment_reference,
		       e.amount, e.tx_signature, e.created_at, e.updated_at,
		       l.title, l.image_url, l.price
		FROM escrows e
		JOIN listings l ON l.id = e.listing_id
		WHERE e.buyer_wallet = $1
		ORDER BY e.created_at DESC
		LIMIT $2
	`, buyerWallet, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var escrows []models.EscrowWithListing
	for rows.Next() {
		var e models.EscrowWithListing
		if err := rows.Scan(&e.ID, &e.ListingID, &e.BuyerWallet, &e.SellerWallet, &e.Status, &e.PaymentReference,
			&e.Amount, &e.TxSignature, &e.CreatedAt, &e.UpdatedAt,
			&e.ListingTitle, &e.ListingImageURL, &e.ListingPrice); err != nil {
			return nil, err
		}
		escrows = append(escrows, e)
	}
	return escrows, nil
}

// ListPending returns escrows still awaiting payment, oldest first, for
// the background verification poller.
func (r *EscrowRepo) ListPending(ctx context.Context, limit int) ([]models.Escrow, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, listing_id, buyer_wallet, seller_wallet, status, payment_reference, amount, tx_signature, created_at, updated_at
		FROM escrows
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, models.EscrowStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var escrows []models.Escrow
	for rows.Next() {
		var e models.Escrow
		if err := rows.Scan(&e.ID, &e.ListingID, &e.BuyerWallet, &e.SellerWallet, &e.Status, &e.PaymentReference,
			&e.Amount, &e.TxSignature, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		escrows = append(escrows, e)
	}
	return escrows, nil
}

// MarkPaid records the on-chain signature and flips pending -> paid.
// Returns false if the escrow was not pending (already paid or cancelled).
func (r *EscrowRepo) MarkPaid(ctx context.Context, id uuid.UUID, txSignature string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE escrows SET status = $1, tx_signature = $2, updated_at = now()
		WHERE id = $3 AND status = $4
	`, models.EscrowStatusPaid, txSignature, id, models.EscrowStatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CompleteWithBadges flips paid -> completed, marks the listing sold, and
// mints the badge pair, all in one transaction keyed on the conditional
// escrow update, so a retry can never mint a second pair.
func (r *EscrowRepo) CompleteWithBadges(ctx context.Context, e *models.Escrow, badges []models.Badge) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE escrows SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, models.EscrowStatusCompleted, e.ID, models.EscrowStatusPaid)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE listings SET status = $1, updated_at = now() WHERE id = $2
	`, models.ListingStatusSold, e.ListingID); err != nil {
		return false, err
	}

	for i := range badges {
		meta, err := json.Marshal(badges[i].Metadata)
		if err != nil {
			return false, err
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO badges (user_wallet, type, escrow_id, metadata)
			VALUES ($1, $2, $3, $4)
			RETURNING id, minted_at
		`, badges[i].UserWallet, badges[i].Type, badges[i].EscrowID, meta,
		).Scan(&badges[i].ID, &badges[i].MintedAt)
		if err != nil {
			return false, err
		}
	}

	return true, tx.Commit(ctx)
}

// CancelPending flips pending -> cancelled and reopens the listing.
// Returns false if the escrow was not pending.
func (r *EscrowRepo) CancelPending(ctx context.Context, e *models.Escrow) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE escrows SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, models.EscrowStatusCancelled, e.ID, models.EscrowStatusPending)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE listings SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, models.ListingStatusOpen, e.ListingID, models.ListingStatusEscrow); err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}

func scanEscrow(row pgx.Row) (*models.Escrow, error) {
	var e models.Escrow
	err := row.Scan(&e.ID, &e.ListingID, &e.BuyerWallet, &e.SellerWallet, &e.Status, &e.PaymentReference,
		&e.Amount, &e.TxSignature, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
