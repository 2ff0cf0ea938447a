package repositories

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/peerproof/backend/internal/models"
)

// BadgeRepo is read-only: badges are minted inside the escrow completion
// transaction (EscrowRepo.CompleteWithBadges) and never mutated after.
type BadgeRepo struct {
	pool *pgxpool.Pool
}

func NewBadgeRepo(pool *pgxpool.Pool) *BadgeRepo {
	return &BadgeRepo{pool: pool}
}

func (r *BadgeRepo) ListByWallet(ctx context.Context, wallet string, limit int) ([]models.Badge, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_wallet, type, escrow_id, metadata, minted_at
		FROM badges
		WHERE user_wallet = $1
		ORDER BY minted_at DESC
		LIMIT $2
	`, wallet, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var badges []models.Badge
	for rows.Next() {
		var b models.Badge
		var meta []byte
		if err := rows.Scan(&b.ID, &b.UserWallet, &b.Type, &b.EscrowID, &meta, &b.MintedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(meta, &b.Metadata)
		badges = append(badges, b)
	}
	return badges, nil
}
