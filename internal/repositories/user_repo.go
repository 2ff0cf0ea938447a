package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/peerproof/backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// UpsertByWallet creates the user on first login and refreshes
// last_active_at on every subsequent one. The display name only changes
// when the caller supplies one.
func (r *UserRepo) UpsertByWallet(ctx context.Context, wallet string, displayName *string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (wallet_address, display_name)
		VALUES ($1, COALESCE($2, 'User'))
		ON CONFLICT (wallet_address) DO UPDATE SET
			display_name = COALESCE($2, users.display_name),
			last_active_at = now()
		RETURNING wallet_address, display_name, created_at, last_active_at
	`, wallet, displayName).Scan(&u.WalletAddress, &u.DisplayName, &u.CreatedAt, &u.LastActiveAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByWallet(ctx context.Context, wallet string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT wallet_address, display_name, created_at, last_active_at
		FROM users WHERE wallet_address = $1
	`, wallet).Scan(&u.WalletAddress, &u.DisplayName, &u.CreatedAt, &u.LastActiveAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
