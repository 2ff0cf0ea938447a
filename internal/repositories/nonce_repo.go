package repositories

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/peerproof/backend/internal/models"
)

type NonceRepo struct {
	pool *pgxpool.Pool
}

func NewNonceRepo(pool *pgxpool.Pool) *NonceRepo {
	return &NonceRepo{pool: pool}
}

func (r *NonceRepo) Create(ctx context.Context, ttl time.Duration) (*models.LoginNonce, error) {
	n := &models.LoginNonce{Nonce: generateNonce(32)}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO login_nonces (nonce, expires_at)
		VALUES ($1, now() + $2::interval)
		RETURNING id, created_at, expires_at
	`, n.Nonce, ttl.String()).Scan(&n.ID, &n.CreatedAt, &n.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Consume marks a nonce used. The conditional update makes it single-use:
// a replayed login with the same nonce affects zero rows.
func (r *NonceRepo) Consume(ctx context.Context, nonce string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE login_nonces SET used = true
		WHERE nonce = $1 AND used = false AND expires_at > now()
	`, nonce)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func generateNonce(bytes int) string {
	b := make([]byte, bytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
