package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/peerproof/backend/internal/models"
)

type ListingRepo struct {
	pool *pgxpool.Pool
}

func NewListingRepo(pool *pgxpool.Pool) *ListingRepo {
	return &ListingRepo{pool: pool}
}

func (r *ListingRepo) Create(ctx context.Context, l *models.Listing) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO listings (seller_wallet, title, description, price, image_url, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, l.SellerWallet, l.Title, l.Description, l.Price, l.ImageURL, l.Status,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

func (r *ListingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var l models.Listing
	err := r.pool.QueryRow(ctx, `
		SELECT id, seller_wallet, title, description, price, image_url, status, created_at, updated_at
		FROM listings WHERE id = $1
	`, id).Scan(&l.ID, &l.SellerWallet, &l.Title, &l.Description, &l.Price, &l.ImageURL, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

type ListingFilter struct {
	SellerWallet *string
	Status       *string
	Limit        int
	Offset       int
}

func (r *ListingRepo) List(ctx context.Context, f ListingFilter) ([]models.Listing, error) {
	query := `
		SELECT id, seller_wallet, title, description, price, image_url, status, created_at, updated_at
		FROM listings
	`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.SellerWallet != nil {
		where = append(where, fmt.Sprintf("seller_wallet = $%d", argIdx))
		args = append(args, *f.SellerWallet)
		argIdx++
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *f.Status)
		argIdx++
	}

	if len(where) > 0 {
		query += " WHERE "
		for i, w := range where {
			if i > 0 {
				query += " AND "
			}
			query += w
		}
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var l models.Listing
		if err := rows.Scan(&l.ID, &l.SellerWallet, &l.Title, &l.Description, &l.Price, &l.ImageURL, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, nil
}
