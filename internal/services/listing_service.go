package services

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/peerproof/backend/internal/models"
	"github.com/peerproof/backend/internal/repositories"
	"go.uber.org/zap"
)

// Plain decimal digits only. ParseFloat alone also admits NaN, Inf,
// hex floats and exponents, none of which belong in a pay URL amount.
var decimalPriceRe = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

type ListingStore interface {
	Create(ctx context.Context, l *models.Listing) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	List(ctx context.Context, f repositories.ListingFilter) ([]models.Listing, error)
}

type ListingService struct {
	listings ListingStore
	log      *zap.Logger
}

func NewListingService(listings ListingStore, log *zap.Logger) *ListingService {
	return &ListingService{listings: listings, log: log}
}

// CreateListing validates the price here, once, at the boundary; the pay
// URL builder downstream trusts it and echoes the listed text verbatim.
func (s *ListingService) CreateListing(ctx context.Context, sellerWallet, title, description, price string, imageURL *string) (*models.Listing, error) {
	price = strings.TrimSpace(price)
	if !decimalPriceRe.MatchString(price) {
		return nil, ErrInvalidPrice
	}
	v, err := strconv.ParseFloat(price, 64)
	if err != nil || v <= 0 {
		return nil, ErrInvalidPrice
	}

	l := &models.Listing{
		SellerWallet: sellerWallet,
		Title:        title,
		Description:  description,
		Price:        price,
		ImageURL:     imageURL,
		Status:       models.ListingStatusOpen,
	}
	if err := s.listings.Create(ctx, l); err != nil {
		return nil, err
	}

	s.log.Info("listing created",
		zap.String("listing_id", l.ID.String()),
		zap.String("seller", sellerWallet),
		zap.String("price", price),
	)
	return l, nil
}

func (s *ListingService) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return l, nil
}

func (s *ListingService) ListListings(ctx context.Context, f repositories.ListingFilter) ([]models.Listing, error) {
	return s.listings.List(ctx, f)
}
