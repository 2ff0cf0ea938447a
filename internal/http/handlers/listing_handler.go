package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/peerproof/backend/internal/http/dto"
	"github.com/peerproof/backend/internal/middleware"
	"github.com/peerproof/backend/internal/models"
	"github.com/peerproof/backend/internal/repositories"
	"github.com/peerproof/backend/internal/services"
	"go.uber.org/zap"
)

type ListingHandler struct {
	listingService *services.ListingService
	escrowService  *services.EscrowService
	log            *zap.Logger
}

func NewListingHandler(listingService *services.ListingService, escrowService *services.EscrowService, log *zap.Logger) *ListingHandler {
	return &ListingHandler{listingService: listingService, escrowService: escrowService, log: log}
}

func (h *ListingHandler) CreateListing(c *fiber.Ctx) error {
	var req dto.CreateListingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "title is required"})
	}

	seller := middleware.GetWallet(c)
	listing, err := h.listingService.CreateListing(c.Context(), seller, req.Title, req.Description, req.Price, req.ImageURL)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: listing})
}

func (h *ListingHandler) ListListings(c *fiber.Ctx) error {
	filter := repositories.ListingFilter{Limit: 20}

	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}
	if v := c.Query("status"); v != "" {
		if !models.IsListingStatus(v) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "status must be open, escrow, or sold"})
		}
		filter.Status = &v
	}
	if v := c.Query("seller"); v != "" {
		filter.SellerWallet = &v
	}

	listings, err := h.listingService.ListListings(c.Context(), filter)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: listings})
}

func (h *ListingHandler) MyListings(c *fiber.Ctx) error {
	seller := middleware.GetWallet(c)
	filter := repositories.ListingFilter{SellerWallet: &seller, Limit: 100}

	listings, err := h.listingService.ListListings(c.Context(), filter)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: listings})
}

func (h *ListingHandler) GetListing(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid listing id"})
	}

	listing, err := h.listingService.GetListing(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: listing})
}

// Buy reserves the listing for the caller. Exactly one concurrent buyer
// wins; the rest receive a conflict.
func (h *ListingHandler) Buy(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid listing id"})
	}

	buyer := middleware.GetWallet(c)
	escrow, err := h.escrowService.CreateEscrow(c.Context(), listingID, buyer)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

// PayURL returns the Solana Pay URI for the caller's live escrow on this
// listing.
func (h *ListingHandler) PayURL(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid listing id"})
	}

	buyer := middleware.GetWallet(c)
	escrow, url, err := h.escrowService.PayURL(c.Context(), listingID, buyer)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.PayURLResponse{
		EscrowID: escrow.ID.String(),
		PayURL:   url,
		Amount:   escrow.Amount,
		Status:   escrow.Status,
	})
}
