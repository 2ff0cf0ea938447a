package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/peerproof/backend/internal/http/dto"
	"github.com/peerproof/backend/internal/repositories"
	"github.com/peerproof/backend/internal/solana"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	users  *repositories.UserRepo
	badges *repositories.BadgeRepo
	log    *zap.Logger
}

func NewProfileHandler(users *repositories.UserRepo, badges *repositories.BadgeRepo, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{users: users, badges: badges, log: log}
}

// GetProfile is public: trade reputation only works if anyone can check
// it before buying. Badge count doubles as the completed trade count
// since exactly one badge per role is minted per completed escrow.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	wallet, err := solana.CanonicalAddress(c.Params("wallet"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid wallet address"})
	}

	user, err := h.users.GetByWallet(c.Context(), wallet)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "profile not found"})
	}

	badges, err := h.badges.ListByWallet(c.Context(), wallet, 100)
	if err != nil {
		h.log.Error("failed to list badges", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.ProfileResponse{
		User:            user,
		Badges:          badges,
		CompletedTrades: len(badges),
	})
}
