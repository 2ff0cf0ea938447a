package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/peerproof/backend/internal/http/dto"
	"github.com/peerproof/backend/internal/services"
	"go.uber.org/zap"
)

// respondError maps service sentinels onto HTTP statuses. Anything
// unrecognized is a 500 with the detail kept out of the response body.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "not found"})
	case errors.Is(err, services.ErrAlreadyReserved):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: "listing is no longer available"})
	case errors.Is(err, services.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: "escrow is not in a state that allows this action"})
	case errors.Is(err, services.ErrNotParticipant):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "only the buyer or seller may do this"})
	case errors.Is(err, services.ErrOwnListing):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "cannot buy your own listing"})
	case errors.Is(err, services.ErrInvalidPrice):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "price must be a positive number"})
	case errors.Is(err, services.ErrInvalidAddress):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid wallet address"})
	case errors.Is(err, services.ErrInvalidNonce):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "nonce is invalid, expired, or already used"})
	case errors.Is(err, services.ErrInvalidSignature):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "signature verification failed"})
	default:
		log.Error("request failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
}
