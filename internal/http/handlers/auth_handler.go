package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/peerproof/backend/internal/http/dto"
	"github.com/peerproof/backend/internal/services"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *services.AuthService
	log         *zap.Logger
}

func NewAuthHandler(authService *services.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// Nonce issues a fresh single-use login challenge.
func (h *AuthHandler) Nonce(c *fiber.Ctx) error {
	n, err := h.authService.IssueNonce(c.Context())
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.NonceResponse{
		Nonce:     n.Nonce,
		ExpiresAt: n.ExpiresAt.Format(time.RFC3339),
	})
}

// Login exchanges a signed nonce challenge for a session token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	if req.WalletAddress == "" || req.Nonce == "" || req.Signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "wallet_address, nonce and signature are required"})
	}

	token, user, err := h.authService.Login(c.Context(), req.WalletAddress, req.Nonce, req.Signature, req.DisplayName)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.AuthResponse{Token: token, User: user})
}
