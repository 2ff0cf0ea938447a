package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/peerproof/backend/internal/http/dto"
	"github.com/peerproof/backend/internal/middleware"
	"github.com/peerproof/backend/internal/services"
	"go.uber.org/zap"
)

type EscrowHandler struct {
	escrowService  *services.EscrowService
	paymentService *services.PaymentService
	log            *zap.Logger
}

func NewEscrowHandler(escrowService *services.EscrowService, paymentService *services.PaymentService, log *zap.Logger) *EscrowHandler {
	return &EscrowHandler{escrowService: escrowService, paymentService: paymentService, log: log}
}

func (h *EscrowHandler) GetEscrow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	escrow, err := h.escrowService.GetEscrow(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if !escrow.IsParty(middleware.GetWallet(c)) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "only the buyer or seller may do this"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

func (h *EscrowHandler) ConfirmDelivery(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	escrow, badges, err := h.escrowService.ConfirmDelivery(c.Context(), id, middleware.GetWallet(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{
		"escrow": escrow,
		"badges": badges,
	}})
}

func (h *EscrowHandler) Cancel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	escrow, err := h.escrowService.Cancel(c.Context(), id, middleware.GetWallet(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

// VerifyPayment runs an on-demand ledger scan. An indeterminate outcome
// still answers 200; the flag tells the client to retry, not to give up.
func (h *EscrowHandler) VerifyPayment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid escrow id"})
	}

	escrow, err := h.escrowService.GetEscrow(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if !escrow.IsParty(middleware.GetWallet(c)) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "only the buyer or seller may do this"})
	}

	result, err := h.paymentService.VerifyPayment(c.Context(), id)
	if err != nil && result != services.VerificationIndeterminate {
		return respondError(c, h.log, err)
	}
	if err != nil {
		h.log.Warn("payment verification indeterminate",
			zap.String("escrow_id", id.String()),
			zap.Error(err),
		)
	}

	return c.JSON(dto.VerifyPaymentResponse{
		EscrowID:      id.String(),
		Result:        result.String(),
		Paid:          result == services.VerificationPaid,
		Indeterminate: result == services.VerificationIndeterminate,
	})
}

func (h *EscrowHandler) ListPurchases(c *fiber.Ctx) error {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	purchases, err := h.escrowService.ListPurchases(c.Context(), middleware.GetWallet(c), limit)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: purchases})
}
