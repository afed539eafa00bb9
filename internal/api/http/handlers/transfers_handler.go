package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TransfersHandler exposes the transfer sub-workflow.
type TransfersHandler struct {
	service *service.TicketService
}

// NewTransfersHandler constructs handler.
func NewTransfersHandler(ticketService *service.TicketService) *TransfersHandler {
	return &TransfersHandler{service: ticketService}
}

// RequestTransfer POST /tickets/:id/transfers.
func (h *TransfersHandler) RequestTransfer(c *fiber.Ctx) error {
	actor, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.RequestTransferRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ToAgentID == "" {
		return apperrors.NewValidationError("to_agent_id required", nil)
	}
	transfer, err := h.service.RequestTransfer(c.Context(), actor, c.Params("id"), req.ToAgentID, req.Reason)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTransferResponse(transfer)})
}

// ListTransfers GET /transfers.
func (h *TransfersHandler) ListTransfers(c *fiber.Ctx) error {
	actor, err := callerIdentity(c)
	if err != nil {
		return err
	}
	transfers, err := h.service.ListTransfers(c.Context(), actor, queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		return err
	}
	items := make([]dto.TransferResponse, 0, len(transfers))
	for i := range transfers {
		items = append(items, dto.NewTransferResponse(&transfers[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ApproveTransfer POST /transfers/:id/approve.
func (h *TransfersHandler) ApproveTransfer(c *fiber.Ctx) error {
	actor, err := callerIdentity(c)
	if err != nil {
		return err
	}
	transfer, err := h.service.ApproveTransfer(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTransferResponse(transfer)})
}

// RejectTransfer POST /transfers/:id/reject.
func (h *TransfersHandler) RejectTransfer(c *fiber.Ctx) error {
	actor, err := callerIdentity(c)
	if err != nil {
		return err
	}
	transfer, err := h.service.RejectTransfer(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTransferResponse(transfer)})
}
