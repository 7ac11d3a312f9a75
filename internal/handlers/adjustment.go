package handlers

import (
	"finops/internal/services/adjustment"
	"finops/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type AdjustmentHandler struct {
	service adjustment.Service
}

func NewAdjustmentHandler(s adjustment.Service) *AdjustmentHandler {
	return &AdjustmentHandler{service: s}
}

type adjustmentRequest struct {
	AccountID   string `json:"account_id" validate:"required,uuid"`
	Amount      int64  `json:"amount" validate:"required"`
	Description string `json:"description" validate:"required,max=500"`
}

// Adjust handles POST /api/admin/adjustments.
func (h *AdjustmentHandler) Adjust(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req adjustmentRequest
	if err := bind(c, &req); err != nil {
		return response.Error(c, err)
	}

	entry, err := h.service.Adjust(c.UserContext(), id, adjustment.Request{
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, "entry", entry)
}
