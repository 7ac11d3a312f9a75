package handlers

import (
	"finops/internal/services/operation"
	"finops/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// OperationHandler exposes operation validation.
type OperationHandler struct {
	service operation.Service
}

func NewOperationHandler(s operation.Service) *OperationHandler {
	return &OperationHandler{service: s}
}

type validateOperationRequest struct {
	OperationID          string `json:"operation_id" validate:"required,uuid"`
	ValidatorID          string `json:"validator_id" validate:"required,uuid"`
	ValidationStatus     string `json:"validation_status" validate:"required,oneof=approved rejected"`
	ValidationNotes      string `json:"validation_notes" validate:"max=1000"`
	BalanceImpact        int64  `json:"balance_impact"`
	CommissionCalculated int64  `json:"commission_calculated" validate:"gte=0"`
}

// ValidateOperation handles POST /api/validate-operation.
func (h *OperationHandler) ValidateOperation(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req validateOperationRequest
	if err := bind(c, &req); err != nil {
		return response.Error(c, err)
	}

	validation, err := h.service.ValidateOperation(c.UserContext(), id, operation.ValidationRequest{
		OperationID:        req.OperationID,
		ValidatorID:        req.ValidatorID,
		Decision:           req.ValidationStatus,
		Notes:              req.ValidationNotes,
		BalanceImpact:      req.BalanceImpact,
		CommissionComputed: req.CommissionCalculated,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, "validation", validation)
}
