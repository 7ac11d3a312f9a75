package handlers

import (
	"finops/internal/services/recharge"
	"finops/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// RechargeHandler exposes ticket recharges.
type RechargeHandler struct {
	service recharge.Service
}

func NewRechargeHandler(s recharge.Service) *RechargeHandler { return &RechargeHandler{service: s} }

type rechargeRequest struct {
	TicketID       string                 `json:"ticket_id" validate:"required,uuid"`
	AgentID        string                 `json:"agent_id" validate:"required,uuid"`
	Amount         int64                  `json:"amount" validate:"gt=0"`
	RechargeMethod string                 `json:"recharge_method" validate:"required"`
	Metadata       map[string]interface{} `json:"metadata"`
}

// ProcessRecharge handles POST /api/process-recharge.
func (h *RechargeHandler) ProcessRecharge(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req rechargeRequest
	if err := bind(c, &req); err != nil {
		return response.Error(c, err)
	}

	op, err := h.service.ProcessRecharge(c.UserContext(), id, recharge.Request{
		TicketID: req.TicketID,
		AgentID:  req.AgentID,
		Amount:   req.Amount,
		Method:   req.RechargeMethod,
		Metadata: req.Metadata,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, "operation", op)
}
