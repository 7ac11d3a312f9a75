package handlers

import (
	"finops/internal/models"
	"finops/internal/services/auth"
	"finops/internal/services/commission"
	"finops/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// CommissionHandler exposes commission payouts, single and bulk.
type CommissionHandler struct {
	service commission.Service
}

func NewCommissionHandler(s commission.Service) *CommissionHandler {
	return &CommissionHandler{service: s}
}

type commissionTransferRequest struct {
	CommissionRecordID  string                 `json:"commission_record_id" validate:"omitempty,uuid"`
	CommissionRecordIDs []string               `json:"commission_record_ids" validate:"omitempty,max=100,unique,dive,uuid"`
	TransferType        string                 `json:"transfer_type" validate:"required,oneof=agent_payment chef_payment bulk_transfer"`
	RecipientID         string                 `json:"recipient_id" validate:"omitempty,uuid"`
	Amount              int64                  `json:"amount" validate:"gte=0"`
	TransferMethod      string                 `json:"transfer_method" validate:"required,oneof=balance_credit external"`
	TransferData        map[string]interface{} `json:"transfer_data"`
}

// ProcessTransfer handles POST /api/process-commission-transfer. A
// bulk_transfer settles commission_record_ids in favour of the caller and
// answers 207 when some items failed.
func (h *CommissionHandler) ProcessTransfer(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req commissionTransferRequest
	if err := bind(c, &req); err != nil {
		return response.Error(c, err)
	}

	if models.TransferType(req.TransferType) == models.TransferTypeBulk {
		return h.bulk(c, id, req)
	}

	if req.CommissionRecordID == "" {
		return response.BadRequest(c, "commission_record_id is required")
	}
	if req.RecipientID == "" {
		return response.BadRequest(c, "recipient_id is required")
	}

	transfer, err := h.service.TransferCommission(c.UserContext(), id, commission.TransferRequest{
		CommissionRecordID: req.CommissionRecordID,
		TransferType:       models.TransferType(req.TransferType),
		RecipientID:        req.RecipientID,
		Amount:             req.Amount,
		Method:             models.TransferMethod(req.TransferMethod),
		Data:               req.TransferData,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, "transfer", transfer)
}

func (h *CommissionHandler) bulk(c *fiber.Ctx, id auth.Identity, req commissionTransferRequest) error {
	ids := req.CommissionRecordIDs
	if len(ids) == 0 && req.CommissionRecordID != "" {
		ids = []string{req.CommissionRecordID}
	}

	result, err := h.service.BulkTransferCommissions(c.UserContext(), id, commission.BulkTransferRequest{
		CommissionRecordIDs: ids,
		Method:              models.TransferMethod(req.TransferMethod),
		Data:                req.TransferData,
	})
	if err != nil {
		if result != nil {
			return response.PartialFailure(c, err, "results", result)
		}
		return response.Error(c, err)
	}
	return response.Success(c, "results", result)
}
