package commission

import (
	apperrors "finops/internal/errors"
	"finops/internal/models"
)

// TransferRequest settles one commission record.
type TransferRequest struct {
	CommissionRecordID string
	TransferType       models.TransferType
	RecipientID        string
	// Amount 0 pays the full share.
	Amount int64
	Method models.TransferMethod
	Data   map[string]interface{}
}

// BulkTransferRequest settles several records in favour of the caller.
type BulkTransferRequest struct {
	CommissionRecordIDs []string
	Method              models.TransferMethod
	Data                map[string]interface{}
}

// ItemError describes why one bulk item failed.
type ItemError struct {
	Kind    apperrors.Kind `json:"kind"`
	Message string         `json:"message"`
}

// BulkItemResult is the outcome of one bulk item.
type BulkItemResult struct {
	CommissionRecordID string                     `json:"commission_record_id"`
	Succeeded          bool                       `json:"succeeded"`
	Transfer           *models.CommissionTransfer `json:"transfer,omitempty"`
	Error              *ItemError                 `json:"error,omitempty"`
}

// BulkResult lists every item in request order.
type BulkResult struct {
	Items       []BulkItemResult `json:"results"`
	Succeeded   int              `json:"succeeded"`
	Failed      int              `json:"failed"`
	TotalAmount int64            `json:"total_amount"`
}

type settlement struct {
	record       *models.CommissionRecord
	transferType models.TransferType
	recipientID  string
	amount       int64
	data         TransferData
}
