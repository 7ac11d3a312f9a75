package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Commission record statuses
const (
	CommissionStatusPending   = "pending"
	CommissionStatusPaid      = "paid"
	CommissionStatusCancelled = "cancelled"
)

// TransferType says which share of a commission record is being paid.
type TransferType string

const (
	TransferTypeAgentPayment TransferType = "agent_payment"
	TransferTypeChefPayment  TransferType = "chef_payment"
	TransferTypeBulk         TransferType = "bulk_transfer"
)

// TransferMethod says where the money goes.
type TransferMethod string

const (
	TransferMethodBalanceCredit TransferMethod = "balance_credit"
	TransferMethodExternal      TransferMethod = "external"
)

// Transfer statuses
const (
	TransferStatusCompleted = "completed"
)

// CommissionRecord is the commission owed for one completed operation.
type CommissionRecord struct {
	ID              string     `gorm:"type:uuid;primaryKey" json:"id"`
	OperationID     string     `gorm:"type:uuid;not null;index" json:"operation_id"`
	AgentID         string     `gorm:"type:uuid;not null;index" json:"agent_id"`
	AgentCommission int64      `gorm:"not null" json:"agent_commission"`
	ChefCommission  int64      `gorm:"not null" json:"chef_commission"`
	TotalCommission int64      `gorm:"not null" json:"total_commission"`
	Status          string     `gorm:"not null;index" json:"status"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (r *CommissionRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = CommissionStatusPending
	}
	if r.TotalCommission == 0 {
		r.TotalCommission = r.AgentCommission + r.ChefCommission
	}
	return nil
}

// CommissionTransfer settles a commission record.
type CommissionTransfer struct {
	ID                 string         `gorm:"type:uuid;primaryKey" json:"id"`
	CommissionRecordID string         `gorm:"type:uuid;not null;index" json:"commission_record_id"`
	TransferType       TransferType   `gorm:"not null" json:"transfer_type"`
	RecipientID        string         `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Amount             int64          `gorm:"not null" json:"amount"`
	Method             TransferMethod `gorm:"not null" json:"transfer_method"`
	Data               JSON           `gorm:"type:jsonb" json:"transfer_data,omitempty"`
	ReferenceNumber    string         `gorm:"uniqueIndex;not null" json:"reference_number"`
	Status             string         `gorm:"not null" json:"status"`
	LedgerEntryID      *string        `gorm:"type:uuid" json:"ledger_entry_id,omitempty"`
	ProcessedBy        string         `gorm:"type:uuid;not null" json:"processed_by"`
	ProcessedAt        time.Time      `json:"processed_at"`
	CreatedAt          time.Time      `json:"created_at"`
}

func (t *CommissionTransfer) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
