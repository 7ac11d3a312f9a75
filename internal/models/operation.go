package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Operation statuses
const (
	OperationStatusPending   = "pending"
	OperationStatusCompleted = "completed"
	OperationStatusRejected  = "rejected"
)

// Validation decisions
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// Operation is a requested financial action awaiting validation.
type Operation struct {
	ID               string     `gorm:"type:uuid;primaryKey" json:"id"`
	ReferenceNumber  string     `gorm:"uniqueIndex;not null" json:"reference_number"`
	OperationType    string     `json:"operation_type"`
	InitiatorID      string     `gorm:"type:uuid;not null;index" json:"initiator_id"`
	Amount           int64      `gorm:"not null" json:"amount"`
	Status           string     `gorm:"not null;index" json:"status"`
	CommissionAmount int64      `gorm:"not null" json:"commission_amount"`
	ValidatedBy      *string    `gorm:"type:uuid" json:"validated_by,omitempty"`
	ValidatedAt      *time.Time `json:"validated_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (o *Operation) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = OperationStatusPending
	}
	return nil
}

// IsTerminal reports whether the operation can no longer be validated.
func (o *Operation) IsTerminal() bool {
	return o.Status != OperationStatusPending
}

// OperationValidation is the decision that finalized one operation.
type OperationValidation struct {
	ID                 string    `gorm:"type:uuid;primaryKey" json:"id"`
	OperationID        string    `gorm:"type:uuid;uniqueIndex;not null" json:"operation_id"`
	ValidatorID        string    `gorm:"type:uuid;not null" json:"validator_id"`
	Decision           string    `gorm:"not null" json:"validation_status"`
	Notes              string    `json:"validation_notes"`
	BalanceImpact      int64     `gorm:"not null" json:"balance_impact"`
	CommissionComputed int64     `gorm:"not null" json:"commission_calculated"`
	LedgerEntryID      *string   `gorm:"type:uuid" json:"ledger_entry_id,omitempty"`
	ValidatedAt        time.Time `json:"validated_at"`
}

func (v *OperationValidation) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
