package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recharge methods
const (
	RechargeMethodCash         = "cash"
	RechargeMethodMobileMoney  = "mobile_money"
	RechargeMethodBankTransfer = "bank_transfer"
	RechargeMethodCard         = "card"
)

// Recharge statuses
const (
	RechargeStatusCompleted = "completed"
)

// ValidRechargeMethod reports whether m is an accepted recharge method.
func ValidRechargeMethod(m string) bool {
	switch m {
	case RechargeMethodCash, RechargeMethodMobileMoney, RechargeMethodBankTransfer, RechargeMethodCard:
		return true
	}
	return false
}

// RechargeOperation records the credit that resolved a recharge ticket.
type RechargeOperation struct {
	ID              string    `gorm:"type:uuid;primaryKey" json:"id"`
	TicketID        string    `gorm:"type:uuid;uniqueIndex;not null" json:"ticket_id"`
	AgentID         string    `gorm:"type:uuid;not null;index" json:"agent_id"`
	Amount          int64     `gorm:"not null" json:"amount"`
	Method          string    `gorm:"not null" json:"recharge_method"`
	BalanceBefore   int64     `gorm:"not null" json:"balance_before"`
	BalanceAfter    int64     `gorm:"not null" json:"balance_after"`
	Status          string    `gorm:"not null" json:"status"`
	ReferenceNumber string    `gorm:"uniqueIndex;not null" json:"reference_number"`
	LedgerEntryID   string    `gorm:"type:uuid;not null" json:"ledger_entry_id"`
	Metadata        JSON      `gorm:"type:jsonb" json:"metadata,omitempty"`
	ProcessedBy     string    `gorm:"type:uuid;not null" json:"processed_by"`
	ProcessedAt     time.Time `json:"processed_at"`
	CreatedAt       time.Time `json:"created_at"`
}

func (r *RechargeOperation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
