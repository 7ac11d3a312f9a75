package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerKind is the business reason for a balance change.
type LedgerKind string

const (
	LedgerKindRecharge         LedgerKind = "recharge"
	LedgerKindCommissionCredit LedgerKind = "commission_credit"
	LedgerKindOperationCredit  LedgerKind = "operation_credit"
	LedgerKindOperationDebit   LedgerKind = "operation_debit"
	LedgerKindAdjustment       LedgerKind = "adjustment"
)

// Valid reports whether k is one of the known kinds.
func (k LedgerKind) Valid() bool {
	switch k {
	case LedgerKindRecharge, LedgerKindCommissionCredit, LedgerKindOperationCredit,
		LedgerKindOperationDebit, LedgerKindAdjustment:
		return true
	}
	return false
}

// LedgerEntry is an immutable record of one balance change. Sequence is the
// account version after the change, so entries of one account form a gapless
// chain starting at 1.
type LedgerEntry struct {
	ID            string     `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID     string     `gorm:"type:uuid;not null;uniqueIndex:idx_ledger_account_seq,priority:1" json:"account_id"`
	Sequence      int64      `gorm:"not null;uniqueIndex:idx_ledger_account_seq,priority:2" json:"sequence"`
	Kind          LedgerKind `gorm:"not null" json:"transaction_kind"`
	Delta         int64      `gorm:"not null" json:"delta"`
	BalanceBefore int64      `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64      `gorm:"not null" json:"balance_after"`
	Description   string     `json:"description"`
	OperationID   *string    `gorm:"index" json:"operation_id,omitempty"`
	Metadata      JSON       `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
