package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ticket types
const (
	TicketTypeRecharge = "recharge"
	TicketTypeSupport  = "support"
	TicketTypeOther    = "other"
)

// Ticket statuses
const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in_progress"
	TicketStatusResolved   = "resolved"
	TicketStatusClosed     = "closed"
)

// RequestTicket is a request raised by a user, e.g. for a recharge.
type RequestTicket struct {
	ID              string     `gorm:"type:uuid;primaryKey" json:"id"`
	RequesterID     string     `gorm:"type:uuid;not null;index" json:"requester_id"`
	TicketType      string     `gorm:"not null" json:"ticket_type"`
	Status          string     `gorm:"not null;index" json:"status"`
	RequestedAmount int64      `json:"requested_amount"`
	ResolutionNotes string     `json:"resolution_notes"`
	ResolvedBy      *string    `gorm:"type:uuid" json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (t *RequestTicket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TicketStatusOpen
	}
	return nil
}

// IsTerminal reports whether the ticket's lifecycle has ended.
func (t *RequestTicket) IsTerminal() bool {
	return t.Status == TicketStatusResolved || t.Status == TicketStatusClosed
}
