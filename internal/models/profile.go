package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is a user's account: identity-provider id, role, agency and the
// balance. Balance and Version are written only by the ledger service.
type Profile struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `gorm:"index" json:"email"`
	RoleName  string    `gorm:"not null" json:"role_name"`
	AgencyID  *string   `gorm:"type:uuid;index" json:"agency_id,omitempty"`
	Balance   int64     `gorm:"not null" json:"balance"`
	Version   int64     `gorm:"not null" json:"version"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	// Funding always goes through the ledger so replay from zero holds.
	p.Balance = 0
	p.Version = 0
	return nil
}

// Role returns the parsed role; an unknown name yields an error.
func (p *Profile) Role() (Role, error) {
	return ParseRole(p.RoleName)
}

// SameAgency reports whether both profiles belong to the same non-empty agency.
func (p *Profile) SameAgency(other *Profile) bool {
	if p == nil || other == nil || p.AgencyID == nil || other.AgencyID == nil {
		return false
	}
	return *p.AgencyID == *other.AgencyID
}

// Agency groups agents under one chef.
type Agency struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	ChefID    *string   `gorm:"type:uuid" json:"chef_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Agency) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
