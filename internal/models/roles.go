package models

import "fmt"

// Role is the closed set of profile roles.
type Role string

const (
	RoleAgent        Role = "agent"
	RoleChefAgence   Role = "chef_agence"
	RoleSousAdmin    Role = "sous_admin"
	RoleAdminGeneral Role = "admin_general"
	RoleDeveloper    Role = "developer"
)

// Capabilities lists what a role may do in the money-moving paths.
type Capabilities struct {
	CanTransferSelf   bool // claim agent_payment for own commissions
	CanTransferAgency bool // claim chef_payment for own agency's commissions
	CanTransferAny    bool
	CanValidate       bool
	CanRechargeSelf   bool
	CanRechargeAny    bool
	CanAdjust         bool
}

var capabilityTable = map[Role]Capabilities{
	RoleAgent: {
		CanTransferSelf: true,
		CanRechargeSelf: true,
	},
	RoleChefAgence: {
		CanTransferAgency: true,
		CanRechargeSelf:   true,
	},
	RoleSousAdmin: {
		CanTransferAny: true,
		CanValidate:    true,
		CanRechargeAny: true,
	},
	RoleAdminGeneral: {
		CanTransferAny: true,
		CanValidate:    true,
		CanRechargeAny: true,
		CanAdjust:      true,
	},
	RoleDeveloper: {},
}

// ParseRole converts a stored role name into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := capabilityTable[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Capabilities returns the capability row for r. Unknown roles get none.
func (r Role) Capabilities() Capabilities {
	return capabilityTable[r]
}

// IsAdminTier reports whether r is sous_admin or admin_general.
func (r Role) IsAdminTier() bool {
	return r == RoleSousAdmin || r == RoleAdminGeneral
}
