package domain

import (
	"slices"
	"time"
)

// Role is the closed set of identities a console user can hold.
type Role string

const (
	RoleOwner      Role = "OWNER"
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleAccountant Role = "ACCOUNTANT"
	RoleRoaster    Role = "ROASTER"
)

// DefaultCurrency is applied when a credential carries no currency claim.
const DefaultCurrency = "USD"

// Role tiers. OWNER and SUPERADMIN inherit every lower-tier capability.
var (
	AllRoles        = []Role{RoleOwner, RoleSuperAdmin, RoleAccountant, RoleRoaster}
	AdminRoles      = []Role{RoleOwner, RoleSuperAdmin}
	AccountantRoles = []Role{RoleAccountant, RoleOwner, RoleSuperAdmin}
	RoasterRoles    = []Role{RoleRoaster, RoleOwner, RoleSuperAdmin}
)

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleSuperAdmin, RoleAccountant, RoleRoaster:
		return true
	}
	return false
}

// User is the application-facing identity of the signed-in actor.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	TenantID  string    `json:"tenant_id"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasRole reports whether the user's role is one of roles. A nil user has no role.
func (u *User) HasRole(roles ...Role) bool {
	if u == nil {
		return false
	}
	return slices.Contains(roles, u.Role)
}

// Clone returns a copy safe to hand to another goroutine.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
