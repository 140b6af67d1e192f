// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	// Full control, including OWNER-role grants and owner-account actions
	RoleOwner UserRole = "OWNER"

	// Unrestricted administration below ownership transfer
	RoleAdmin UserRole = "ADMIN"

	// Can manage community content and moderate reports
	RoleModerator UserRole = "MODERATOR"

	// Trusted member with a verified identity
	RoleVerified UserRole = "VERIFIED"

	// Default role for standard registered users
	RoleUser UserRole = "USER"
)

// # Role Hierarchy

// Ranks lists every role from lowest to highest privilege.
//
// The ordering is fixed at compile time; every privilege comparison in the
// system funnels through [UserRole.Weight] so the hierarchy lives in exactly
// one place.
var Ranks = []UserRole{RoleUser, RoleVerified, RoleModerator, RoleAdmin, RoleOwner}

// Weight maps a role to its numeric hierarchy level for comparison logic.
//
// Unknown roles map to -1, which ranks below every real role.
func (r UserRole) Weight() int {

	// Linear scale (10-50) allows for future intermediate roles
	switch r {
	case RoleOwner:
		return 50
	case RoleAdmin:
		return 40
	case RoleModerator:
		return 30
	case RoleVerified:
		return 20
	case RoleUser:
		return 10
	default:
		return -1
	}
}

// AtLeast checks if the current role meets or exceeds the required target role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.Weight() >= target.Weight()
}

// Outranks reports whether r is strictly above the other role.
func (r UserRole) Outranks(other UserRole) bool {
	return r.Weight() > other.Weight()
}

// IsStaff reports whether the role is MODERATOR or higher.
func (r UserRole) IsStaff() bool {
	return r.AtLeast(RoleModerator)
}

// IsValid reports whether the role is one of the five known ranks.
func (r UserRole) IsValid() bool {
	return r.Weight() >= 0
}

// ParseRole converts a raw string into a [UserRole].
//
// The second return value is false for anything outside the fixed enumeration.
func ParseRole(raw string) (UserRole, bool) {
	role := UserRole(raw)
	return role, role.IsValid()
}
