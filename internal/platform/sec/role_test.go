// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvubui/mirava/internal/platform/sec"
)

/*
TestRole_WeightIsStrictlyIncreasing ensures the hierarchy order is total and strict.
*/
func TestRole_WeightIsStrictlyIncreasing(t *testing.T) {
	require.Len(t, sec.Ranks, 5)

	for i := 1; i < len(sec.Ranks); i++ {
		lower := sec.Ranks[i-1]
		higher := sec.Ranks[i]
		assert.Greater(t, higher.Weight(), lower.Weight(),
			"%s must outrank %s", higher, lower)
	}
}

/*
TestRole_AtLeast checks boundary comparisons across the hierarchy.
*/
func TestRole_AtLeast(t *testing.T) {
	tests := []struct {
		name   string
		role   sec.UserRole
		target sec.UserRole
		want   bool
	}{
		{"owner_at_least_admin", sec.RoleOwner, sec.RoleAdmin, true},
		{"admin_not_at_least_owner", sec.RoleAdmin, sec.RoleOwner, false},
		{"moderator_at_least_self", sec.RoleModerator, sec.RoleModerator, true},
		{"user_not_at_least_verified", sec.RoleUser, sec.RoleVerified, false},
		{"unknown_below_user", sec.UserRole("GHOST"), sec.RoleUser, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.AtLeast(tt.target))
		})
	}
}

/*
TestRole_IsStaff verifies the MODERATOR+ staff boundary.
*/
func TestRole_IsStaff(t *testing.T) {
	assert.False(t, sec.RoleUser.IsStaff())
	assert.False(t, sec.RoleVerified.IsStaff())
	assert.True(t, sec.RoleModerator.IsStaff())
	assert.True(t, sec.RoleAdmin.IsStaff())
	assert.True(t, sec.RoleOwner.IsStaff())
}

/*
TestParseRole rejects anything outside the fixed enumeration.
*/
func TestParseRole(t *testing.T) {
	role, ok := sec.ParseRole("ADMIN")
	require.True(t, ok)
	assert.Equal(t, sec.RoleAdmin, role)

	_, ok = sec.ParseRole("admin")
	assert.False(t, ok, "roles are case-sensitive upper-case identifiers")

	_, ok = sec.ParseRole("SUPERUSER")
	assert.False(t, ok)
}
