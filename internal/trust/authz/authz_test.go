// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvubui/mirava/internal/platform/apperr"
	"github.com/anvubui/mirava/internal/platform/sec"
)

func subject(id string, role sec.UserRole) Subject {
	return Subject{ID: id, Role: role}
}

func assertDenied(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, code), "expected code %s, got %v", code, err)
}

func TestRequireNotSelf(t *testing.T) {
	actor := subject("a1", sec.RoleAdmin)

	assertDenied(t, RequireNotSelf(actor, actor), "SELF_ACTION_DENIED")
	assert.NoError(t, RequireNotSelf(actor, subject("a2", sec.RoleUser)))
}

func TestRequireCanActOnAccount(t *testing.T) {
	tests := []struct {
		name    string
		actor   sec.UserRole
		target  sec.UserRole
		allowed bool
	}{
		{"moderator on user", sec.RoleModerator, sec.RoleUser, true},
		{"moderator on verified", sec.RoleModerator, sec.RoleVerified, true},
		{"moderator on moderator", sec.RoleModerator, sec.RoleModerator, false},
		{"moderator on admin", sec.RoleModerator, sec.RoleAdmin, false},
		{"admin on moderator", sec.RoleAdmin, sec.RoleModerator, true},
		{"admin on admin", sec.RoleAdmin, sec.RoleAdmin, false},
		{"admin on owner", sec.RoleAdmin, sec.RoleOwner, false},
		{"owner on admin", sec.RoleOwner, sec.RoleAdmin, true},
		{"owner on owner", sec.RoleOwner, sec.RoleOwner, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireCanActOnAccount(subject("a1", tt.actor), subject("a2", tt.target))
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assertDenied(t, err, "INSUFFICIENT_PRIVILEGE")
			}
		})
	}
}

func TestRequireCanBan_SelfCheckRunsFirst(t *testing.T) {
	// Even an owner cannot ban themselves.
	owner := subject("a1", sec.RoleOwner)
	assertDenied(t, RequireCanBan(owner, owner), "SELF_ACTION_DENIED")
}

func TestRequireCanAssignRole(t *testing.T) {
	tests := []struct {
		name    string
		actor   sec.UserRole
		target  sec.UserRole
		newRole sec.UserRole
		allowed bool
	}{
		{"owner grants owner", sec.RoleOwner, sec.RoleUser, sec.RoleOwner, true},
		{"admin grants owner", sec.RoleAdmin, sec.RoleUser, sec.RoleOwner, false},
		{"admin grants admin", sec.RoleAdmin, sec.RoleUser, sec.RoleAdmin, true},
		{"admin grants moderator", sec.RoleAdmin, sec.RoleVerified, sec.RoleModerator, true},
		{"admin demotes admin target", sec.RoleAdmin, sec.RoleAdmin, sec.RoleUser, false},
		{"moderator grants moderator", sec.RoleModerator, sec.RoleUser, sec.RoleModerator, false},
		{"moderator grants verified", sec.RoleModerator, sec.RoleUser, sec.RoleVerified, true},
		{"owner demotes admin", sec.RoleOwner, sec.RoleAdmin, sec.RoleUser, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireCanAssignRole(subject("a1", tt.actor), subject("a2", tt.target), tt.newRole)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assertDenied(t, err, "INSUFFICIENT_PRIVILEGE")
			}
		})
	}
}

func TestRequireCanModerate(t *testing.T) {
	t.Run("non staff denied", func(t *testing.T) {
		err := RequireCanModerate(subject("a1", sec.RoleVerified), subject("a2", sec.RoleUser), false)
		assertDenied(t, err, "INSUFFICIENT_PRIVILEGE")
	})

	t.Run("moderator on owner content denied", func(t *testing.T) {
		err := RequireCanModerate(subject("a1", sec.RoleModerator), subject("a2", sec.RoleOwner), false)
		assertDenied(t, err, "INSUFFICIENT_PRIVILEGE")
	})

	t.Run("admin on owner content allowed", func(t *testing.T) {
		err := RequireCanModerate(subject("a1", sec.RoleAdmin), subject("a2", sec.RoleOwner), false)
		assert.NoError(t, err)
	})

	t.Run("moderator cannot lift content ban", func(t *testing.T) {
		err := RequireCanModerate(subject("a1", sec.RoleModerator), subject("a2", sec.RoleUser), true)
		assertDenied(t, err, "INSUFFICIENT_PRIVILEGE")
	})

	t.Run("admin lifts content ban", func(t *testing.T) {
		err := RequireCanModerate(subject("a1", sec.RoleAdmin), subject("a2", sec.RoleUser), true)
		assert.NoError(t, err)
	})
}

func TestRequireCanEditContent(t *testing.T) {
	uploader := subject("u1", sec.RoleUser)

	t.Run("uploader edits own active content", func(t *testing.T) {
		assert.NoError(t, RequireCanEditContent(uploader, uploader, false))
	})

	t.Run("uploader cannot edit own banned content", func(t *testing.T) {
		assertDenied(t, RequireCanEditContent(uploader, uploader, true), "INSUFFICIENT_PRIVILEGE")
	})

	t.Run("stranger cannot edit", func(t *testing.T) {
		stranger := subject("u2", sec.RoleVerified)
		assertDenied(t, RequireCanEditContent(stranger, uploader, false), "INSUFFICIENT_PRIVILEGE")
	})

	t.Run("moderator edits user content", func(t *testing.T) {
		moderator := subject("m1", sec.RoleModerator)
		assert.NoError(t, RequireCanEditContent(moderator, uploader, false))
	})
}

func TestRequireCanDeleteContent(t *testing.T) {
	uploader := subject("u1", sec.RoleUser)

	t.Run("uploader deletes own active content", func(t *testing.T) {
		assert.NoError(t, RequireCanDeleteContent(uploader, uploader, false))
	})

	t.Run("uploader cannot delete own banned content", func(t *testing.T) {
		assertDenied(t, RequireCanDeleteContent(uploader, uploader, true), "INSUFFICIENT_PRIVILEGE")
	})

	t.Run("moderator deletes banned content", func(t *testing.T) {
		moderator := subject("m1", sec.RoleModerator)
		assert.NoError(t, RequireCanDeleteContent(moderator, uploader, true))
	})
}

func TestDecide_Dispatch(t *testing.T) {
	admin := subject("a1", sec.RoleAdmin)
	user := subject("u1", sec.RoleUser)

	t.Run("ban account", func(t *testing.T) {
		err := Decide(Request{Actor: admin, Action: ActionBanAccount, TargetAccount: user})
		assert.NoError(t, err)
	})

	t.Run("resolve report requires staff", func(t *testing.T) {
		err := Decide(Request{Actor: user, Action: ActionResolveReport})
		assertDenied(t, err, "INSUFFICIENT_PRIVILEGE")
	})

	t.Run("review badge requires admin", func(t *testing.T) {
		moderator := subject("m1", sec.RoleModerator)
		err := Decide(Request{Actor: moderator, Action: ActionReviewBadge})
		assertDenied(t, err, "INSUFFICIENT_PRIVILEGE")

		err = Decide(Request{Actor: admin, Action: ActionReviewBadge})
		assert.NoError(t, err)
	})

	t.Run("unknown action denied", func(t *testing.T) {
		err := Decide(Request{Actor: admin, Action: Action("nope")})
		assertDenied(t, err, "INSUFFICIENT_PRIVILEGE")
	})
}
