// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

/*
Package authz is the single decision point for every mutating action on the
platform.

Each request is reduced to an (actor, action, target) triple and evaluated
against the role hierarchy and the lifecycle rules of the trust engine. The
outcome is either a permit (nil error) or a typed denial from the apperr
taxonomy. Lifecycle services mutate persisted state only after a permit.

Architecture:

  - Subject: minimal (id, role) projection of an account — the evaluator
    never sees full entities, so it can be tested exhaustively in isolation.
  - Decide: the composition point dispatching on [Action].
  - Require* helpers: the individual rules, exported so lifecycle services
    can also invoke them directly at their call sites.

# Asymmetry Rules

The hierarchy is deliberately asymmetric: an actor below OWNER can never act
on an account of equal or higher rank, while OWNER is exempt from every rank
check except self-targeting. This protects staff from each other and makes
privilege escalation require the owner's own key.
*/
package authz

import (
	"github.com/anvubui/mirava/internal/platform/apperr"
	"github.com/anvubui/mirava/internal/platform/sec"
)

// Subject is the (id, role) projection the evaluator operates on.
type Subject struct {
	ID   string
	Role sec.UserRole
}

// Action identifies a mutating operation gated by the evaluator.
type Action string

const (
	ActionBanAccount        Action = "account.ban"
	ActionUnbanAccount      Action = "account.unban"
	ActionChangeRole        Action = "account.change_role"
	ActionModerateContent   Action = "content.moderate"
	ActionEditContent       Action = "content.edit"
	ActionDeleteContent     Action = "content.delete"
	ActionResolveReport     Action = "report.resolve"
	ActionReviewBadge       Action = "badge.review"
)

// Request carries everything the evaluator needs for one decision.
//
// Only the fields relevant to the requested [Action] are consulted;
// the rest may be left zero.
type Request struct {
	Actor  Subject
	Action Action

	// TargetAccount is the acted-on account for account-scoped actions.
	TargetAccount Subject

	// NewRole is the requested role for [ActionChangeRole].
	NewRole sec.UserRole

	// ContentOwner is the uploader of the acted-on content record.
	ContentOwner Subject

	// ContentBanned reports whether the content is currently BANNED by staff.
	ContentBanned bool

	// ReversingContentBan reports whether a moderation change would lift a
	// BANNED status (requires elevated privilege).
	ReversingContentBan bool
}

// Decide evaluates a request and returns nil (permit) or a typed denial.
func Decide(request Request) error {
	switch request.Action {
	case ActionBanAccount:
		return RequireCanBan(request.Actor, request.TargetAccount)
	case ActionUnbanAccount:
		return RequireCanActOnAccount(request.Actor, request.TargetAccount)
	case ActionChangeRole:
		return RequireCanAssignRole(request.Actor, request.TargetAccount, request.NewRole)
	case ActionModerateContent:
		return RequireCanModerate(request.Actor, request.ContentOwner, request.ReversingContentBan)
	case ActionEditContent:
		return RequireCanEditContent(request.Actor, request.ContentOwner, request.ContentBanned)
	case ActionDeleteContent:
		return RequireCanDeleteContent(request.Actor, request.ContentOwner, request.ContentBanned)
	case ActionResolveReport:
		return RequireStaff(request.Actor)
	case ActionReviewBadge:
		return RequireBadgeReviewer(request.Actor)
	default:
		return apperr.InsufficientPrivilege("Unknown action")
	}
}

// # Account Rules

// RequireNotSelf denies administrative actions an actor aims at themselves.
func RequireNotSelf(actor, target Subject) error {
	if actor.ID == target.ID {
		return apperr.SelfActionDenied("You cannot perform this action on your own account")
	}
	return nil
}

// RequireCanActOnAccount enforces the asymmetric hierarchy rule:
//
//   - an OWNER-ranked target is untouchable by anyone but OWNER;
//   - below OWNER, an actor can only act on accounts of strictly lower rank.
func RequireCanActOnAccount(actor, target Subject) error {
	if target.Role == sec.RoleOwner && actor.Role != sec.RoleOwner {
		return apperr.InsufficientPrivilege("Cannot modify owner account")
	}
	if actor.Role != sec.RoleOwner && target.Role.Weight() >= actor.Role.Weight() {
		return apperr.InsufficientPrivilege("Cannot modify equal or higher role")
	}
	return nil
}

// RequireCanBan composes the self check with the hierarchy rule.
func RequireCanBan(actor, target Subject) error {
	if err := RequireNotSelf(actor, target); err != nil {
		return err
	}
	return RequireCanActOnAccount(actor, target)
}

// RequireCanAssignRole enforces the global role-mutation rules:
//
//   - only OWNER may grant the OWNER role;
//   - an ADMIN may assign any role strictly below OWNER;
//   - anyone below ADMIN may only assign roles strictly below their own rank;
//   - the target account itself must be actionable per [RequireCanActOnAccount].
func RequireCanAssignRole(actor, target Subject, newRole sec.UserRole) error {
	if newRole == sec.RoleOwner && actor.Role != sec.RoleOwner {
		return apperr.InsufficientPrivilege("Only owner can assign OWNER role")
	}

	if actor.Role != sec.RoleOwner && actor.Role != sec.RoleAdmin {
		if newRole.Weight() >= actor.Role.Weight() {
			return apperr.InsufficientPrivilege("Cannot assign a role at or above your own rank")
		}
	}

	return RequireCanActOnAccount(actor, target)
}

// # Staff Rules

// RequireStaff denies anyone below MODERATOR.
func RequireStaff(actor Subject) error {
	if !actor.Role.IsStaff() {
		return apperr.InsufficientPrivilege("Staff role required")
	}
	return nil
}

// RequireBadgeReviewer denies anyone below ADMIN.
func RequireBadgeReviewer(actor Subject) error {
	if !actor.Role.AtLeast(sec.RoleAdmin) {
		return apperr.InsufficientPrivilege("Admin role required")
	}
	return nil
}

// # Content Rules

// RequireCanModerate gates moderation-status changes on a content record.
//
// The ownership-protection rule is role-only: a MODERATOR can never act on
// content authored by an OWNER-ranked account, regardless of the content's
// current state. Lifting a BANNED status additionally requires ADMIN.
func RequireCanModerate(actor, contentOwner Subject, reversingBan bool) error {
	if err := RequireStaff(actor); err != nil {
		return err
	}

	if contentOwner.Role == sec.RoleOwner && actor.Role == sec.RoleModerator {
		return apperr.InsufficientPrivilege("Moderators cannot act on owner-authored content")
	}

	if reversingBan && !actor.Role.AtLeast(sec.RoleAdmin) {
		return apperr.InsufficientPrivilege("Only admins can lift a content ban")
	}

	return nil
}

// RequireCanEditContent gates metadata edits on a content record.
//
// The uploader may edit their own content unless it is currently BANNED by
// staff; staff edits follow the same ownership-protection rule as moderation.
func RequireCanEditContent(actor, contentOwner Subject, contentBanned bool) error {
	if actor.ID == contentOwner.ID && !contentBanned {
		return nil
	}
	return RequireCanModerate(actor, contentOwner, false)
}

// RequireCanDeleteContent gates deletion of a content record.
//
// Deletion mirrors edit, with one sharpening: once content is BANNED, its
// uploader cannot remove it — only staff can. This keeps banned material
// available as evidence until staff discards it.
func RequireCanDeleteContent(actor, contentOwner Subject, contentBanned bool) error {
	if actor.ID == contentOwner.ID && !contentBanned {
		return nil
	}
	return RequireCanModerate(actor, contentOwner, false)
}
