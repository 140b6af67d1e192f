// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

/*
Package moderation implements the content visibility state machine.

Every content record carries a moderation sub-record whose status drives what
readers can see. The machine is:

	ACTIVE ⇄ HIDDEN, ACTIVE|HIDDEN → BANNED, BANNED → ACTIVE (ADMIN or higher)

BANNED is terminal in practice: only an ADMIN-or-higher actor may lift it,
and it cannot be downgraded to HIDDEN. Readers below MODERATOR only ever see
ACTIVE content; staff see everything.

# Architecture

  - State: the embedded moderation sub-record.
  - Pure rules: CanTransition and VisibleTo, used by read paths and tests.
  - Service: SetStatus, authorized by the central evaluator and committed
    through the bounded optimistic-concurrency retry loop against the
    content store's moderation view.
*/
package moderation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/anvubui/mirava/internal/platform/apperr"
	"github.com/anvubui/mirava/internal/platform/docstore"
	"github.com/anvubui/mirava/internal/platform/sec"
	"github.com/anvubui/mirava/internal/trust/authz"
	"github.com/anvubui/mirava/internal/users/account"
)

// # Domain Types

// Status enumerates the moderation visibility states.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusHidden Status = "HIDDEN"
	StatusBanned Status = "BANNED"
)

// Statuses lists every valid moderation status for input validation.
var Statuses = []string{string(StatusActive), string(StatusHidden), string(StatusBanned)}

// State is the moderation sub-record embedded in every content record.
//
// Invariant: StatusActive implies an empty Reason.
type State struct {
	Status      Status     `json:"status"`
	Reason      string     `json:"reason,omitempty"`
	ByAccountID *string    `json:"by_account_id,omitempty"` // staff member who last acted
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// # Pure Rules

// CanTransition reports whether the machine permits moving between two states.
//
// Re-asserting the current status is permitted so staff can overwrite the
// reason without a status change. The only exit from BANNED is ACTIVE.
func CanTransition(current, next Status) bool {
	if current == next {
		return true
	}
	if current == StatusBanned {
		return next == StatusActive
	}
	// ACTIVE and HIDDEN move freely among themselves and into BANNED.
	return next == StatusActive || next == StatusHidden || next == StatusBanned
}

// VisibleTo reports whether content in the given status may be shown to an
// actor with the given role. Anonymous readers pass the zero role.
func VisibleTo(status Status, role sec.UserRole) bool {
	if status == StatusActive {
		return true
	}
	return role.IsStaff()
}

// # Persistence Contracts

// ContentView is the narrow moderation projection of a content record.
type ContentView struct {
	ID         string
	UploaderID string
	State      State
	Version    int64
}

// ContentStore is the content view the moderation service writes through.
//
// Implemented by the content Postgres repository.
type ContentStore interface {
	/*
		FindForModeration loads the moderation projection of a content record.

		Parameters:
		  - context: context.Context
		  - contentID: string

		Returns:
		  - *ContentView: Current state and version
		  - error: apperr.NotFound or storage failures
	*/
	FindForModeration(context context.Context, contentID string) (*ContentView, error)

	/*
		UpdateModerationIfVersion overwrites the moderation sub-record guarded
		by the record's version counter.

		Parameters:
		  - context: context.Context
		  - contentID: string
		  - version: int64 (Expected current value)
		  - state: State

		Returns:
		  - error: docstore.ErrVersionConflict on a lost race, otherwise
		    storage failures
	*/
	UpdateModerationIfVersion(context context.Context, contentID string, version int64, state State) error
}

// AccountDirectory resolves the uploader's account for the
// ownership-protection rule.
type AccountDirectory interface {
	FindByID(context context.Context, id string) (*account.Account, error)
}

// # Service Layer

// Service executes moderation-status changes on content records.
type Service struct {
	contents ContentStore
	accounts AccountDirectory
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a new moderation [Service].
func NewService(contents ContentStore, accounts AccountDirectory, logger *slog.Logger) *Service {
	return &Service{
		contents: contents,
		accounts: accounts,
		logger:   logger,
		now:      time.Now,
	}
}

/*
SetStatus moves a content record to a new moderation status on behalf of an
actor.

Description: Authorization and the transition check both run inside the
bounded retry loop against a fresh read, so two staff members racing over
the same record always re-evaluate against the winner's committed state.
On success the whole sub-record is overwritten: reason (cleared when the
new status is ACTIVE), acting staff reference, and timestamp.

Parameters:
  - ctx: context.Context
  - actor: sec.Actor (The acting staff account)
  - contentID: string
  - newStatus: Status (Already vetted as a known status)
  - reason: string (Staff-facing justification, trimmed before storage)

Returns:
  - *State: The committed moderation sub-record
  - error: INSUFFICIENT_PRIVILEGE, VALIDATION_ERROR on a forbidden
    transition, CONFLICT after exhausted retries, or storage failures
*/
func (service *Service) SetStatus(ctx context.Context, actor sec.Actor, contentID string, newStatus Status, reason string) (*State, error) {
	var committed *State

	err := docstore.WithRetry(ctx, func(ctx context.Context) error {

		// ── 1. Fresh Read ─────────────────────────────────────────────────
		view, err := service.contents.FindForModeration(ctx, contentID)
		if err != nil {
			return err
		}

		owner, err := service.accounts.FindByID(ctx, view.UploaderID)
		if err != nil {
			return err
		}

		// ── 2. Transition Check ───────────────────────────────────────────
		if !CanTransition(view.State.Status, newStatus) {
			return apperr.ValidationError("Invalid moderation transition")
		}

		// ── 3. Authorization ──────────────────────────────────────────────
		reversingBan := view.State.Status == StatusBanned && newStatus == StatusActive

		decision := authz.Decide(authz.Request{
			Actor:               authz.Subject{ID: actor.ID, Role: actor.Role},
			Action:              authz.ActionModerateContent,
			ContentOwner:        authz.Subject{ID: owner.ID, Role: owner.Role},
			ReversingContentBan: reversingBan,
		})
		if decision != nil {
			return decision
		}

		// ── 4. Conditional Write ──────────────────────────────────────────
		updatedAt := service.now()
		staffID := actor.ID

		next := State{
			Status:      newStatus,
			ByAccountID: &staffID,
			UpdatedAt:   &updatedAt,
		}
		if newStatus != StatusActive {
			next.Reason = strings.TrimSpace(reason)
		}

		if err := service.contents.UpdateModerationIfVersion(ctx, contentID, view.Version, next); err != nil {
			return err
		}

		committed = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	service.logger.Warn("content_moderation_changed",
		slog.String("actor_id", actor.ID),
		slog.String("content_id", contentID),
		slog.String("new_status", string(newStatus)),
	)

	return committed, nil
}
