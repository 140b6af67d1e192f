// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

/*
Package badge implements the creator-badge application workflow.

The badge marks elevated-trust creators. Its state machine is
NONE → PENDING → {APPROVED, REJECTED}; an applicant may re-apply from any
state except PENDING, where a second application is refused instead of
silently replacing the one under review.

# Architecture

  - Service: Apply (applicant side) and Approve/Reject (reviewer side),
    authorized by the central evaluator and committed through the bounded
    optimistic-concurrency retry loop.
*/
package badge

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

// AccountStore is the narrow account view the badge service writes through.
//
// Implemented by the account Postgres repository.
type AccountStore interface {
	FindByID(context context.Context, id string) (*account.Account, error)
	UpdateIfVersion(context context.Context, account *account.Account) error
}

// # Service Layer

// Service executes badge applications and reviews against stored accounts.
type Service struct {
	accounts AccountStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a new badge [Service].
func NewService(accounts AccountStore, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		logger:   logger,
		now:      time.Now,
	}
}

/*
Apply files a creator-badge application for the acting account.

Description: Re-applying from NONE, APPROVED, or REJECTED starts a fresh
application and wipes the previous review trail; applying while one is
already PENDING is refused.

Parameters:
  - ctx: context.Context
  - applicantID: string
  - message: string (Applicant's pitch, trimmed before storage)

Returns:
  - *account.CreatorBadgeState: The new pending application
  - error: ALREADY_PENDING, CONFLICT after exhausted retries, or storage
    failures
*/
func (service *Service) Apply(ctx context.Context, applicantID, message string) (*account.CreatorBadgeState, error) {
	var state *account.CreatorBadgeState

	err := docstore.WithRetry(ctx, func(ctx context.Context) error {

		// ── 1. Fresh Read ─────────────────────────────────────────────────
		applicant, err := service.accounts.FindByID(ctx, applicantID)
		if err != nil {
			return err
		}

		// ── 2. State Check ────────────────────────────────────────────────
		if applicant.Badge.Status == account.BadgePending {
			return apperr.AlreadyPending("A creator application is already under review")
		}

		// ── 3. Conditional Write ──────────────────────────────────────────
		appliedAt := service.now()
		applicant.Badge = account.CreatorBadgeState{
			Status:    account.BadgePending,
			Message:   strings.TrimSpace(message),
			AppliedAt: &appliedAt,
		}

		if err := service.accounts.UpdateIfVersion(ctx, applicant); err != nil {
			return err
		}

		state = &applicant.Badge
		return nil
	})
	if err != nil {
		return nil, err
	}

	service.logger.Info("creator_badge_applied", slog.String("account_id", applicantID))

	return state, nil
}

/*
Approve grants the creator badge on a pending application.

Parameters:
  - context: context.Context
  - actor: sec.Actor (Reviewing staff account, ADMIN or higher)
  - applicantID: string

Returns:
  - *account.CreatorBadgeState: The approved state
  - error: INSUFFICIENT_PRIVILEGE, VALIDATION_ERROR when nothing is pending,
    CONFLICT after exhausted retries, or storage failures
*/
func (service *Service) Approve(context context.Context, actor sec.Actor, applicantID string) (*account.CreatorBadgeState, error) {
	state, err := service.review(context, actor, applicantID, account.BadgeApproved, "")
	if err != nil {
		return nil, err
	}

	service.logger.Info("creator_badge_approved",
		slog.String("actor_id", actor.ID),
		slog.String("applicant_id", applicantID),
	)

	return state, nil
}

/*
Reject declines a pending application, keeping the reviewer's note.

Parameters:
  - context: context.Context
  - actor: sec.Actor (Reviewing staff account, ADMIN or higher)
  - applicantID: string
  - note: string (Reviewer's note, may be empty)

Returns:
  - *account.CreatorBadgeState: The rejected state
  - error: INSUFFICIENT_PRIVILEGE, VALIDATION_ERROR when nothing is pending,
    CONFLICT after exhausted retries, or storage failures
*/
func (service *Service) Reject(context context.Context, actor sec.Actor, applicantID, note string) (*account.CreatorBadgeState, error) {
	state, err := service.review(context, actor, applicantID, account.BadgeRejected, strings.TrimSpace(note))
	if err != nil {
		return nil, err
	}

	service.logger.Info("creator_badge_rejected",
		slog.String("actor_id", actor.ID),
		slog.String("applicant_id", applicantID),
	)

	return state, nil
}

// review is the shared approve/reject transition out of PENDING.
func (service *Service) review(ctx context.Context, actor sec.Actor, applicantID string, verdict account.BadgeStatus, note string) (*account.CreatorBadgeState, error) {
	var state *account.CreatorBadgeState

	err := docstore.WithRetry(ctx, func(ctx context.Context) error {

		// ── 1. Authorization ──────────────────────────────────────────────
		decision := authz.Decide(authz.Request{
			Actor:  authz.Subject{ID: actor.ID, Role: actor.Role},
			Action: authz.ActionReviewBadge,
		})
		if decision != nil {
			return decision
		}

		// ── 2. Fresh Read & State Check ───────────────────────────────────
		applicant, err := service.accounts.FindByID(ctx, applicantID)
		if err != nil {
			return err
		}

		if applicant.Badge.Status != account.BadgePending {
			return apperr.ValidationError("No pending creator application to review")
		}

		// ── 3. Conditional Write ──────────────────────────────────────────
		reviewedAt := service.now()
		reviewer := actor.ID

		applicant.Badge.Status = verdict
		applicant.Badge.Note = note
		applicant.Badge.ReviewedAt = &reviewedAt
		applicant.Badge.ReviewedBy = &reviewer

		if err := service.accounts.UpdateIfVersion(ctx, applicant); err != nil {
			return err
		}

		state = &applicant.Badge
		return nil
	})
	if err != nil {
		return nil, err
	}

	return state, nil
}
