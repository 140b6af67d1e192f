// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

/*
Package ban implements the account ban lifecycle.

A ban is a sub-record on the account: a flag, an optional expiry, and a
staff-facing reason. Expiry is lazy. No scheduler ever flips the stored
flag; instead every enforcement point asks [IsEffective] at read time, so an
expired ban simply stops biting while its record stays visible to staff
until someone lifts it explicitly.

# Architecture

  - Predicates: IsEffective and AssertUploadAllowed, pure and clock-injected.
  - Service: Ban and Unban, authorized by the central evaluator and committed
    through the bounded optimistic-concurrency retry loop.
*/
package ban

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anvubui/mirava/internal/platform/apperr"
	"github.com/anvubui/mirava/internal/platform/docstore"
	"github.com/anvubui/mirava/internal/platform/sec"
	"github.com/anvubui/mirava/internal/trust/authz"
	"github.com/anvubui/mirava/internal/users/account"
)

// # Predicates

// IsEffective reports whether a stored ban actually bites at the given instant.
//
// A ban with a nil Until is permanent. A ban whose Until has passed is
// treated as inactive without mutating the stored record.
func IsEffective(state account.BanState, now time.Time) bool {
	if !state.IsBanned {
		return false
	}
	if state.Until == nil {
		return true
	}
	return state.Until.After(now)
}

// AssertUploadAllowed converts an effective ban into the client-facing
// BANNED denial carrying the reason and expiry.
func AssertUploadAllowed(state account.BanState, now time.Time) error {
	if IsEffective(state, now) {
		return apperr.Banned(state.Reason, state.Until)
	}
	return nil
}

// # Persistence Contract

// AccountStore is the narrow account view the ban service writes through.
//
// Implemented by the account Postgres repository.
type AccountStore interface {
	FindByID(context context.Context, id string) (*account.Account, error)
	UpdateIfVersion(context context.Context, account *account.Account) error
}

// # Service Layer

// Service executes ban and unban decisions against stored accounts.
type Service struct {
	accounts AccountStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a new ban [Service].
func NewService(accounts AccountStore, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		logger:   logger,
		now:      time.Now,
	}
}

/*
Ban places a ban on a target account on behalf of an actor.

Description: Runs the hierarchy decision inside the bounded retry loop
against a fresh read, so a concurrent promotion of the target is always
re-evaluated. Re-banning an already banned account overwrites the reason
and expiry.

Parameters:
  - ctx: context.Context
  - actor: sec.Actor (The acting staff account)
  - targetID: string
  - reason: string (Staff-facing justification, trimmed before storage)
  - durationMinutes: int (Positive for a timed ban, otherwise permanent)

Returns:
  - *account.Account: The updated target account
  - error: SELF_ACTION_DENIED, INSUFFICIENT_PRIVILEGE, CONFLICT after
    exhausted retries, or storage failures
*/
func (service *Service) Ban(ctx context.Context, actor sec.Actor, targetID, reason string, durationMinutes int) (*account.Account, error) {
	var until *time.Time
	if durationMinutes > 0 {
		expiry := service.now().Add(time.Duration(durationMinutes) * time.Minute)
		until = &expiry
	}

	var updated *account.Account

	err := docstore.WithRetry(ctx, func(ctx context.Context) error {

		// ── 1. Fresh Read ─────────────────────────────────────────────────
		target, err := service.accounts.FindByID(ctx, targetID)
		if err != nil {
			return err
		}

		// ── 2. Authorization ──────────────────────────────────────────────
		decision := authz.Decide(authz.Request{
			Actor:         authz.Subject{ID: actor.ID, Role: actor.Role},
			Action:        authz.ActionBanAccount,
			TargetAccount: authz.Subject{ID: target.ID, Role: target.Role},
		})
		if decision != nil {
			return decision
		}

		// ── 3. Conditional Write ──────────────────────────────────────────
		target.Ban = account.BanState{
			IsBanned: true,
			Until:    until,
			Reason:   strings.TrimSpace(reason),
		}

		if err := service.accounts.UpdateIfVersion(ctx, target); err != nil {
			return err
		}

		updated = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	service.logger.Warn("account_banned",
		slog.String("actor_id", actor.ID),
		slog.String("target_id", targetID),
		slog.String("reason", reason),
	)

	return updated, nil
}

/*
Unban lifts the ban on a target account on behalf of an actor.

Description: Clears the entire ban sub-record. Explicit lifting is the only
way the stored record goes away; expiry alone never rewrites it. Unbanning
an account whose stored ban already expired is valid housekeeping, not an
error.

Parameters:
  - ctx: context.Context
  - actor: sec.Actor (The acting staff account)
  - targetID: string

Returns:
  - *account.Account: The updated target account
  - error: INSUFFICIENT_PRIVILEGE, CONFLICT after exhausted retries, or
    storage failures
*/
func (service *Service) Unban(ctx context.Context, actor sec.Actor, targetID string) (*account.Account, error) {
	var updated *account.Account

	err := docstore.WithRetry(ctx, func(ctx context.Context) error {

		// ── 1. Fresh Read ─────────────────────────────────────────────────
		target, err := service.accounts.FindByID(ctx, targetID)
		if err != nil {
			return err
		}

		// ── 2. Authorization ──────────────────────────────────────────────
		decision := authz.Decide(authz.Request{
			Actor:         authz.Subject{ID: actor.ID, Role: actor.Role},
			Action:        authz.ActionUnbanAccount,
			TargetAccount: authz.Subject{ID: target.ID, Role: target.Role},
		})
		if decision != nil {
			return decision
		}

		// ── 3. Conditional Write ──────────────────────────────────────────
		target.Ban = account.BanState{}

		if err := service.accounts.UpdateIfVersion(ctx, target); err != nil {
			return err
		}

		updated = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	service.logger.Info("account_unbanned",
		slog.String("actor_id", actor.ID),
		slog.String("target_id", targetID),
	)

	return updated, nil
}

/*
AssertCanUpload checks whether an account is currently allowed to publish
content.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - error: BANNED with reason and expiry when an effective ban exists
*/
func (service *Service) AssertCanUpload(context context.Context, accountID string) error {
	target, err := service.accounts.FindByID(context, accountID)
	if err != nil {
		return fmt.Errorf("ban_service_upload_check_failed: %w", err)
	}
	return AssertUploadAllowed(target.Ban, service.now())
}
