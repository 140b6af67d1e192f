// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anvubui/mirava/internal/platform/apperr"
	"github.com/anvubui/mirava/internal/platform/docstore"
	"github.com/anvubui/mirava/internal/platform/sec"
	"github.com/anvubui/mirava/internal/trust/authz"
	"github.com/anvubui/mirava/pkg/pagination"
	"github.com/anvubui/mirava/pkg/uuidv7"
)

// # Service Layer

// Service orchestrates account provisioning, actor resolution, role
// management, and the personal library features.
type Service struct {
	accounts Repository
	library  LibraryRepository
	catalog  ContentCatalog
	logger   *slog.Logger
}

// NewService constructs a new [Service] with its repository dependencies.
func NewService(accounts Repository, library LibraryRepository, catalog ContentCatalog, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		library:  library,
		catalog:  catalog,
		logger:   logger,
	}
}

// # Identity Sync

/*
SyncIdentity provisions or refreshes the platform account behind a verified
identity.

Description: Called by the client right after sign-in at the identity
provider. First sync creates the account with the default USER role and a
clean trust state; later syncs mirror the identity fields (username, email,
avatar) without touching role, ban, or badge state.

Parameters:
  - context: context.Context
  - claims: *sec.IdentityClaims (Verified token claims)

Returns:
  - *Account: The provisioned or refreshed account
  - error: Storage failures
*/
func (service *Service) SyncIdentity(context context.Context, claims *sec.IdentityClaims) (*Account, error) {

	// ── 1. Existing Account Lookup ────────────────────────────────────────
	existing, err := service.accounts.FindBySubjectID(context, claims.SubjectID())
	if err != nil && !apperr.HasCode(err, "NOT_FOUND") {
		return nil, fmt.Errorf("account_service_sync_lookup_failed: %w", err)
	}

	// ── 2. First Sync: Provision ──────────────────────────────────────────
	if existing == nil {
		now := time.Now()
		created := &Account{
			ID:        uuidv7.New(),
			SubjectID: claims.SubjectID(),
			Username:  usernameFromClaims(claims),
			Email:     claims.Email,
			AvatarURL: claims.AvatarURL,
			Role:      sec.RoleUser,
			Badge:     CreatorBadgeState{Status: BadgeNone},
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := service.accounts.Create(context, created); err != nil {
			return nil, fmt.Errorf("account_service_sync_create_failed: %w", err)
		}

		service.logger.Info("account_provisioned",
			slog.String("account_id", created.ID),
			slog.String("subject_id", created.SubjectID),
		)

		return created, nil
	}

	// ── 3. Repeat Sync: Mirror Identity Fields ────────────────────────────
	changed := false
	if claims.Email != "" && claims.Email != existing.Email {
		existing.Email = claims.Email
		changed = true
	}
	if claims.AvatarURL != "" && claims.AvatarURL != existing.AvatarURL {
		existing.AvatarURL = claims.AvatarURL
		changed = true
	}

	if changed {
		if err := service.accounts.UpdateProfile(context, existing); err != nil {
			return nil, fmt.Errorf("account_service_sync_refresh_failed: %w", err)
		}
		service.logger.Info("account_identity_refreshed", slog.String("account_id", existing.ID))
	}

	return existing, nil
}

// usernameFromClaims derives an initial username from the identity token.
func usernameFromClaims(claims *sec.IdentityClaims) string {
	if claims.DisplayName != "" {
		return claims.DisplayName
	}
	if at := strings.Index(claims.Email, "@"); at > 0 {
		return claims.Email[:at]
	}
	return "reader-" + claims.SubjectID()
}

// # Actor Resolution

/*
ResolveActor maps a verified identity subject onto the stored account
projection used by the authorization layer.

Description: Implements the middleware resolution contract. Unknown subjects
resolve to nil without error so public routes keep working before the first
identity sync.

Parameters:
  - r: *http.Request (Carries the request context)
  - subjectID: string

Returns:
  - *sec.Actor: (id, role) projection, or nil when no account exists
  - error: Storage failures
*/
func (service *Service) ResolveActor(r *http.Request, subjectID string) (*sec.Actor, error) {
	found, err := service.accounts.FindBySubjectID(r.Context(), subjectID)
	if err != nil {
		if apperr.HasCode(err, "NOT_FOUND") {
			return nil, nil
		}
		return nil, fmt.Errorf("account_service_resolve_actor_failed: %w", err)
	}

	actor := found.Actor()
	return &actor, nil
}

// # Profile Access

/*
GetProfile retrieves the full private account record.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - *Account: The hydrated account
  - error: Not found or execution failures
*/
func (service *Service) GetProfile(context context.Context, accountID string) (*Account, error) {
	found, err := service.accounts.FindByID(context, accountID)
	if err != nil {
		return nil, fmt.Errorf("account_service_get_profile_failed: %w", err)
	}
	return found, nil
}

/*
GetPublicProfile retrieves the safety-mapped public view of an account.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - *PublicProfile: Public fields only
  - error: Not found or execution failures
*/
func (service *Service) GetPublicProfile(context context.Context, accountID string) (*PublicProfile, error) {
	found, err := service.accounts.FindByID(context, accountID)
	if err != nil {
		return nil, fmt.Errorf("account_service_get_public_profile_failed: %w", err)
	}

	public := found.Public()
	return &public, nil
}

/*
ListAccounts pages through accounts for the administrative surface.

Parameters:
  - context: context.Context
  - filter: ListFilter
  - page: pagination.Params

Returns:
  - []Account: Matching accounts
  - int64: Total match count
  - error: Retrieval failures
*/
func (service *Service) ListAccounts(context context.Context, filter ListFilter, page pagination.Params) ([]Account, int64, error) {
	accounts, total, err := service.accounts.List(context, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("account_service_list_failed: %w", err)
	}
	return accounts, total, nil
}

// # Role Management

/*
ChangeRole assigns a new role to a target account on behalf of an actor.

Description: The decision runs inside the bounded retry loop against a fresh
read of the target, so a concurrent ban or promotion is always re-evaluated
instead of being silently overwritten.

Parameters:
  - ctx: context.Context
  - actor: sec.Actor (The acting staff account)
  - targetID: string
  - newRole: sec.UserRole (Already vetted as a known role)

Returns:
  - *Account: The updated target account
  - error: Authorization denials, CONFLICT after exhausted retries, or
    storage failures
*/
func (service *Service) ChangeRole(ctx context.Context, actor sec.Actor, targetID string, newRole sec.UserRole) (*Account, error) {
	var updated *Account

	err := docstore.WithRetry(ctx, func(ctx context.Context) error {

		// ── 1. Fresh Read ─────────────────────────────────────────────────
		target, err := service.accounts.FindByID(ctx, targetID)
		if err != nil {
			return err
		}

		// ── 2. Authorization ──────────────────────────────────────────────
		decision := authz.Decide(authz.Request{
			Actor:         authz.Subject{ID: actor.ID, Role: actor.Role},
			Action:        authz.ActionChangeRole,
			TargetAccount: authz.Subject{ID: target.ID, Role: target.Role},
			NewRole:       newRole,
		})
		if decision != nil {
			return decision
		}

		// ── 3. Conditional Write ──────────────────────────────────────────
		target.Role = newRole
		if err := service.accounts.UpdateIfVersion(ctx, target); err != nil {
			return err
		}

		updated = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	service.logger.Info("account_role_changed",
		slog.String("actor_id", actor.ID),
		slog.String("target_id", targetID),
		slog.String("new_role", string(newRole)),
	)

	return updated, nil
}

// # Library & Reading Progress

/*
SaveLibraryEntry adds or re-files a title in the account's personal library.

Parameters:
  - context: context.Context
  - accountID: string
  - contentID: string
  - status: string (Already vetted against [LibraryStatuses])

Returns:
  - *LibraryEntry: The stored entry
  - error: Storage failures
*/
func (service *Service) SaveLibraryEntry(context context.Context, accountID, contentID, status string) (*LibraryEntry, error) {
	entry := &LibraryEntry{
		AccountID: accountID,
		ContentID: contentID,
		Status:    status,
		UpdatedAt: time.Now(),
	}

	if err := service.library.UpsertEntry(context, entry); err != nil {
		return nil, fmt.Errorf("account_service_library_save_failed: %w", err)
	}

	service.logger.Info("library_entry_saved",
		slog.String("account_id", accountID),
		slog.String("content_id", contentID),
		slog.String("status", status),
	)

	return entry, nil
}

/*
RemoveLibraryEntry drops a title from the account's personal library.

Parameters:
  - context: context.Context
  - accountID: string
  - contentID: string

Returns:
  - error: Execution failures
*/
func (service *Service) RemoveLibraryEntry(context context.Context, accountID, contentID string) error {
	if err := service.library.DeleteEntry(context, accountID, contentID); err != nil {
		return fmt.Errorf("account_service_library_remove_failed: %w", err)
	}

	service.logger.Info("library_entry_removed",
		slog.String("account_id", accountID),
		slog.String("content_id", contentID),
	)

	return nil
}

/*
ListLibrary returns the account's saved titles with their catalogue
summaries, optionally filtered by status.

Description: Each entry is hydrated with the title's summary through the
catalogue. Titles the viewer cannot see (hidden or banned, for readers) are
dropped from the listing entirely; the bare entry would only leak that
something used to be there.

Parameters:
  - context: context.Context
  - accountID: string
  - status: string (empty for all)
  - viewerRole: sec.UserRole (The library owner's role)

Returns:
  - []LibraryItem: Most recently updated first, visible titles only
  - error: Retrieval failures
*/
func (service *Service) ListLibrary(context context.Context, accountID, status string, viewerRole sec.UserRole) ([]LibraryItem, error) {
	entries, err := service.library.ListEntries(context, accountID, status)
	if err != nil {
		return nil, fmt.Errorf("account_service_library_list_failed: %w", err)
	}

	contentIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		contentIDs = append(contentIDs, entry.ContentID)
	}

	summaries, err := service.catalog.Summaries(context, contentIDs, viewerRole)
	if err != nil {
		return nil, fmt.Errorf("account_service_library_hydrate_failed: %w", err)
	}

	items := make([]LibraryItem, 0, len(entries))
	for _, entry := range entries {
		summary, visible := summaries[entry.ContentID]
		if !visible {
			continue
		}
		items = append(items, LibraryItem{Entry: entry, Content: summary})
	}

	return items, nil
}

/*
SaveProgress remembers the last page reached in a title.

Parameters:
  - context: context.Context
  - accountID: string
  - contentID: string
  - page: int (Zero-based page index)

Returns:
  - *ReadingProgress: The stored progress
  - error: Storage failures
*/
func (service *Service) SaveProgress(context context.Context, accountID, contentID string, page int) (*ReadingProgress, error) {
	progress := &ReadingProgress{
		AccountID: accountID,
		ContentID: contentID,
		Page:      page,
		UpdatedAt: time.Now(),
	}

	if err := service.library.UpsertProgress(context, progress); err != nil {
		return nil, fmt.Errorf("account_service_progress_save_failed: %w", err)
	}

	return progress, nil
}

/*
GetProgress retrieves the stored reading position for one title.

Description: Accounts that never opened the title get a zero progress record
rather than a NOT_FOUND, which keeps the reader UI logic trivial.

Parameters:
  - context: context.Context
  - accountID: string
  - contentID: string

Returns:
  - *ReadingProgress: Stored or zero-valued progress
  - error: Storage failures
*/
func (service *Service) GetProgress(context context.Context, accountID, contentID string) (*ReadingProgress, error) {
	progress, err := service.library.FindProgress(context, accountID, contentID)
	if err != nil {
		if apperr.HasCode(err, "NOT_FOUND") {
			return &ReadingProgress{AccountID: accountID, ContentID: contentID}, nil
		}
		return nil, fmt.Errorf("account_service_progress_get_failed: %w", err)
	}
	return progress, nil
}
