// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

package content

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anvubui/mirava/internal/platform/apperr"
	"github.com/anvubui/mirava/internal/platform/blob"
	"github.com/anvubui/mirava/internal/platform/docstore"
	"github.com/anvubui/mirava/internal/platform/sec"
	"github.com/anvubui/mirava/internal/platform/validate"
	"github.com/anvubui/mirava/internal/trust/authz"
	"github.com/anvubui/mirava/internal/trust/moderation"
	"github.com/anvubui/mirava/internal/users/account"
	"github.com/anvubui/mirava/pkg/pagination"
	"github.com/anvubui/mirava/pkg/slug"
	"github.com/anvubui/mirava/pkg/uuidv7"
)

// AccountDirectory resolves uploader accounts for authorization decisions.
type AccountDirectory interface {
	FindByID(context context.Context, id string) (*account.Account, error)
}

// # Service Layer

// Service orchestrates the business logic for the content catalogue.
type Service struct {
	contents Repository
	accounts AccountDirectory
	guard    UploadGuard
	views    ViewCounter
	blobs    blob.Store
	logger   *slog.Logger
}

// NewService constructs a new content [Service] with its dependencies.
func NewService(
	contents Repository,
	accounts AccountDirectory,
	guard UploadGuard,
	views ViewCounter,
	blobs blob.Store,
	logger *slog.Logger,
) *Service {
	return &Service{
		contents: contents,
		accounts: accounts,
		guard:    guard,
		views:    views,
		blobs:    blobs,
		logger:   logger,
	}
}

// # Upload

// CreateInput defines the metadata accepted at upload time.
type CreateInput struct {
	Title        string
	Description  string
	Author       string
	Genres       []string
	ThumbnailURL string
	PDFURL       string
}

/*
Create publishes a new title on behalf of the acting account.

Description: The ban guard runs first; an effectively banned account cannot
publish regardless of role. The record starts ACTIVE with a clean moderation
sub-record and a slug derived from the title (suffixed when already taken).

Parameters:
  - context: context.Context
  - actor: sec.Actor (The uploading account)
  - input: CreateInput

Returns:
  - *Record: The published record
  - error: BANNED, VALIDATION_ERROR, or storage failures
*/
func (service *Service) Create(context context.Context, actor sec.Actor, input CreateInput) (*Record, error) {

	// ── 1. Ban Guard ──────────────────────────────────────────────────────
	if err := service.guard.AssertCanUpload(context, actor.ID); err != nil {
		return nil, err
	}

	// ── 2. Validation ─────────────────────────────────────────────────────
	validator := &validate.Validator{}
	validator.Required(FieldTitle, input.Title).MaxLen(FieldTitle, input.Title, 300)
	validator.MaxLen(FieldDescription, input.Description, 3000)
	validator.MaxLen(FieldAuthor, input.Author, 200)
	validator.Required(FieldPDF, input.PDFURL)
	validator.Custom(FieldGenres, len(input.Genres) > 20, "At most 20 genres are allowed")

	if err := validator.Err(); err != nil {
		return nil, err
	}

	// ── 3. Identity & Slug Generation ─────────────────────────────────────
	record := &Record{
		ID:           uuidv7.New(),
		Title:        input.Title,
		Description:  input.Description,
		Author:       input.Author,
		Genres:       input.Genres,
		ThumbnailURL: input.ThumbnailURL,
		PDFURL:       input.PDFURL,
		UploaderID:   actor.ID,
		Moderation:   moderation.State{Status: moderation.StatusActive},
		Version:      1,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	generated, err := service.availableSlug(context, slug.From(input.Title), record.ID)
	if err != nil {
		return nil, err
	}
	record.Slug = generated

	// ── 4. Persistence ────────────────────────────────────────────────────
	if err := service.contents.Create(context, record); err != nil {
		return nil, fmt.Errorf("content_service_create_failed: %w", err)
	}

	service.logger.Info("content_published",
		slog.String("content_id", record.ID),
		slog.String("uploader_id", actor.ID),
		slog.String("slug", record.Slug),
	)

	return record, nil
}

// availableSlug resolves slug collisions by suffixing a fragment of the
// record's UUID. Empty titles (all-symbol input) fall back to the fragment.
// Only a NOT_FOUND probe result proves the slug is free; any other storage
// failure aborts the upload rather than risking a unique-constraint clash.
func (service *Service) availableSlug(context context.Context, base, id string) (string, error) {
	fragment := id[len(id)-8:]
	if base == "" {
		return fragment, nil
	}

	_, err := service.contents.FindBySlug(context, base)
	switch {
	case err == nil:
		return base + "-" + fragment, nil
	case apperr.HasCode(err, "NOT_FOUND"):
		return base, nil
	default:
		return "", fmt.Errorf("content_service_slug_probe_failed: %w", err)
	}
}

// # Discovery

/*
Get fetches a single record by UUID or slug, honoring the visibility rule.

Description: Non-ACTIVE content is reported as NOT_FOUND to readers below
MODERATOR, hiding its existence entirely. Successful detail reads count as
a view.

Parameters:
  - context: context.Context
  - identifier: string (UUID or slug)
  - viewerRole: sec.UserRole (Zero value for anonymous readers)

Returns:
  - *Record: The hydrated record with like and view counts
  - error: apperr.NotFound or storage failures
*/
func (service *Service) Get(context context.Context, identifier string, viewerRole sec.UserRole) (*Record, error) {

	// Identity format detection
	var record *Record
	var err error
	if isUUID(identifier) {
		record, err = service.contents.FindByID(context, identifier)
	} else {
		record, err = service.contents.FindBySlug(context, identifier)
	}
	if err != nil {
		return nil, err
	}

	// Visibility: hidden and banned content does not exist for readers.
	if !moderation.VisibleTo(record.Moderation.Status, viewerRole) {
		return nil, apperr.NotFound("Title")
	}

	// Best effort; a lost increment never fails a page view.
	if count, err := service.views.Increment(context, record.ID); err == nil {
		record.ViewCount = count
	}

	return record, nil
}

/*
List pages through the catalogue honoring the visibility rule.

Parameters:
  - context: context.Context
  - filter: Filter (StaffView is overridden from viewerRole; ModStatus is
    cleared for readers)
  - page: pagination.Params
  - viewerRole: sec.UserRole (Zero value for anonymous readers)

Returns:
  - []Record: Matching page of records
  - int64: Total match count
  - error: Retrieval failures
*/
func (service *Service) List(context context.Context, filter Filter, page pagination.Params, viewerRole sec.UserRole) ([]Record, int64, error) {
	filter.StaffView = viewerRole.IsStaff()
	if !filter.StaffView {
		// Readers are pinned to ACTIVE; a status filter would leak existence.
		filter.ModStatus = ""
	}

	records, total, err := service.contents.List(context, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("content_service_list_failed: %w", err)
	}

	return records, total, nil
}

// # Management

// UpdateInput defines the mutable subset of record metadata. Nil fields are
// left unchanged.
type UpdateInput struct {
	Title        *string
	Description  *string
	Author       *string
	Genres       []string
	ThumbnailURL *string
}

/*
Update applies metadata edits to a record on behalf of an actor.

Description: The uploader may edit their own record unless it is currently
BANNED by staff; staff edits follow the ownership-protection rule. The edit
is committed through the bounded retry loop so it can never clobber a
concurrent moderation action.

Parameters:
  - ctx: context.Context
  - actor: sec.Actor
  - contentID: string
  - input: UpdateInput

Returns:
  - *Record: The updated record
  - error: INSUFFICIENT_PRIVILEGE, VALIDATION_ERROR, CONFLICT after
    exhausted retries, or storage failures
*/
func (service *Service) Update(ctx context.Context, actor sec.Actor, contentID string, input UpdateInput) (*Record, error) {

	// Integrity validation for updated fields
	validator := &validate.Validator{}
	if input.Title != nil {
		validator.Required(FieldTitle, *input.Title).MaxLen(FieldTitle, *input.Title, 300)
	}
	if input.Description != nil {
		validator.MaxLen(FieldDescription, *input.Description, 3000)
	}
	if input.Author != nil {
		validator.MaxLen(FieldAuthor, *input.Author, 200)
	}
	validator.Custom(FieldGenres, len(input.Genres) > 20, "At most 20 genres are allowed")

	if err := validator.Err(); err != nil {
		return nil, err
	}

	var updated *Record

	err := docstore.WithRetry(ctx, func(ctx context.Context) error {

		// ── 1. Fresh Read ─────────────────────────────────────────────────
		record, err := service.contents.FindByID(ctx, contentID)
		if err != nil {
			return err
		}

		owner, err := service.accounts.FindByID(ctx, record.UploaderID)
		if err != nil {
			return err
		}

		// ── 2. Authorization ──────────────────────────────────────────────
		decision := authz.Decide(authz.Request{
			Actor:         authz.Subject{ID: actor.ID, Role: actor.Role},
			Action:        authz.ActionEditContent,
			ContentOwner:  authz.Subject{ID: owner.ID, Role: owner.Role},
			ContentBanned: record.Moderation.Status == moderation.StatusBanned,
		})
		if decision != nil {
			return decision
		}

		// ── 3. Apply Delta Updates ────────────────────────────────────────
		if input.Title != nil {
			record.Title = *input.Title
		}
		if input.Description != nil {
			record.Description = *input.Description
		}
		if input.Author != nil {
			record.Author = *input.Author
		}
		if input.Genres != nil {
			record.Genres = input.Genres
		}
		if input.ThumbnailURL != nil {
			record.ThumbnailURL = *input.ThumbnailURL
		}
		record.UpdatedAt = time.Now()

		// ── 4. Conditional Write ──────────────────────────────────────────
		if err := service.contents.UpdateMetadataIfVersion(ctx, record); err != nil {
			return err
		}

		updated = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	service.logger.Info("content_updated",
		slog.String("content_id", contentID),
		slog.String("actor_id", actor.ID),
	)

	return updated, nil
}

/*
Delete permanently removes a record on behalf of an actor.

Description: The uploader may delete their own record unless it is currently
BANNED by staff; banned material stays available as evidence until staff
discards it. The database cascade removes likes, library references, and
reading progress; blob cleanup is best effort afterwards.

Parameters:
  - context: context.Context
  - actor: sec.Actor
  - contentID: string

Returns:
  - error: INSUFFICIENT_PRIVILEGE or storage failures
*/
func (service *Service) Delete(context context.Context, actor sec.Actor, contentID string) error {

	// ── 1. Read & Authorization ───────────────────────────────────────────
	record, err := service.contents.FindByID(context, contentID)
	if err != nil {
		return err
	}

	owner, err := service.accounts.FindByID(context, record.UploaderID)
	if err != nil {
		return err
	}

	decision := authz.Decide(authz.Request{
		Actor:         authz.Subject{ID: actor.ID, Role: actor.Role},
		Action:        authz.ActionDeleteContent,
		ContentOwner:  authz.Subject{ID: owner.ID, Role: owner.Role},
		ContentBanned: record.Moderation.Status == moderation.StatusBanned,
	})
	if decision != nil {
		return decision
	}

	// ── 2. Cascade Delete ─────────────────────────────────────────────────
	if err := service.contents.DeleteCascade(context, contentID); err != nil {
		return fmt.Errorf("content_service_delete_failed: %w", err)
	}

	// ── 3. Blob Cleanup ───────────────────────────────────────────────────
	blob.TryDelete(context, service.blobs, service.logger, record.ThumbnailURL, record.PDFURL)

	service.logger.Warn("content_deleted",
		slog.String("content_id", contentID),
		slog.String("actor_id", actor.ID),
	)

	return nil
}

// # Engagement

/*
ToggleLike flips the acting account's like on a record.

Description: Likes follow visibility. An account can only like what it can
see, so non-ACTIVE content is NOT_FOUND for readers.

Parameters:
  - context: context.Context
  - actor: sec.Actor
  - contentID: string

Returns:
  - bool: Whether the record is liked after the toggle
  - int64: The new like count
  - error: apperr.NotFound or storage failures
*/
func (service *Service) ToggleLike(context context.Context, actor sec.Actor, contentID string) (bool, int64, error) {
	record, err := service.contents.FindByID(context, contentID)
	if err != nil {
		return false, 0, err
	}

	if !moderation.VisibleTo(record.Moderation.Status, actor.Role) {
		return false, 0, apperr.NotFound("Title")
	}

	liked, count, err := service.contents.ToggleLike(context, contentID, actor.ID)
	if err != nil {
		return false, 0, fmt.Errorf("content_service_toggle_like_failed: %w", err)
	}

	return liked, count, nil
}

/*
LikeStatus reports whether the acting account likes a record, without
changing anything.

Description: Follows the same visibility rule as [Service.ToggleLike], so a
reader cannot probe hidden content through its like endpoint.

Parameters:
  - context: context.Context
  - actor: sec.Actor
  - contentID: string

Returns:
  - bool: Whether the acting account currently likes the record
  - int64: The record's like count
  - error: apperr.NotFound or storage failures
*/
func (service *Service) LikeStatus(context context.Context, actor sec.Actor, contentID string) (bool, int64, error) {
	record, err := service.contents.FindByID(context, contentID)
	if err != nil {
		return false, 0, err
	}

	if !moderation.VisibleTo(record.Moderation.Status, actor.Role) {
		return false, 0, apperr.NotFound("Title")
	}

	liked, count, err := service.contents.LikeStatus(context, contentID, actor.ID)
	if err != nil {
		return false, 0, fmt.Errorf("content_service_like_status_failed: %w", err)
	}

	return liked, count, nil
}

// # Internal Helpers

// isUUID returns true if the string matches the standard UUID length.
func isUUID(s string) bool {
	return len(s) == 36
}
