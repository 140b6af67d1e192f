// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

/*
Package content defines the uploaded-title domain of the Mirava catalogue.

A content record is a reader-submitted title: metadata, a thumbnail, the
document itself (held in the external blob store, referenced by URL), and
the embedded moderation sub-record that drives visibility. Everything a
reader browses flows through the visibility rule; everything staff does to
a record flows through the trust engine.

Core Responsibility:

  - Catalogue: Upload, metadata edits, deletion with cascade cleanup.
  - Discovery: Visibility-aware listing, genre filter, and title search.
  - Engagement: Likes and Redis-backed view counters.
*/
package content

import (
	"context"
	"time"

	"github.com/anvubui/mirava/internal/trust/moderation"
	"github.com/anvubui/mirava/pkg/pagination"
)

// # Core Entities

// Record is the central aggregate of the content domain: one uploaded title.
type Record struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Slug         string   `json:"slug"` // URL-safe identifier
	Description  string   `json:"description,omitempty"`
	Author       string   `json:"author,omitempty"` // original author/artist credit
	Genres       []string `json:"genres,omitempty"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
	PDFURL       string   `json:"pdf_url"`
	UploaderID   string   `json:"uploader_id"`

	// Moderation is the embedded visibility sub-record, mutated only by
	// staff through the moderation service.
	Moderation moderation.State `json:"moderation"`

	// # Computed Metrics
	LikeCount int64 `json:"like_count"`
	ViewCount int64 `json:"view_count"`

	Version   int64     `json:"-"` // optimistic concurrency guard
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// # Search & Filtering

// Filter holds the parameters for a filtered content list query.
type Filter struct {
	Genre      string `json:"genre,omitempty"`
	Query      string `json:"q,omitempty"` // title/author search term
	UploaderID string `json:"uploader_id,omitempty"`

	// ModStatus narrows the listing to one moderation status. Honored only
	// for staff; the service clears it for readers.
	ModStatus moderation.Status `json:"-"`

	// StaffView includes HIDDEN and BANNED records. Set only when the
	// requesting actor is staff; readers never see non-ACTIVE content.
	StaffView bool `json:"-"`
}

// # Field Identifiers

// Field names for validation and dynamic query mapping.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldAuthor      = "author"
	FieldGenres      = "genres"
	FieldThumbnail   = "thumbnail_url"
	FieldPDF         = "pdf_url"
)

// # Repository Contracts

// Repository defines the persistence contract for content records.
//
// It also backs the moderation service through the FindForModeration and
// UpdateModerationIfVersion methods (the moderation package's store view).
type Repository interface {
	/*
		Create inserts a freshly uploaded record.

		Parameters:
		  - context: context.Context
		  - record: *Record (ID, Slug, and Version already assigned)

		Returns:
		  - error: Constraint or storage failures
	*/
	Create(context context.Context, record *Record) error

	/*
		FindByID retrieves a record by UUID, regardless of visibility.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - *Record: Hydrated record with like count
		  - error: apperr.NotFound or storage failures
	*/
	FindByID(context context.Context, id string) (*Record, error)

	/*
		FindBySlug retrieves a record by its URL slug, regardless of visibility.

		Parameters:
		  - context: context.Context
		  - slug: string

		Returns:
		  - *Record: Hydrated record with like count
		  - error: apperr.NotFound or storage failures
	*/
	FindBySlug(context context.Context, slug string) (*Record, error)

	/*
		UpdateMetadataIfVersion persists metadata edits guarded by the version
		counter. The moderation sub-record is not touched.

		Parameters:
		  - context: context.Context
		  - record: *Record (Version holds the expected current value)

		Returns:
		  - error: docstore.ErrVersionConflict on a lost race, otherwise
		    storage failures
	*/
	UpdateMetadataIfVersion(context context.Context, record *Record) error

	/*
		DeleteCascade removes a record and every row referencing it (likes,
		library entries, reading progress) in one transaction. Open reports
		against the record stay behind as an audit trail.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - error: Execution failures
	*/
	DeleteCascade(context context.Context, id string) error

	/*
		List pages through records honoring the visibility rule, newest first.

		Parameters:
		  - context: context.Context
		  - filter: Filter
		  - page: pagination.Params

		Returns:
		  - []Record: Matching page of records
		  - int64: Total match count
		  - error: Retrieval failures
	*/
	List(context context.Context, filter Filter, page pagination.Params) ([]Record, int64, error)

	/*
		ToggleLike flips the like relation between an account and a record.

		Parameters:
		  - context: context.Context
		  - contentID: string
		  - accountID: string

		Returns:
		  - bool: Whether the record is liked after the toggle
		  - int64: The new like count
		  - error: Execution failures
	*/
	ToggleLike(context context.Context, contentID, accountID string) (bool, int64, error)

	/*
		LikeStatus reads the like relation without mutating it.

		Parameters:
		  - context: context.Context
		  - contentID: string
		  - accountID: string

		Returns:
		  - bool: Whether the account currently likes the record
		  - int64: The record's like count
		  - error: Retrieval failures
	*/
	LikeStatus(context context.Context, contentID, accountID string) (bool, int64, error)

	/*
		FindForModeration loads the moderation projection of a record.

		Implements the moderation service's store view.
	*/
	FindForModeration(context context.Context, contentID string) (*moderation.ContentView, error)

	/*
		UpdateModerationIfVersion overwrites the moderation sub-record guarded
		by the version counter.

		Implements the moderation service's store view.
	*/
	UpdateModerationIfVersion(context context.Context, contentID string, version int64, state moderation.State) error
}

// ViewCounter tracks per-title read counts.
//
// Implemented by the Redis store. Counting is best effort; a lost increment
// never fails a page view.
type ViewCounter interface {
	Increment(context context.Context, contentID string) (int64, error)
	Get(context context.Context, contentID string) (int64, error)
}

// UploadGuard asks the ban engine whether an account may publish content.
//
// Implemented by the ban service.
type UploadGuard interface {
	AssertCanUpload(context context.Context, accountID string) error
}
