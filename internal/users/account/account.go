// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

/*
Package account handles platform accounts provisioned from the external
identity provider.

An account is the platform-side record behind a verified identity subject.
It carries the trust state the authorization engine evaluates on every
request: the assigned role, the ban sub-record, and the creator-badge
sub-record. The package also owns the personal library and reading-progress
features attached to an account.

# Architecture

  - Entities: Account (with embedded BanState and CreatorBadgeState),
    LibraryEntry, ReadingProgress.
  - Concurrency: every trust-state mutation goes through UpdateIfVersion,
    guarded by the docstore retry loop.
  - Security: the service implements the actor-resolution contract used by
    the HTTP middleware chain.
*/
package account

import (
	"context"
	"time"

	"github.com/anvubui/mirava/internal/platform/sec"
	"github.com/anvubui/mirava/pkg/pagination"
)

// # Domain Entities

// BadgeStatus enumerates the creator-badge workflow states.
type BadgeStatus string

const (
	BadgeNone     BadgeStatus = "NONE"
	BadgePending  BadgeStatus = "PENDING"
	BadgeApproved BadgeStatus = "APPROVED"
	BadgeRejected BadgeStatus = "REJECTED"
)

// Library statuses a reader can assign to a saved title.
const (
	LibraryPlanned   = "PLANNED"
	LibraryReading   = "READING"
	LibraryCompleted = "COMPLETED"
)

// LibraryStatuses lists every valid library status for input validation.
var LibraryStatuses = []string{LibraryPlanned, LibraryReading, LibraryCompleted}

// BanState is the ban sub-record embedded in every account.
//
// A record with IsBanned true and Until in the past is still stored as
// banned; effectiveness is decided lazily at read time by the ban engine.
type BanState struct {
	IsBanned bool       `json:"is_banned"`
	Until    *time.Time `json:"until,omitempty"`  // nil means permanent
	Reason   string     `json:"reason,omitempty"` // staff-facing justification
}

// CreatorBadgeState is the creator-application sub-record embedded in every
// account.
type CreatorBadgeState struct {
	Status     BadgeStatus `json:"status"`
	Message    string      `json:"message,omitempty"` // applicant's pitch
	Note       string      `json:"note,omitempty"`    // reviewer's note
	AppliedAt  *time.Time  `json:"applied_at,omitempty"`
	ReviewedAt *time.Time  `json:"reviewed_at,omitempty"`
	ReviewedBy *string     `json:"reviewed_by,omitempty"` // reviewer account ID
}

// Account is the platform-side record behind an identity subject.
type Account struct {
	ID        string            `json:"id"`
	SubjectID string            `json:"subject_id"` // identity provider subject
	Username  string            `json:"username"`
	Email     string            `json:"email"`
	AvatarURL string            `json:"avatar_url,omitempty"`
	Role      sec.UserRole      `json:"role"`
	Ban       BanState          `json:"ban"`
	Badge     CreatorBadgeState `json:"badge"`
	Version   int64             `json:"-"` // optimistic concurrency guard
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Actor returns the minimal projection the middleware places in the request
// context and the authorization evaluator operates on.
func (account *Account) Actor() sec.Actor {
	return sec.Actor{ID: account.ID, SubjectID: account.SubjectID, Role: account.Role}
}

// PublicProfile is the safety-mapped view of an account exposed to other
// users. It omits the email, the ban details, and the badge review trail.
type PublicProfile struct {
	ID        string       `json:"id"`
	Username  string       `json:"username"`
	AvatarURL string       `json:"avatar_url,omitempty"`
	Role      sec.UserRole `json:"role"`
	IsCreator bool         `json:"is_creator"`
	CreatedAt time.Time    `json:"created_at"`
}

// Public maps an account to its public view.
func (account *Account) Public() PublicProfile {
	return PublicProfile{
		ID:        account.ID,
		Username:  account.Username,
		AvatarURL: account.AvatarURL,
		Role:      account.Role,
		IsCreator: account.Badge.Status == BadgeApproved,
		CreatedAt: account.CreatedAt,
	}
}

// LibraryEntry links an account to a saved title with a reading status.
type LibraryEntry struct {
	AccountID string    `json:"account_id"`
	ContentID string    `json:"content_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReadingProgress remembers the last page an account reached in a title.
type ReadingProgress struct {
	AccountID string    `json:"account_id"`
	ContentID string    `json:"content_id"`
	Page      int       `json:"page"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContentSummary is the catalogue projection hydrated into library listings.
type ContentSummary struct {
	ContentID    string `json:"content_id"`
	Title        string `json:"title"`
	Slug         string `json:"slug"`
	Author       string `json:"author,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// LibraryItem pairs a library entry with the summary of its title.
type LibraryItem struct {
	Entry   LibraryEntry   `json:"entry"`
	Content ContentSummary `json:"content"`
}

// # Repository Contracts

// ListFilter narrows administrative account listings.
type ListFilter struct {
	Role        string // exact role match when non-empty
	Banned      *bool  // filter on the stored ban flag when non-nil
	BadgeStatus string // exact creator-badge status match when non-empty
	Search      string // case-insensitive match on username or email
}

// Repository defines the persistence contract for accounts.
type Repository interface {
	/*
		FindByID retrieves an account by its platform ID.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - *Account: Loaded account entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByID(context context.Context, id string) (*Account, error)

	/*
		FindBySubjectID retrieves an account by its identity-provider subject.

		Parameters:
		  - context: context.Context
		  - subjectID: string

		Returns:
		  - *Account: Loaded account entity
		  - error: apperr.NotFound or storage failures
	*/
	FindBySubjectID(context context.Context, subjectID string) (*Account, error)

	/*
		Create inserts a freshly provisioned account.

		Parameters:
		  - context: context.Context
		  - account: *Account (ID and Version already assigned)

		Returns:
		  - error: Constraint or storage failures
	*/
	Create(context context.Context, account *Account) error

	/*
		UpdateProfile refreshes the identity-mirrored fields (username, email,
		avatar) without touching trust state or the version counter.

		Parameters:
		  - context: context.Context
		  - account: *Account

		Returns:
		  - error: Storage failures
	*/
	UpdateProfile(context context.Context, account *Account) error

	/*
		UpdateIfVersion persists the trust state (role, ban, badge) of an
		account guarded by its version counter.

		Description: The row is written only when the stored version still
		matches account.Version; on success the stored version is incremented.

		Parameters:
		  - context: context.Context
		  - account: *Account (Version holds the expected current value)

		Returns:
		  - error: docstore.ErrVersionConflict on a lost race, otherwise
		    storage failures
	*/
	UpdateIfVersion(context context.Context, account *Account) error

	/*
		List pages through accounts for the administrative surface.

		Parameters:
		  - context: context.Context
		  - filter: ListFilter
		  - page: pagination.Params

		Returns:
		  - []Account: Matching page of accounts
		  - int64: Total match count
		  - error: Retrieval failures
	*/
	List(context context.Context, filter ListFilter, page pagination.Params) ([]Account, int64, error)
}

// LibraryRepository defines the persistence contract for personal libraries
// and reading progress.
type LibraryRepository interface {
	/*
		UpsertEntry saves or updates a library entry idempotently.

		Parameters:
		  - context: context.Context
		  - entry: *LibraryEntry

		Returns:
		  - error: Storage failures
	*/
	UpsertEntry(context context.Context, entry *LibraryEntry) error

	/*
		DeleteEntry removes a title from an account's library.

		Parameters:
		  - context: context.Context
		  - accountID: string
		  - contentID: string

		Returns:
		  - error: Execution failures
	*/
	DeleteEntry(context context.Context, accountID, contentID string) error

	/*
		ListEntries returns an account's library, optionally filtered by
		status, most recently updated first.

		Parameters:
		  - context: context.Context
		  - accountID: string
		  - status: string (empty for all)

		Returns:
		  - []LibraryEntry: The account's saved titles
		  - error: Retrieval failures
	*/
	ListEntries(context context.Context, accountID, status string) ([]LibraryEntry, error)

	/*
		UpsertProgress saves the last page reached in a title.

		Parameters:
		  - context: context.Context
		  - progress: *ReadingProgress

		Returns:
		  - error: Storage failures
	*/
	UpsertProgress(context context.Context, progress *ReadingProgress) error

	/*
		FindProgress retrieves reading progress for one title.

		Parameters:
		  - context: context.Context
		  - accountID: string
		  - contentID: string

		Returns:
		  - *ReadingProgress: Stored progress
		  - error: apperr.NotFound if never read
	*/
	FindProgress(context context.Context, accountID, contentID string) (*ReadingProgress, error)
}

// ContentCatalog hydrates library listings with catalogue summaries.
//
// Implemented by the content Postgres repository. Implementations omit
// titles the viewer is not allowed to see, so entries missing from the
// result are filtered out of the listing.
type ContentCatalog interface {
	/*
		Summaries loads the catalogue projections for a set of titles.

		Parameters:
		  - context: context.Context
		  - contentIDs: []string
		  - viewerRole: sec.UserRole (Decides whether non-ACTIVE titles appear)

		Returns:
		  - map[string]ContentSummary: Visible summaries keyed by content ID
		  - error: Retrieval failures
	*/
	Summaries(context context.Context, contentIDs []string, viewerRole sec.UserRole) (map[string]ContentSummary, error)
}
