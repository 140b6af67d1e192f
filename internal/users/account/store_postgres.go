// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

/*
Package account (Postgres) implements the storage layer for platform accounts.

# Schema Table Mapping
  - users.account: Identity mirror, role, ban and badge sub-records, version.
  - library.entry: Personal library rows (account, content, status).
  - library.readingprogress: Last page reached per account and title.

# Concurrency

Trust-state writes go through UpdateIfVersion, a compare-and-swap on the
version column. A zero-row update means the version moved underneath us and
surfaces as docstore.ErrVersionConflict for the retry loop to handle.
*/
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anvubui/mirava/internal/platform/apperr"
	"github.com/anvubui/mirava/internal/platform/database/schema"
	"github.com/anvubui/mirava/internal/platform/docstore"
	"github.com/anvubui/mirava/pkg/pagination"
)

// # Repository Implementations

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new Postgres implementation for accounts.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// PostgresLibraryRepository implements [LibraryRepository] using pgx.
type PostgresLibraryRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresLibraryRepository creates a new Postgres implementation for
// libraries and reading progress.
func NewPostgresLibraryRepository(pool *pgxpool.Pool) *PostgresLibraryRepository {
	return &PostgresLibraryRepository{pool: pool}
}

// accountColumns is the canonical SELECT column list for account hydration.
func accountColumns() string {
	return strings.Join([]string{
		schema.UserAccount.ID, schema.UserAccount.SubjectID, schema.UserAccount.Username,
		schema.UserAccount.Email, schema.UserAccount.AvatarURL, schema.UserAccount.Role,
		schema.UserAccount.BanIsBanned, schema.UserAccount.BanUntil, schema.UserAccount.BanReason,
		schema.UserAccount.BadgeStatus, schema.UserAccount.BadgeMessage, schema.UserAccount.BadgeNote,
		schema.UserAccount.BadgeAppliedAt, schema.UserAccount.BadgeReviewed, schema.UserAccount.BadgeReviewer,
		schema.UserAccount.Version, schema.UserAccount.CreatedAt, schema.UserAccount.UpdatedAt,
	}, ", ")
}

// scanAccount hydrates one account row in accountColumns order.
func scanAccount(row pgx.Row) (*Account, error) {
	found := &Account{}
	err := row.Scan(
		&found.ID,
		&found.SubjectID,
		&found.Username,
		&found.Email,
		&found.AvatarURL,
		&found.Role,
		&found.Ban.IsBanned,
		&found.Ban.Until,
		&found.Ban.Reason,
		&found.Badge.Status,
		&found.Badge.Message,
		&found.Badge.Note,
		&found.Badge.AppliedAt,
		&found.Badge.ReviewedAt,
		&found.Badge.ReviewedBy,
		&found.Version,
		&found.CreatedAt,
		&found.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return found, nil
}

// # Repository Methods

/*
FindByID retrieves an account by its platform ID.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - *Account: Hydrated account entity
  - error: apperr.NotFound or database execution failure
*/
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		accountColumns(), schema.UserAccount.Table, schema.UserAccount.ID)

	found, err := scanAccount(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Account")
		}
		return nil, fmt.Errorf("postgres_account_repo_find_by_id_failed: %w", err)
	}

	return found, nil
}

/*
FindBySubjectID retrieves an account by its identity-provider subject.

Parameters:
  - context: context.Context
  - subjectID: string

Returns:
  - *Account: Hydrated account entity
  - error: apperr.NotFound or database execution failure
*/
func (repository *PostgresRepository) FindBySubjectID(context context.Context, subjectID string) (*Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		accountColumns(), schema.UserAccount.Table, schema.UserAccount.SubjectID)

	found, err := scanAccount(repository.pool.QueryRow(context, query, subjectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Account")
		}
		return nil, fmt.Errorf("postgres_account_repo_find_by_subject_failed: %w", err)
	}

	return found, nil
}

/*
Create inserts a freshly provisioned account row.

Parameters:
  - context: context.Context
  - account: *Account

Returns:
  - error: Unique-constraint or execution failures
*/
func (repository *PostgresRepository) Create(context context.Context, account *Account) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			%s, %s, %s, %s, %s, %s,
			%s, %s, %s,
			%s, %s, %s, %s, %s, %s,
			%s, %s, %s
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		schema.UserAccount.Table,
		schema.UserAccount.ID, schema.UserAccount.SubjectID, schema.UserAccount.Username,
		schema.UserAccount.Email, schema.UserAccount.AvatarURL, schema.UserAccount.Role,
		schema.UserAccount.BanIsBanned, schema.UserAccount.BanUntil, schema.UserAccount.BanReason,
		schema.UserAccount.BadgeStatus, schema.UserAccount.BadgeMessage, schema.UserAccount.BadgeNote,
		schema.UserAccount.BadgeAppliedAt, schema.UserAccount.BadgeReviewed, schema.UserAccount.BadgeReviewer,
		schema.UserAccount.Version, schema.UserAccount.CreatedAt, schema.UserAccount.UpdatedAt,
	)

	_, err := repository.pool.Exec(context, query,
		account.ID,
		account.SubjectID,
		account.Username,
		account.Email,
		account.AvatarURL,
		account.Role,
		account.Ban.IsBanned,
		account.Ban.Until,
		account.Ban.Reason,
		account.Badge.Status,
		account.Badge.Message,
		account.Badge.Note,
		account.Badge.AppliedAt,
		account.Badge.ReviewedAt,
		account.Badge.ReviewedBy,
		account.Version,
		account.CreatedAt,
		account.UpdatedAt,
	)

	// If the insert fails, return an error
	if err != nil {
		return fmt.Errorf("postgres_account_repo_create_failed: %w", err)
	}

	return nil
}

/*
UpdateProfile refreshes the identity-mirrored fields only.

Description: Deliberately leaves role, ban, badge, and version untouched so
an identity sync can never race with an administrative action.

Parameters:
  - context: context.Context
  - account: *Account

Returns:
  - error: Update failures
*/
func (repository *PostgresRepository) UpdateProfile(context context.Context, account *Account) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5
		WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.Username, schema.UserAccount.Email, schema.UserAccount.AvatarURL,
		schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	_, err := repository.pool.Exec(context, query,
		account.ID,
		account.Username,
		account.Email,
		account.AvatarURL,
		time.Now(),
	)

	// If the update fails, return an error
	if err != nil {
		return fmt.Errorf("postgres_account_repo_update_profile_failed: %w", err)
	}

	return nil
}

/*
UpdateIfVersion persists the trust state guarded by the version column.

Description: Compare-and-swap on version. Zero affected rows means another
writer committed first; the caller's retry loop re-reads and re-decides.

Parameters:
  - context: context.Context
  - account: *Account (Version holds the expected current value)

Returns:
  - error: docstore.ErrVersionConflict on a lost race, or execution failures
*/
func (repository *PostgresRepository) UpdateIfVersion(context context.Context, account *Account) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $3, %s = $4, %s = $5, %s = $6,
			%s = $7, %s = $8, %s = $9, %s = $10, %s = $11, %s = $12,
			%s = %s + 1, %s = $13
		WHERE %s = $1 AND %s = $2`,
		schema.UserAccount.Table,
		schema.UserAccount.Role, schema.UserAccount.BanIsBanned, schema.UserAccount.BanUntil,
		schema.UserAccount.BanReason,
		schema.UserAccount.BadgeStatus, schema.UserAccount.BadgeMessage, schema.UserAccount.BadgeNote,
		schema.UserAccount.BadgeAppliedAt, schema.UserAccount.BadgeReviewed, schema.UserAccount.BadgeReviewer,
		schema.UserAccount.Version, schema.UserAccount.Version, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID, schema.UserAccount.Version,
	)

	tag, err := repository.pool.Exec(context, query,
		account.ID,
		account.Version,
		account.Role,
		account.Ban.IsBanned,
		account.Ban.Until,
		account.Ban.Reason,
		account.Badge.Status,
		account.Badge.Message,
		account.Badge.Note,
		account.Badge.AppliedAt,
		account.Badge.ReviewedAt,
		account.Badge.ReviewedBy,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("postgres_account_repo_update_if_version_failed: %w", err)
	}

	// Zero rows means the expected version is stale.
	if tag.RowsAffected() == 0 {
		return docstore.ErrVersionConflict
	}

	account.Version++
	return nil
}

/*
List pages through accounts with administrative filters.

Parameters:
  - context: context.Context
  - filter: ListFilter
  - page: pagination.Params

Returns:
  - []Account: Matching page of accounts
  - int64: Total match count
  - error: Retrieval failures
*/
func (repository *PostgresRepository) List(context context.Context, filter ListFilter, page pagination.Params) ([]Account, int64, error) {

	// ── 1. Dynamic Filter Assembly ────────────────────────────────────────
	conditions := []string{"TRUE"}
	args := []any{}

	if filter.Role != "" {
		args = append(args, filter.Role)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", schema.UserAccount.Role, len(args)))
	}

	if filter.Banned != nil {
		args = append(args, *filter.Banned)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", schema.UserAccount.BanIsBanned, len(args)))
	}

	if filter.BadgeStatus != "" {
		args = append(args, filter.BadgeStatus)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", schema.UserAccount.BadgeStatus, len(args)))
	}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(%s ILIKE $%d OR %s ILIKE $%d)",
			schema.UserAccount.Username, len(args), schema.UserAccount.Email, len(args)))
	}

	where := strings.Join(conditions, " AND ")

	// ── 2. Total Count ────────────────────────────────────────────────────
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, schema.UserAccount.Table, where)

	var total int64
	if err := repository.pool.QueryRow(context, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_account_repo_count_failed: %w", err)
	}

	// ── 3. Page Fetch ─────────────────────────────────────────────────────
	args = append(args, page.Limit, page.Offset())
	listQuery := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY %s DESC
		LIMIT $%d OFFSET $%d`,
		accountColumns(), schema.UserAccount.Table, where,
		schema.UserAccount.CreatedAt,
		len(args)-1, len(args),
	)

	rows, err := repository.pool.Query(context, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_account_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		found, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, *found)
	}

	return accounts, total, nil
}

// # LibraryRepository Methods

/*
UpsertEntry saves a library entry using an ON CONFLICT UPDATE strategy.

Parameters:
  - context: context.Context
  - entry: *LibraryEntry

Returns:
  - error: Synchronization failures
*/
func (repository *PostgresLibraryRepository) UpsertEntry(context context.Context, entry *LibraryEntry) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (%s, %s) DO UPDATE SET
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s`,
		schema.LibraryEntry.Table,
		schema.LibraryEntry.AccountID, schema.LibraryEntry.ContentID,
		schema.LibraryEntry.Status, schema.LibraryEntry.UpdatedAt,
		schema.LibraryEntry.AccountID, schema.LibraryEntry.ContentID,
		schema.LibraryEntry.Status, schema.LibraryEntry.Status,
		schema.LibraryEntry.UpdatedAt, schema.LibraryEntry.UpdatedAt,
	)

	_, err := repository.pool.Exec(context, query,
		entry.AccountID,
		entry.ContentID,
		entry.Status,
		entry.UpdatedAt,
	)

	// If the upsert fails, return an error
	if err != nil {
		return fmt.Errorf("postgres_library_repo_upsert_failed: %w", err)
	}

	return nil
}

/*
DeleteEntry removes a title from an account's library.

Parameters:
  - context: context.Context
  - accountID: string
  - contentID: string

Returns:
  - error: Execution failures
*/
func (repository *PostgresLibraryRepository) DeleteEntry(context context.Context, accountID, contentID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`,
		schema.LibraryEntry.Table, schema.LibraryEntry.AccountID, schema.LibraryEntry.ContentID)
	_, err := repository.pool.Exec(context, query, accountID, contentID)
	return err
}

/*
ListEntries returns an account's library, most recently updated first.

Parameters:
  - context: context.Context
  - accountID: string
  - status: string (empty for all)

Returns:
  - []LibraryEntry: Saved titles
  - error: Retrieval failures
*/
func (repository *PostgresLibraryRepository) ListEntries(context context.Context, accountID, status string) ([]LibraryEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND ($2 = '' OR %s = $2)
		ORDER BY %s DESC`,
		schema.LibraryEntry.AccountID, schema.LibraryEntry.ContentID,
		schema.LibraryEntry.Status, schema.LibraryEntry.UpdatedAt,
		schema.LibraryEntry.Table,
		schema.LibraryEntry.AccountID, schema.LibraryEntry.Status,
		schema.LibraryEntry.UpdatedAt,
	)

	rows, err := repository.pool.Query(context, query, accountID, status)
	if err != nil {
		return nil, fmt.Errorf("postgres_library_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var entries []LibraryEntry
	for rows.Next() {
		var entry LibraryEntry
		if err := rows.Scan(&entry.AccountID, &entry.ContentID, &entry.Status, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

/*
UpsertProgress saves the last page reached in a title.

Parameters:
  - context: context.Context
  - progress: *ReadingProgress

Returns:
  - error: Synchronization failures
*/
func (repository *PostgresLibraryRepository) UpsertProgress(context context.Context, progress *ReadingProgress) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (%s, %s) DO UPDATE SET
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s`,
		schema.ReadingProgress.Table,
		schema.ReadingProgress.AccountID, schema.ReadingProgress.ContentID,
		schema.ReadingProgress.Page, schema.ReadingProgress.UpdatedAt,
		schema.ReadingProgress.AccountID, schema.ReadingProgress.ContentID,
		schema.ReadingProgress.Page, schema.ReadingProgress.Page,
		schema.ReadingProgress.UpdatedAt, schema.ReadingProgress.UpdatedAt,
	)

	_, err := repository.pool.Exec(context, query,
		progress.AccountID,
		progress.ContentID,
		progress.Page,
		progress.UpdatedAt,
	)

	// If the upsert fails, return an error
	if err != nil {
		return fmt.Errorf("postgres_progress_repo_upsert_failed: %w", err)
	}

	return nil
}

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
func (repository *PostgresLibraryRepository) FindProgress(context context.Context, accountID, contentID string) (*ReadingProgress, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s = $2`,
		schema.ReadingProgress.AccountID, schema.ReadingProgress.ContentID,
		schema.ReadingProgress.Page, schema.ReadingProgress.UpdatedAt,
		schema.ReadingProgress.Table,
		schema.ReadingProgress.AccountID, schema.ReadingProgress.ContentID,
	)

	progress := &ReadingProgress{}
	err := repository.pool.QueryRow(context, query, accountID, contentID).Scan(
		&progress.AccountID,
		&progress.ContentID,
		&progress.Page,
		&progress.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Progress")
		}
		return nil, fmt.Errorf("postgres_progress_repo_find_failed: %w", err)
	}

	return progress, nil
}
