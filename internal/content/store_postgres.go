// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

/*
Package content (Postgres) implements the storage layer for the catalogue.

# Schema Table Mapping
  - core.content: Title metadata, moderation sub-record, version counter.
  - core.contentlike: Account-to-title like relation.
  - library.entry / library.readingprogress: Referencing rows removed by
    the delete cascade.
*/
package content

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
	"github.com/anvubui/mirava/internal/platform/sec"
	"github.com/anvubui/mirava/internal/trust/moderation"
	"github.com/anvubui/mirava/internal/users/account"
	"github.com/anvubui/mirava/pkg/pagination"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new Postgres implementation for content.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// contentColumns is the canonical SELECT column list for record hydration,
// including the correlated like count.
func contentColumns() string {
	likeCount := fmt.Sprintf(
		"(SELECT COUNT(*) FROM %s WHERE %s.%s = %s.%s)",
		schema.ContentLike.Table,
		schema.ContentLike.Table, schema.ContentLike.ContentID,
		schema.Content.Table, schema.Content.ID,
	)

	return strings.Join([]string{
		schema.Content.ID, schema.Content.Title, schema.Content.Slug,
		schema.Content.Description, schema.Content.Author, schema.Content.Genres,
		schema.Content.ThumbnailURL, schema.Content.PDFURL, schema.Content.UploaderID,
		schema.Content.ModStatus, schema.Content.ModReason,
		schema.Content.ModBy, schema.Content.ModUpdatedAt,
		likeCount,
		schema.Content.Version, schema.Content.CreatedAt, schema.Content.UpdatedAt,
	}, ", ")
}

// scanContent hydrates one record row in contentColumns order.
func scanContent(row pgx.Row) (*Record, error) {
	found := &Record{}
	err := row.Scan(
		&found.ID,
		&found.Title,
		&found.Slug,
		&found.Description,
		&found.Author,
		&found.Genres,
		&found.ThumbnailURL,
		&found.PDFURL,
		&found.UploaderID,
		&found.Moderation.Status,
		&found.Moderation.Reason,
		&found.Moderation.ByAccountID,
		&found.Moderation.UpdatedAt,
		&found.LikeCount,
		&found.Version,
		&found.CreatedAt,
		&found.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return found, nil
}

/*
Create inserts a freshly uploaded record row.

Parameters:
  - context: context.Context
  - record: *Record

Returns:
  - error: Constraint or execution failures
*/
func (repository *PostgresRepository) Create(context context.Context, record *Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		schema.Content.Table,
		schema.Content.ID, schema.Content.Title, schema.Content.Slug,
		schema.Content.Description, schema.Content.Author, schema.Content.Genres,
		schema.Content.ThumbnailURL, schema.Content.PDFURL, schema.Content.UploaderID,
		schema.Content.ModStatus, schema.Content.ModReason,
		schema.Content.ModBy, schema.Content.ModUpdatedAt,
		schema.Content.Version, schema.Content.CreatedAt, schema.Content.UpdatedAt,
	)

	_, err := repository.pool.Exec(context, query,
		record.ID,
		record.Title,
		record.Slug,
		record.Description,
		record.Author,
		record.Genres,
		record.ThumbnailURL,
		record.PDFURL,
		record.UploaderID,
		record.Moderation.Status,
		record.Moderation.Reason,
		record.Moderation.ByAccountID,
		record.Moderation.UpdatedAt,
		record.Version,
		record.CreatedAt,
		record.UpdatedAt,
	)

	// If the insert fails, return an error
	if err != nil {
		return fmt.Errorf("postgres_content_store_create_failed: %w", err)
	}

	return nil
}

/*
FindByID retrieves a record by UUID, regardless of visibility.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - *Record: Hydrated record with like count
  - error: apperr.NotFound or database execution failure
*/
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		contentColumns(), schema.Content.Table, schema.Content.ID)

	return repository.findOne(context, query, id)
}

/*
FindBySlug retrieves a record by its URL slug, regardless of visibility.

Parameters:
  - context: context.Context
  - slug: string

Returns:
  - *Record: Hydrated record with like count
  - error: apperr.NotFound or database execution failure
*/
func (repository *PostgresRepository) FindBySlug(context context.Context, slug string) (*Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		contentColumns(), schema.Content.Table, schema.Content.Slug)

	return repository.findOne(context, query, slug)
}

// findOne runs a single-row lookup and maps the empty result to NotFound.
func (repository *PostgresRepository) findOne(context context.Context, query string, arg any) (*Record, error) {
	found, err := scanContent(repository.pool.QueryRow(context, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Title")
		}
		return nil, fmt.Errorf("postgres_content_store_find_failed: %w", err)
	}

	return found, nil
}

/*
UpdateMetadataIfVersion persists metadata edits guarded by the version column.
The moderation columns are not touched.

Parameters:
  - context: context.Context
  - record: *Record (Version holds the expected current value)

Returns:
  - error: docstore.ErrVersionConflict on a lost race, or execution failures
*/
func (repository *PostgresRepository) UpdateMetadataIfVersion(context context.Context, record *Record) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $3, %s = $4, %s = $5, %s = $6, %s = $7, %s = $8,
		    %s = %s + 1
		WHERE %s = $1 AND %s = $2`,
		schema.Content.Table,
		schema.Content.Title, schema.Content.Description, schema.Content.Author,
		schema.Content.Genres, schema.Content.ThumbnailURL, schema.Content.UpdatedAt,
		schema.Content.Version, schema.Content.Version,
		schema.Content.ID, schema.Content.Version,
	)

	tag, err := repository.pool.Exec(context, query,
		record.ID,
		record.Version,
		record.Title,
		record.Description,
		record.Author,
		record.Genres,
		record.ThumbnailURL,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_content_store_update_if_version_failed: %w", err)
	}

	// Zero rows means the expected version is stale.
	if tag.RowsAffected() == 0 {
		return docstore.ErrVersionConflict
	}

	record.Version++
	return nil
}

/*
DeleteCascade removes a record and its referencing rows in one transaction.

Description: Likes, library entries, and reading progress go with the
record. Reports that target it are intentionally kept as an audit trail.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - error: Execution failures
*/
func (repository *PostgresRepository) DeleteCascade(context context.Context, id string) error {
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres_content_store_tx_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(context) }()

	referencing := []struct{ table, column string }{
		{schema.ContentLike.Table, schema.ContentLike.ContentID},
		{schema.LibraryEntry.Table, schema.LibraryEntry.ContentID},
		{schema.ReadingProgress.Table, schema.ReadingProgress.ContentID},
	}

	for _, reference := range referencing {
		query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, reference.table, reference.column)
		if _, err := transaction.Exec(context, query, id); err != nil {
			return fmt.Errorf("postgres_content_store_cascade_failed: %w", err)
		}
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.Content.Table, schema.Content.ID)
	if _, err := transaction.Exec(context, query, id); err != nil {
		return fmt.Errorf("postgres_content_store_delete_failed: %w", err)
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres_content_store_tx_commit_failed: %w", err)
	}

	return nil
}

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
func (repository *PostgresRepository) List(context context.Context, filter Filter, page pagination.Params) ([]Record, int64, error) {

	// ── 1. Dynamic Filter Assembly ────────────────────────────────────────
	conditions := []string{"TRUE"}
	args := []any{}

	// Readers only see ACTIVE records; staff see everything, optionally
	// narrowed to one moderation status.
	if !filter.StaffView {
		args = append(args, moderation.StatusActive)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", schema.Content.ModStatus, len(args)))
	} else if filter.ModStatus != "" {
		args = append(args, filter.ModStatus)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", schema.Content.ModStatus, len(args)))
	}

	if filter.Genre != "" {
		args = append(args, filter.Genre)
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(%s)", len(args), schema.Content.Genres))
	}

	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conditions = append(conditions, fmt.Sprintf("(%s ILIKE $%d OR %s ILIKE $%d)",
			schema.Content.Title, len(args), schema.Content.Author, len(args)))
	}

	if filter.UploaderID != "" {
		args = append(args, filter.UploaderID)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", schema.Content.UploaderID, len(args)))
	}

	where := strings.Join(conditions, " AND ")

	// ── 2. Total Count ────────────────────────────────────────────────────
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, schema.Content.Table, where)

	var total int64
	if err := repository.pool.QueryRow(context, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_content_store_count_failed: %w", err)
	}

	// ── 3. Page Fetch ─────────────────────────────────────────────────────
	args = append(args, page.Limit, page.Offset())
	listQuery := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY %s DESC
		LIMIT $%d OFFSET $%d`,
		contentColumns(), schema.Content.Table, where,
		schema.Content.CreatedAt,
		len(args)-1, len(args),
	)

	rows, err := repository.pool.Query(context, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_content_store_list_failed: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		found, err := scanContent(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *found)
	}

	return records, total, nil
}

/*
ToggleLike flips the like relation between an account and a record.

Description: The delete-then-insert pair runs in one transaction so the
returned count always reflects the committed state.

Parameters:
  - context: context.Context
  - contentID: string
  - accountID: string

Returns:
  - bool: Whether the record is liked after the toggle
  - int64: The new like count
  - error: Execution failures
*/
func (repository *PostgresRepository) ToggleLike(context context.Context, contentID, accountID string) (bool, int64, error) {
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return false, 0, fmt.Errorf("postgres_content_store_tx_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(context) }()

	// ── 1. Try Removing An Existing Like ──────────────────────────────────
	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`,
		schema.ContentLike.Table, schema.ContentLike.ContentID, schema.ContentLike.AccountID)

	tag, err := transaction.Exec(context, deleteQuery, contentID, accountID)
	if err != nil {
		return false, 0, fmt.Errorf("postgres_content_store_unlike_failed: %w", err)
	}

	liked := false
	if tag.RowsAffected() == 0 {

		// ── 2. No Like Existed; Insert One ────────────────────────────────
		insertQuery := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s) VALUES ($1, $2, $3)`,
			schema.ContentLike.Table,
			schema.ContentLike.ContentID, schema.ContentLike.AccountID, schema.ContentLike.CreatedAt)

		if _, err := transaction.Exec(context, insertQuery, contentID, accountID, time.Now()); err != nil {
			return false, 0, fmt.Errorf("postgres_content_store_like_failed: %w", err)
		}
		liked = true
	}

	// ── 3. Count Within The Same Transaction ──────────────────────────────
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`,
		schema.ContentLike.Table, schema.ContentLike.ContentID)

	var count int64
	if err := transaction.QueryRow(context, countQuery, contentID).Scan(&count); err != nil {
		return false, 0, fmt.Errorf("postgres_content_store_like_count_failed: %w", err)
	}

	if err := transaction.Commit(context); err != nil {
		return false, 0, fmt.Errorf("postgres_content_store_tx_commit_failed: %w", err)
	}

	return liked, count, nil
}

/*
LikeStatus reads the like relation between an account and a record.

Parameters:
  - context: context.Context
  - contentID: string
  - accountID: string

Returns:
  - bool: Whether the account currently likes the record
  - int64: The record's like count
  - error: Retrieval failures
*/
func (repository *PostgresRepository) LikeStatus(context context.Context, contentID, accountID string) (bool, int64, error) {
	statusQuery := fmt.Sprintf(`
		SELECT
			EXISTS(SELECT 1 FROM %s WHERE %s = $1 AND %s = $2),
			(SELECT COUNT(*) FROM %s WHERE %s = $1)`,
		schema.ContentLike.Table, schema.ContentLike.ContentID, schema.ContentLike.AccountID,
		schema.ContentLike.Table, schema.ContentLike.ContentID,
	)

	var liked bool
	var count int64
	if err := repository.pool.QueryRow(context, statusQuery, contentID, accountID).Scan(&liked, &count); err != nil {
		return false, 0, fmt.Errorf("postgres_content_store_like_status_failed: %w", err)
	}

	return liked, count, nil
}

/*
FindForModeration loads the moderation projection of a record.

Parameters:
  - context: context.Context
  - contentID: string (UUID)

Returns:
  - *moderation.ContentView: Projection with the current version
  - error: apperr.NotFound or database execution failure
*/
func (repository *PostgresRepository) FindForModeration(context context.Context, contentID string) (*moderation.ContentView, error) {
	query := fmt.Sprintf(`SELECT %s, %s, %s, %s, %s, %s, %s FROM %s WHERE %s = $1`,
		schema.Content.ID, schema.Content.UploaderID,
		schema.Content.ModStatus, schema.Content.ModReason,
		schema.Content.ModBy, schema.Content.ModUpdatedAt,
		schema.Content.Version,
		schema.Content.Table, schema.Content.ID,
	)

	view := &moderation.ContentView{}
	err := repository.pool.QueryRow(context, query, contentID).Scan(
		&view.ID,
		&view.UploaderID,
		&view.State.Status,
		&view.State.Reason,
		&view.State.ByAccountID,
		&view.State.UpdatedAt,
		&view.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Title")
		}
		return nil, fmt.Errorf("postgres_content_store_moderation_find_failed: %w", err)
	}

	return view, nil
}

/*
UpdateModerationIfVersion overwrites the moderation columns guarded by the
version column.

Parameters:
  - context: context.Context
  - contentID: string (UUID)
  - version: int64 (Expected current value)
  - state: moderation.State

Returns:
  - error: docstore.ErrVersionConflict on a lost race, or execution failures
*/
func (repository *PostgresRepository) UpdateModerationIfVersion(context context.Context, contentID string, version int64, state moderation.State) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $3, %s = $4, %s = $5, %s = $6, %s = $7,
		    %s = %s + 1
		WHERE %s = $1 AND %s = $2`,
		schema.Content.Table,
		schema.Content.ModStatus, schema.Content.ModReason,
		schema.Content.ModBy, schema.Content.ModUpdatedAt,
		schema.Content.UpdatedAt,
		schema.Content.Version, schema.Content.Version,
		schema.Content.ID, schema.Content.Version,
	)

	tag, err := repository.pool.Exec(context, query,
		contentID,
		version,
		state.Status,
		state.Reason,
		state.ByAccountID,
		state.UpdatedAt,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("postgres_content_store_moderation_update_failed: %w", err)
	}

	// Zero rows means the expected version is stale.
	if tag.RowsAffected() == 0 {
		return docstore.ErrVersionConflict
	}

	return nil
}

/*
Summaries loads the catalogue projections for a set of titles.

Description: Implements the library hydration contract of the account
package. Titles the viewer cannot see are dropped from the result, so
missing keys double as the visibility signal.

Parameters:
  - context: context.Context
  - contentIDs: []string
  - viewerRole: sec.UserRole

Returns:
  - map[string]account.ContentSummary: Visible summaries keyed by content ID
  - error: Retrieval failures
*/
func (repository *PostgresRepository) Summaries(context context.Context, contentIDs []string, viewerRole sec.UserRole) (map[string]account.ContentSummary, error) {
	summaries := make(map[string]account.ContentSummary, len(contentIDs))
	if len(contentIDs) == 0 {
		return summaries, nil
	}

	query := fmt.Sprintf(`SELECT %s, %s, %s, %s, %s, %s FROM %s WHERE %s = ANY($1)`,
		schema.Content.ID, schema.Content.Title, schema.Content.Slug,
		schema.Content.Author, schema.Content.ThumbnailURL, schema.Content.ModStatus,
		schema.Content.Table, schema.Content.ID,
	)

	rows, err := repository.pool.Query(context, query, contentIDs)
	if err != nil {
		return nil, fmt.Errorf("postgres_content_store_summaries_failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var summary account.ContentSummary
		var status moderation.Status
		if err := rows.Scan(&summary.ContentID, &summary.Title, &summary.Slug,
			&summary.Author, &summary.ThumbnailURL, &status); err != nil {
			return nil, fmt.Errorf("postgres_content_store_summaries_scan_failed: %w", err)
		}

		if !moderation.VisibleTo(status, viewerRole) {
			continue
		}
		summaries[summary.ContentID] = summary
	}

	return summaries, nil
}
