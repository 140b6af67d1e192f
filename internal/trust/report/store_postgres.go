// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

/*
Package report (Postgres) implements the storage layer for abuse reports.

# Schema Table Mapping
  - trust.report: Filed reports, their resolution trail, and version counter.
*/
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anvubui/mirava/internal/platform/apperr"
	"github.com/anvubui/mirava/internal/platform/database/schema"
	"github.com/anvubui/mirava/internal/platform/docstore"
	"github.com/anvubui/mirava/pkg/pagination"
)

// PostgresStore implements [Store] using pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new Postgres implementation for reports.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// reportColumns is the canonical SELECT column list for report hydration.
func reportColumns() string {
	return strings.Join([]string{
		schema.Report.ID, schema.Report.Type, schema.Report.TargetID,
		schema.Report.ReporterID, schema.Report.Reason, schema.Report.Status,
		schema.Report.ResolvedBy, schema.Report.ResolvedAt,
		schema.Report.Version, schema.Report.CreatedAt,
	}, ", ")
}

// scanReport hydrates one report row in reportColumns order.
func scanReport(row pgx.Row) (*Report, error) {
	found := &Report{}
	err := row.Scan(
		&found.ID,
		&found.Type,
		&found.TargetID,
		&found.ReporterID,
		&found.Reason,
		&found.Status,
		&found.ResolvedBy,
		&found.ResolvedAt,
		&found.Version,
		&found.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return found, nil
}

/*
Create inserts a freshly filed report row.

Parameters:
  - context: context.Context
  - report: *Report

Returns:
  - error: Execution failures
*/
func (store *PostgresStore) Create(context context.Context, report *Report) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		schema.Report.Table,
		schema.Report.ID, schema.Report.Type, schema.Report.TargetID,
		schema.Report.ReporterID, schema.Report.Reason, schema.Report.Status,
		schema.Report.ResolvedBy, schema.Report.ResolvedAt,
		schema.Report.Version, schema.Report.CreatedAt,
	)

	_, err := store.pool.Exec(context, query,
		report.ID,
		report.Type,
		report.TargetID,
		report.ReporterID,
		report.Reason,
		report.Status,
		report.ResolvedBy,
		report.ResolvedAt,
		report.Version,
		report.CreatedAt,
	)

	// If the insert fails, return an error
	if err != nil {
		return fmt.Errorf("postgres_report_store_create_failed: %w", err)
	}

	return nil
}

/*
FindByID retrieves a report by ID.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - *Report: Hydrated report
  - error: apperr.NotFound or database execution failure
*/
func (store *PostgresStore) FindByID(context context.Context, id string) (*Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		reportColumns(), schema.Report.Table, schema.Report.ID)

	found, err := scanReport(store.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Report")
		}
		return nil, fmt.Errorf("postgres_report_store_find_failed: %w", err)
	}

	return found, nil
}

/*
UpdateIfVersion persists a resolution guarded by the version column.

Parameters:
  - context: context.Context
  - report: *Report (Version holds the expected current value)

Returns:
  - error: docstore.ErrVersionConflict on a lost race, or execution failures
*/
func (store *PostgresStore) UpdateIfVersion(context context.Context, report *Report) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $3, %s = $4, %s = $5, %s = %s + 1
		WHERE %s = $1 AND %s = $2`,
		schema.Report.Table,
		schema.Report.Status, schema.Report.ResolvedBy, schema.Report.ResolvedAt,
		schema.Report.Version, schema.Report.Version,
		schema.Report.ID, schema.Report.Version,
	)

	tag, err := store.pool.Exec(context, query,
		report.ID,
		report.Version,
		report.Status,
		report.ResolvedBy,
		report.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_report_store_update_if_version_failed: %w", err)
	}

	// Zero rows means the expected version is stale.
	if tag.RowsAffected() == 0 {
		return docstore.ErrVersionConflict
	}

	report.Version++
	return nil
}

/*
List pages through reports with staff-queue filters, newest first.

Parameters:
  - context: context.Context
  - filter: ListFilter
  - page: pagination.Params

Returns:
  - []Report: Matching page of reports
  - int64: Total match count
  - error: Retrieval failures
*/
func (store *PostgresStore) List(context context.Context, filter ListFilter, page pagination.Params) ([]Report, int64, error) {

	// ── 1. Dynamic Filter Assembly ────────────────────────────────────────
	conditions := []string{"TRUE"}
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", schema.Report.Status, len(args)))
	}

	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", schema.Report.Type, len(args)))
	}

	if filter.TargetID != "" {
		args = append(args, filter.TargetID)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", schema.Report.TargetID, len(args)))
	}

	where := strings.Join(conditions, " AND ")

	// ── 2. Total Count ────────────────────────────────────────────────────
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, schema.Report.Table, where)

	var total int64
	if err := store.pool.QueryRow(context, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_report_store_count_failed: %w", err)
	}

	// ── 3. Page Fetch ─────────────────────────────────────────────────────
	args = append(args, page.Limit, page.Offset())
	listQuery := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY %s DESC
		LIMIT $%d OFFSET $%d`,
		reportColumns(), schema.Report.Table, where,
		schema.Report.CreatedAt,
		len(args)-1, len(args),
	)

	rows, err := store.pool.Query(context, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_report_store_list_failed: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		found, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, *found)
	}

	return reports, total, nil
}

/*
CountOpen returns how many reports are currently OPEN.

Parameters:
  - context: context.Context

Returns:
  - int64: Open report count
  - error: Retrieval failures
*/
func (store *PostgresStore) CountOpen(context context.Context) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`,
		schema.Report.Table, schema.Report.Status)

	var count int64
	if err := store.pool.QueryRow(context, query, StatusOpen).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres_report_store_count_open_failed: %w", err)
	}

	return count, nil
}
