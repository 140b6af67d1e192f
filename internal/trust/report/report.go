// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

/*
Package report implements the abuse-report workflow.

Any authenticated account can file a report against a content record or
another account. Reports move OPEN → RESOLVED exactly once; RESOLVED is
terminal and there is no reopening. Duplicate reports are allowed by design
so that abuse signals are never silently dropped.

# Architecture

  - Entity: Report, versioned like every other trust record.
  - Store: Postgres persistence plus a Redis-cached open-report counter that
    feeds the staff dashboard without hammering COUNT(*).
  - Service: File (reporter side) and Resolve/List (staff side).
*/
package report

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
	"github.com/anvubui/mirava/pkg/pagination"
	"github.com/anvubui/mirava/pkg/uuidv7"
)

// # Domain Entities

// Type enumerates what a report points at.
type Type string

const (
	TypeContent Type = "CONTENT"
	TypeAccount Type = "ACCOUNT"
)

// Types lists every valid report type for input validation.
var Types = []string{string(TypeContent), string(TypeAccount)}

// Status enumerates the report workflow states.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusResolved Status = "RESOLVED"
)

// Statuses lists every valid report status for input validation.
var Statuses = []string{string(StatusOpen), string(StatusResolved)}

// Report is one filed abuse signal.
type Report struct {
	ID         string     `json:"id"`
	Type       Type       `json:"type"`
	TargetID   string     `json:"target_id"`
	ReporterID string     `json:"reporter_id"`
	Reason     string     `json:"reason"`
	Status     Status     `json:"status"`
	ResolvedBy *string    `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	Version    int64      `json:"-"` // optimistic concurrency guard
	CreatedAt  time.Time  `json:"created_at"`
}

// # Persistence Contracts

// ListFilter narrows staff report listings.
type ListFilter struct {
	Status   string // exact status match when non-empty
	Type     string // exact type match when non-empty
	TargetID string // reports against one target when non-empty
}

// Store defines the persistence contract for reports.
type Store interface {
	/*
		Create inserts a freshly filed report.

		Parameters:
		  - context: context.Context
		  - report: *Report

		Returns:
		  - error: Storage failures
	*/
	Create(context context.Context, report *Report) error

	/*
		FindByID retrieves a report by ID.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - *Report: Hydrated report
		  - error: apperr.NotFound or storage failures
	*/
	FindByID(context context.Context, id string) (*Report, error)

	/*
		UpdateIfVersion persists a resolution guarded by the version counter.

		Parameters:
		  - context: context.Context
		  - report: *Report (Version holds the expected current value)

		Returns:
		  - error: docstore.ErrVersionConflict on a lost race, otherwise
		    storage failures
	*/
	UpdateIfVersion(context context.Context, report *Report) error

	/*
		List pages through reports for the staff queue, newest first.

		Parameters:
		  - context: context.Context
		  - filter: ListFilter
		  - page: pagination.Params

		Returns:
		  - []Report: Matching page of reports
		  - int64: Total match count
		  - error: Retrieval failures
	*/
	List(context context.Context, filter ListFilter, page pagination.Params) ([]Report, int64, error)

	/*
		CountOpen returns how many reports are currently OPEN.

		Parameters:
		  - context: context.Context

		Returns:
		  - int64: Open report count
		  - error: Retrieval failures
	*/
	CountOpen(context context.Context) (int64, error)
}

// CountCache caches the open-report counter between dashboard refreshes.
//
// Implemented by the Redis store; a miss is signaled with found == false,
// never with an error.
type CountCache interface {
	GetOpenCount(context context.Context) (count int64, found bool, err error)
	SetOpenCount(context context.Context, count int64) error
	InvalidateOpenCount(context context.Context) error
}

// # Service Layer

// Service orchestrates report intake and staff resolution.
type Service struct {
	store  Store
	cache  CountCache
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a new report [Service].
func NewService(store Store, cache CountCache, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

/*
File records a new abuse report.

Description: Duplicate reports against the same target are accepted on
purpose; suppressing them would drop abuse signals. The open-count cache is
invalidated so the staff dashboard sees the new report promptly.

Parameters:
  - context: context.Context
  - reporterID: string
  - reportType: Type (Already vetted against [Types])
  - targetID: string
  - reason: string (Must be non-empty after trimming)

Returns:
  - *Report: The stored OPEN report
  - error: VALIDATION_ERROR on an empty reason, or storage failures
*/
func (service *Service) File(context context.Context, reporterID string, reportType Type, targetID, reason string) (*Report, error) {
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return nil, apperr.ValidationError("Report reason must not be empty")
	}

	filed := &Report{
		ID:         uuidv7.New(),
		Type:       reportType,
		TargetID:   targetID,
		ReporterID: reporterID,
		Reason:     trimmed,
		Status:     StatusOpen,
		Version:    1,
		CreatedAt:  service.now(),
	}

	if err := service.store.Create(context, filed); err != nil {
		return nil, fmt.Errorf("report_service_file_failed: %w", err)
	}

	// Best effort; a stale counter self-heals within its TTL.
	_ = service.cache.InvalidateOpenCount(context)

	service.logger.Info("report_filed",
		slog.String("report_id", filed.ID),
		slog.String("type", string(reportType)),
		slog.String("target_id", targetID),
	)

	return filed, nil
}

/*
Resolve closes an OPEN report on behalf of a staff actor.

Description: RESOLVED is terminal. Two staff members racing to resolve the
same report are serialized by the version guard; the loser sees
ALREADY_RESOLVED on its retry read instead of double-stamping the record.

Parameters:
  - ctx: context.Context
  - actor: sec.Actor (The acting staff account)
  - reportID: string

Returns:
  - *Report: The resolved report
  - error: INSUFFICIENT_PRIVILEGE, ALREADY_RESOLVED, CONFLICT after
    exhausted retries, or storage failures
*/
func (service *Service) Resolve(ctx context.Context, actor sec.Actor, reportID string) (*Report, error) {
	var resolved *Report

	err := docstore.WithRetry(ctx, func(ctx context.Context) error {

		// ── 1. Authorization ──────────────────────────────────────────────
		decision := authz.Decide(authz.Request{
			Actor:  authz.Subject{ID: actor.ID, Role: actor.Role},
			Action: authz.ActionResolveReport,
		})
		if decision != nil {
			return decision
		}

		// ── 2. Fresh Read & State Check ───────────────────────────────────
		found, err := service.store.FindByID(ctx, reportID)
		if err != nil {
			return err
		}

		if found.Status == StatusResolved {
			return apperr.AlreadyResolved("Report is already resolved")
		}

		// ── 3. Conditional Write ──────────────────────────────────────────
		resolvedAt := service.now()
		staffID := actor.ID

		found.Status = StatusResolved
		found.ResolvedBy = &staffID
		found.ResolvedAt = &resolvedAt

		if err := service.store.UpdateIfVersion(ctx, found); err != nil {
			return err
		}

		resolved = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = service.cache.InvalidateOpenCount(ctx)

	service.logger.Info("report_resolved",
		slog.String("actor_id", actor.ID),
		slog.String("report_id", reportID),
	)

	return resolved, nil
}

/*
List pages through reports for the staff queue.

Parameters:
  - context: context.Context
  - filter: ListFilter
  - page: pagination.Params

Returns:
  - []Report: Matching reports, newest first
  - int64: Total match count
  - error: Retrieval failures
*/
func (service *Service) List(context context.Context, filter ListFilter, page pagination.Params) ([]Report, int64, error) {
	reports, total, err := service.store.List(context, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("report_service_list_failed: %w", err)
	}
	return reports, total, nil
}

/*
OpenCount returns the size of the open-report queue, served from cache when
fresh.

Parameters:
  - context: context.Context

Returns:
  - int64: Open report count
  - error: Retrieval failures
*/
func (service *Service) OpenCount(context context.Context) (int64, error) {
	if count, found, err := service.cache.GetOpenCount(context); err == nil && found {
		return count, nil
	}

	count, err := service.store.CountOpen(context)
	if err != nil {
		return 0, fmt.Errorf("report_service_open_count_failed: %w", err)
	}

	_ = service.cache.SetOpenCount(context, count)
	return count, nil
}
