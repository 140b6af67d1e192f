// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

/*
Package admin provides the staff-facing HTTP surface of the trust engine.

Every route here requires at least a MODERATOR actor at the router level;
finer distinctions (ADMIN-only badge review, ban-lift rules, role-grant
limits) are enforced by the underlying services, never re-implemented in
the handlers.
*/
package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anvubui/mirava/internal/content"
	"github.com/anvubui/mirava/internal/platform/middleware"
	requestutil "github.com/anvubui/mirava/internal/platform/request"
	"github.com/anvubui/mirava/internal/platform/respond"
	"github.com/anvubui/mirava/internal/platform/sec"
	"github.com/anvubui/mirava/internal/platform/validate"
	"github.com/anvubui/mirava/internal/trust/badge"
	"github.com/anvubui/mirava/internal/trust/ban"
	"github.com/anvubui/mirava/internal/trust/moderation"
	"github.com/anvubui/mirava/internal/trust/report"
	"github.com/anvubui/mirava/internal/users/account"
	"github.com/anvubui/mirava/pkg/pagination"
	"github.com/anvubui/mirava/pkg/pointer"
	"github.com/anvubui/mirava/pkg/slice"
)

// Handler implements the staff administration endpoints.
type Handler struct {
	accountService    *account.Service
	banService        *ban.Service
	badgeService      *badge.Service
	moderationService *moderation.Service
	reportService     *report.Service
	contentService    *content.Service
}

// NewHandler constructs a new admin [Handler].
func NewHandler(
	accountService *account.Service,
	banService *ban.Service,
	badgeService *badge.Service,
	moderationService *moderation.Service,
	reportService *report.Service,
	contentService *content.Service,
) *Handler {
	return &Handler{
		accountService:    accountService,
		banService:        banService,
		badgeService:      badgeService,
		moderationService: moderationService,
		reportService:     reportService,
		contentService:    contentService,
	}
}

// Routes returns a [chi.Router] configured with the staff endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth, middleware.RequireRole(sec.RoleModerator))

	// Account Administration
	router.Get("/users", handler.listUsers)
	router.Put("/users/{id}/role", handler.changeRole)
	router.Post("/users/{id}/ban", handler.banUser)
	router.Delete("/users/{id}/ban", handler.unbanUser)

	// Content Moderation
	router.Get("/content", handler.listContent)
	router.Post("/content/{id}/moderation", handler.moderateContent)

	// Report Queue
	router.Get("/reports", handler.listReports)
	router.Get("/reports/open-count", handler.openReportCount)
	router.Post("/reports/{id}/resolve", handler.resolveReport)

	// Creator Applications
	router.Get("/creator-applications", handler.listCreatorApplications)
	router.Post("/creator-applications/{id}/approve", handler.approveCreatorApplication)
	router.Post("/creator-applications/{id}/reject", handler.rejectCreatorApplication)

	return router
}

// # Account Administration

/*
GET /api/v1/admin/users.

Description: Pages through accounts for the staff console.

Request:
  - role: string (Optional exact role filter)
  - banned: string ("true"/"false", optional)
  - q: string (Optional username/email search)
  - page, limit: int

Response:
  - 200: []Account + pagination.Meta
  - 403: ErrInsufficientPrivilege: Actor below MODERATOR
*/
func (handler *Handler) listUsers(writer http.ResponseWriter, request *http.Request) {
	page := pagination.FromRequest(request)

	filter := account.ListFilter{
		Role:   request.URL.Query().Get("role"),
		Search: request.URL.Query().Get("q"),
	}
	switch request.URL.Query().Get("banned") {
	case "true":
		filter.Banned = pointer.To(true)
	case "false":
		filter.Banned = pointer.To(false)
	}

	accounts, total, err := handler.accountService.ListAccounts(request.Context(), filter, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, accounts, pagination.NewMeta(page.Page, page.Limit, int(total)))
}

// changeRoleRequest defines the expected JSON payload for role grants.
type changeRoleRequest struct {
	Role string `json:"role"`
}

/*
PUT /api/v1/admin/users/{id}/role.

Description: Grants a new role to the target account. Role-grant limits
(no grants at or above your own rank, OWNER grants by OWNER only) are
enforced by the account service.

Request:
  - id: string (UUID)
  - body: changeRoleRequest

Response:
  - 200: Account: The target with its new role
  - 400: Validation: Unknown role
  - 403: ErrInsufficientPrivilege: Grant exceeds the actor's rank
  - 409: ErrConflict: Lost the write race after bounded retries
*/
func (handler *Handler) changeRole(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	targetID := requestutil.ID(request, "id")

	var input changeRoleRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	newRole, valid := sec.ParseRole(input.Role)
	v := &validate.Validator{}
	v.UUID("id", targetID).Custom("role", !valid, "Unknown role")
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := handler.accountService.ChangeRole(request.Context(), *actor, targetID, newRole)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, updated)
}

// banRequest defines the expected JSON payload for account bans.
type banRequest struct {
	Reason          string `json:"reason"`
	DurationMinutes int    `json:"duration_minutes"` // 0 or absent means permanent
}

/*
POST /api/v1/admin/users/{id}/ban.

Description: Bans the target account, permanently or for a fixed number of
minutes. Self-bans and bans against peers or superiors are refused by the
ban service.

Request:
  - id: string (UUID)
  - body: banRequest

Response:
  - 200: Account: The target with its ban state set
  - 400: ErrSelfActionDenied: Actor targeted themselves
  - 403: ErrInsufficientPrivilege: Target outranks or equals the actor
  - 409: ErrConflict: Lost the write race after bounded retries
*/
func (handler *Handler) banUser(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	targetID := requestutil.ID(request, "id")

	var input banRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	v.UUID("id", targetID).
		Range("duration_minutes", input.DurationMinutes, 0, 527040).
		MaxLen("reason", input.Reason, 1000)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	banned, err := handler.banService.Ban(request.Context(), *actor, targetID, input.Reason, input.DurationMinutes)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, banned)
}

/*
DELETE /api/v1/admin/users/{id}/ban.

Description: Lifts the target account's ban, clearing reason and expiry.

Request:
  - id: string (UUID)

Response:
  - 200: Account: The target with a clean ban state
  - 403: ErrInsufficientPrivilege: Target outranks or equals the actor
*/
func (handler *Handler) unbanUser(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	targetID := requestutil.ID(request, "id")

	unbanned, err := handler.banService.Unban(request.Context(), *actor, targetID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, unbanned)
}

// # Content Moderation

/*
GET /api/v1/admin/content.

Description: Pages through the catalogue for the moderation console,
including HIDDEN and BANNED titles, optionally narrowed to one moderation
status.

Request:
  - status: string (ACTIVE, HIDDEN, or BANNED, optional)
  - genre: string (Optional genre filter)
  - q: string (Optional title/author search term)
  - uploader: string (Optional uploader account UUID)
  - page, limit: int

Response:
  - 200: []content.Record + pagination.Meta
  - 400: Validation: Unknown moderation status
  - 403: ErrInsufficientPrivilege: Actor below MODERATOR
*/
func (handler *Handler) listContent(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	page := pagination.FromRequest(request)

	status := request.URL.Query().Get("status")
	v := &validate.Validator{}
	if status != "" {
		v.OneOf("status", status, moderation.Statuses...)
	}
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	filter := content.Filter{
		Genre:      request.URL.Query().Get("genre"),
		Query:      request.URL.Query().Get("q"),
		UploaderID: request.URL.Query().Get("uploader"),
		ModStatus:  moderation.Status(status),
	}

	records, total, err := handler.contentService.List(request.Context(), filter, page, actor.Role)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, records, pagination.NewMeta(page.Page, page.Limit, int(total)))
}

// moderateRequest defines the expected JSON payload for moderation actions.
type moderateRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

/*
POST /api/v1/admin/content/{id}/moderation.

Description: Moves a title through the moderation state machine. Lifting a
content ban requires ADMIN; moderating an OWNER's uploads requires ADMIN.

Request:
  - id: string (UUID)
  - body: moderateRequest

Response:
  - 200: moderation.State: The committed sub-record
  - 400: Validation: Unknown status or illegal transition
  - 403: ErrInsufficientPrivilege: Action exceeds the actor's rank
  - 409: ErrConflict: Lost the write race after bounded retries
*/
func (handler *Handler) moderateContent(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	contentID := requestutil.ID(request, "id")

	var input moderateRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	v.UUID("id", contentID).
		OneOf("status", input.Status, moderation.Statuses...).
		MaxLen("reason", input.Reason, 1000)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	state, err := handler.moderationService.SetStatus(request.Context(), *actor, contentID,
		moderation.Status(input.Status), input.Reason)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, state)
}

// # Report Queue

/*
GET /api/v1/admin/reports.

Description: Pages through the report queue, newest first.

Request:
  - status: string (OPEN or RESOLVED, optional)
  - type: string (CONTENT or ACCOUNT, optional)
  - target: string (Optional target UUID)
  - page, limit: int

Response:
  - 200: []Report + pagination.Meta
*/
func (handler *Handler) listReports(writer http.ResponseWriter, request *http.Request) {
	page := pagination.FromRequest(request)

	filter := report.ListFilter{
		Status:   request.URL.Query().Get("status"),
		Type:     request.URL.Query().Get("type"),
		TargetID: request.URL.Query().Get("target"),
	}

	v := &validate.Validator{}
	if filter.Status != "" {
		v.OneOf("status", filter.Status, report.Statuses...)
	}
	if filter.Type != "" {
		v.OneOf("type", filter.Type, report.Types...)
	}
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	reports, total, err := handler.reportService.List(request.Context(), filter, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, reports, pagination.NewMeta(page.Page, page.Limit, int(total)))
}

// openCountResponse is the dashboard badge payload.
type openCountResponse struct {
	OpenReports int64 `json:"open_reports"`
}

/*
GET /api/v1/admin/reports/open-count.

Description: Returns the number of OPEN reports for the dashboard badge.
Served from the Redis cache when fresh.

Response:
  - 200: openCountResponse
*/
func (handler *Handler) openReportCount(writer http.ResponseWriter, request *http.Request) {
	count, err := handler.reportService.OpenCount(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, openCountResponse{OpenReports: count})
}

/*
POST /api/v1/admin/reports/{id}/resolve.

Description: Marks a report RESOLVED and stamps the resolution trail.
RESOLVED is terminal.

Request:
  - id: string (UUID)

Response:
  - 200: Report: The resolved report
  - 409: ErrAlreadyResolved: Report was already closed
  - 409: ErrConflict: Lost the write race after bounded retries
*/
func (handler *Handler) resolveReport(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	reportID := requestutil.ID(request, "id")

	resolved, err := handler.reportService.Resolve(request.Context(), *actor, reportID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, resolved)
}

// # Creator Applications

// creatorApplication is the review-queue projection of an applicant account.
type creatorApplication struct {
	AccountID string                    `json:"account_id"`
	Username  string                    `json:"username"`
	Badge     account.CreatorBadgeState `json:"badge"`
}

/*
GET /api/v1/admin/creator-applications.

Description: Pages through accounts with a PENDING creator application,
projected down to what the review queue needs.

Request:
  - page, limit: int

Response:
  - 200: []creatorApplication + pagination.Meta
*/
func (handler *Handler) listCreatorApplications(writer http.ResponseWriter, request *http.Request) {
	page := pagination.FromRequest(request)

	filter := account.ListFilter{BadgeStatus: string(account.BadgePending)}
	applicants, total, err := handler.accountService.ListAccounts(request.Context(), filter, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	applications := slice.Map(applicants, func(applicant account.Account) creatorApplication {
		return creatorApplication{
			AccountID: applicant.ID,
			Username:  applicant.Username,
			Badge:     applicant.Badge,
		}
	})

	respond.Paginated(writer, applications, pagination.NewMeta(page.Page, page.Limit, int(total)))
}

/*
POST /api/v1/admin/creator-applications/{id}/approve.

Description: Approves the target's pending creator application. Requires
ADMIN, enforced by the badge service.

Request:
  - id: string (UUID of the applicant account)

Response:
  - 200: CreatorBadgeState: The approved application
  - 400: Validation: No pending application to review
  - 403: ErrInsufficientPrivilege: Actor below ADMIN
*/
func (handler *Handler) approveCreatorApplication(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	applicantID := requestutil.ID(request, "id")

	state, err := handler.badgeService.Approve(request.Context(), *actor, applicantID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, state)
}

// rejectRequest defines the expected JSON payload for application rejections.
type rejectRequest struct {
	Note string `json:"note"`
}

/*
POST /api/v1/admin/creator-applications/{id}/reject.

Description: Rejects the target's pending creator application with an
optional reviewer note. Requires ADMIN, enforced by the badge service.

Request:
  - id: string (UUID of the applicant account)
  - body: rejectRequest

Response:
  - 200: CreatorBadgeState: The rejected application
  - 400: Validation: No pending application to review
  - 403: ErrInsufficientPrivilege: Actor below ADMIN
*/
func (handler *Handler) rejectCreatorApplication(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	applicantID := requestutil.ID(request, "id")

	var input rejectRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	if err := v.MaxLen("note", input.Note, 2000).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	state, err := handler.badgeService.Reject(request.Context(), *actor, applicantID, input.Note)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, state)
}
