// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

/*
Package account provides the HTTP delivery layer for identity sync, profiles,
and the personal library.

# Security

The sync endpoint needs only a verified identity token; everything else under
/me requires a resolved actor, enforced by the RequireAuth middleware at the
router level.
*/
package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anvubui/mirava/internal/platform/apperr"
	requestutil "github.com/anvubui/mirava/internal/platform/request"
	"github.com/anvubui/mirava/internal/platform/respond"
	"github.com/anvubui/mirava/internal/platform/validate"
)

// Handler implements the HTTP layer for account management.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] configured with the account domain's endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Identity Sync
	router.Post("/auth/sync", handler.syncIdentity)

	// Account Access
	router.Get("/me", handler.getMe)
	router.Get("/users/{id}", handler.getPublicProfile)

	// Personal Library
	router.Get("/me/library", handler.listLibrary)
	router.Put("/me/library/{contentID}", handler.saveLibraryEntry)
	router.Delete("/me/library/{contentID}", handler.removeLibraryEntry)

	// Reading Progress
	router.Get("/me/progress/{contentID}", handler.getProgress)
	router.Put("/me/progress/{contentID}", handler.saveProgress)

	return router
}

// # Identity Endpoints

/*
POST /api/v1/auth/sync.

Description: Provisions or refreshes the platform account behind the verified
identity token. Called by the client right after sign-in.

Response:
  - 200: Account: The provisioned or refreshed account
  - 401: ErrUnauthorized: No verified identity token
*/
func (handler *Handler) syncIdentity(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	synced, err := handler.accountService.SyncIdentity(request.Context(), claims)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, synced)
}

/*
GET /api/v1/me.

Description: Retrieves the full private account record of the acting user,
including ban and badge state.

Response:
  - 200: Account: Fully hydrated account
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredActorID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	found, err := handler.accountService.GetProfile(request.Context(), accountID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, found)
}

/*
GET /api/v1/users/{id}.

Description: Retrieves the public profile of any account.

Request:
  - id: string (UUID)

Response:
  - 200: PublicProfile: Safety-mapped profile
  - 404: ErrNotFound: Account not found
*/
func (handler *Handler) getPublicProfile(writer http.ResponseWriter, request *http.Request) {

	// Get account ID
	accountID := requestutil.ID(request, "id")

	// If the account ID is empty, return an error
	if accountID == "" {
		respond.Error(writer, request, apperr.NotFound("Account"))
		return
	}

	profile, err := handler.accountService.GetPublicProfile(request.Context(), accountID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

// # Library Endpoints

/*
GET /api/v1/me/library.

Description: Lists the acting user's saved titles with their catalogue
summaries, optionally filtered by the "status" query parameter. Titles no
longer visible to the viewer are omitted.

Response:
  - 200: []LibraryItem: Saved titles, most recently updated first
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) listLibrary(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	status := request.URL.Query().Get("status")
	if status != "" {
		v := &validate.Validator{}
		if err := v.OneOf("status", status, LibraryStatuses...).Err(); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	items, err := handler.accountService.ListLibrary(request.Context(), actor.ID, status, actor.Role)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, items)
}

// saveLibraryEntryRequest defines the expected JSON payload for library saves.
type saveLibraryEntryRequest struct {
	Status string `json:"status"`
}

/*
PUT /api/v1/me/library/{contentID}.

Description: Adds or re-files a title in the acting user's library.

Request:
  - contentID: string (UUID)
  - body: saveLibraryEntryRequest

Response:
  - 200: LibraryEntry: The stored entry
  - 400: Validation: Unknown library status
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) saveLibraryEntry(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredActorID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	contentID := requestutil.ID(request, "contentID")

	var input saveLibraryEntryRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	v.UUID("contentID", contentID).
		OneOf("status", input.Status, LibraryStatuses...)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	entry, err := handler.accountService.SaveLibraryEntry(request.Context(), accountID, contentID, input.Status)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, entry)
}

/*
DELETE /api/v1/me/library/{contentID}.

Description: Drops a title from the acting user's library.

Request:
  - contentID: string (UUID)

Response:
  - 204: No Content: Entry removed
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) removeLibraryEntry(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredActorID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	contentID := requestutil.ID(request, "contentID")

	if err := handler.accountService.RemoveLibraryEntry(request.Context(), accountID, contentID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Reading Progress Endpoints

/*
GET /api/v1/me/progress/{contentID}.

Description: Retrieves the last page the acting user reached in a title.
Titles never opened return a zero progress record.

Request:
  - contentID: string (UUID)

Response:
  - 200: ReadingProgress: Stored or zero-valued progress
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) getProgress(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredActorID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	contentID := requestutil.ID(request, "contentID")

	progress, err := handler.accountService.GetProgress(request.Context(), accountID, contentID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, progress)
}

// saveProgressRequest defines the expected JSON payload for progress saves.
type saveProgressRequest struct {
	Page int `json:"page"`
}

/*
PUT /api/v1/me/progress/{contentID}.

Description: Remembers the last page the acting user reached in a title.

Request:
  - contentID: string (UUID)
  - body: saveProgressRequest

Response:
  - 200: ReadingProgress: The stored progress
  - 400: Validation: Negative page index
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) saveProgress(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredActorID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	contentID := requestutil.ID(request, "contentID")

	var input saveProgressRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	v.UUID("contentID", contentID).
		Range("page", input.Page, 0, 100000)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	progress, err := handler.accountService.SaveProgress(request.Context(), accountID, contentID, input.Page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, progress)
}
