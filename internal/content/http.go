// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

package content

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/anvubui/mirava/internal/platform/request"
	"github.com/anvubui/mirava/internal/platform/respond"
	"github.com/anvubui/mirava/internal/platform/sec"
	"github.com/anvubui/mirava/internal/platform/validate"
	"github.com/anvubui/mirava/pkg/pagination"
	"github.com/anvubui/mirava/pkg/query"
)

// Handler implements the HTTP layer for the content catalogue.
type Handler struct {
	contentService *Service
}

// NewHandler constructs a new content [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{contentService: service}
}

// Routes returns a [chi.Router] configured with the catalogue endpoints.
//
// Browsing is open to anonymous readers; publishing and engagement require
// a resolved actor, enforced here per-route rather than at the group level.
func (handler *Handler) Routes(requireAuth func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	// Discovery (anonymous allowed)
	router.Get("/", handler.list)
	router.Get("/{identifier}", handler.get)

	// Catalogue Management
	router.Group(func(authed chi.Router) {
		authed.Use(requireAuth)
		authed.Post("/", handler.create)
		authed.Patch("/{id}", handler.update)
		authed.Delete("/{id}", handler.delete)
		authed.Post("/{id}/like", handler.toggleLike)
		authed.Get("/{id}/like", handler.likeStatus)
	})

	return router
}

// viewerRole extracts the acting role, zero-valued for anonymous readers.
func viewerRole(request *http.Request) sec.UserRole {
	if actor := requestutil.Actor(request); actor != nil {
		return actor.Role
	}
	return ""
}

// # Discovery Endpoints

/*
GET /api/v1/content.

Description: Pages through the catalogue. Readers see ACTIVE titles only;
staff also see HIDDEN and BANNED ones.

Request:
  - genre: string (Optional genre filter)
  - q: string (Optional title/author search term)
  - uploader: string (Optional uploader account UUID)
  - page, limit: int

Response:
  - 200: []Record + pagination.Meta
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	page := pagination.FromRequest(request)
	filter := Filter{
		Genre:      request.URL.Query().Get("genre"),
		Query:      request.URL.Query().Get("q"),
		UploaderID: request.URL.Query().Get("uploader"),
	}

	records, total, err := handler.contentService.List(request.Context(), filter, page, viewerRole(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, records, pagination.NewMeta(page.Page, page.Limit, int(total)))
}

/*
GET /api/v1/content/{identifier}.

Description: Retrieves one title by UUID or slug and counts the view.
Non-ACTIVE titles are 404 for readers below MODERATOR.

Request:
  - identifier: string (UUID or slug)

Response:
  - 200: Record: Hydrated record with like and view counts
  - 404: ErrNotFound: Unknown or not visible
*/
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	identifier := requestutil.ID(request, "identifier")

	record, err := handler.contentService.Get(request.Context(), identifier, viewerRole(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, record)
}

// # Management Endpoints

// createRequest defines the expected JSON payload for uploads.
type createRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Author       string `json:"author"`
	Genres       string `json:"genres"` // comma separated
	ThumbnailURL string `json:"thumbnail_url"`
	PDFURL       string `json:"pdf_url"`
}

/*
POST /api/v1/content.

Description: Publishes a new title under the acting account. Effectively
banned accounts are refused.

Request:
  - body: createRequest

Response:
  - 201: Record: The published record
  - 400: Validation: Missing title or document reference
  - 403: ErrBanned: Acting account is banned
*/
func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	record, err := handler.contentService.Create(request.Context(), *actor, CreateInput{
		Title:        input.Title,
		Description:  input.Description,
		Author:       input.Author,
		Genres:       query.StringSlice(input.Genres),
		ThumbnailURL: input.ThumbnailURL,
		PDFURL:       input.PDFURL,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, record)
}

// updateRequest defines the expected JSON payload for metadata edits.
// Absent fields are left unchanged.
type updateRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Author       *string `json:"author"`
	Genres       *string `json:"genres"` // comma separated
	ThumbnailURL *string `json:"thumbnail_url"`
}

/*
PATCH /api/v1/content/{id}.

Description: Edits title metadata. Uploaders edit their own records unless
staff has banned them; staff edits follow the moderation rules.

Request:
  - id: string (UUID)
  - body: updateRequest

Response:
  - 200: Record: The updated record
  - 403: ErrInsufficientPrivilege: Not the uploader and not allowed staff
  - 409: ErrConflict: Lost the write race after bounded retries
*/
func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	contentID := requestutil.ID(request, "id")

	var input updateRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	if err := v.UUID("id", contentID).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	delta := UpdateInput{
		Title:        input.Title,
		Description:  input.Description,
		Author:       input.Author,
		ThumbnailURL: input.ThumbnailURL,
	}
	if input.Genres != nil {
		delta.Genres = query.StringSlice(*input.Genres)
	}

	record, err := handler.contentService.Update(request.Context(), *actor, contentID, delta)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, record)
}

/*
DELETE /api/v1/content/{id}.

Description: Permanently removes a title, its engagement rows, and its
stored files. Banned titles are only removable by staff.

Request:
  - id: string (UUID)

Response:
  - 204: No Content: Record removed
  - 403: ErrInsufficientPrivilege: Not the uploader and not allowed staff
*/
func (handler *Handler) delete(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	contentID := requestutil.ID(request, "id")

	if err := handler.contentService.Delete(request.Context(), *actor, contentID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Engagement Endpoints

// likeResponse is the toggle result payload.
type likeResponse struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

/*
POST /api/v1/content/{id}/like.

Description: Toggles the acting account's like on a title.

Request:
  - id: string (UUID)

Response:
  - 200: likeResponse: State after the toggle
  - 404: ErrNotFound: Unknown or not visible
*/
func (handler *Handler) toggleLike(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	contentID := requestutil.ID(request, "id")

	liked, count, err := handler.contentService.ToggleLike(request.Context(), *actor, contentID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, likeResponse{Liked: liked, LikeCount: count})
}

/*
GET /api/v1/content/{id}/like.

Description: Reports whether the acting account likes a title, plus the
current like count, without toggling anything.

Request:
  - id: string (UUID)

Response:
  - 200: likeResponse: Current like state
  - 404: ErrNotFound: Unknown or not visible
*/
func (handler *Handler) likeStatus(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	contentID := requestutil.ID(request, "id")

	liked, count, err := handler.contentService.LikeStatus(request.Context(), *actor, contentID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, likeResponse{Liked: liked, LikeCount: count})
}
