// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

package badge

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/anvubui/mirava/internal/platform/request"
	"github.com/anvubui/mirava/internal/platform/respond"
	"github.com/anvubui/mirava/internal/platform/validate"
)

// Handler implements the member-facing HTTP layer for creator applications.
//
// Reviewing (approve/reject) lives under the admin surface; members can
// only apply.
type Handler struct {
	badgeService *Service
}

// NewHandler constructs a new badge [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{badgeService: service}
}

// Routes returns a [chi.Router] with the member-facing badge endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/", handler.apply)
	return router
}

// applyRequest defines the expected JSON payload for a creator application.
type applyRequest struct {
	Message string `json:"message"`
}

/*
POST /api/v1/me/creator-application.

Description: Submits (or resubmits after rejection) the acting account's
creator badge application.

Request:
  - body: applyRequest

Response:
  - 200: CreatorBadgeState: The pending application
  - 400: Validation: Message too long
  - 401: ErrUnauthorized: Authentication required
  - 409: ErrAlreadyPending: An application is already under review
*/
func (handler *Handler) apply(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredActorID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input applyRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	if err := v.MaxLen("message", input.Message, 2000).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	state, err := handler.badgeService.Apply(request.Context(), accountID, input.Message)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, state)
}
